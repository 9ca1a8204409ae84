// Package relay bridges the handle-notification pattern to live
// websocket sessions. Delivery is best-effort: a notification for a user
// without a live session is dropped silently.
package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 16
)

// TokenVerifier validates the handshake token and yields the user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

type session struct {
	id      string
	conn    *websocket.Conn
	send    chan contracts.WSEvent
	done    chan struct{}
	closeFn sync.Once
}

func (s *session) close() {
	s.closeFn.Do(func() { close(s.done) })
}

// Relay owns the session registry and pushes notifications to connected
// users. It is safe for concurrent use.
type Relay struct {
	verifier TokenVerifier
	logger   *logging.Logger
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader

	registry *registry

	mu       sync.RWMutex
	sessions map[string]*session
}

func NewRelay(verifier TokenVerifier, logger *logging.Logger, m *metrics.Metrics) *Relay {
	return &Relay{
		verifier: verifier,
		logger:   logger,
		metrics:  m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		registry: newRegistry(),
		sessions: make(map[string]*session),
	}
}

// ServeHTTP upgrades the connection after verifying the handshake token.
// A missing or invalid token is an explicit rejection, not a silent drop.
func (r *Relay) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	token := handshakeToken(req)
	if token == "" {
		r.logger.Warn("websocket handshake without token rejected")
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := r.verifier.Verify(token)
	if err != nil {
		r.logger.WithError(err).Warn("websocket handshake token rejected")
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	sess := &session{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan contracts.WSEvent, sendBufferSize),
		done: make(chan struct{}),
	}
	r.register(userID, sess)

	r.logger.WithFields(map[string]interface{}{
		"user_id":    userID,
		"session_id": sess.id,
	}).Info("websocket session connected")

	go r.writePump(sess)
	go r.readPump(sess)
}

// Push delivers the notification to the target user's live session. When
// the user is offline the message is dropped without error.
func (r *Relay) Push(_ context.Context, msg contracts.NotificationMessage) {
	sessionID, ok := r.registry.session(msg.UserID)
	if !ok {
		r.metrics.NotificationsDropped.Inc()
		return
	}

	r.mu.RLock()
	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		r.metrics.NotificationsDropped.Inc()
		return
	}

	event := contracts.WSEvent{Event: contracts.NotificationEvent, Data: msg}
	select {
	case sess.send <- event:
		r.metrics.NotificationsPushed.Inc()
	case <-sess.done:
		r.metrics.NotificationsDropped.Inc()
	default:
		// Slow consumer; drop rather than block the dispatcher.
		r.metrics.NotificationsDropped.Inc()
	}
}

// Connections reports the number of live sessions.
func (r *Relay) Connections() int {
	return r.registry.size()
}

func (r *Relay) register(userID int64, sess *session) {
	displaced := r.registry.bind(userID, sess.id)

	r.mu.Lock()
	r.sessions[sess.id] = sess
	var old *session
	if displaced != "" {
		old = r.sessions[displaced]
		delete(r.sessions, displaced)
	}
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	r.metrics.WSConnectionsActive.Set(float64(r.registry.size()))
}

func (r *Relay) unregister(sess *session) {
	r.registry.unbind(sess.id)

	r.mu.Lock()
	if current, ok := r.sessions[sess.id]; ok && current == sess {
		delete(r.sessions, sess.id)
	}
	r.mu.Unlock()
	sess.close()

	r.metrics.WSConnectionsActive.Set(float64(r.registry.size()))
}

// readPump discards inbound frames; the socket is push-only. Its real job
// is detecting disconnects and answering pings.
func (r *Relay) readPump(sess *session) {
	defer func() {
		r.unregister(sess)
		sess.conn.Close()
	}()

	sess.conn.SetReadLimit(512)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sess.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (r *Relay) writePump(sess *session) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.conn.Close()
	}()

	for {
		select {
		case <-sess.done:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			sess.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "superseded"))
			return
		case event := <-sess.send:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			if err := sess.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handshakeToken pulls the identity token from the Authorization header
// or, for browser clients that cannot set headers on websocket dials,
// the token query parameter.
func handshakeToken(req *http.Request) string {
	if auth := req.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return req.URL.Query().Get("token")
}
