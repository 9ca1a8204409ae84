package relay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/task-platform/services/notification-service/internal/relay"
	"github.com/taskhive/task-platform/shared/contracts"
	"github.com/taskhive/task-platform/shared/logging"
	"github.com/taskhive/task-platform/shared/metrics"
	"github.com/taskhive/task-platform/shared/token"
)

const testSecret = "relay-test-secret"

func newTestRelay(t *testing.T) (*relay.Relay, *httptest.Server, *token.Signer) {
	t.Helper()
	logger := logging.NewLogger(&logging.Config{Level: "disabled", Service: "relay-test"})
	m := metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "relay")
	r := relay.NewRelay(token.NewVerifier([]byte(testSecret)), logger, m)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return r, server, token.NewSigner([]byte(testSecret), time.Hour)
}

func dial(t *testing.T, server *httptest.Server, identityToken string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=" + identityToken
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandshakeWithoutTokenIsRejected(t *testing.T) {
	_, server, _ := newTestRelay(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshakeWithBadTokenIsRejected(t *testing.T) {
	_, server, _ := newTestRelay(t)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "?token=garbage"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandshakeAcceptsBearerHeader(t *testing.T) {
	r, server, signer := newTestRelay(t)
	identityToken, err := signer.Sign(7)
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	header := http.Header{"Authorization": []string{"Bearer " + identityToken}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return r.Connections() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestPushDeliversToConnectedUser(t *testing.T) {
	r, server, signer := newTestRelay(t)
	identityToken, err := signer.Sign(7)
	require.NoError(t, err)
	conn := dial(t, server, identityToken)

	require.Eventually(t, func() bool { return r.Connections() == 1 },
		time.Second, 10*time.Millisecond)

	r.Push(context.Background(), contracts.NotificationMessage{
		Title:   "Task assigned",
		Message: "ship the release",
		Type:    contracts.NotificationInfo,
		UserID:  7,
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var event contracts.WSEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, contracts.NotificationEvent, event.Event)
	assert.Equal(t, "ship the release", event.Data.Message)
	assert.Equal(t, int64(7), event.Data.UserID)
}

func TestPushToOfflineUserIsSilentNoOp(t *testing.T) {
	r, _, _ := newTestRelay(t)

	r.Push(context.Background(), contracts.NotificationMessage{
		Title: "nobody home", UserID: 42,
	})

	assert.Equal(t, 0, r.Connections())
}

func TestNewSessionSupersedesOld(t *testing.T) {
	r, server, signer := newTestRelay(t)
	identityToken, err := signer.Sign(7)
	require.NoError(t, err)

	old := dial(t, server, identityToken)
	require.Eventually(t, func() bool { return r.Connections() == 1 },
		time.Second, 10*time.Millisecond)

	fresh := dial(t, server, identityToken)
	require.Eventually(t, func() bool { return r.Connections() == 1 },
		time.Second, 10*time.Millisecond)

	// The displaced session is closed by the relay.
	old.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := old.ReadMessage(); err != nil {
			break
		}
	}

	r.Push(context.Background(), contracts.NotificationMessage{
		Title: "for the fresh session", UserID: 7,
	})

	fresh.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := fresh.ReadMessage()
	require.NoError(t, err)

	var event contracts.WSEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	assert.Equal(t, "for the fresh session", event.Data.Title)
}

func TestDisconnectUnbindsUser(t *testing.T) {
	r, server, signer := newTestRelay(t)
	identityToken, err := signer.Sign(7)
	require.NoError(t, err)

	conn := dial(t, server, identityToken)
	require.Eventually(t, func() bool { return r.Connections() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return r.Connections() == 0 },
		time.Second, 10*time.Millisecond)
}
