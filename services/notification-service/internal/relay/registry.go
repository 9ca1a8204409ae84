package relay

import "sync"

// registry tracks which websocket session belongs to which user. A user
// has at most one live session: a new connection for the same user
// supersedes the previous one (last write wins).
type registry struct {
	mu        sync.RWMutex
	byUser    map[int64]string
	bySession map[string]int64
}

func newRegistry() *registry {
	return &registry{
		byUser:    make(map[int64]string),
		bySession: make(map[string]int64),
	}
}

// bind associates userID with sessionID and returns the session id that
// was displaced, if any.
func (r *registry) bind(userID int64, sessionID string) (displaced string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byUser[userID]; ok && old != sessionID {
		delete(r.bySession, old)
		displaced = old
	}
	r.byUser[userID] = sessionID
	r.bySession[sessionID] = userID
	return displaced
}

// unbind removes the session. A stale session that was already displaced
// by a newer one does not unbind the user.
func (r *registry) unbind(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.bySession[sessionID]
	if !ok {
		return
	}
	delete(r.bySession, sessionID)
	if r.byUser[userID] == sessionID {
		delete(r.byUser, userID)
	}
}

// session returns the live session id for the user, if any.
func (r *registry) session(userID int64) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sessionID, ok := r.byUser[userID]
	return sessionID, ok
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySession)
}
