package portal

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"eng_portal/internal/auth"
	"eng_portal/internal/backend"
)

// Broker publishes session changes.
type Broker interface {
	OnSessionChange(fn func(auth.Event)) (unsubscribe func())
}

// Registry holds the workspace of every live session.
type Registry struct {
	client backend.Client
	broker Broker
	logger *zap.Logger

	// Now is the clock used to record and sweep last activity.
	Now func() time.Time

	mu         sync.Mutex
	workspaces map[string]*Workspace
	seen       map[string]time.Time
}

func NewRegistry(client backend.Client, broker Broker, logger *zap.Logger) *Registry {
	return &Registry{
		client:     client,
		broker:     broker,
		logger:     logger,
		workspaces: map[string]*Workspace{},
		seen:       map[string]time.Time{},
		Now:        time.Now,
	}
}

// Open returns the workspace of sess, creating it on first use, and marks
// the session active. A new workspace is disposed when its session signs out
// or is swept idle.
func (r *Registry) Open(ctx context.Context, sess auth.Session) *Workspace {
	r.mu.Lock()
	if ws, ok := r.workspaces[sess.ID]; ok {
		r.seen[sess.ID] = r.Now()
		r.mu.Unlock()
		return ws
	}
	r.mu.Unlock()

	ws := newWorkspace(ctx, sess, r.client, r.logger)

	r.mu.Lock()
	if existing, ok := r.workspaces[sess.ID]; ok {
		r.seen[sess.ID] = r.Now()
		r.mu.Unlock()
		ws.Close()
		return existing
	}
	r.workspaces[sess.ID] = ws
	r.seen[sess.ID] = r.Now()
	r.mu.Unlock()

	unsubscribe := r.broker.OnSessionChange(func(ev auth.Event) {
		if ev.Kind == auth.SignedOut && ev.Session.ID == sess.ID {
			r.dispose(sess.ID)
		}
	})
	ws.mu.Lock()
	ws.unsubscribe = unsubscribe
	ws.mu.Unlock()

	r.logger.Info("workspace opened", zap.String("session_id", sess.ID), zap.String("user_id", sess.UserID))
	return ws
}

// Get returns the workspace of a live session.
func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.workspaces[sessionID]
	return ws, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}

func (r *Registry) dispose(sessionID string) {
	r.mu.Lock()
	ws, ok := r.workspaces[sessionID]
	delete(r.workspaces, sessionID)
	delete(r.seen, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}
	ws.Close()
	r.logger.Info("workspace disposed", zap.String("session_id", sessionID))
}

// Sweep disposes every workspace not opened for longer than idle and returns
// how many it removed.
func (r *Registry) Sweep(idle time.Duration) int {
	cutoff := r.Now().Add(-idle)
	r.mu.Lock()
	var stale []string
	for id, at := range r.seen {
		if at.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()
	for _, id := range stale {
		r.dispose(id)
	}
	if len(stale) > 0 {
		r.logger.Info("swept idle workspaces", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep(idle)
		}
	}
}

// Close disposes every workspace.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.workspaces))
	for id := range r.workspaces {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		r.dispose(id)
	}
}
