// Package portal holds the per-session navigation shell: which screen is
// active, the mounted forms and lists, and pending edit targets.
package portal

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"eng_portal/internal/auth"
	"eng_portal/internal/backend"
	"eng_portal/internal/records"
)

// Workspace is one signed-in session's screens.
type Workspace struct {
	Session auth.Session

	Logs     *Section[records.DailyLog]
	Actions  *Section[records.ActionItem]
	Training *Section[records.TrainingRecord]

	client backend.Client
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	active      View
	sections    []screens
	unsubscribe func()
}

func newWorkspace(ctx context.Context, sess auth.Session, client backend.Client, logger *zap.Logger) *Workspace {
	base, cancel := context.WithCancel(context.WithoutCancel(ctx))
	ws := &Workspace{
		Session: sess,
		client:  client,
		logger:  logger.With(zap.String("session_id", sess.ID)),
		ctx:     base,
		cancel:  cancel,
	}
	ws.Logs = newSection(ws, records.DailyLogs, Logs, ViewLogs)
	ws.Actions = newSection(ws, records.Actions, Actions, ViewActions)
	ws.Training = newSection(ws, records.Trainings, Training, ViewTraining)
	ws.sections = []screens{ws.Logs, ws.Actions, ws.Training}

	ws.mu.Lock()
	ws.navigate(ctx, Logs)
	ws.mu.Unlock()
	return ws
}

// Active is the current view.
func (ws *Workspace) Active() View {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.active
}

// Navigate switches to v, mounting it fresh. Leaving a form drops its edit
// target. Navigating to the active view does nothing.
func (ws *Workspace) Navigate(ctx context.Context, v View) error {
	if _, err := ParseView(string(v)); err != nil {
		return err
	}
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if v == ws.active {
		return nil
	}
	ws.navigate(ctx, v)
	return nil
}

func (ws *Workspace) navigate(ctx context.Context, v View) {
	ws.leave()
	ws.active = v
	if s := ws.owner(v); s != nil {
		s.mount(ctx, v)
	}
	ws.logger.Debug("navigated", zap.String("view", string(v)))
}

// leave unmounts the active view.
func (ws *Workspace) leave() {
	if s := ws.owner(ws.active); s != nil {
		s.unmount(ws.active)
	}
}

func (ws *Workspace) owner(v View) screens {
	for _, s := range ws.sections {
		if s.formView() == v || s.listView() == v {
			return s
		}
	}
	return nil
}

// Header is the title bar text of the active view.
func (ws *Workspace) Header() Header {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	var editID string
	if s := ws.owner(ws.active); s != nil && s.formView() == ws.active {
		editID = s.editID()
	}
	return headerFor(ws.active, editID)
}

// Close unmounts every screen and drops the session subscription.
func (ws *Workspace) Close() {
	ws.mu.Lock()
	ws.leave()
	ws.active = ""
	unsubscribe := ws.unsubscribe
	ws.unsubscribe = nil
	ws.mu.Unlock()

	ws.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}
