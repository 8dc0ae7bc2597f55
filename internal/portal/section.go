package portal

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"eng_portal/internal/backend"
	"eng_portal/internal/form"
	"eng_portal/internal/listview"
	"eng_portal/internal/records"
)

// screens is what the workspace needs from a Section regardless of its
// record type. Every method runs with the workspace lock held.
type screens interface {
	formView() View
	listView() View
	mount(ctx context.Context, v View)
	unmount(v View)
	editID() string
}

// Section is the form and list pair of one record kind.
type Section[T any] struct {
	ws       *Workspace
	kind     records.Kind[T]
	FormView View
	ListView View

	form    *form.Form[T]
	list    *listview.View[T]
	editing *T
}

func newSection[T any](ws *Workspace, kind records.Kind[T], formView, listView View) *Section[T] {
	return &Section[T]{ws: ws, kind: kind, FormView: formView, ListView: listView}
}

func (s *Section[T]) formView() View { return s.FormView }
func (s *Section[T]) listView() View { return s.ListView }

func (s *Section[T]) editID() string {
	if s.editing == nil {
		return ""
	}
	return s.kind.ID(s.editing)
}

func (s *Section[T]) mount(ctx context.Context, v View) {
	switch v {
	case s.FormView:
		var onComplete func()
		if s.editing != nil {
			onComplete = s.complete
		}
		s.form = form.New(ctx, s.kind, s.ws.client, s.ws.logger, s.editing, onComplete)
	case s.ListView:
		s.list = listview.New(s.kind, s.ws.client, s.ws.logger)
		// A failed fetch is logged and leaves the list empty.
		_ = s.list.Fetch(ctx)
	}
}

func (s *Section[T]) unmount(v View) {
	switch v {
	case s.FormView:
		s.form = nil
		s.editing = nil
	case s.ListView:
		s.list = nil
	}
}

// complete runs when an edit form is saved or cancelled.
func (s *Section[T]) complete() {
	s.ws.mu.Lock()
	defer s.ws.mu.Unlock()
	if s.ws.active != s.FormView {
		return
	}
	s.ws.navigate(s.ws.ctx, s.ListView)
}

// Form returns the mounted form.
func (s *Section[T]) Form() (*form.Form[T], error) {
	s.ws.mu.Lock()
	defer s.ws.mu.Unlock()
	if s.form == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotMounted, s.FormView)
	}
	return s.form, nil
}

// List returns the mounted list.
func (s *Section[T]) List() (*listview.View[T], error) {
	s.ws.mu.Lock()
	defer s.ws.mu.Unlock()
	if s.list == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotMounted, s.ListView)
	}
	return s.list, nil
}

// EditTarget is the id of the record the form is editing, if any.
func (s *Section[T]) EditTarget() string {
	s.ws.mu.Lock()
	defer s.ws.mu.Unlock()
	return s.editID()
}

// Edit opens the form on the record with id from the mounted list.
func (s *Section[T]) Edit(ctx context.Context, id string) error {
	s.ws.mu.Lock()
	defer s.ws.mu.Unlock()
	if s.list == nil {
		return fmt.Errorf("%w: %s", ErrNotMounted, s.ListView)
	}
	rec, ok := s.list.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s %s", backend.ErrNotFound, s.kind.Collection, id)
	}
	s.ws.leave()
	s.editing = &rec
	s.ws.active = s.FormView
	s.mount(ctx, s.FormView)
	s.ws.logger.Info("editing record", zap.String("collection", s.kind.Collection), zap.String("id", id))
	return nil
}
