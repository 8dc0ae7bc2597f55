// Package listview keeps the fetched rows of one record collection together
// with the user's search term and expanded detail row.
package listview

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"eng_portal/internal/backend"
	"eng_portal/internal/records"
)

// Row is one displayed record.
type Row[T any] struct {
	Record   T                        `json:"record"`
	Badges   map[string]records.Badge `json:"badges,omitempty"`
	RowClass string                   `json:"row_class,omitempty"`
	Expanded bool                     `json:"expanded"`
}

// Snapshot is the rendered state of a view.
type Snapshot[T any] struct {
	Term     string         `json:"term"`
	Loading  bool           `json:"loading"`
	Expanded string         `json:"expanded,omitempty"`
	Total    int            `json:"total"`
	Rows     []Row[T]       `json:"rows"`
	Stats    []records.Stat `json:"stats"`
}

// View is a list/detail view over one collection. Concurrent fetches are not
// sequenced: whichever response arrives last replaces the rows.
type View[T any] struct {
	kind    records.Kind[T]
	records backend.Records
	logger  *zap.Logger

	mu       sync.Mutex
	all      []T
	filtered []T
	term     string
	loading  bool
	expanded string
}

// New returns an empty view over kind's collection. Call Fetch to load it.
func New[T any](kind records.Kind[T], recs backend.Records, logger *zap.Logger) *View[T] {
	return &View[T]{
		kind:    kind,
		records: recs,
		logger:  logger.With(zap.String("list", kind.Collection)),
	}
}

// Fetch reloads every row, newest first, and re-applies the search term. On
// error the previous rows are kept.
func (v *View[T]) Fetch(ctx context.Context) error {
	v.mu.Lock()
	v.loading = true
	v.mu.Unlock()

	var rows []T
	err := v.records.Select(ctx, v.kind.Collection, v.kind.OrderBy, true, &rows)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.loading = false
	if err != nil {
		v.logger.Error("failed to fetch rows", zap.Error(err))
		return fmt.Errorf("failed to fetch %s: %w", v.kind.Collection, err)
	}
	v.all = rows
	v.filtered = v.filter(rows, v.term)
	return nil
}

// Filter keeps the rows where any searchable field contains term, ignoring
// case. It returns the number of rows kept.
func (v *View[T]) Filter(term string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.term = term
	v.filtered = v.filter(v.all, term)
	return len(v.filtered)
}

func (v *View[T]) filter(rows []T, term string) []T {
	if term == "" {
		return rows
	}
	out := make([]T, 0, len(rows))
	for i := range rows {
		if v.kind.Matches(&rows[i], term) {
			out = append(out, rows[i])
		}
	}
	return out
}

// Rows returns the filtered rows.
func (v *View[T]) Rows() []T {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]T(nil), v.filtered...)
}

// Find returns the fetched row with id.
func (v *View[T]) Find(id string) (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.all {
		if v.kind.ID(&v.all[i]) == id {
			return v.all[i], true
		}
	}
	var zero T
	return zero, false
}

// ToggleDetail expands the row with id, collapsing any other; toggling the
// expanded row collapses it. It returns the expanded id.
func (v *View[T]) ToggleDetail(id string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.expanded == id {
		v.expanded = ""
	} else {
		v.expanded = id
	}
	return v.expanded
}

// Delete asks confirm with the kind's prompt. When confirmed it deletes the
// record and refetches. It reports whether the record was deleted.
func (v *View[T]) Delete(ctx context.Context, id string, confirm func(prompt string) bool) (bool, error) {
	if !confirm(v.kind.Messages.DeletePrompt) {
		return false, nil
	}
	if err := v.records.Delete(ctx, v.kind.Collection, id); err != nil {
		v.logger.Error("failed to delete row", zap.String("id", id), zap.Error(err))
		return false, fmt.Errorf("failed to delete %s: %w", v.kind.Name, err)
	}
	v.logger.Info("row deleted", zap.String("id", id))

	v.mu.Lock()
	if v.expanded == id {
		v.expanded = ""
	}
	v.mu.Unlock()

	// A failed refetch is logged by Fetch and leaves the stale rows.
	_ = v.Fetch(ctx)
	return true, nil
}

// ExportCSV writes a header line and one line per filtered row.
func (v *View[T]) ExportCSV(w io.Writer) error {
	rows := v.Rows()
	cw := csv.NewWriter(w)
	header := make([]string, len(v.kind.Columns))
	for i, c := range v.kind.Columns {
		header[i] = c.Header
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	line := make([]string, len(v.kind.Columns))
	for i := range rows {
		for j, c := range v.kind.Columns {
			line[j] = c.Value(&rows[i])
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// FileName is the export's download name for the day of now.
func (v *View[T]) FileName(now time.Time) string {
	return v.kind.Collection + "-" + now.Format(records.DateLayout) + ".csv"
}

func (v *View[T]) Snapshot() Snapshot[T] {
	v.mu.Lock()
	defer v.mu.Unlock()
	snap := Snapshot[T]{
		Term:     v.term,
		Loading:  v.loading,
		Expanded: v.expanded,
		Total:    len(v.all),
		Rows:     make([]Row[T], 0, len(v.filtered)),
		Stats:    v.kind.Stats(v.filtered),
	}
	for i := range v.filtered {
		rec := &v.filtered[i]
		snap.Rows = append(snap.Rows, Row[T]{
			Record:   *rec,
			Badges:   v.kind.Badges(rec),
			RowClass: v.kind.RowClass(rec),
			Expanded: v.expanded != "" && v.kind.ID(rec) == v.expanded,
		})
	}
	return snap
}
