// Package enums loads the option lists behind the portal's select fields.
package enums

import (
	"context"
	"slices"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"eng_portal/internal/backend"
)

// Enumeration names known to the backend.
const (
	StaffName      = "staff_name"
	PriorityLevel  = "priority_level"
	ActionStatus   = "action_status"
	PlantArea      = "plant_area_type"
	Equipment      = "equipment_type"
	Department     = "dept_name"
	Discipline     = "discipline_type"
	Contractor     = "contractor_name"
	Aspect         = "aspect_type"
	Source         = "source_type"
	TrainingAspect = "training_aspect_type"
	TrainingMethod = "training_method_type"
	TestType       = "test_type"
)

// Options maps an enumeration name to its ordered values.
type Options map[string][]string

// Get returns the values for name, never nil.
func (o Options) Get(name string) []string {
	if v, ok := o[name]; ok && v != nil {
		return v
	}
	return []string{}
}

// Allows reports whether value may be chosen for name. The empty value is
// the unselected placeholder and is always allowed.
func (o Options) Allows(name, value string) bool {
	if value == "" {
		return true
	}
	return slices.Contains(o[name], value)
}

// Load fetches every named enumeration concurrently. A failed fetch is logged
// and leaves that enumeration empty.
func Load(ctx context.Context, p backend.Procedures, logger *zap.Logger, names ...string) Options {
	opts := make(Options, len(names))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		mu.Lock()
		opts[name] = []string{}
		mu.Unlock()
		g.Go(func() error {
			values, err := p.CallProcedure(gctx, backend.EnumProcedure, map[string]any{"enum_name": name})
			if err != nil {
				logger.Warn("failed to load enumeration", zap.String("enum", name), zap.Error(err))
				return nil
			}
			mu.Lock()
			opts[name] = append([]string{}, values...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return opts
}
