package listview

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eng_portal/internal/backend"
	"eng_portal/internal/backend/memory"
	"eng_portal/internal/form"
	"eng_portal/internal/records"
)

func seedActions(t *testing.T, c *memory.Client, items ...records.ActionItem) {
	t.Helper()
	for _, a := range items {
		require.NoError(t, c.Insert(context.Background(), backend.Actions, a))
	}
}

func statValue(stats []records.Stat, key string) float64 {
	for _, s := range stats {
		if s.Key == key {
			return s.Value
		}
	}
	return -1
}

func TestFetch_NewestFirst(t *testing.T) {
	c := memory.New()
	seedActions(t, c,
		records.ActionItem{Issue: "old", DateRaised: "2026-01-05"},
		records.ActionItem{Issue: "new", DateRaised: "2026-03-01"},
		records.ActionItem{Issue: "mid", DateRaised: "2026-02-10"},
	)
	v := New(records.Actions, c, zap.NewNop())

	require.NoError(t, v.Fetch(context.Background()))
	rows := v.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{rows[0].Issue, rows[1].Issue, rows[2].Issue})
	assert.False(t, v.Snapshot().Loading)
}

func TestFetch_ErrorKeepsRows(t *testing.T) {
	c := memory.New()
	seedActions(t, c, records.ActionItem{Issue: "kept"})
	v := New(records.Actions, c, zap.NewNop())
	require.NoError(t, v.Fetch(context.Background()))

	c.Fail("select", errors.New("timeout"))
	err := v.Fetch(context.Background())
	assert.ErrorContains(t, err, "timeout")
	assert.Len(t, v.Rows(), 1)
	assert.False(t, v.Snapshot().Loading)
}

func TestFilter(t *testing.T) {
	c := memory.New()
	seedActions(t, c,
		records.ActionItem{Issue: "Seal leak", MainEquipment: "Pump", Responsibility: "Ayesha Khan"},
		records.ActionItem{Issue: "Belt slipping", MainEquipment: "Conveyor", PlantArea: "Packing Hall"},
		records.ActionItem{Issue: "Noise", Contractor: "Delta Mechanical", Comments: "pump room"},
	)
	v := New(records.Actions, c, zap.NewNop())
	require.NoError(t, v.Fetch(context.Background()))
	all := v.Rows()

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"Noise", "Belt slipping", "Seal leak"}},
		{"PUMP", []string{"Seal leak"}},
		{"packing", []string{"Belt slipping"}},
		{"delta", []string{"Noise"}},
		{"ayesha", []string{"Seal leak"}},
		{"e", []string{"Noise", "Belt slipping", "Seal leak"}},
		{"nothing matches", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			n := v.Filter(tt.term)
			got := []string{}
			for _, r := range v.Rows() {
				got = append(got, r.Issue)
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len(tt.want), n)
		})
	}

	v.Filter("")
	assert.Equal(t, all, v.Rows())
}

func TestFilter_SurvivesFetch(t *testing.T) {
	c := memory.New()
	seedActions(t, c, records.ActionItem{Issue: "Pump seal"}, records.ActionItem{Issue: "Fan"})
	v := New(records.Actions, c, zap.NewNop())
	v.Filter("pump")
	require.NoError(t, v.Fetch(context.Background()))
	assert.Len(t, v.Rows(), 1)
	assert.Equal(t, 2, v.Snapshot().Total)
}

func TestToggleDetail(t *testing.T) {
	c := memory.New()
	seedActions(t, c, records.ActionItem{Issue: "a"}, records.ActionItem{Issue: "b"})
	v := New(records.Actions, c, zap.NewNop())
	require.NoError(t, v.Fetch(context.Background()))
	rows := v.Rows()
	before := v.Snapshot()

	assert.Equal(t, rows[0].ID, v.ToggleDetail(rows[0].ID))
	assert.Equal(t, rows[1].ID, v.ToggleDetail(rows[1].ID))

	expanded := 0
	for _, r := range v.Snapshot().Rows {
		if r.Expanded {
			expanded++
			assert.Equal(t, rows[1].ID, r.Record.ID)
		}
	}
	assert.Equal(t, 1, expanded)

	assert.Empty(t, v.ToggleDetail(rows[1].ID))
	assert.Equal(t, before, v.Snapshot())
}

func TestDelete(t *testing.T) {
	c := memory.New()
	seedActions(t, c, records.ActionItem{Issue: "a"}, records.ActionItem{Issue: "b"})
	v := New(records.Actions, c, zap.NewNop())
	require.NoError(t, v.Fetch(context.Background()))
	target := v.Rows()[0].ID

	var prompt string
	deleted, err := v.Delete(context.Background(), target, func(p string) bool { prompt = p; return false })
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Equal(t, records.Actions.Messages.DeletePrompt, prompt)
	assert.Equal(t, 2, c.Len(backend.Actions))
	assert.Len(t, v.Rows(), 2)

	v.ToggleDetail(target)
	deleted, err = v.Delete(context.Background(), target, func(string) bool { return true })
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, 1, c.Len(backend.Actions))
	require.Len(t, v.Rows(), 1)
	assert.NotEqual(t, target, v.Rows()[0].ID)
	assert.Empty(t, v.Snapshot().Expanded)
}

func TestDelete_ErrorLeavesRows(t *testing.T) {
	c := memory.New()
	seedActions(t, c, records.ActionItem{Issue: "a"})
	v := New(records.Actions, c, zap.NewNop())
	require.NoError(t, v.Fetch(context.Background()))

	c.Fail("delete", errors.New("permission denied"))
	deleted, err := v.Delete(context.Background(), v.Rows()[0].ID, func(string) bool { return true })
	assert.False(t, deleted)
	assert.ErrorContains(t, err, "permission denied")
	assert.Len(t, v.Rows(), 1)
}

func TestExportCSV(t *testing.T) {
	c := memory.New()
	seedActions(t, c,
		records.ActionItem{Status: "Open", Priority: "High", Issue: "Leak, north side", MainEquipment: "Pump",
			PlantArea: "Boiler House", Responsibility: "Ayesha Khan", DateRaised: "2026-03-01"},
		records.ActionItem{Status: "Closed", Priority: "Low", Issue: "Guard \"loose\"\nrefit", DateRaised: "2026-03-02"},
		records.ActionItem{Status: "Open", Issue: "Fan", DateRaised: "2026-03-03"},
	)
	v := New(records.Actions, c, zap.NewNop())
	require.NoError(t, v.Fetch(context.Background()))
	v.Filter("l")

	var buf bytes.Buffer
	require.NoError(t, v.ExportCSV(&buf))

	lines, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, lines, len(v.Rows())+1)
	assert.Equal(t, []string{"Status", "Priority", "Issue", "Equipment", "Area", "Assigned To", "Date Raised"}, lines[0])
	assert.Equal(t, []string{"Closed", "Low", "Guard \"loose\"\nrefit", "", "", "", "2026-03-02"}, lines[1])
	assert.Equal(t, []string{"Open", "High", "Leak, north side", "Pump", "Boiler House", "Ayesha Khan", "2026-03-01"}, lines[2])
}

func TestFileName(t *testing.T) {
	v := New(records.DailyLogs, memory.New(), zap.NewNop())
	assert.Equal(t, "daily_logs-2026-03-09.csv", v.FileName(time.Date(2026, 3, 9, 23, 0, 0, 0, time.UTC)))
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestActionLifecycle(t *testing.T) {
	ctx := context.Background()
	c := memory.New()
	logger := zap.NewNop()

	create := form.New(ctx, records.Actions, c, logger, nil, nil)
	require.NoError(t, create.SetFields(map[string]json.RawMessage{
		"raised_by":      raw(t, "Ayesha Khan"),
		"source":         raw(t, "Inspection"),
		"department":     raw(t, "Engineering"),
		"responsibility": raw(t, "Pieter van Wyk"),
		"discipline":     raw(t, "Mechanical"),
		"aspect":         raw(t, "Reliability"),
		"plant_area":     raw(t, "Compressor Room"),
		"main_equipment": raw(t, "Compressor"),
		"issue":          raw(t, "Oil carry-over"),
		"priority":       raw(t, "High"),
		"status":         raw(t, "Open"),
	}))
	_, err := create.Submit(ctx)
	require.NoError(t, err)

	list := New(records.Actions, c, logger)
	require.NoError(t, list.Fetch(ctx))
	snap := list.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, records.PriorityHigh, snap.Rows[0].Badges["priority"].Class)
	assert.Equal(t, records.StatusOpen, snap.Rows[0].Badges["status"].Class)

	rec, ok := list.Find(snap.Rows[0].Record.ID)
	require.True(t, ok)
	done := false
	edit := form.New(ctx, records.Actions, c, logger, &rec, func() { done = true })
	require.NoError(t, edit.SetField("status", raw(t, "Closed")))
	_, err = edit.Submit(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, list.Fetch(ctx))
	snap = list.Snapshot()
	require.Len(t, snap.Rows, 1)
	assert.Equal(t, records.StatusComplete, snap.Rows[0].Badges["status"].Class)
	assert.Equal(t, float64(0), statValue(snap.Stats, "in_progress"))
	assert.Equal(t, float64(1), statValue(snap.Stats, "complete"))
}

func TestDailyLogAlertRow(t *testing.T) {
	ctx := context.Background()
	c := memory.New()
	require.NoError(t, c.Insert(ctx, backend.DailyLogs, records.DailyLog{LogBy: "Ayesha Khan", SafetyIncidents: true}))
	require.NoError(t, c.Insert(ctx, backend.DailyLogs, records.DailyLog{LogBy: "Thandi Mokoena"}))

	v := New(records.DailyLogs, c, zap.NewNop())
	require.NoError(t, v.Fetch(ctx))

	classes := map[string]string{}
	for _, r := range v.Snapshot().Rows {
		classes[r.Record.LogBy] = r.RowClass
	}
	assert.Equal(t, records.RowAlert, classes["Ayesha Khan"])
	assert.Empty(t, classes["Thandi Mokoena"])
	assert.True(t, strings.Contains(v.Snapshot().Rows[1].Badges["safety"].Label, "INCIDENT"))
}
