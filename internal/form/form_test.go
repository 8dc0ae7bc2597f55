package form

import (
	"context"
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
	"eng_portal/internal/enums"
	"eng_portal/internal/records"
)

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func fillAction(t *testing.T, f *Form[records.ActionItem]) {
	t.Helper()
	require.NoError(t, f.SetFields(map[string]json.RawMessage{
		"raised_by":      raw(t, "Ayesha Khan"),
		"source":         raw(t, "Audit"),
		"department":     raw(t, "Engineering"),
		"responsibility": raw(t, "Thandi Mokoena"),
		"discipline":     raw(t, "Mechanical"),
		"aspect":         raw(t, "Safety"),
		"plant_area":     raw(t, "Workshop"),
		"main_equipment": raw(t, "Pump"),
		"issue":          raw(t, "Seal leaking on P-101"),
		"priority":       raw(t, "High"),
	}))
}

func storedActions(t *testing.T, c *memory.Client) []records.ActionItem {
	t.Helper()
	var got []records.ActionItem
	require.NoError(t, c.Select(context.Background(), backend.Actions, "created_at", true, &got))
	return got
}

func TestNew_CreateModeLoadsDefaultsAndOptions(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)

	assert.False(t, f.Mode().IsEdit())
	rec := f.Record()
	assert.Equal(t, "Open", rec.Status)
	assert.Equal(t, records.Today(time.Now()), rec.DateRaised)

	st := f.State()
	assert.Equal(t, "Maintenance Control Board", st.Title)
	assert.Equal(t, "Live Database Active", st.Badge)
	assert.Equal(t, memory.DefaultEnums[enums.PriorityLevel], st.Options[enums.PriorityLevel])
	assert.Len(t, st.Options, len(records.Actions.Enums()))
}

func TestNew_FailedEnumLeavesOptionsEmpty(t *testing.T) {
	c := memory.New()
	c.Fail("enum:"+enums.Contractor, errors.New("rpc unavailable"))

	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)
	st := f.State()
	assert.Empty(t, st.Options[enums.Contractor])
	assert.NotEmpty(t, st.Options[enums.StaffName])

	err := f.SetField("contractor", raw(t, "Acme Electrical"))
	assert.ErrorIs(t, err, ErrNotAnOption)
	assert.NoError(t, f.SetField("contractor", raw(t, "")))
}

func TestSubmit_CreateInsertsAndResets(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)
	fillAction(t, f)

	msg, err := f.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Comprehensive Action Logged Successfully!", msg)
	assert.Equal(t, 1, c.Len(backend.Actions))

	assert.Equal(t, records.Actions.Defaults(time.Now()), f.Record())
	assert.False(t, f.Mode().IsEdit())

	stored := storedActions(t, c)
	require.Len(t, stored, 1)
	assert.Equal(t, "Seal leaking on P-101", stored[0].Issue)
	assert.NotEmpty(t, stored[0].ID)
}

func TestSubmit_EditUpdatesByID(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)
	fillAction(t, f)
	_, err := f.Submit(context.Background())
	require.NoError(t, err)
	existing := storedActions(t, c)[0]

	completed := 0
	edit := New(context.Background(), records.Actions, c, zap.NewNop(), &existing, func() { completed++ })
	assert.Equal(t, Edit(existing.ID), edit.Mode())
	assert.Equal(t, "Edit Action Record", edit.State().Title)
	assert.Equal(t, "UPDATE MODE", edit.State().Badge)

	require.NoError(t, edit.SetField("status", raw(t, "Closed")))
	msg, err := edit.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Action Updated Successfully!", msg)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, c.Len(backend.Actions))

	stored := storedActions(t, c)
	assert.Equal(t, existing.ID, stored[0].ID)
	assert.Equal(t, "Closed", stored[0].Status)
	assert.True(t, edit.Mode().IsEdit())
}

func TestSubmit_EditMissingRecord(t *testing.T) {
	c := memory.New()
	ghost := records.TrainingRecord{ID: "gone", TraineeName: "Ayesha Khan", Trainer: "Pieter van Wyk"}
	f := New(context.Background(), records.Trainings, c, zap.NewNop(), &ghost, nil)

	_, err := f.Submit(context.Background())
	assert.ErrorIs(t, err, backend.ErrNotFound)
	assert.Zero(t, c.Len(backend.Training))
}

func TestSubmit_FailureKeepsRecord(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)
	fillAction(t, f)
	before := f.Record()

	c.Fail("insert", errors.New("duplicate key"))
	_, err := f.Submit(context.Background())
	assert.ErrorContains(t, err, "duplicate key")
	assert.Equal(t, before, f.Record())
	assert.Zero(t, c.Len(backend.Actions))

	c.Fail("insert", nil)
	_, err = f.Submit(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, c.Len(backend.Actions))
}

func TestSubmit_RequiredFields(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.DailyLogs, c, zap.NewNop(), nil, nil)
	require.NoError(t, f.SetField("log_by", raw(t, "Ayesha Khan")))

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrRequired)
	assert.Contains(t, err.Error(), "department")
	assert.Contains(t, err.Error(), "discipline")
	assert.NotContains(t, err.Error(), "log_by")
	assert.Zero(t, c.Len(backend.DailyLogs))
}

func TestSubmit_RejectsNegativeCounts(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.DailyLogs, c, zap.NewNop(), nil, nil)
	require.NoError(t, f.SetFields(map[string]json.RawMessage{
		"log_by":         raw(t, "Ayesha Khan"),
		"department":     raw(t, "Engineering"),
		"discipline":     raw(t, "Electrical"),
		"downtime_hours": raw(t, -2.5),
	}))

	_, err := f.Submit(context.Background())
	require.ErrorIs(t, err, ErrInvalidField)
	assert.Contains(t, err.Error(), "downtime_hours")
}

func TestSetField(t *testing.T) {
	f := New(context.Background(), records.DailyLogs, memory.New(), zap.NewNop(), nil, nil)

	tests := []struct {
		name  string
		field string
		value any
		want  error
	}{
		{"unknown field", "colour", "red", ErrInvalidField},
		{"id is not settable", "id", "abc", ErrInvalidField},
		{"created_at is not settable", "created_at", "2026-01-01T00:00:00Z", ErrInvalidField},
		{"wrong type", "safety_incidents", "yes", ErrInvalidField},
		{"not an option", "department", "Marketing", ErrNotAnOption},
		{"select needs a string", "department", 7, ErrInvalidField},
		{"option", "department", "Engineering", nil},
		{"placeholder", "discipline", "", nil},
		{"bool", "safety_incidents", true, nil},
		{"hours", "breakdown_hours", 1.5, nil},
		{"free text", "daily_log_details", "Replaced bearing", nil},
		{"null select", "department", nil, ErrInvalidField},
		{"null text", "daily_log_details", nil, ErrInvalidField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.SetField(tt.field, raw(t, tt.value))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}

	rec := f.Record()
	assert.Equal(t, "Engineering", rec.Department)
	assert.True(t, rec.SafetyIncidents)
	assert.Equal(t, 1.5, rec.BreakdownHours)
	assert.Equal(t, "Replaced bearing", rec.DailyLogDetails)
}

func TestSetFields_AllOrNothing(t *testing.T) {
	f := New(context.Background(), records.Trainings, memory.New(), zap.NewNop(), nil, nil)

	err := f.SetFields(map[string]json.RawMessage{
		"training_topic": raw(t, "Lockout tagout"),
		"trainer":        raw(t, "Somebody Else"),
	})
	assert.ErrorIs(t, err, ErrNotAnOption)
	assert.Empty(t, f.Record().TrainingTopic)
}

func TestCancel(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.Trainings, c, zap.NewNop(), nil, nil)
	require.NoError(t, f.SetField("training_topic", raw(t, "Rigging")))
	f.Cancel()
	assert.Empty(t, f.Record().TrainingTopic)

	left := false
	existing := records.TrainingRecord{ID: "t-1", TrainingTopic: "Rigging"}
	edit := New(context.Background(), records.Trainings, c, zap.NewNop(), &existing, func() { left = true })
	edit.Cancel()
	assert.True(t, left)
	assert.Zero(t, c.Len(backend.Training))
}

func TestAttach(t *testing.T) {
	c := memory.New(memory.WithPublicURL("https://files.example/"))
	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)

	url, err := f.Attach(context.Background(), "pump photo.JPG", strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "https://files.example/attachments/actions/"))
	assert.True(t, strings.HasSuffix(url, ".JPG"))
	assert.Equal(t, url, f.Record().AttachmentURL)

	path := strings.TrimPrefix(url, "https://files.example/attachments/")
	content, ok := c.File(backend.AttachmentsBucket, path)
	require.True(t, ok)
	assert.Equal(t, "jpeg bytes", string(content))
}

func TestAttach_FailureLeavesField(t *testing.T) {
	c := memory.New()
	f := New(context.Background(), records.Actions, c, zap.NewNop(), nil, nil)
	c.Fail("upload", errors.New("bucket full"))

	_, err := f.Attach(context.Background(), "report.pdf", strings.NewReader("%PDF"))
	assert.ErrorContains(t, err, "bucket full")
	assert.Empty(t, f.Record().AttachmentURL)
}

func TestAttach_OnlyForActions(t *testing.T) {
	f := New(context.Background(), records.DailyLogs, memory.New(), zap.NewNop(), nil, nil)
	_, err := f.Attach(context.Background(), "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrNoAttachment)
}

func TestModeJSON(t *testing.T) {
	b, err := json.Marshal(Create())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"create"}`, string(b))

	b, err = json.Marshal(Edit("a-1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"edit","id":"a-1"}`, string(b))
}
