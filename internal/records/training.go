package records

import (
	"time"

	"eng_portal/internal/backend"
	"eng_portal/internal/enums"
)

// TrainingRecord is a competency event for one trainee.
type TrainingRecord struct {
	ID        string    `db:"id" json:"id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at,omitzero"`

	TraineeName        string `db:"trainee_name" json:"trainee_name" validate:"required"`
	Trainer            string `db:"trainer" json:"trainer" validate:"required"`
	TrainingTopic      string `db:"training_topic" json:"training_topic"`
	TrainingAspect     string `db:"training_aspect" json:"training_aspect"`
	TrainingMethod     string `db:"training_method" json:"training_method"`
	CompetencyTestType string `db:"competency_test_type" json:"competency_test_type"`
	IsCompleted        bool   `db:"is_completed" json:"is_completed"`
	TrainingOverview   string `db:"training_overview" json:"training_overview"`
}

// Trainings is the training record kind.
var Trainings = Kind[TrainingRecord]{
	Name:       "training",
	Collection: backend.Training,
	OrderBy:    "created_at",
	Defaults:   func(time.Time) TrainingRecord { return TrainingRecord{} },
	ID:         func(t *TrainingRecord) string { return t.ID },
	Searchable: func(t *TrainingRecord) []string {
		return []string{t.TraineeName, t.TrainingTopic, t.Trainer}
	},
	Selects: map[string]string{
		"trainee_name":         enums.StaffName,
		"trainer":              enums.StaffName,
		"training_aspect":      enums.TrainingAspect,
		"training_method":      enums.TrainingMethod,
		"competency_test_type": enums.TestType,
	},
	Columns: []Column[TrainingRecord]{
		{"Date", func(t *TrainingRecord) string { return createdDate(t.CreatedAt) }},
		{"Trainee", func(t *TrainingRecord) string { return t.TraineeName }},
		{"Trainer", func(t *TrainingRecord) string { return t.Trainer }},
		{"Topic", func(t *TrainingRecord) string { return t.TrainingTopic }},
		{"Category", func(t *TrainingRecord) string { return t.TrainingAspect }},
		{"Method", func(t *TrainingRecord) string { return t.TrainingMethod }},
		{"Test Type", func(t *TrainingRecord) string { return t.CompetencyTestType }},
		{"Completed", func(t *TrainingRecord) string { return yesNo(t.IsCompleted) }},
	},
	Badges: func(t *TrainingRecord) map[string]Badge {
		if t.IsCompleted {
			return map[string]Badge{"status": {Label: "COMPLETED", Class: StatusComplete}}
		}
		return map[string]Badge{"status": {Label: "PENDING", Class: StatusOpen}}
	},
	RowClass: func(*TrainingRecord) string { return "" },
	Stats: func(items []TrainingRecord) []Stat {
		var done float64
		for i := range items {
			if items[i].IsCompleted {
				done++
			}
		}
		total := float64(len(items))
		return []Stat{
			{"total", "Total Records", total},
			{"completed", "Completed", done},
			{"pending", "Pending", total - done},
		}
	},
	Messages: Messages{
		Created:      "Training Record Saved Successfully!",
		Updated:      "Training Record Updated!",
		DeletePrompt: "Permanently delete this training record?",
		FormTitle:    "Personnel Skill Matrix",
		EditTitle:    "Edit Training Record",
		FormBadge:    "TRAINING MOD",
		EditBadge:    "UPDATE",
	},
}
