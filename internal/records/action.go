package records

import (
	"time"

	"eng_portal/internal/backend"
	"eng_portal/internal/enums"
)

// ActionItem is a maintenance action raised against plant equipment.
type ActionItem struct {
	ID        string    `db:"id" json:"id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at,omitzero"`

	DateRaised     Date   `db:"date_raised" json:"date_raised" validate:"omitempty,datetime=2006-01-02"`
	RaisedBy       string `db:"raised_by" json:"raised_by" validate:"required"`
	Source         string `db:"source" json:"source" validate:"required"`
	Department     string `db:"department" json:"department" validate:"required"`
	Responsibility string `db:"responsibility" json:"responsibility" validate:"required"`
	Contractor     string `db:"contractor" json:"contractor"`
	Discipline     string `db:"discipline" json:"discipline" validate:"required"`
	Aspect         string `db:"aspect" json:"aspect" validate:"required"`
	PlantArea      string `db:"plant_area" json:"plant_area" validate:"required"`
	MainEquipment  string `db:"main_equipment" json:"main_equipment" validate:"required"`

	Issue                string `db:"issue" json:"issue" validate:"required"`
	ActionDetails        string `db:"action_details" json:"action_details"`
	LearningPoints       string `db:"learning_points" json:"learning_points"`
	ProgressReport       string `db:"progress_report" json:"progress_report"`
	TrainingAndAwareness string `db:"training_and_awareness" json:"training_and_awareness"`
	NextSteps            string `db:"next_steps" json:"next_steps"`
	Constraints          string `db:"constraints" json:"constraints"`
	Comments             string `db:"comments" json:"comments"`

	Priority string `db:"priority" json:"priority" validate:"required"`
	Status   string `db:"status" json:"status" validate:"required"`

	TargetDate           Date `db:"target_date" json:"target_date" validate:"omitempty,datetime=2006-01-02"`
	ActionStartDate      Date `db:"action_start_date" json:"action_start_date" validate:"omitempty,datetime=2006-01-02"`
	ActionCompletionDate Date `db:"action_completion_date" json:"action_completion_date" validate:"omitempty,datetime=2006-01-02"`
	TrainingCompDate     Date `db:"training_comp_date" json:"training_comp_date" validate:"omitempty,datetime=2006-01-02"`

	AttachmentURL string `db:"attachment_url" json:"attachment_url"`
}

// Status and priority categories.
const (
	StatusComplete = "complete"
	StatusProgress = "progress"
	StatusHold     = "hold"
	StatusOpen     = "open"

	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// StatusClass maps an action status to its badge category.
func StatusClass(s string) string {
	switch s {
	case "Closed", "Complete":
		return StatusComplete
	case "In Progress":
		return StatusProgress
	case "On Hold":
		return StatusHold
	}
	return StatusOpen
}

// PriorityClass maps an action priority to its badge category.
func PriorityClass(p string) string {
	switch p {
	case "High", "Urgent":
		return PriorityHigh
	case "Medium":
		return PriorityMedium
	}
	return PriorityLow
}

// Actions is the action item kind.
var Actions = Kind[ActionItem]{
	Name:       "action",
	Collection: backend.Actions,
	OrderBy:    "date_raised",
	Defaults: func(now time.Time) ActionItem {
		return ActionItem{DateRaised: Today(now), Status: "Open"}
	},
	ID: func(a *ActionItem) string { return a.ID },
	Searchable: func(a *ActionItem) []string {
		return []string{a.Responsibility, a.MainEquipment, a.PlantArea, a.Issue, a.Contractor}
	},
	Selects: map[string]string{
		"raised_by":      enums.StaffName,
		"source":         enums.Source,
		"department":     enums.Department,
		"responsibility": enums.StaffName,
		"contractor":     enums.Contractor,
		"discipline":     enums.Discipline,
		"aspect":         enums.Aspect,
		"plant_area":     enums.PlantArea,
		"main_equipment": enums.Equipment,
		"priority":       enums.PriorityLevel,
		"status":         enums.ActionStatus,
	},
	AttachmentField: "attachment_url",
	Columns: []Column[ActionItem]{
		{"Status", func(a *ActionItem) string { return a.Status }},
		{"Priority", func(a *ActionItem) string { return a.Priority }},
		{"Issue", func(a *ActionItem) string { return a.Issue }},
		{"Equipment", func(a *ActionItem) string { return a.MainEquipment }},
		{"Area", func(a *ActionItem) string { return a.PlantArea }},
		{"Assigned To", func(a *ActionItem) string { return a.Responsibility }},
		{"Date Raised", func(a *ActionItem) string { return string(a.DateRaised) }},
	},
	Badges: func(a *ActionItem) map[string]Badge {
		return map[string]Badge{
			"status":   {Label: a.Status, Class: StatusClass(a.Status)},
			"priority": {Label: a.Priority, Class: PriorityClass(a.Priority)},
		}
	},
	RowClass: func(*ActionItem) string { return "" },
	Stats: func(items []ActionItem) []Stat {
		var open, progress, hold, complete, high float64
		for i := range items {
			switch StatusClass(items[i].Status) {
			case StatusComplete:
				complete++
			case StatusProgress:
				progress++
			case StatusHold:
				hold++
			default:
				open++
			}
			if PriorityClass(items[i].Priority) == PriorityHigh {
				high++
			}
		}
		return []Stat{
			{"total", "Total Actions", float64(len(items))},
			{"open", "Open", open},
			{"in_progress", "In Progress", progress},
			{"on_hold", "On Hold", hold},
			{"complete", "Complete", complete},
			{"high_priority", "High Priority", high},
		}
	},
	Messages: Messages{
		Created:      "Comprehensive Action Logged Successfully!",
		Updated:      "Action Updated Successfully!",
		DeletePrompt: "Delete this record permanently? This cannot be undone.",
		FormTitle:    "Maintenance Control Board",
		EditTitle:    "Edit Action Record",
		FormBadge:    "Live Database Active",
		EditBadge:    "UPDATE MODE",
	},
}
