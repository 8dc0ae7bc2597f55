package records

import (
	"strconv"
	"time"

	"eng_portal/internal/backend"
	"eng_portal/internal/enums"
)

// DailyLog is one engineer's end-of-day operational status.
type DailyLog struct {
	ID        string    `db:"id" json:"id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at,omitzero"`

	LogBy      string `db:"log_by" json:"log_by" validate:"required"`
	Department string `db:"department" json:"department" validate:"required"`
	Discipline string `db:"discipline" json:"discipline" validate:"required"`
	LogType    string `db:"log_type" json:"log_type"`

	SafetyIncidents         bool `db:"safety_incidents" json:"safety_incidents"`
	SafetyOpportunityRaised bool `db:"safety_opportunity_raised" json:"safety_opportunity_raised"`
	Daily5SCompleted        bool `db:"daily_5s_completed" json:"daily_5s_completed"`
	AllPermitsSignedOff     bool `db:"all_permits_signed_off" json:"all_permits_signed_off"`
	AnyTrainingCompleted    bool `db:"any_training_completed" json:"any_training_completed"`
	AnyReworkReported       bool `db:"any_rework_reported" json:"any_rework_reported"`
	AllWorkDayCompleted     bool `db:"all_work_day_completed" json:"all_work_day_completed"`
	AllMRClosed             bool `db:"all_mr_closed" json:"all_mr_closed"`
	AllPRGenerated          bool `db:"all_pr_generated" json:"all_pr_generated"`
	IsReceiptingUpToDate    bool `db:"is_receipting_up_to_date" json:"is_receipting_up_to_date"`
	IsAccrualsListUpdated   bool `db:"is_accruals_list_updated" json:"is_accruals_list_updated"`

	BreakdownHours         float64 `db:"breakdown_hours" json:"breakdown_hours" validate:"gte=0"`
	DowntimeHours          float64 `db:"downtime_hours" json:"downtime_hours" validate:"gte=0"`
	SafetyOpsCount         int     `db:"safety_ops_count" json:"safety_ops_count" validate:"gte=0"`
	PlannedTasksCount      int     `db:"planned_tasks_count" json:"planned_tasks_count" validate:"gte=0"`
	ReactiveTasksCount     int     `db:"reactive_tasks_count" json:"reactive_tasks_count" validate:"gte=0"`
	PreventativeTasksCount int     `db:"preventative_tasks_count" json:"preventative_tasks_count" validate:"gte=0"`

	DailyLogDetails         string `db:"daily_log_details" json:"daily_log_details"`
	SafetyIncidentDetails   string `db:"safety_incident_details" json:"safety_incident_details"`
	BreakdownDetails        string `db:"breakdown_details" json:"breakdown_details"`
	DowntimeDetails         string `db:"downtime_details" json:"downtime_details"`
	WorkNotCompletedDetails string `db:"work_not_completed_details" json:"work_not_completed_details"`
	PlannedWorkNextDay      string `db:"planned_work_next_day" json:"planned_work_next_day"`
	Daily5SLog              string `db:"daily_5s_log" json:"daily_5s_log"`
	ReworkDetails           string `db:"rework_details" json:"rework_details"`
}

// RowAlert marks a log row that reported a safety incident.
const RowAlert = "alert"

// DailyLogs is the daily log kind.
var DailyLogs = Kind[DailyLog]{
	Name:       "log",
	Collection: backend.DailyLogs,
	OrderBy:    "created_at",
	Defaults: func(time.Time) DailyLog {
		return DailyLog{LogType: "Daily Engineering Log"}
	},
	ID: func(l *DailyLog) string { return l.ID },
	Searchable: func(l *DailyLog) []string {
		return []string{l.LogBy, l.Department, l.Discipline, l.DailyLogDetails}
	},
	Selects: map[string]string{
		"log_by":     enums.StaffName,
		"department": enums.Department,
		"discipline": enums.Discipline,
	},
	Columns: []Column[DailyLog]{
		{"Date", func(l *DailyLog) string { return createdDate(l.CreatedAt) }},
		{"Logged By", func(l *DailyLog) string { return l.LogBy }},
		{"Department", func(l *DailyLog) string { return l.Department }},
		{"Discipline", func(l *DailyLog) string { return l.Discipline }},
		{"Safety Incident", func(l *DailyLog) string { return yesNo(l.SafetyIncidents) }},
		{"Downtime Hours", func(l *DailyLog) string { return formatHours(l.DowntimeHours) }},
		{"Planned Tasks", func(l *DailyLog) string { return strconv.Itoa(l.PlannedTasksCount) }},
		{"Reactive Tasks", func(l *DailyLog) string { return strconv.Itoa(l.ReactiveTasksCount) }},
	},
	Badges: func(l *DailyLog) map[string]Badge {
		safety := Badge{Label: "CLEAR", Class: "success"}
		if l.SafetyIncidents {
			safety = Badge{Label: "INCIDENT", Class: "danger"}
		}
		tasks := Badge{Label: "PENDING", Class: "neutral"}
		if l.AllWorkDayCompleted {
			tasks = Badge{Label: "COMPLETE", Class: "success"}
		}
		return map[string]Badge{"safety": safety, "tasks": tasks}
	},
	RowClass: func(l *DailyLog) string {
		if l.SafetyIncidents {
			return RowAlert
		}
		return ""
	},
	Stats: func(logs []DailyLog) []Stat {
		var incidents, downtime, breakdown, planned, reactive, preventative float64
		for i := range logs {
			if logs[i].SafetyIncidents {
				incidents++
			}
			downtime += logs[i].DowntimeHours
			breakdown += logs[i].BreakdownHours
			planned += float64(logs[i].PlannedTasksCount)
			reactive += float64(logs[i].ReactiveTasksCount)
			preventative += float64(logs[i].PreventativeTasksCount)
		}
		return []Stat{
			{"total", "Total Logs", float64(len(logs))},
			{"safety_incidents", "Safety Incidents", incidents},
			{"downtime_hours", "Downtime Hours", downtime},
			{"breakdown_hours", "Breakdown Hours", breakdown},
			{"planned_tasks", "Planned Tasks", planned},
			{"reactive_tasks", "Reactive Tasks", reactive},
			{"preventative_tasks", "Preventative Tasks", preventative},
		}
	},
	Messages: Messages{
		Created:      "Daily Log Submitted!",
		Updated:      "Daily Log Updated!",
		DeletePrompt: "Delete this log entry? This action is permanent.",
		FormTitle:    "ENGINEERING DAILY LOG",
		EditTitle:    "EDIT RECORD",
		FormBadge:    "STATIONARY",
		EditBadge:    "UPDATE",
	},
}
