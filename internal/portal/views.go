package portal

import (
	"errors"
	"fmt"
)

// View names a screen of the portal.
type View string

const (
	Logs         View = "logs"
	ViewLogs     View = "view_logs"
	Actions      View = "actions"
	ViewActions  View = "view_actions"
	Training     View = "training"
	ViewTraining View = "view_training"
)

var (
	ErrUnknownView = errors.New("unknown view")
	ErrNotMounted  = errors.New("screen is not open")
)

// NavItem is one entry of the navigation menu.
type NavItem struct {
	View  View   `json:"view"`
	Label string `json:"label"`
}

// Menu is the navigation menu in display order.
var Menu = []NavItem{
	{Logs, "Daily Operations"},
	{ViewLogs, "Operations Board"},
	{Actions, "Log New Action"},
	{ViewActions, "Action Registry"},
	{Training, "Skill Matrix"},
	{ViewTraining, "Training Register"},
}

// ParseView validates a view name.
func ParseView(s string) (View, error) {
	for _, item := range Menu {
		if string(item.View) == s {
			return item.View, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// Header is the title bar text of a view.
type Header struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// headers holds the create-mode and list headers. Edit-mode form headers are
// built from editTitles.
var headers = map[View]Header{
	Logs:         {"Daily Operations", "Manage and track site activities"},
	ViewLogs:     {"Operations Board", "Review historical daily log entries"},
	Actions:      {"Log Maintenance", "Create new engineering tasks"},
	ViewActions:  {"Action Registry", "Global maintenance task status"},
	Training:     {"Skill Matrix", "Personnel competency records"},
	ViewTraining: {"Training Register", "Review personnel competency history"},
}

var editTitles = map[View]struct{ title, noun string }{
	Logs:     {"Update Daily Log", "Log"},
	Actions:  {"Update Action Record", "Action"},
	Training: {"Update Training Record", "Training"},
}

func headerFor(v View, editID string) Header {
	if e, ok := editTitles[v]; ok && editID != "" {
		return Header{Title: e.title, Description: fmt.Sprintf("Editing %s ID: %s", e.noun, editID)}
	}
	return headers[v]
}
