// Package records holds the portal's three record kinds and the per-kind
// behaviour shared by forms and list views: defaults, searchable fields,
// badges, stats and CSV columns.
package records

import (
	"database/sql/driver"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire and storage format of Date.
const DateLayout = "2006-01-02"

// Date is a calendar date in DateLayout. The empty Date is stored as NULL.
type Date string

// Today returns now's date.
func Today(now time.Time) Date {
	return Date(now.Format(DateLayout))
}

func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}
	return string(d), nil
}

func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case []byte:
		*d = parseDate(string(v))
	case string:
		*d = parseDate(v)
	default:
		return fmt.Errorf("records: cannot scan %T into Date", src)
	}
	return nil
}

// parseDate keeps the date part of a timestamp string.
func parseDate(s string) Date {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return Date(s)
}

// Column is one CSV export column.
type Column[T any] struct {
	Header string
	Value  func(*T) string
}

// Badge is a label and its visual category.
type Badge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

// Stat is one figure of a list view's stats strip.
type Stat struct {
	Key   string  `json:"key"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Messages are the user-facing strings of a kind's screens.
type Messages struct {
	Created      string
	Updated      string
	DeletePrompt string
	FormTitle    string
	EditTitle    string
	FormBadge    string
	EditBadge    string
}

// Kind describes one record collection.
type Kind[T any] struct {
	Name       string
	Collection string
	OrderBy    string

	Defaults   func(now time.Time) T
	ID         func(*T) string
	Searchable func(*T) []string

	// Selects maps a select-backed field to its enumeration.
	Selects map[string]string
	// AttachmentField is the field receiving uploaded file URLs, if any.
	AttachmentField string

	Columns  []Column[T]
	Badges   func(*T) map[string]Badge
	RowClass func(*T) string
	Stats    func([]T) []Stat
	Messages Messages
}

// Enums lists the enumerations the kind's form needs, sorted.
func (k Kind[T]) Enums() []string {
	seen := map[string]bool{}
	var names []string
	for _, name := range k.Selects {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Matches reports whether any searchable field of rec contains term,
// ignoring case. The empty term matches everything.
func (k Kind[T]) Matches(rec *T, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range k.Searchable(rec) {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func formatHours(h float64) string {
	return fmt.Sprintf("%g", h)
}

func createdDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
