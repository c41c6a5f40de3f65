// Package workflow drives the attendance view: one explicit state per browser
// session, changed only by Reduce, with network work described as effects.
package workflow

import (
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/history"
	"rollcall/internal/model"
)

// Generations number the fetches in flight per kind. A result carrying an
// older generation than the state's is stale and dropped.
type Generations struct {
	Sections uint64 `json:"sections"`
	Scope    uint64 `json:"scope"`
	Day      uint64 `json:"day"`
	Schedule uint64 `json:"schedule"`
}

// State is the whole attendance view of one session.
type State struct {
	SessionID string `json:"session_id"`

	Class   string     `json:"class"`
	Section string     `json:"section"`
	Date    model.Date `json:"date"`
	// At is the moment the schedule was last resolved for.
	At time.Time `json:"at"`

	Classes   []string                `json:"classes"`
	Sections  []string                `json:"sections"`
	Roster    []model.Student         `json:"roster"`
	DayStatus map[string]model.Status `json:"day_status"`
	History   []history.Entry         `json:"history"`

	Mode     model.MarkingMode `json:"mode"`
	Selected []string          `json:"selected"`

	Notice    *model.Notice            `json:"notice,omitempty"`
	Conflicts []model.ScheduleSlot     `json:"conflicts,omitempty"`
	Pending   *attendance.Confirmation `json:"pending,omitempty"`
	Loading   bool                     `json:"loading"`
	Gen       Generations              `json:"gen"`
}

// NewState returns the initial view for a session opened at now.
func NewState(sessionID string, now time.Time) State {
	return State{
		SessionID: sessionID,
		Date:      model.DateOf(now),
		At:        now,
		Mode:      model.ModePresent,
		DayStatus: map[string]model.Status{},
	}
}

// HasScope reports whether both class and section are chosen.
func (s State) HasScope() bool {
	return s.Class != "" && s.Section != ""
}

// IsSelected reports whether the student with id is selected.
func (s State) IsSelected(id string) bool {
	for _, sel := range s.Selected {
		if sel == id {
			return true
		}
	}
	return false
}
