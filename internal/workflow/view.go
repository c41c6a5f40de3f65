package workflow

import (
	"strings"

	"rollcall/internal/attendance"
	"rollcall/internal/history"
	"rollcall/internal/model"
)

// Row is one student line of the marking table. Status is the day's stored
// status, or the status the student would get by staying unselected in the
// current mode.
type Row struct {
	Student  model.Student `json:"student"`
	Selected bool          `json:"selected"`
	Status   string        `json:"status"`
	Recorded bool          `json:"recorded"`
}

// View is what the front end renders for a session.
type View struct {
	SessionID     string                   `json:"session_id"`
	Classes       []string                 `json:"classes"`
	Sections      []string                 `json:"sections"`
	Class         string                   `json:"class"`
	Section       string                   `json:"section"`
	Date          model.Date               `json:"date"`
	MaxDate       model.Date               `json:"max_date"`
	Mode          model.MarkingMode        `json:"mode"`
	Rows          []Row                    `json:"rows"`
	AllSelected   bool                     `json:"all_selected"`
	Indeterminate bool                     `json:"indeterminate"`
	History       []history.Entry          `json:"history"`
	Notice        *model.Notice            `json:"notice,omitempty"`
	Conflicts     []model.ScheduleSlot     `json:"conflicts,omitempty"`
	Pending       *attendance.Confirmation `json:"pending,omitempty"`
	Loading       bool                     `json:"loading"`
}

// Render projects s for display. today caps the date picker.
func Render(s State, today model.Date) View {
	v := View{
		SessionID: s.SessionID,
		Classes:   nonNil(s.Classes),
		Sections:  nonNil(s.Sections),
		Class:     s.Class,
		Section:   s.Section,
		Date:      s.Date,
		MaxDate:   today,
		Mode:      s.Mode,
		Rows:      make([]Row, 0, len(s.Roster)),
		History:   s.History,
		Notice:    s.Notice,
		Conflicts: s.Conflicts,
		Pending:   s.Pending,
		Loading:   s.Loading,
	}
	if v.History == nil {
		v.History = []history.Entry{}
	}

	selected := 0
	for _, st := range s.Roster {
		row := Row{Student: st, Selected: s.IsSelected(st.ID)}
		if status, ok := s.DayStatus[st.ID]; ok {
			row.Status = titleCase(string(status))
			row.Recorded = true
		} else if s.Mode == model.ModeAbsent {
			row.Status = "Present"
		} else {
			row.Status = "Absent"
		}
		if row.Selected {
			selected++
		}
		v.Rows = append(v.Rows, row)
	}
	v.AllSelected = len(v.Rows) > 0 && selected == len(v.Rows)
	v.Indeterminate = selected > 0 && selected < len(v.Rows)
	return v
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
