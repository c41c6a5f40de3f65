package attendance

import (
	"fmt"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// Absentee is a student about to be flipped to absent.
type Absentee struct {
	ID         string `json:"id"`
	RollNumber string `json:"rollNumber"`
	Name       string `json:"name"`
}

// Confirmation tells the user exactly who a submission will affect.
type Confirmation struct {
	Mode      model.MarkingMode `json:"mode"`
	Count     int               `json:"count"`
	Absentees []Absentee        `json:"absentees,omitempty"`
	Message   string            `json:"message"`
}

// Confirm builds the confirmation for selecting selected out of roster in mode.
// Selected ids that are not on the roster are ignored.
func Confirm(roster []model.Student, selected []string, mode model.MarkingMode) (Confirmation, error) {
	const op = "prepare attendance"
	if !mode.Valid() {
		return Confirmation{}, apperr.Validation(op, "Choose a marking mode.")
	}
	ids := selectedInRoster(roster, selected)
	if len(ids) == 0 {
		return Confirmation{}, apperr.Validation(op, "Select at least one student.")
	}

	c := Confirmation{Mode: mode, Count: len(ids)}
	if mode == model.ModeAbsent {
		byID := make(map[string]model.Student, len(roster))
		for _, st := range roster {
			byID[st.ID] = st
		}
		for _, id := range ids {
			st := byID[id]
			c.Absentees = append(c.Absentees, Absentee{ID: st.ID, RollNumber: st.RollNumber, Name: st.Name})
		}
		c.Message = "The following students will be marked as absent:"
		return c, nil
	}

	noun := "students"
	if c.Count == 1 {
		noun = "student"
	}
	c.Message = fmt.Sprintf("Mark %d %s as present?", c.Count, noun)
	return c, nil
}

// Label is how an absentee is listed in the confirmation.
func (a Absentee) Label() string {
	return a.RollNumber + " - " + a.Name
}
