package workflow

import (
	"fmt"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/model"
	"rollcall/internal/schedule"
)

// Reduce applies a to s and returns the next state plus the effects to run.
// It never performs I/O and never mutates slices or maps owned by s.
func Reduce(s State, a Action) (State, []Effect) {
	switch a := a.(type) {
	case Init:
		return s, []Effect{FetchClasses{}}

	case SelectClass:
		if a.Class == s.Class {
			return s, nil
		}
		s.Class = a.Class
		s.Sections = nil
		s.Gen.Sections++
		s = resetScope(s, "")
		if s.Class == "" {
			return s, nil
		}
		return s, []Effect{FetchSections{Gen: s.Gen.Sections, Class: s.Class}}

	case SelectSection:
		if a.Section == s.Section {
			return s, nil
		}
		s = resetScope(s, a.Section)
		return s, scopeEffects(s)

	case ChangeDate:
		s.At = a.At
		s.Date = model.DateOf(a.At)
		s.Notice = nil
		s.Conflicts = nil
		s.Pending = nil
		s.Gen.Schedule++
		effects := []Effect{ResolveSchedule{Gen: s.Gen.Schedule, At: a.At, Class: s.Class, Section: s.Section}}
		if s.HasScope() {
			s.Gen.Day++
			s.DayStatus = map[string]model.Status{}
			effects = append(effects, LoadDay{Gen: s.Gen.Day, Class: s.Class, Section: s.Section, Date: s.Date})
		}
		return s, effects

	case ChooseSlot:
		for _, slot := range s.Conflicts {
			if slot.ID == a.SlotID {
				s.Conflicts = nil
				res := schedule.Choose(slot)
				s.Notice = res.Notice
				return applySlot(s, slot)
			}
		}
		s.Notice = &model.Notice{Level: model.LevelWarning, Message: "That class is no longer offered for this time."}
		return s, nil

	case DismissConflicts:
		s.Conflicts = nil
		return s, nil

	case SetMode:
		if !a.Mode.Valid() {
			s.Notice = &model.Notice{Level: model.LevelError, Message: fmt.Sprintf("Unknown marking mode %q.", a.Mode)}
			return s, nil
		}
		s.Mode = a.Mode
		s.Pending = nil
		return s, nil

	case ToggleStudent:
		next := make([]string, 0, len(s.Selected)+1)
		found := false
		for _, id := range s.Selected {
			if id == a.StudentID {
				found = true
				continue
			}
			next = append(next, id)
		}
		if !found && inRoster(s, a.StudentID) {
			next = append(next, a.StudentID)
		}
		s.Selected = next
		s.Pending = nil
		return s, nil

	case SelectAll:
		s.Pending = nil
		if !a.On {
			s.Selected = nil
			return s, nil
		}
		all := make([]string, 0, len(s.Roster))
		for _, st := range s.Roster {
			all = append(all, st.ID)
		}
		s.Selected = all
		return s, nil

	case Prepare:
		c, err := attendance.Confirm(s.Roster, s.Selected, s.Mode)
		if err != nil {
			s.Notice = noticeFor(err, "Could not prepare attendance.")
			return s, nil
		}
		s.Pending = &c
		return s, nil

	case Cancel:
		s.Pending = nil
		return s, nil

	case Confirm:
		if s.Pending == nil {
			s.Notice = &model.Notice{Level: model.LevelWarning, Message: "Nothing to confirm."}
			return s, nil
		}
		s.Pending = nil
		s.Loading = true
		return s, []Effect{Submit{Request: attendance.Request{
			Roster:   s.Roster,
			Selected: s.Selected,
			Mode:     s.Mode,
			Class:    s.Class,
			Section:  s.Section,
			Date:     s.Date,
		}}}

	case DismissNotice:
		s.Notice = nil
		return s, nil

	case ClassesLoaded:
		if a.Err != nil {
			s.Notice = noticeFor(a.Err, "Could not load classes.")
			return s, nil
		}
		s.Classes = a.Classes
		return s, nil

	case SectionsLoaded:
		if a.Gen != s.Gen.Sections {
			return s, nil
		}
		if a.Err != nil {
			s.Notice = noticeFor(a.Err, "Could not load sections.")
			return s, nil
		}
		s.Sections = a.Sections
		return s, nil

	case ScopeLoaded:
		if a.Gen != s.Gen.Scope {
			return s, nil
		}
		if a.Err != nil {
			s.Notice = noticeFor(a.Err, "Could not load students.")
			return s, nil
		}
		s.Roster = a.Roster
		s.History = a.History
		return s, nil

	case DayLoaded:
		if a.Gen != s.Gen.Day {
			return s, nil
		}
		if a.Err != nil {
			s.Notice = noticeFor(a.Err, "Could not load attendance.")
			return s, nil
		}
		status := make(map[string]model.Status, len(a.Records))
		for _, r := range a.Records {
			status[r.Student.ID] = r.Status
		}
		s.DayStatus = status
		return s, nil

	case ScheduleResolved:
		if a.Gen != s.Gen.Schedule {
			return s, nil
		}
		res := a.Resolution
		s.Notice = res.Notice
		switch res.Outcome {
		case schedule.OutcomeSelected:
			return applySlot(s, *res.Selected)
		case schedule.OutcomeConflict:
			s.Conflicts = res.Candidates
		}
		return s, nil

	case Submitted:
		s.Loading = false
		if a.Err != nil {
			s.Notice = noticeFor(a.Err, "Failed to mark attendance. Please try again.")
			return s, nil
		}
		s.Selected = nil
		s.Notice = &model.Notice{Level: model.LevelSuccess, Message: fmt.Sprintf("Attendance saved for %s.", s.Date)}
		s.Gen.Scope++
		s.Gen.Day++
		return s, []Effect{
			LoadDay{Gen: s.Gen.Day, Class: s.Class, Section: s.Section, Date: s.Date},
			LoadScope{Gen: s.Gen.Scope, Class: s.Class, Section: s.Section},
		}
	}
	return s, nil
}

// applySlot makes slot's class/section the current scope. Choosing the scope
// already in place keeps roster and selection.
func applySlot(s State, slot model.ScheduleSlot) (State, []Effect) {
	if slot.Class == s.Class && slot.Section == s.Section {
		return s, nil
	}
	var effects []Effect
	if slot.Class != s.Class {
		s.Class = slot.Class
		s.Sections = nil
		s.Gen.Sections++
		effects = append(effects, FetchSections{Gen: s.Gen.Sections, Class: s.Class})
	}
	s = resetScope(s, slot.Section)
	return s, append(effects, scopeEffects(s)...)
}

// resetScope sets section and discards everything loaded for the old scope.
func resetScope(s State, section string) State {
	s.Section = section
	s.Roster = nil
	s.History = nil
	s.DayStatus = map[string]model.Status{}
	s.Selected = nil
	s.Pending = nil
	s.Gen.Scope++
	s.Gen.Day++
	return s
}

func scopeEffects(s State) []Effect {
	if !s.HasScope() {
		return nil
	}
	return []Effect{
		LoadScope{Gen: s.Gen.Scope, Class: s.Class, Section: s.Section},
		LoadDay{Gen: s.Gen.Day, Class: s.Class, Section: s.Section, Date: s.Date},
	}
}

func inRoster(s State, id string) bool {
	for _, st := range s.Roster {
		if st.ID == id {
			return true
		}
	}
	return false
}

func noticeFor(err error, fallback string) *model.Notice {
	n := &model.Notice{Level: model.LevelError, Message: apperr.UserMessage(err, fallback)}
	if e, ok := apperr.As(err); ok {
		n.Retryable = e.Retryable()
		if e.Kind == apperr.KindValidation {
			n.Level = model.LevelWarning
		}
	}
	return n
}
