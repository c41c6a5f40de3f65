package workflow

import (
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/history"
	"rollcall/internal/model"
	"rollcall/internal/schedule"
)

// Action is an input to Reduce: a user intent or a fetch result.
type Action interface{ action() }

// User intents.
type (
	Init             struct{}
	SelectClass      struct{ Class string }
	SelectSection    struct{ Section string }
	ChangeDate       struct{ At time.Time }
	ChooseSlot       struct{ SlotID string }
	DismissConflicts struct{}
	SetMode          struct{ Mode model.MarkingMode }
	ToggleStudent    struct{ StudentID string }
	SelectAll        struct{ On bool }
	Prepare          struct{}
	Cancel           struct{}
	Confirm          struct{}
	DismissNotice    struct{}
)

// Fetch results. Gen is the generation the fetch was issued under.
type (
	ClassesLoaded struct {
		Classes []string
		Err     error
	}
	SectionsLoaded struct {
		Gen      uint64
		Sections []string
		Err      error
	}
	ScopeLoaded struct {
		Gen     uint64
		Roster  []model.Student
		History []history.Entry
		Err     error
	}
	DayLoaded struct {
		Gen     uint64
		Records []model.AttendanceRecord
		Err     error
	}
	ScheduleResolved struct {
		Gen        uint64
		Resolution schedule.Resolution
	}
	Submitted struct {
		Report attendance.Report
		Err    error
	}
)

func (Init) action()             {}
func (SelectClass) action()      {}
func (SelectSection) action()    {}
func (ChangeDate) action()       {}
func (ChooseSlot) action()       {}
func (DismissConflicts) action() {}
func (SetMode) action()          {}
func (ToggleStudent) action()    {}
func (SelectAll) action()        {}
func (Prepare) action()          {}
func (Cancel) action()           {}
func (Confirm) action()          {}
func (DismissNotice) action()    {}
func (ClassesLoaded) action()    {}
func (SectionsLoaded) action()   {}
func (ScopeLoaded) action()      {}
func (DayLoaded) action()        {}
func (ScheduleResolved) action() {}
func (Submitted) action()        {}

// Effect is network work requested by Reduce. Running it yields one Action.
type Effect interface{ effect() }

type (
	FetchClasses  struct{}
	FetchSections struct {
		Gen   uint64
		Class string
	}
	// LoadScope fetches roster and history of a class/section in parallel.
	LoadScope struct {
		Gen     uint64
		Class   string
		Section string
	}
	LoadDay struct {
		Gen     uint64
		Class   string
		Section string
		Date    model.Date
	}
	ResolveSchedule struct {
		Gen     uint64
		At      time.Time
		Class   string
		Section string
	}
	Submit struct {
		Request attendance.Request
	}
)

func (FetchClasses) effect()    {}
func (FetchSections) effect()   {}
func (LoadScope) effect()       {}
func (LoadDay) effect()         {}
func (ResolveSchedule) effect() {}
func (Submit) effect()          {}
