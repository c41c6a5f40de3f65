package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/attendance"
	"rollcall/internal/history"
	"rollcall/internal/model"
	"rollcall/internal/schedule"
	"rollcall/internal/session"
)

// Catalog lists classes, sections and sorted rosters.
type Catalog interface {
	ListClasses(ctx context.Context) ([]string, error)
	ListSections(ctx context.Context, class string) ([]string, error)
	ListStudents(ctx context.Context, class, section string) ([]model.Student, error)
}

// HistoryLoader loads the history table of a class/section.
type HistoryLoader interface {
	Load(ctx context.Context, class, section string) ([]history.Entry, error)
}

// DayReader returns the records already stored for one day.
type DayReader interface {
	DayAttendance(ctx context.Context, class, section string, date model.Date) ([]model.AttendanceRecord, error)
}

// ScheduleResolver picks the slot open at a moment.
type ScheduleResolver interface {
	Resolve(ctx context.Context, at time.Time, class, section string) (schedule.Resolution, error)
}

// AttendanceSubmitter issues the writes of a confirmed submission.
type AttendanceSubmitter interface {
	Submit(ctx context.Context, req attendance.Request) (attendance.Report, error)
}

// Services are the collaborators effects run against.
type Services struct {
	Catalog   Catalog
	History   HistoryLoader
	Day       DayReader
	Schedule  ScheduleResolver
	Submitter AttendanceSubmitter
}

// Engine owns every session's state. Each dispatch reduces under the
// session's lock, then runs the resulting effects outside it and feeds
// their results back until nothing is left to do.
type Engine struct {
	svc    Services
	store  session.Store
	locks  *session.Locker
	ttl    time.Duration
	logger *zap.Logger
}

// NewEngine wires an engine. A zero ttl keeps sessions forever.
func NewEngine(svc Services, store session.Store, ttl time.Duration, logger *zap.Logger) *Engine {
	return &Engine{svc: svc, store: store, locks: session.NewLocker(), ttl: ttl, logger: logger}
}

// Start opens a session at now: classes are fetched and the schedule for now
// is resolved.
func (e *Engine) Start(ctx context.Context, now time.Time) (State, error) {
	s := NewState(uuid.NewString(), now)
	if err := e.save(ctx, s); err != nil {
		return State{}, err
	}
	e.logger.Info("session started", zap.String("session", s.SessionID))
	return e.Dispatch(ctx, s.SessionID, Init{}, ChangeDate{At: now})
}

// State returns the current state of a session.
func (e *Engine) State(ctx context.Context, id string) (State, error) {
	return e.load(ctx, id)
}

// Dispatch applies actions in order and settles every effect they cause.
func (e *Engine) Dispatch(ctx context.Context, id string, actions ...Action) (State, error) {
	var s State
	for len(actions) > 0 {
		var (
			effects []Effect
			err     error
		)
		s, effects, err = e.apply(ctx, id, actions)
		if err != nil {
			return State{}, err
		}
		if submits(effects) {
			// Writes run to completion and their result is saved even if the caller leaves.
			ctx = context.WithoutCancel(ctx)
		}
		actions = e.run(ctx, effects)
	}
	return s, nil
}

func (e *Engine) apply(ctx context.Context, id string, actions []Action) (State, []Effect, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	s, err := e.load(ctx, id)
	if err != nil {
		return State{}, nil, err
	}
	var all []Effect
	for _, a := range actions {
		var effects []Effect
		s, effects = Reduce(s, a)
		all = append(all, effects...)
	}
	if err := e.save(ctx, s); err != nil {
		return State{}, nil, err
	}
	return s, all, nil
}

func submits(effects []Effect) bool {
	for _, eff := range effects {
		if _, ok := eff.(Submit); ok {
			return true
		}
	}
	return false
}

// run performs effects concurrently and returns their results in effect order.
func (e *Engine) run(ctx context.Context, effects []Effect) []Action {
	if len(effects) == 0 {
		return nil
	}
	results := make([]Action, len(effects))
	var g errgroup.Group
	for i, eff := range effects {
		g.Go(func() error {
			results[i] = e.perform(ctx, eff)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (e *Engine) perform(ctx context.Context, eff Effect) Action {
	switch eff := eff.(type) {
	case FetchClasses:
		classes, err := e.svc.Catalog.ListClasses(ctx)
		return ClassesLoaded{Classes: classes, Err: err}

	case FetchSections:
		sections, err := e.svc.Catalog.ListSections(ctx, eff.Class)
		return SectionsLoaded{Gen: eff.Gen, Sections: sections, Err: err}

	case LoadScope:
		var (
			roster  []model.Student
			entries []history.Entry
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() (err error) {
			roster, err = e.svc.Catalog.ListStudents(gctx, eff.Class, eff.Section)
			return err
		})
		g.Go(func() (err error) {
			entries, err = e.svc.History.Load(gctx, eff.Class, eff.Section)
			return err
		})
		err := g.Wait()
		return ScopeLoaded{Gen: eff.Gen, Roster: roster, History: entries, Err: err}

	case LoadDay:
		records, err := e.svc.Day.DayAttendance(ctx, eff.Class, eff.Section, eff.Date)
		return DayLoaded{Gen: eff.Gen, Records: records, Err: err}

	case ResolveSchedule:
		// The resolution carries its own notice when the fetch fails.
		res, _ := e.svc.Schedule.Resolve(ctx, eff.At, eff.Class, eff.Section)
		return ScheduleResolved{Gen: eff.Gen, Resolution: res}

	case Submit:
		report, err := e.svc.Submitter.Submit(ctx, eff.Request)
		return Submitted{Report: report, Err: err}
	}
	panic(fmt.Sprintf("workflow: unknown effect %T", eff))
}

func (e *Engine) load(ctx context.Context, id string) (State, error) {
	b, err := e.store.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			e.logger.Error("load session failed", zap.String("session", id), zap.Error(err))
		}
		return State{}, err
	}
	var s State
	if err := json.Unmarshal(b, &s); err != nil {
		return State{}, fmt.Errorf("decode session %s: %w", id, err)
	}
	if s.DayStatus == nil {
		s.DayStatus = map[string]model.Status{}
	}
	return s, nil
}

func (e *Engine) save(ctx context.Context, s State) error {
	b, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.SessionID, err)
	}
	if err := e.store.Save(ctx, s.SessionID, b, e.ttl); err != nil {
		e.logger.Error("save session failed", zap.String("session", s.SessionID), zap.Error(err))
		return err
	}
	return nil
}
