package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"rollcall/internal/apiclient"
	"rollcall/internal/attendance"
	"rollcall/internal/history"
	"rollcall/internal/model"
	"rollcall/internal/roster"
	"rollcall/internal/schedule"
	"rollcall/internal/session"
)

type fakeBackend struct {
	mu      sync.Mutex
	slots   []model.ScheduleSlot
	roster  []model.Student
	records []model.AttendanceRecord
	writes  []model.AttendanceWrite
}

func (f *fakeBackend) ListClasses(context.Context) ([]string, error) { return []string{"5", "6"}, nil }

func (f *fakeBackend) ListSections(_ context.Context, class string) ([]string, error) {
	return []string{"A", "B"}, nil
}

func (f *fakeBackend) ListStudents(context.Context, string, string) ([]model.Student, error) {
	return append([]model.Student(nil), f.roster...), nil
}

func (f *fakeBackend) AttendanceHistory(context.Context, string, string) ([]model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.AttendanceRecord(nil), f.records...), nil
}

func (f *fakeBackend) DayAttendance(_ context.Context, _, _ string, date model.Date) ([]model.AttendanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AttendanceRecord
	for _, r := range f.records {
		if r.Date == date {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeBackend) ListSchedules(_ context.Context, filter apiclient.ScheduleFilter) ([]model.ScheduleSlot, error) {
	var out []model.ScheduleSlot
	for _, s := range f.slots {
		if s.Day == filter.Day {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeBackend) MarkAttendance(ctx context.Context, w model.AttendanceWrite) (model.AttendanceRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.AttendanceRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, w)
	rec := model.AttendanceRecord{ID: w.StudentID + "-" + w.Date.String(), Student: model.Student{ID: w.StudentID}, Date: w.Date, Status: w.Status}
	for i, r := range f.records {
		if r.Student.ID == w.StudentID && r.Date == w.Date {
			f.records[i] = rec
			return rec, nil
		}
	}
	f.records = append(f.records, rec)
	return rec, nil
}

func newTestEngine(b *fakeBackend, now time.Time) *Engine {
	logger := zap.NewNop()
	svc := Services{
		Catalog:   roster.NewProvider(b, language.English),
		History:   history.NewViewer(b),
		Day:       b,
		Schedule:  schedule.NewResolver(b, logger),
		Submitter: attendance.NewSubmitter(b, time.UTC, logger, attendance.WithClock(func() time.Time { return now })),
	}
	return NewEngine(svc, session.NewInMemory(), time.Hour, logger)
}

func TestEngineStartAutoSelectsOpenSlot(t *testing.T) {
	b := &fakeBackend{
		slots: []model.ScheduleSlot{{ID: "a", Day: "Monday", StartTime: "09:00", EndTime: "09:50", Class: "5", Section: "A", Subject: "Math"}},
		roster: []model.Student{
			{ID: "s2", RollNumber: "02", Name: "Brook"},
			{ID: "s1", RollNumber: "01", Name: "Ada"},
		},
	}
	e := newTestEngine(b, monday0920)

	s, err := e.Start(context.Background(), monday0920)
	require.NoError(t, err)
	assert.NotEmpty(t, s.SessionID)
	assert.Equal(t, []string{"5", "6"}, s.Classes)
	assert.Equal(t, []string{"A", "B"}, s.Sections)
	assert.Equal(t, "5", s.Class)
	assert.Equal(t, "A", s.Section)
	require.Len(t, s.Roster, 2)
	assert.Equal(t, "01", s.Roster[0].RollNumber)
	assert.Equal(t, "Current class: Math (09:00 - 09:50)", s.Notice.Message)

	again, err := e.State(context.Background(), s.SessionID)
	require.NoError(t, err)
	assert.Equal(t, s.Roster, again.Roster)
}

func TestEngineAbsentSubmissionRefreshesDay(t *testing.T) {
	b := &fakeBackend{roster: []model.Student{
		{ID: "s1", RollNumber: "01", Name: "Ada"},
		{ID: "s2", RollNumber: "02", Name: "Brook"},
	}}
	e := newTestEngine(b, monday0920)
	ctx := context.Background()

	s, err := e.Start(ctx, monday0920)
	require.NoError(t, err)
	id := s.SessionID

	s, err = e.Dispatch(ctx, id, SelectClass{Class: "5"}, SelectSection{Section: "A"}, SetMode{Mode: model.ModeAbsent}, ToggleStudent{StudentID: "s2"})
	require.NoError(t, err)
	require.Len(t, s.Roster, 2)

	s, err = e.Dispatch(ctx, id, Prepare{})
	require.NoError(t, err)
	require.NotNil(t, s.Pending)

	s, err = e.Dispatch(ctx, id, Confirm{})
	require.NoError(t, err)
	assert.False(t, s.Loading)
	assert.Len(t, b.writes, 3)
	assert.Equal(t, map[string]model.Status{"s1": model.StatusPresent, "s2": model.StatusAbsent}, s.DayStatus)
	assert.Len(t, s.History, 2)
	assert.Empty(t, s.Selected)
}

func TestEngineUnknownSession(t *testing.T) {
	e := newTestEngine(&fakeBackend{}, monday0920)
	_, err := e.Dispatch(context.Background(), "nope", Init{})
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestEngineConfirmSettlesAfterCallerLeaves(t *testing.T) {
	b := &fakeBackend{roster: []model.Student{
		{ID: "s1", RollNumber: "01", Name: "Ada"},
		{ID: "s2", RollNumber: "02", Name: "Brook"},
	}}
	e := newTestEngine(b, monday0920)
	ctx := context.Background()

	s, err := e.Start(ctx, monday0920)
	require.NoError(t, err)
	id := s.SessionID
	_, err = e.Dispatch(ctx, id, SelectClass{Class: "5"}, SelectSection{Section: "A"}, SelectAll{On: true}, Prepare{})
	require.NoError(t, err)

	gone, cancel := context.WithCancel(ctx)
	cancel()
	s, err = e.Dispatch(gone, id, Confirm{})
	require.NoError(t, err)
	assert.False(t, s.Loading)
	assert.Len(t, b.writes, 2)

	saved, err := e.State(ctx, id)
	require.NoError(t, err)
	assert.False(t, saved.Loading)
	assert.Equal(t, model.LevelSuccess, saved.Notice.Level)
}
