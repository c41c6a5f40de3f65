// Package attendance turns a marking mode and a selection into status writes.
package attendance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rollcall/internal/apperr"
	"rollcall/internal/metrics"
	"rollcall/internal/model"
)

const failedMessage = "Failed to mark attendance. Please try again."

// Writer stores one attendance status.
type Writer interface {
	MarkAttendance(ctx context.Context, w model.AttendanceWrite) (model.AttendanceRecord, error)
}

// Recorder keeps the per-student outcome of a submission.
type Recorder interface {
	Record(ctx context.Context, r Report) error
}

// Request is everything needed to submit one class's attendance for a day.
type Request struct {
	Roster   []model.Student
	Selected []string
	Mode     model.MarkingMode
	Class    string
	Section  string
	Date     model.Date
}

// Pass is one concurrent batch of writes sharing a status.
type Pass struct {
	Status     model.Status
	StudentIDs []string
}

// WriteResult is the outcome of one per-student write.
type WriteResult struct {
	StudentID string       `json:"student_id"`
	Status    model.Status `json:"status"`
	Pass      int          `json:"pass"`
	RecordID  string       `json:"record_id,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Report accounts for every write a submission issued.
type Report struct {
	ID         string            `json:"id"`
	Mode       model.MarkingMode `json:"mode"`
	Class      string            `json:"class"`
	Section    string            `json:"section"`
	Date       model.Date        `json:"date"`
	RosterSize int               `json:"roster_size"`
	Results    []WriteResult     `json:"results"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Failed counts writes that did not succeed.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Error != "" {
			n++
		}
	}
	return n
}

// Submitter issues attendance writes. Writes already sent are never cancelled
// and never rolled back.
type Submitter struct {
	api         Writer
	recorder    Recorder
	logger      *zap.Logger
	loc         *time.Location
	now         func() time.Time
	concurrency int
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithClock overrides the time source used for "today".
func WithClock(now func() time.Time) Option {
	return func(s *Submitter) { s.now = now }
}

// WithRecorder sends every report to r.
func WithRecorder(r Recorder) Option {
	return func(s *Submitter) { s.recorder = r }
}

// WithConcurrency bounds in-flight writes per pass. Zero means unbounded.
func WithConcurrency(n int) Option {
	return func(s *Submitter) { s.concurrency = n }
}

// NewSubmitter creates a submitter computing "today" in loc.
func NewSubmitter(api Writer, loc *time.Location, logger *zap.Logger, opts ...Option) *Submitter {
	if loc == nil {
		loc = time.Local
	}
	s := &Submitter{api: api, logger: logger, loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar date in the submitter's location.
func (s *Submitter) Today() model.Date {
	return model.DateOf(s.now().In(s.loc))
}

// Plan returns the write passes for req, in issue order.
//
// In present mode only the selected students are written. In absent mode the
// whole roster is written present first and the selected students are then
// overwritten absent, so every roster member ends with one status for the day.
func Plan(req Request) []Pass {
	selected := selectedInRoster(req.Roster, req.Selected)
	switch req.Mode {
	case model.ModeAbsent:
		all := make([]string, 0, len(req.Roster))
		for _, st := range req.Roster {
			all = append(all, st.ID)
		}
		passes := []Pass{{Status: model.StatusPresent, StudentIDs: all}}
		if len(selected) > 0 {
			passes = append(passes, Pass{Status: model.StatusAbsent, StudentIDs: selected})
		}
		return passes
	default:
		if len(selected) == 0 {
			return nil
		}
		return []Pass{{Status: model.StatusPresent, StudentIDs: selected}}
	}
}

// Submit validates req and issues its passes. Each pass runs concurrently and
// is joined before the next starts; a failed pass stops the submission.
// Once issued, writes are not cancelled with ctx; the API client timeout
// bounds each of them.
func (s *Submitter) Submit(ctx context.Context, req Request) (Report, error) {
	if err := s.validate(req); err != nil {
		return Report{}, err
	}
	ctx = context.WithoutCancel(ctx)

	report := Report{
		ID:         uuid.NewString(),
		Mode:       req.Mode,
		Class:      req.Class,
		Section:    req.Section,
		Date:       req.Date,
		RosterSize: len(req.Roster),
		StartedAt:  s.now().UTC(),
	}
	logger := s.logger.With(
		zap.String("submission", report.ID),
		zap.String("class", req.Class),
		zap.String("section", req.Section),
		zap.String("date", req.Date.String()),
		zap.String("mode", string(req.Mode)))

	var runErr error
	for i, pass := range Plan(req) {
		results, err := s.runPass(ctx, req, i+1, pass)
		report.Results = append(report.Results, results...)
		if err != nil {
			runErr = err
			logger.Warn("attendance pass failed", zap.Int("pass", i+1), zap.String("status", string(pass.Status)), zap.Error(err))
			break
		}
	}
	report.FinishedAt = s.now().UTC()

	metrics.Submissions.WithLabelValues(string(req.Mode), metrics.Outcome(runErr)).Inc()
	if s.recorder != nil {
		if err := s.recorder.Record(ctx, report); err != nil {
			logger.Error("record submission report failed", zap.Error(err))
		}
	}

	if runErr != nil {
		return report, submitFailure(runErr)
	}
	logger.Info("attendance submitted", zap.Int("writes", len(report.Results)))
	return report, nil
}

func (s *Submitter) validate(req Request) error {
	const op = "submit attendance"
	if !req.Mode.Valid() {
		return apperr.Validation(op, "Choose a marking mode.")
	}
	if req.Class == "" || req.Section == "" {
		return apperr.Validation(op, "Select a class and section first.")
	}
	if req.Date.IsZero() {
		return apperr.Validation(op, "Select a date first.")
	}
	if req.Date.After(s.Today()) {
		return apperr.Validation(op, "Cannot mark attendance for future dates!")
	}
	return nil
}

// runPass writes pass concurrently and waits for every write to settle.
func (s *Submitter) runPass(ctx context.Context, req Request, n int, pass Pass) ([]WriteResult, error) {
	results := make([]WriteResult, len(pass.StudentIDs))
	var g errgroup.Group
	if s.concurrency > 0 {
		g.SetLimit(s.concurrency)
	}
	for i, id := range pass.StudentIDs {
		results[i] = WriteResult{StudentID: id, Status: pass.Status, Pass: n}
		g.Go(func() error {
			rec, err := s.api.MarkAttendance(ctx, model.AttendanceWrite{
				StudentID: id,
				Date:      req.Date,
				Status:    pass.Status,
				Class:     req.Class,
				Section:   req.Section,
			})
			metrics.AttendanceWrites.WithLabelValues(string(pass.Status), metrics.Outcome(err)).Inc()
			if err != nil {
				results[i].Error = err.Error()
				return err
			}
			results[i].RecordID = rec.ID
			return nil
		})
	}
	return results, g.Wait()
}

func submitFailure(err error) error {
	out := &apperr.Error{Kind: apperr.KindTransport, Op: "submit attendance", Message: failedMessage, Err: err}
	var cause *apperr.Error
	if errors.As(err, &cause) {
		out.Kind = cause.Kind
		out.StatusCode = cause.StatusCode
	}
	return out
}

func selectedInRoster(roster []model.Student, selected []string) []string {
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	out := make([]string, 0, len(selected))
	for _, st := range roster {
		if want[st.ID] {
			out = append(out, st.ID)
		}
	}
	return out
}
