// Package handler exposes the front-desk HTTP API.
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rollcall/internal/apperr"
	"rollcall/internal/auth"
	"rollcall/internal/ledger"
	"rollcall/internal/model"
	"rollcall/internal/roster"
	"rollcall/internal/schedule"
	"rollcall/internal/session"
	"rollcall/internal/workflow"
)

// Workflow runs attendance sessions.
type Workflow interface {
	Start(ctx context.Context, now time.Time) (workflow.State, error)
	State(ctx context.Context, id string) (workflow.State, error)
	Dispatch(ctx context.Context, id string, actions ...workflow.Action) (workflow.State, error)
}

// Catalog lists classes and sections for the editor and intake forms.
type Catalog interface {
	ListClasses(ctx context.Context) ([]string, error)
	ListSections(ctx context.Context, class string) ([]string, error)
}

// StudentIntake adds students one at a time or from a CSV file.
type StudentIntake interface {
	AddStudent(ctx context.Context, s model.Student) (model.Student, error)
	ImportCSV(ctx context.Context, filename, contentType string, data io.Reader) (roster.ImportResult, error)
}

// ScheduleEditor maintains the weekly timetable.
type ScheduleEditor interface {
	Week(ctx context.Context) ([]schedule.DayGroup, error)
	Save(ctx context.Context, slot model.ScheduleSlot) (model.ScheduleSlot, error)
	Delete(ctx context.Context, id string) error
}

// SubmissionLister reads the submission ledger.
type SubmissionLister interface {
	ListSubmissions(ctx context.Context, f ledger.Filter) ([]ledger.Submission, error)
}

// Tokens configures session tokens.
type Tokens struct {
	Issuer string
	Key    string
	TTL    time.Duration
}

// Deps are the collaborators of a Handler. Ledger may be nil.
type Deps struct {
	Workflow Workflow
	Catalog  Catalog
	Intake   StudentIntake
	Editor   ScheduleEditor
	Ledger   SubmissionLister
	Tokens   Tokens
	Location *time.Location
	Now      func() time.Time
	Logger   *zap.Logger
}

// Handler serves the HTTP routes.
type Handler struct {
	flow    Workflow
	catalog Catalog
	intake  StudentIntake
	editor  ScheduleEditor
	ledger  SubmissionLister
	tokens  Tokens
	loc     *time.Location
	now     func() time.Time
	logger  *zap.Logger
}

// New builds a handler from d.
func New(d Deps) *Handler {
	h := &Handler{
		flow:    d.Workflow,
		catalog: d.Catalog,
		intake:  d.Intake,
		editor:  d.Editor,
		ledger:  d.Ledger,
		tokens:  d.Tokens,
		loc:     d.Location,
		now:     d.Now,
		logger:  d.Logger,
	}
	if h.loc == nil {
		h.loc = time.Local
	}
	if h.now == nil {
		h.now = time.Now
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	return h
}

// Register mounts every /v1 route on r. limit runs after session auth so
// session routes are limited per session and the rest per IP.
func (h *Handler) Register(r gin.IRouter, limit ...gin.HandlerFunc) {
	public := r.Group("/v1", limit...)
	public.POST("/sessions", h.StartSession)
	public.GET("/classes", h.ListClasses)
	public.GET("/sections", h.ListSections)
	public.POST("/students", h.AddStudent)
	public.POST("/students/import", h.ImportStudents)
	public.GET("/schedules", h.ListSchedules)
	public.POST("/schedules", h.CreateSchedule)
	public.PUT("/schedules/:id", h.UpdateSchedule)
	public.DELETE("/schedules/:id", h.DeleteSchedule)
	public.GET("/submissions", h.ListSubmissions)

	sessionMW := append([]gin.HandlerFunc{auth.SessionAuth(h.tokens.Key, h.tokens.Issuer)}, limit...)
	sess := r.Group("/v1", sessionMW...)
	sess.GET("/state", h.GetState)
	sess.GET("/history", h.GetHistory)
	sess.POST("/class", h.SelectClass)
	sess.POST("/section", h.SelectSection)
	sess.POST("/date", h.ChangeDate)
	sess.POST("/schedule/choose", h.ChooseSlot)
	sess.POST("/schedule/dismiss", h.simple(workflow.DismissConflicts{}))
	sess.POST("/mode", h.SetMode)
	sess.POST("/selection/toggle", h.ToggleStudent)
	sess.POST("/selection/all", h.SelectAll)
	sess.POST("/submission/prepare", h.simple(workflow.Prepare{}))
	sess.POST("/submission/confirm", h.simple(workflow.Confirm{}))
	sess.POST("/submission/cancel", h.simple(workflow.Cancel{}))
	sess.POST("/notice/dismiss", h.simple(workflow.DismissNotice{}))
}

func (h *Handler) today() model.Date {
	return model.DateOf(h.now().In(h.loc))
}

// respondError maps err to a status and a user-facing message.
func (h *Handler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session expired. Please reload the page."})
		return
	}
	if e, ok := apperr.As(err); ok {
		switch {
		case e.Kind == apperr.KindValidation:
			status = http.StatusBadRequest
		case e.Kind == apperr.KindServer && e.StatusCode >= 400 && e.StatusCode < 500:
			status = e.StatusCode
		default:
			status = http.StatusBadGateway
		}
	}
	if status >= 500 {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": apperr.UserMessage(err, fallback)})
}
