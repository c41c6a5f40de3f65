package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rollcall/internal/auth"
	"rollcall/internal/model"
	"rollcall/internal/workflow"
)

// StartSession opens a workflow session and returns its token and first view.
func (h *Handler) StartSession(c *gin.Context) {
	st, err := h.flow.Start(c.Request.Context(), h.now().In(h.loc))
	if err != nil {
		h.respondError(c, err, "Could not start a session.")
		return
	}
	tok, err := auth.Issue(st.SessionID, h.tokens.Issuer, h.tokens.Key, h.tokens.TTL)
	if err != nil {
		h.respondError(c, err, "Could not start a session.")
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, tok.Value, int(h.tokens.TTL.Seconds()), "/", "", gin.Mode() == gin.ReleaseMode, true)
	c.JSON(http.StatusCreated, gin.H{
		"token":      tok.Value,
		"expires_at": tok.Expires.Unix(),
		"view":       workflow.Render(st, h.today()),
	})
}

// GetState returns the current view.
func (h *Handler) GetState(c *gin.Context) {
	st, err := h.flow.State(c.Request.Context(), auth.SessionID(c))
	if err != nil {
		h.respondError(c, err, "Could not load the session.")
		return
	}
	c.JSON(http.StatusOK, workflow.Render(st, h.today()))
}

// GetHistory returns the history table of the session's class/section.
func (h *Handler) GetHistory(c *gin.Context) {
	st, err := h.flow.State(c.Request.Context(), auth.SessionID(c))
	if err != nil {
		h.respondError(c, err, "Could not load the session.")
		return
	}
	v := workflow.Render(st, h.today())
	c.JSON(http.StatusOK, gin.H{"class": v.Class, "section": v.Section, "history": v.History})
}

func (h *Handler) dispatch(c *gin.Context, actions ...workflow.Action) {
	st, err := h.flow.Dispatch(c.Request.Context(), auth.SessionID(c), actions...)
	if err != nil {
		h.respondError(c, err, "Could not update the session.")
		return
	}
	c.JSON(http.StatusOK, workflow.Render(st, h.today()))
}

func (h *Handler) simple(a workflow.Action) gin.HandlerFunc {
	return func(c *gin.Context) { h.dispatch(c, a) }
}

// SelectClass switches class. An empty class clears the scope.
func (h *Handler) SelectClass(c *gin.Context) {
	var req struct {
		Class string `json:"class"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.SelectClass{Class: req.Class})
}

// SelectSection switches section within the current class.
func (h *Handler) SelectSection(c *gin.Context) {
	var req struct {
		Section string `json:"section"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.SelectSection{Section: req.Section})
}

// ChangeDate picks a date. Time defaults to the current time of day.
func (h *Handler) ChangeDate(c *gin.Context) {
	var req struct {
		Date string `json:"date" binding:"required"`
		Time string `json:"time"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	at, err := h.moment(req.Date, req.Time)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.ChangeDate{At: at})
}

func (h *Handler) moment(date, clock string) (time.Time, error) {
	d, err := model.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	now := h.now().In(h.loc)
	minutes := model.ClockOf(now)
	if clock != "" {
		if minutes, err = model.ParseClock(clock); err != nil {
			return time.Time{}, err
		}
	}
	return time.Date(d.Year, d.Month, d.Day, int(minutes)/60, int(minutes)%60, 0, 0, h.loc), nil
}

// ChooseSlot settles a schedule conflict.
func (h *Handler) ChooseSlot(c *gin.Context) {
	var req struct {
		SlotID string `json:"slot_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.ChooseSlot{SlotID: req.SlotID})
}

// SetMode switches between present and absent marking.
func (h *Handler) SetMode(c *gin.Context) {
	var req struct {
		Mode model.MarkingMode `json:"mode" binding:"required,oneof=present absent"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.SetMode{Mode: req.Mode})
}

// ToggleStudent flips one student's selection.
func (h *Handler) ToggleStudent(c *gin.Context) {
	var req struct {
		StudentID string `json:"student_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.ToggleStudent{StudentID: req.StudentID})
}

// SelectAll selects or clears the whole roster.
func (h *Handler) SelectAll(c *gin.Context) {
	var req struct {
		On bool `json:"on"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.dispatch(c, workflow.SelectAll{On: req.On})
}
