package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"rollcall/internal/ledger"
	"rollcall/internal/model"
)

// ListClasses feeds the class pickers of the editor and intake forms.
func (h *Handler) ListClasses(c *gin.Context) {
	classes, err := h.catalog.ListClasses(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Could not load classes.")
		return
	}
	if classes == nil {
		classes = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"classes": classes})
}

// ListSections returns the sections of ?class=.
func (h *Handler) ListSections(c *gin.Context) {
	sections, err := h.catalog.ListSections(c.Request.Context(), c.Query("class"))
	if err != nil {
		h.respondError(c, err, "Could not load sections.")
		return
	}
	if sections == nil {
		sections = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"sections": sections})
}

// AddStudent creates one student from a JSON body.
func (h *Handler) AddStudent(c *gin.Context) {
	var s model.Student
	if err := c.ShouldBindJSON(&s); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	created, err := h.intake.AddStudent(c.Request.Context(), s)
	if err != nil {
		h.respondError(c, err, "Error adding student. Please try again.")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"student": created, "message": "Student added successfully"})
}

// ImportStudents forwards an uploaded CSV in the multipart field "file".
func (h *Handler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	defer file.Close()

	res, err := h.intake.ImportCSV(c.Request.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		h.respondError(c, err, "Error importing students. Please check the CSV format.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": res.Students, "message": res.Message})
}

// ListSchedules returns the week grouped by day.
func (h *Handler) ListSchedules(c *gin.Context) {
	week, err := h.editor.Week(c.Request.Context())
	if err != nil {
		h.respondError(c, err, "Error fetching schedule information.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": week})
}

// CreateSchedule adds a slot.
func (h *Handler) CreateSchedule(c *gin.Context) {
	var slot model.ScheduleSlot
	if err := c.ShouldBindJSON(&slot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slot.ID = ""
	saved, err := h.editor.Save(c.Request.Context(), slot)
	if err != nil {
		h.respondError(c, err, "Error saving schedule. Please try again.")
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// UpdateSchedule replaces the slot at :id.
func (h *Handler) UpdateSchedule(c *gin.Context) {
	var slot model.ScheduleSlot
	if err := c.ShouldBindJSON(&slot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	slot.ID = c.Param("id")
	saved, err := h.editor.Save(c.Request.Context(), slot)
	if err != nil {
		h.respondError(c, err, "Error saving schedule. Please try again.")
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DeleteSchedule removes the slot at :id.
func (h *Handler) DeleteSchedule(c *gin.Context) {
	if err := h.editor.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err, "Error deleting schedule. Please try again.")
		return
	}
	c.Status(http.StatusNoContent)
}

// ListSubmissions pages through the submission ledger.
func (h *Handler) ListSubmissions(c *gin.Context) {
	if h.ledger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "submission ledger not configured"})
		return
	}
	f := ledger.Filter{Class: c.Query("class"), Section: c.Query("section")}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Limit = parsed
		}
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	subs, err := h.ledger.ListSubmissions(c.Request.Context(), f)
	if err != nil {
		h.respondError(c, err, "Could not load submissions.")
		return
	}
	if subs == nil {
		subs = []ledger.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs})
}
