package handler

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"

	"rollcall/internal/model"
)

// fakeAPI is an in-memory attendance API.
type fakeAPI struct {
	mu       sync.Mutex
	students []model.Student
	slots    []model.ScheduleSlot
	records  []model.AttendanceRecord
	writes   []model.AttendanceWrite
	nextID   int
}

func (f *fakeAPI) id(prefix string) string {
	f.nextID++
	return prefix + strconv.Itoa(f.nextID)
}

func (f *fakeAPI) serve(t *testing.T) *httptest.Server {
	t.Helper()
	r := gin.New()

	r.GET("/api/students/classes", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		seen := map[string]bool{}
		out := []string{}
		for _, s := range f.students {
			if !seen[s.Class] {
				seen[s.Class] = true
				out = append(out, s.Class)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	r.GET("/api/students/sections", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		seen := map[string]bool{}
		out := []string{}
		for _, s := range f.students {
			if s.Class == c.Query("class") && !seen[s.Section] {
				seen[s.Section] = true
				out = append(out, s.Section)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	r.GET("/api/students", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []model.Student{}
		for _, s := range f.students {
			if s.Class == c.Query("class") && s.Section == c.Query("section") {
				out = append(out, s)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	r.POST("/api/students", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			file, _, err := c.Request.FormFile("file")
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
				return
			}
			defer file.Close()
			rows, err := csv.NewReader(file).ReadAll()
			if err != nil || len(rows) < 2 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "CSV file is empty"})
				return
			}
			var added []model.Student
			for _, row := range rows[1:] {
				s := model.Student{ID: f.id("st"), RollNumber: row[0], Name: row[1], Class: row[2], Section: row[3]}
				f.students = append(f.students, s)
				added = append(added, s)
			}
			c.JSON(http.StatusCreated, gin.H{"students": added})
			return
		}
		var s model.Student
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.ID = f.id("st")
		f.students = append(f.students, s)
		c.JSON(http.StatusCreated, gin.H{"students": []model.Student{s}})
	})

	r.GET("/api/attendance", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		date, _ := model.ParseDate(c.Query("date"))
		out := []model.AttendanceRecord{}
		for _, rec := range f.records {
			if rec.Class == c.Query("class") && rec.Section == c.Query("section") && rec.Date == date {
				out = append(out, rec)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	r.GET("/api/attendance/history", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []model.AttendanceRecord{}
		for _, rec := range f.records {
			if rec.Class == c.Query("class") && rec.Section == c.Query("section") {
				out = append(out, rec)
			}
		}
		c.JSON(http.StatusOK, out)
	})
	r.POST("/api/attendance", func(c *gin.Context) {
		var w model.AttendanceWrite
		if err := c.ShouldBindJSON(&w); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.writes = append(f.writes, w)
		var student model.Student
		for _, s := range f.students {
			if s.ID == w.StudentID {
				student = s
			}
		}
		rec := model.AttendanceRecord{Student: student, Date: w.Date, Status: w.Status, Class: w.Class, Section: w.Section}
		for i, existing := range f.records {
			if existing.Student.ID == w.StudentID && existing.Date == w.Date {
				rec.ID = existing.ID
				f.records[i] = rec
				c.JSON(http.StatusOK, rec)
				return
			}
		}
		rec.ID = f.id("att")
		f.records = append(f.records, rec)
		c.JSON(http.StatusCreated, rec)
	})

	r.GET("/api/schedules", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		out := []model.ScheduleSlot{}
		for _, s := range f.slots {
			if day := c.Query("day"); day != "" && s.Day != day {
				continue
			}
			if class := c.Query("class"); class != "" && s.Class != class {
				continue
			}
			if section := c.Query("section"); section != "" && s.Section != section {
				continue
			}
			out = append(out, s)
		}
		c.JSON(http.StatusOK, out)
	})
	r.POST("/api/schedules", func(c *gin.Context) {
		var s model.ScheduleSlot
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		s.ID = f.id("sl")
		f.slots = append(f.slots, s)
		c.JSON(http.StatusCreated, s)
	})
	r.PUT("/api/schedules/:id", func(c *gin.Context) {
		var s model.ScheduleSlot
		if err := c.ShouldBindJSON(&s); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.slots {
			if f.slots[i].ID == c.Param("id") {
				s.ID = c.Param("id")
				f.slots[i] = s
				c.JSON(http.StatusOK, s)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	})
	r.DELETE("/api/schedules/:id", func(c *gin.Context) {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.slots {
			if f.slots[i].ID == c.Param("id") {
				f.slots = append(f.slots[:i], f.slots[i+1:]...)
				c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted"})
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Schedule not found"})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}
