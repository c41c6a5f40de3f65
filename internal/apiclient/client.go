// Package apiclient talks to the remote attendance REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"rollcall/internal/apperr"
	"rollcall/internal/metrics"
	"rollcall/internal/model"
)

// Client calls the attendance API. It never retries.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client. A zero timeout leaves requests unbounded.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// ScheduleFilter narrows GET /schedules. Empty fields are not sent.
type ScheduleFilter struct {
	Day     string
	Class   string
	Section string
}

type studentsEnvelope struct {
	Students []model.Student `json:"students"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// ListClasses returns every class that has students.
func (c *Client) ListClasses(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/students/classes", "/students/classes", nil, &out)
	return out, err
}

// ListSections returns the sections of class.
func (c *Client) ListSections(ctx context.Context, class string) ([]string, error) {
	var out []string
	q := url.Values{"class": {class}}
	err := c.do(ctx, http.MethodGet, "/students/sections", "/students/sections?"+q.Encode(), nil, &out)
	return out, err
}

// ListStudents returns the students of class/section in store order.
func (c *Client) ListStudents(ctx context.Context, class, section string) ([]model.Student, error) {
	var out []model.Student
	q := url.Values{"class": {class}, "section": {section}}
	err := c.do(ctx, http.MethodGet, "/students", "/students?"+q.Encode(), nil, &out)
	return out, err
}

// AddStudent creates one student.
func (c *Client) AddStudent(ctx context.Context, s model.Student) ([]model.Student, error) {
	body, err := jsonBody(s)
	if err != nil {
		return nil, apperr.Transport("add student", err)
	}
	var out studentsEnvelope
	if err := c.do(ctx, http.MethodPost, "/students", "/students", body, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// ImportStudents uploads a CSV file as the multipart field "file".
func (c *Client) ImportStudents(ctx context.Context, filename, contentType string, data io.Reader) ([]model.Student, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, apperr.Transport("import students", fmt.Errorf("create form file: %w", err))
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, apperr.Transport("import students", fmt.Errorf("write file: %w", err))
	}
	if err := w.Close(); err != nil {
		return nil, apperr.Transport("import students", err)
	}

	b := &requestBody{reader: &buf, contentType: w.FormDataContentType()}
	var out studentsEnvelope
	if err := c.do(ctx, http.MethodPost, "/students", "/students", b, &out); err != nil {
		return nil, err
	}
	return out.Students, nil
}

// DayAttendance returns the records stored for class/section on date.
func (c *Client) DayAttendance(ctx context.Context, class, section string, date model.Date) ([]model.AttendanceRecord, error) {
	var out []model.AttendanceRecord
	q := url.Values{"class": {class}, "section": {section}, "date": {date.String()}}
	err := c.do(ctx, http.MethodGet, "/attendance", "/attendance?"+q.Encode(), nil, &out)
	return out, err
}

// AttendanceHistory returns every record of class/section across all dates.
func (c *Client) AttendanceHistory(ctx context.Context, class, section string) ([]model.AttendanceRecord, error) {
	var out []model.AttendanceRecord
	q := url.Values{"class": {class}, "section": {section}}
	err := c.do(ctx, http.MethodGet, "/attendance/history", "/attendance/history?"+q.Encode(), nil, &out)
	return out, err
}

// MarkAttendance writes one status for one student.
func (c *Client) MarkAttendance(ctx context.Context, w model.AttendanceWrite) (model.AttendanceRecord, error) {
	body, err := jsonBody(w)
	if err != nil {
		return model.AttendanceRecord{}, apperr.Transport("mark attendance", err)
	}
	var out model.AttendanceRecord
	err = c.do(ctx, http.MethodPost, "/attendance", "/attendance", body, &out)
	return out, err
}

// ListSchedules returns the slots matching f.
func (c *Client) ListSchedules(ctx context.Context, f ScheduleFilter) ([]model.ScheduleSlot, error) {
	q := url.Values{}
	if f.Day != "" {
		q.Set("day", f.Day)
	}
	if f.Class != "" {
		q.Set("class", f.Class)
	}
	if f.Section != "" {
		q.Set("section", f.Section)
	}
	path := "/schedules"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.ScheduleSlot
	err := c.do(ctx, http.MethodGet, "/schedules", path, nil, &out)
	return out, err
}

// CreateSchedule stores a new slot.
func (c *Client) CreateSchedule(ctx context.Context, s model.ScheduleSlot) (model.ScheduleSlot, error) {
	s.ID = ""
	body, err := jsonBody(s)
	if err != nil {
		return model.ScheduleSlot{}, apperr.Transport("create schedule", err)
	}
	var out model.ScheduleSlot
	err = c.do(ctx, http.MethodPost, "/schedules", "/schedules", body, &out)
	return out, err
}

// UpdateSchedule replaces the slot with id.
func (c *Client) UpdateSchedule(ctx context.Context, id string, s model.ScheduleSlot) (model.ScheduleSlot, error) {
	body, err := jsonBody(s)
	if err != nil {
		return model.ScheduleSlot{}, apperr.Transport("update schedule", err)
	}
	var out model.ScheduleSlot
	err = c.do(ctx, http.MethodPut, "/schedules/:id", "/schedules/"+url.PathEscape(id), body, &out)
	return out, err
}

// DeleteSchedule removes the slot with id.
func (c *Client) DeleteSchedule(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/schedules/:id", "/schedules/"+url.PathEscape(id), nil, nil)
}

type requestBody struct {
	reader      io.Reader
	contentType string
}

func jsonBody(v any) (*requestBody, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &requestBody{reader: bytes.NewReader(b), contentType: "application/json"}, nil
}

// do issues one request. route is the metrics label, path the actual URL path.
func (c *Client) do(ctx context.Context, method, route, path string, body *requestBody, out any) (err error) {
	op := strings.ToLower(method) + " " + route
	start := time.Now()
	defer func() {
		metrics.APIRequestDuration.WithLabelValues(method, route, metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		reader = body.reader
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return apperr.Transport(op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return apperr.Transport(op, fmt.Errorf("attendance api request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var env errorEnvelope
		if json.Unmarshal(bodyBytes, &env) == nil && env.Error != "" {
			return apperr.Server(op, resp.StatusCode, env.Error)
		}
		return apperr.Server(op, resp.StatusCode, "")
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Transport(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
