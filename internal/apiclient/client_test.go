package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

func TestListSchedulesSendsOnlySetFilters(t *testing.T) {
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.URL.RequestURI())
		_, _ = w.Write([]byte(`[{"_id":"a","day":"Monday","startTime":"09:00","endTime":"09:50","subject":"Math","class":"5","section":"A"}]`))
	}))
	defer srv.Close()
	c := New(srv.URL+"/api/", time.Second)

	slots, err := c.ListSchedules(context.Background(), ScheduleFilter{Day: "Monday"})
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "a", slots[0].ID)

	_, err = c.ListSchedules(context.Background(), ScheduleFilter{})
	require.NoError(t, err)
	_, err = c.ListSchedules(context.Background(), ScheduleFilter{Day: "Monday", Class: "5", Section: "A"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/api/schedules?day=Monday",
		"/api/schedules",
		"/api/schedules?class=5&day=Monday&section=A",
	}, got)
}

func TestMarkAttendanceBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/attendance", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"studentId":"s1","date":"2024-03-04","status":"absent","class":"5","section":"A"}`, string(b))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"_id":"r1","student":{"_id":"s1","rollNumber":"01","name":"Ada"},"date":"2024-03-04T00:00:00.000Z","status":"absent"}`))
	}))
	defer srv.Close()

	rec, err := New(srv.URL, time.Second).MarkAttendance(context.Background(), model.AttendanceWrite{
		StudentID: "s1",
		Date:      model.Date{Year: 2024, Month: time.March, Day: 4},
		Status:    model.StatusAbsent,
		Class:     "5",
		Section:   "A",
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", rec.ID)
	assert.Equal(t, "Ada", rec.Student.Name)
	assert.Equal(t, model.Date{Year: 2024, Month: time.March, Day: 4}, rec.Date)
}

func TestServerErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/students/classes" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("oops"))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Roll number already exists"})
	}))
	defer srv.Close()
	c := New(srv.URL, time.Second)

	_, err := c.AddStudent(context.Background(), model.Student{RollNumber: "01"})
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindServer, e.Kind)
	assert.Equal(t, http.StatusBadRequest, e.StatusCode)
	assert.Equal(t, "Roll number already exists", e.Message)
	assert.False(t, e.Retryable())

	_, err = c.ListClasses(context.Background())
	e, ok = apperr.As(err)
	require.True(t, ok)
	assert.Empty(t, e.Message)
	assert.True(t, e.Retryable())
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).ListStudents(context.Background(), "5", "A")
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindTransport, e.Kind)
	assert.True(t, e.Retryable())
}

func TestTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).ListClasses(context.Background())
	e, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindTransport, e.Kind)
}

func TestImportStudentsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "roster.csv", header.Filename)
		assert.Equal(t, "text/csv", header.Header.Get("Content-Type"))
		b, _ := io.ReadAll(file)
		assert.Equal(t, "rollNumber,name\n", string(b))
		_, _ = w.Write([]byte(`{"students":[{"_id":"a"},{"_id":"b"}]}`))
	}))
	defer srv.Close()

	students, err := New(srv.URL, time.Second).ImportStudents(context.Background(), "roster.csv", "text/csv", strings.NewReader("rollNumber,name\n"))
	require.NoError(t, err)
	assert.Len(t, students, 2)
}

func TestDeleteScheduleEscapesID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/schedules/a%2Fb", r.URL.EscapedPath())
		_, _ = w.Write([]byte(`{"message":"deleted"}`))
	}))
	defer srv.Close()
	assert.NoError(t, New(srv.URL, time.Second).DeleteSchedule(context.Background(), "a/b"))
}

func TestContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New("http://127.0.0.1:1", time.Second).ListClasses(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
