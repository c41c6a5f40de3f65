// Package ledger keeps a durable record of every attendance submission and
// the outcome of each per-student write.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"rollcall/internal/attendance"
	"rollcall/internal/model"
)

// Submission is one stored batch.
type Submission struct {
	ID         string            `json:"id"`
	Mode       model.MarkingMode `json:"mode"`
	Class      string            `json:"class"`
	Section    string            `json:"section"`
	Date       model.Date        `json:"date"`
	RosterSize int               `json:"roster_size"`
	Writes     int               `json:"writes"`
	Failed     int               `json:"failed"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	RecordedAt time.Time         `json:"recorded_at"`
}

// Filter narrows ListSubmissions. Empty fields match everything.
type Filter struct {
	Class   string
	Section string
	Limit   int
	Offset  int
}

// Repository persists submissions in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveReport stores r and its write results in one transaction. Saving the
// same report twice is a no-op and reports false.
func (r *Repository) SaveReport(ctx context.Context, rep attendance.Report) (bool, error) {
	if rep.ID == "" {
		return false, errors.New("report id required")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO submissions (id, mode, class, section, day, roster_size, writes, failed, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (id) DO NOTHING
	`, rep.ID, string(rep.Mode), rep.Class, rep.Section, rep.Date.String(), rep.RosterSize,
		len(rep.Results), rep.Failed(), rep.StartedAt, rep.FinishedAt)
	if err != nil {
		return false, fmt.Errorf("insert submission %s: %w", rep.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, tx.Commit()
	}

	for _, w := range rep.Results {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO submission_writes (submission_id, student_id, status, pass, record_id, error)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, rep.ID, w.StudentID, string(w.Status), w.Pass, nullable(w.RecordID), nullable(w.Error)); err != nil {
			return false, fmt.Errorf("insert write %s/%s: %w", rep.ID, w.StudentID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ListSubmissions returns stored batches, newest first.
func (r *Repository) ListSubmissions(ctx context.Context, f Filter) ([]Submission, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	query := `SELECT id, mode, class, section, day, roster_size, writes, failed, started_at, finished_at, recorded_at FROM submissions`
	var (
		args    []any
		clauses []string
	)
	if f.Class != "" {
		args = append(args, f.Class)
		clauses = append(clauses, "class = $"+strconv.Itoa(len(args)))
	}
	if f.Section != "" {
		args = append(args, f.Section)
		clauses = append(clauses, "section = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY recorded_at DESC LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Submission
	for rows.Next() {
		var (
			s   Submission
			day time.Time
		)
		if err := rows.Scan(&s.ID, &s.Mode, &s.Class, &s.Section, &day, &s.RosterSize, &s.Writes, &s.Failed, &s.StartedAt, &s.FinishedAt, &s.RecordedAt); err != nil {
			return nil, err
		}
		s.Date = model.DateOf(day.UTC())
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
