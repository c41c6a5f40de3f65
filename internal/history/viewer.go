// Package history projects past attendance records for display.
package history

import (
	"context"

	"rollcall/internal/model"
)

// Source returns stored records for a class/section across all dates.
type Source interface {
	AttendanceHistory(ctx context.Context, class, section string) ([]model.AttendanceRecord, error)
}

// Entry is one row of the history table.
type Entry struct {
	RollNumber string       `json:"rollNumber"`
	Name       string       `json:"name"`
	Date       model.Date   `json:"date"`
	Status     model.Status `json:"status"`
}

// Viewer is read-only. Entries keep the order the store returned.
type Viewer struct {
	src Source
}

// NewViewer creates a viewer.
func NewViewer(src Source) *Viewer {
	return &Viewer{src: src}
}

// Load fetches and projects the history of class/section.
func (v *Viewer) Load(ctx context.Context, class, section string) ([]Entry, error) {
	if class == "" || section == "" {
		return []Entry{}, nil
	}
	records, err := v.src.AttendanceHistory(ctx, class, section)
	if err != nil {
		return nil, err
	}
	return Project(records), nil
}

// Project maps records to entries.
func Project(records []model.AttendanceRecord) []Entry {
	out := make([]Entry, 0, len(records))
	for _, r := range records {
		out = append(out, Entry{
			RollNumber: r.Student.RollNumber,
			Name:       r.Student.Name,
			Date:       r.Date,
			Status:     r.Status,
		})
	}
	return out
}
