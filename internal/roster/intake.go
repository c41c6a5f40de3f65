package roster

import (
	"context"
	"fmt"
	"io"
	"mime"

	"go.uber.org/zap"

	"rollcall/internal/apperr"
	"rollcall/internal/model"
)

// Writer is the write side of the attendance API used for intake.
type Writer interface {
	AddStudent(ctx context.Context, s model.Student) ([]model.Student, error)
	ImportStudents(ctx context.Context, filename, contentType string, data io.Reader) ([]model.Student, error)
}

// csvTypes are the upload types accepted as CSV; some systems label CSV files as Excel.
var csvTypes = map[string]bool{
	"text/csv":                 true,
	"application/vnd.ms-excel": true,
}

const importFallback = "Error importing students. Please check the CSV format."

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Students []model.Student `json:"students"`
	Message  string          `json:"message"`
}

// Intake adds students one at a time or from a CSV upload.
type Intake struct {
	api    Writer
	logger *zap.Logger
}

// NewIntake creates an intake service.
func NewIntake(api Writer, logger *zap.Logger) *Intake {
	return &Intake{api: api, logger: logger}
}

// AddStudent validates presence of every field and creates the student.
func (in *Intake) AddStudent(ctx context.Context, s model.Student) (model.Student, error) {
	s.ID = ""
	if err := model.Validate(s); err != nil {
		return model.Student{}, apperr.Validation("add student", err.Error())
	}
	created, err := in.api.AddStudent(ctx, s)
	if err != nil {
		in.logger.Warn("add student failed", zap.String("roll_number", s.RollNumber), zap.Error(err))
		return model.Student{}, err
	}
	if len(created) == 0 {
		return s, nil
	}
	return created[0], nil
}

// ImportCSV uploads a roster file. Only the declared content type is checked;
// the column layout is the server's business.
func (in *Intake) ImportCSV(ctx context.Context, filename, contentType string, data io.Reader) (ImportResult, error) {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || !csvTypes[mediaType] {
		msg := fmt.Sprintf("Invalid file type: %s. Please upload a CSV file", contentType)
		return ImportResult{}, apperr.Validation("import students", msg)
	}

	in.logger.Info("importing students", zap.String("file", filename), zap.String("content_type", mediaType))
	students, err := in.api.ImportStudents(ctx, filename, mediaType, data)
	if err != nil {
		in.logger.Warn("student import failed", zap.String("file", filename), zap.Error(err))
		if e, ok := apperr.As(err); ok && e.Message == "" {
			e.Message = importFallback
		}
		return ImportResult{}, err
	}
	return ImportResult{
		Students: students,
		Message:  fmt.Sprintf("Successfully imported %d students", len(students)),
	}, nil
}
