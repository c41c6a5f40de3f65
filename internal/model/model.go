package model

// Student is a roster member as the attendance API returns it.
type Student struct {
	ID         string `json:"_id,omitempty"`
	RollNumber string `json:"rollNumber" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Class      string `json:"class" validate:"required"`
	Section    string `json:"section" validate:"required"`
}

// ScheduleSlot is a weekly recurring class session.
type ScheduleSlot struct {
	ID        string `json:"_id,omitempty"`
	Day       string `json:"day" validate:"required,weekday"`
	StartTime string `json:"startTime" validate:"required,clock"`
	EndTime   string `json:"endTime" validate:"required,clock"`
	Subject   string `json:"subject" validate:"required"`
	Class     string `json:"class" validate:"required"`
	Section   string `json:"section" validate:"required"`
}

// Status is the persisted attendance status of a student on a date.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPresent || s == StatusAbsent
}

// AttendanceRecord is one stored status write, with the student embedded.
type AttendanceRecord struct {
	ID      string  `json:"_id,omitempty"`
	Student Student `json:"student"`
	Date    Date    `json:"date"`
	Status  Status  `json:"status"`
	Class   string  `json:"class"`
	Section string  `json:"section"`
}

// AttendanceWrite is the body of a single POST /attendance call.
type AttendanceWrite struct {
	StudentID string `json:"studentId"`
	Date      Date   `json:"date"`
	Status    Status `json:"status"`
	Class     string `json:"class"`
	Section   string `json:"section"`
}

// MarkingMode decides how the current selection is interpreted.
type MarkingMode string

const (
	// ModePresent marks only the selected students present.
	ModePresent MarkingMode = "present"
	// ModeAbsent marks everyone present, then the selected students absent.
	ModeAbsent MarkingMode = "absent"
)

// Valid reports whether m is a known marking mode.
func (m MarkingMode) Valid() bool {
	return m == ModePresent || m == ModeAbsent
}
