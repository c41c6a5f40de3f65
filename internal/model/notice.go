package model

// Level is the severity of a Notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a one-line status message shown above the attendance view.
type Notice struct {
	Level     Level  `json:"level"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}
