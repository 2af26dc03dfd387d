package models

import "github.com/dmitrijs2005/memoria/internal/common"

// EventType names the notifications emitted for a task.
type EventType string

const (
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	// EventCancelled is informational; it must not be presented as a failure.
	EventCancelled EventType = "cancelled"
)

// Event is delivered to manager-wide and per-task subscribers.
type Event struct {
	Type    EventType
	TaskID  string
	Percent int
	Result  *Result
	Err     *common.UploadError
}
