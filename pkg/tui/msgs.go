package tui

import (
	"time"

	"github.com/go-go-golems/cdslive/pkg/conn"
	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
)

type EventLevel string

const (
	LevelInfo  EventLevel = "info"
	LevelWarn  EventLevel = "warn"
	LevelError EventLevel = "error"
)

// EventEntry is one line of the live event log.
type EventEntry struct {
	At     time.Time  `json:"at"`
	Source string     `json:"source,omitempty"`
	Level  EventLevel `json:"level"`
	Text   string     `json:"text"`
}

type QueueSnapshotMsg struct {
	State queue.State
}

type OperationMsg struct {
	Operation operation.Operation
}

// RunsMsg carries every known workflow run, newest first per workflow.
type RunsMsg struct {
	Runs []workflowrun.Run
}

type EventLineMsg struct {
	Entry EventEntry
}

type ConnStateMsg struct {
	State conn.State
}

// RefreshQueueMsg asks the program owner to refetch the queue.
type RefreshQueueMsg struct {
	Statuses []queue.Status
}
