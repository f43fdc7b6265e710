package store

import (
	"context"

	"github.com/go-go-golems/cdslive/pkg/bus"
	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
)

const (
	TypeGetQueue          = "queue.get"
	TypeUpdateQueue       = "queue.update"
	TypeUpdateWorkflowRun = "workflowrun.update"
	TypeUpdateOperation   = "operation.update"

	TypeQueueSnapshot     = "queue.snapshot"
	TypeOperationSnapshot = "operation.snapshot"
	TypeRunsSnapshot      = "workflowrun.snapshot"
)

type Action interface {
	ActionType() string
}

// GetQueue clears the queue and refetches it for the given statuses.
type GetQueue struct {
	Status []queue.Status `json:"status"`
}

type UpdateQueue struct {
	Job queue.Entry `json:"job"`
}

type UpdateWorkflowRun struct {
	Update workflowrun.Update `json:"update"`
}

type UpdateOperation struct {
	Operation operation.Operation `json:"operation"`
}

func (GetQueue) ActionType() string          { return TypeGetQueue }
func (UpdateQueue) ActionType() string       { return TypeUpdateQueue }
func (UpdateWorkflowRun) ActionType() string { return TypeUpdateWorkflowRun }
func (UpdateOperation) ActionType() string   { return TypeUpdateOperation }

type Dispatcher interface {
	Dispatch(ctx context.Context, a Action) error
}

// BusDispatcher publishes actions on bus.TopicActions.
type BusDispatcher struct {
	Bus *bus.Bus
}

func (d BusDispatcher) Dispatch(ctx context.Context, a Action) error {
	return d.Bus.Publish(ctx, bus.TopicActions, a.ActionType(), a)
}
