package events

import (
	"encoding/json"

	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
	"github.com/pkg/errors"
)

// Message is a decoded inbound frame. It is one of QueueUpdate,
// WorkflowRunUpdate, OperationUpdate, FilterRejected or Unknown.
type Message interface {
	Kind() string
	Header() Event
}

type QueueUpdate struct {
	Event Event
	Entry queue.Entry
}

type WorkflowRunUpdate struct {
	Event  Event
	Update workflowrun.Update
}

type OperationUpdate struct {
	Event     Event
	Operation operation.Operation
}

// FilterRejected is sent by the backend when it refused the last filter.
type FilterRejected struct {
	Event Event
	Error string
}

type Unknown struct {
	Event Event
}

func (m QueueUpdate) Kind() string       { return "queue" }
func (m WorkflowRunUpdate) Kind() string { return "workflow_run" }
func (m OperationUpdate) Kind() string   { return "operation" }
func (m FilterRejected) Kind() string    { return "rejected" }
func (m Unknown) Kind() string           { return "unknown" }

func (m QueueUpdate) Header() Event       { return m.Event }
func (m WorkflowRunUpdate) Header() Event { return m.Event }
func (m OperationUpdate) Header() Event   { return m.Event }
func (m FilterRejected) Header() Event    { return m.Event }
func (m Unknown) Header() Event           { return m.Event }

// Decode parses one frame. Unknown event types are not an error.
func Decode(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errors.Wrap(err, "decode envelope")
	}
	if env.Status == StatusKO {
		return FilterRejected{Event: env.Event, Error: env.Error}, nil
	}

	ev := env.Event
	switch ev.Type {
	case TypeRunWorkflowJob:
		var e queue.Entry
		if err := decodePayload(ev, &e); err != nil {
			return nil, err
		}
		return QueueUpdate{Event: ev, Entry: e}, nil

	case TypeRunWorkflow:
		var p runPayload
		if err := decodePayload(ev, &p); err != nil {
			return nil, err
		}
		u := workflowrun.Update{
			Key:          runKey(ev, p.Number),
			Status:       firstNonEmpty(p.Status, ev.Status),
			Start:        p.Start,
			LastModified: p.LastModified,
		}
		for _, t := range p.Tags {
			u.Tags = append(u.Tags, workflowrun.Tag{Tag: t.Tag, Value: t.Value})
		}
		return WorkflowRunUpdate{Event: ev, Update: u}, nil

	case TypeRunWorkflowNode:
		var p nodeRunPayload
		if err := decodePayload(ev, &p); err != nil {
			return nil, err
		}
		id := p.ID
		if id == 0 {
			id = ev.WorkflowNodeRunID
		}
		u := workflowrun.Update{
			Key:    runKey(ev, p.Number),
			Status: firstNonEmpty(p.Status, ev.Status),
			Node: &workflowrun.NodeRun{
				ID:        id,
				NodeName:  p.NodeName,
				SubNumber: p.SubNumber,
				Status:    firstNonEmpty(p.Status, ev.Status),
				Start:     p.Start,
				Done:      p.Done,
			},
		}
		return WorkflowRunUpdate{Event: ev, Update: u}, nil

	case TypeOperation:
		var op operation.Operation
		if err := decodePayload(ev, &op); err != nil {
			return nil, err
		}
		if op.UUID == "" {
			op.UUID = ev.OperationUUID
		}
		if op.UUID == "" {
			return nil, errors.New("operation event without uuid")
		}
		return OperationUpdate{Event: ev, Operation: op}, nil
	}

	return Unknown{Event: ev}, nil
}

func decodePayload(ev Event, v any) error {
	if len(ev.Payload) == 0 {
		return errors.Errorf("%s: empty payload", ev.Type)
	}
	if err := json.Unmarshal(ev.Payload, v); err != nil {
		return errors.Wrapf(err, "%s: decode payload", ev.Type)
	}
	return nil
}

func runKey(ev Event, number int64) workflowrun.Key {
	if number == 0 {
		number = ev.WorkflowRunNum
	}
	return workflowrun.Key{ProjectKey: ev.ProjectKey, WorkflowName: ev.WorkflowName, Number: number}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
