package events

import (
	"context"

	"github.com/go-go-golems/cdslive/pkg/store"
	"github.com/rs/zerolog/log"
)

// Router turns inbound frames into store actions, one action per frame.
type Router struct {
	Dispatcher store.Dispatcher
	// Observer, if set, sees every decoded message before it is dispatched.
	Observer func(Message)
}

// Route decodes raw and dispatches the matching action. Undecodable frames
// are logged and dropped so a bad frame never tears down the connection.
func (r *Router) Route(ctx context.Context, raw []byte) {
	msg, err := Decode(raw)
	if err != nil {
		log.Debug().Err(err).Int("bytes", len(raw)).Msg("dropping malformed event")
		return
	}
	if r.Observer != nil {
		r.Observer(msg)
	}

	var action store.Action
	switch m := msg.(type) {
	case QueueUpdate:
		action = store.UpdateQueue{Job: m.Entry}
	case WorkflowRunUpdate:
		action = store.UpdateWorkflowRun{Update: m.Update}
	case OperationUpdate:
		action = store.UpdateOperation{Operation: m.Operation}
	case FilterRejected:
		log.Warn().Str("error", m.Error).Msg("server rejected filter")
		return
	case Unknown:
		log.Debug().Str("type", m.Event.Type).Msg("ignoring event")
		return
	}
	if action == nil || r.Dispatcher == nil {
		return
	}
	if err := r.Dispatcher.Dispatch(ctx, action); err != nil {
		log.Warn().Err(err).Str("action", action.ActionType()).Msg("dispatch failed")
	}
}
