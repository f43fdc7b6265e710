package store

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-go-golems/cdslive/pkg/bus"
	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

type Stores struct {
	Queue      *queue.Store
	Runs       *workflowrun.Store
	Operations *operation.Store
	Fetcher    queue.Fetcher
}

// Register installs the reducers on b and republishes store changes on
// bus.TopicState. ctx bounds queue fetches started by GetQueue.
func Register(ctx context.Context, b *bus.Bus, s Stores) {
	b.AddHandler("cdslive-store", bus.TopicActions, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := bus.FromMessage(msg)
		if err != nil {
			log.Debug().Err(err).Msg("dropping undecodable action")
			return nil
		}
		if err := s.reduce(ctx, env); err != nil {
			log.Warn().Err(err).Str("action", env.Type).Msg("action failed")
		}
		return nil
	})

	if s.Queue != nil {
		s.Queue.OnChange(func(st queue.State) {
			if err := b.Publish(ctx, bus.TopicState, TypeQueueSnapshot, st); err != nil {
				log.Debug().Err(err).Msg("cannot publish queue snapshot")
			}
		})
	}
	if s.Runs != nil {
		s.Runs.OnChange(func(runs []workflowrun.Run) {
			if err := b.Publish(ctx, bus.TopicState, TypeRunsSnapshot, runs); err != nil {
				log.Debug().Err(err).Msg("cannot publish workflow runs")
			}
		})
	}
	if s.Operations != nil {
		s.Operations.OnChange(func(op operation.Operation) {
			if err := b.Publish(ctx, bus.TopicState, TypeOperationSnapshot, op); err != nil {
				log.Debug().Err(err).Msg("cannot publish operation snapshot")
			}
		})
	}
}

func (s Stores) reduce(ctx context.Context, env bus.Envelope) error {
	switch env.Type {
	case TypeGetQueue:
		var a GetQueue
		if err := env.Decode(&a); err != nil {
			return err
		}
		return s.getQueue(ctx, a)

	case TypeUpdateQueue:
		var a UpdateQueue
		if err := env.Decode(&a); err != nil {
			return err
		}
		if s.Queue != nil {
			s.Queue.ApplyUpdate(a.Job)
		}

	case TypeUpdateWorkflowRun:
		var a UpdateWorkflowRun
		if err := env.Decode(&a); err != nil {
			return err
		}
		if s.Runs != nil {
			s.Runs.Apply(a.Update)
		}

	case TypeUpdateOperation:
		var a UpdateOperation
		if err := env.Decode(&a); err != nil {
			return err
		}
		if s.Operations != nil && !s.Operations.Apply(a.Operation) {
			log.Debug().Str("uuid", a.Operation.UUID).Msg("ignoring untracked operation")
		}

	default:
		return errors.Errorf("unknown action %q", env.Type)
	}
	return nil
}

// getQueue resets the store and fetches in the background so push updates
// keep flowing meanwhile. The fetch result replaces whatever arrived before.
func (s Stores) getQueue(ctx context.Context, a GetQueue) error {
	if s.Queue == nil {
		return nil
	}
	if s.Fetcher == nil {
		return errors.New("no queue fetcher configured")
	}
	statuses := a.Status
	if len(statuses) == 0 {
		statuses = queue.DefaultStatuses
	}

	s.Queue.BeginLoad()
	go func() {
		entries, err := s.Fetcher.Queue(ctx, statuses)
		if err != nil {
			log.Warn().Err(err).Msg("queue fetch failed")
			s.Queue.Fail(err)
			return
		}
		s.Queue.Replace(entries)
	}()
	return nil
}
