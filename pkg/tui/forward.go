package tui

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/cdslive/pkg/bus"
	"github.com/go-go-golems/cdslive/pkg/conn"
	"github.com/go-go-golems/cdslive/pkg/operation"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/store"
	"github.com/go-go-golems/cdslive/pkg/workflowrun"
	"github.com/rs/zerolog/log"
)

// Sender is satisfied by *tea.Program.
type Sender interface {
	Send(msg tea.Msg)
}

// RegisterUIForwarder turns state envelopes into tea messages. It must be
// called before the bus runs.
func RegisterUIForwarder(b *bus.Bus, p Sender) {
	b.AddHandler("cdslive-ui-forward", bus.TopicState, func(msg *message.Message) error {
		defer msg.Ack()

		env, err := bus.FromMessage(msg)
		if err != nil {
			log.Debug().Err(err).Msg("dropping undecodable ui envelope")
			return nil
		}
		tm, err := toTeaMsg(env)
		if err != nil {
			log.Debug().Err(err).Str("type", env.Type).Msg("dropping ui envelope")
			return nil
		}
		if tm != nil {
			p.Send(tm)
		}
		return nil
	})
}

func toTeaMsg(env bus.Envelope) (tea.Msg, error) {
	switch env.Type {
	case store.TypeQueueSnapshot:
		var st queue.State
		if err := env.Decode(&st); err != nil {
			return nil, err
		}
		return QueueSnapshotMsg{State: st}, nil
	case store.TypeOperationSnapshot:
		var op operation.Operation
		if err := env.Decode(&op); err != nil {
			return nil, err
		}
		return OperationMsg{Operation: op}, nil
	case store.TypeRunsSnapshot:
		var runs []workflowrun.Run
		if err := env.Decode(&runs); err != nil {
			return nil, err
		}
		return RunsMsg{Runs: runs}, nil
	case TypeEventLine:
		var e EventEntry
		if err := env.Decode(&e); err != nil {
			return nil, err
		}
		return EventLineMsg{Entry: e}, nil
	case TypeConnState:
		var s conn.State
		if err := env.Decode(&s); err != nil {
			return nil, err
		}
		return ConnStateMsg{State: s}, nil
	}
	return nil, nil
}

func PublishEventLine(ctx context.Context, b *bus.Bus, e EventEntry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	if e.Level == "" {
		e.Level = LevelInfo
	}
	return b.Publish(ctx, bus.TopicState, TypeEventLine, e)
}

func PublishConnState(ctx context.Context, b *bus.Bus, s conn.State) error {
	return b.Publish(ctx, bus.TopicState, TypeConnState, s)
}
