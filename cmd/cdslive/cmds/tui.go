package cmds

import (
	"context"
	stderrors "errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-go-golems/cdslive/pkg/bus"
	"github.com/go-go-golems/cdslive/pkg/conn"
	"github.com/go-go-golems/cdslive/pkg/events"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/go-go-golems/cdslive/pkg/session"
	"github.com/go-go-golems/cdslive/pkg/tui"
	"github.com/go-go-golems/cdslive/pkg/tui/models"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// queuePath is the console page whose subscription carries queue updates.
const queuePath = "/settings/queue"

func newTuiCmd() *cobra.Command {
	var altScreen bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Live view of the workflow job queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			b, err := bus.NewInMemoryBus()
			if err != nil {
				return err
			}

			s, err := session.New(cfg, session.Options{
				Bus: b,
				Observer: func(m events.Message) {
					level := tui.LevelInfo
					if _, ok := m.(events.FilterRejected); ok {
						level = tui.LevelWarn
					}
					entry := tui.EventEntry{Source: m.Kind(), Level: level, Text: events.Summary(m)}
					if err := tui.PublishEventLine(ctx, b, entry); err != nil {
						log.Debug().Err(err).Msg("cannot publish event line")
					}
				},
			})
			if err != nil {
				return err
			}
			model := models.NewRootModel(models.RootOptions{
				Host: cfg.Host,
				Refresh: func(statuses []queue.Status) error {
					return s.RefreshQueue(ctx, statuses)
				},
			})
			programOptions := []tea.ProgramOption{
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithContext(ctx),
			}
			if altScreen {
				programOptions = append(programOptions, tea.WithAltScreen())
			}
			program := tea.NewProgram(model, programOptions...)

			if err := runTUI(ctx, b, s, program, cfg.Statuses()); err != nil {
				return errors.Wrap(err, "tui")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&altScreen, "alt-screen", true, "Use the terminal alternate screen buffer")
	return cmd
}

// program is the part of *tea.Program that runTUI drives.
type program interface {
	tui.Sender
	Run() (tea.Model, error)
	Quit()
}

// runTUI connects s to p through b and runs both until p exits or the
// session fails. The program loop is started before the session: the
// forwarder delivers synchronously and Send only returns once the loop
// reads from it.
func runTUI(ctx context.Context, b *bus.Bus, s *session.Session, p program, statuses []queue.Status) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.Conn.OnStateChange(func(st conn.State) {
		if err := tui.PublishConnState(ctx, b, st); err != nil {
			log.Debug().Err(err).Msg("cannot publish connection state")
		}
	})
	tui.RegisterUIForwarder(b, p)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		_, err := p.Run()
		cancel()
		if stderrors.Is(err, tea.ErrProgramKilled) || stderrors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	eg.Go(func() error {
		if err := s.Start(egCtx); err != nil {
			return err
		}
		if err := s.NavigateTo(queuePath); err != nil {
			return err
		}
		if err := s.RefreshQueue(egCtx, statuses); err != nil {
			return err
		}
		return s.Wait()
	})
	eg.Go(func() error {
		<-egCtx.Done()
		p.Quit()
		return s.Close()
	})

	err := eg.Wait()
	if err != nil && !stderrors.Is(err, context.Canceled) && !stderrors.Is(err, session.ErrClosed) {
		return err
	}
	return nil
}
