package cmds

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-go-golems/cdslive/pkg/eventjs"
	"github.com/go-go-golems/cdslive/pkg/events"
	"github.com/go-go-golems/cdslive/pkg/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newListenCmd() *cobra.Command {
	var (
		path       string
		navStdin   bool
		operation  string
		scripts    []string
		jsTimeout  string
		rawJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Subscribe to push events for a console path and print them",
		Long: "Subscribe to push events as the console would on PATH. With --stdin, every line read\n" +
			"from standard input is treated as a new console URL and the subscription follows it.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			set, err := loadScripts(cfg, scripts, jsTimeout)
			if err != nil {
				return err
			}
			if set != nil {
				defer func() { _ = set.Close(context.Background()) }()
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			p := &printer{out: cmd.OutOrStdout(), rawJSON: rawJSON, scripts: set}
			s, err := session.New(cfg, session.Options{Observer: func(m events.Message) { p.print(ctx, m) }})
			if err != nil {
				return err
			}
			if err := s.Start(ctx); err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			if err := s.NavigateTo(path); err != nil {
				return err
			}
			if operation != "" {
				if err := s.WatchOperation(operation); err != nil {
					return err
				}
			}

			eg, egCtx := errgroup.WithContext(ctx)
			eg.Go(s.Wait)
			if navStdin {
				// not part of the group: a blocked stdin read must not hold up shutdown
				go func() {
					if err := followStdin(egCtx, cmd.InOrStdin(), s); err != nil {
						log.Debug().Err(err).Msg("stopped following stdin")
					}
				}()
			}
			eg.Go(func() error {
				<-egCtx.Done()
				return s.Close()
			})

			if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "listen")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "/home", "Console path whose events to follow")
	cmd.Flags().BoolVar(&navStdin, "stdin", false, "Read console URLs from stdin and follow them")
	cmd.Flags().StringVar(&operation, "operation", "", "Also follow this operation UUID until it finishes")
	cmd.Flags().StringSliceVar(&scripts, "script", nil, "JavaScript filter/format modules")
	cmd.Flags().StringVar(&jsTimeout, "js-timeout", "50ms", "Timeout for each script hook")
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print messages as JSON lines")
	return cmd
}

func followStdin(ctx context.Context, in io.Reader, s *session.Session) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if err := s.NavigateTo(line); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
	return errors.Wrap(sc.Err(), "read stdin")
}

type printer struct {
	mu      sync.Mutex
	out     io.Writer
	rawJSON bool
	scripts *eventjs.Set
}

type jsonMessage struct {
	Kind  string       `json:"kind"`
	Text  string       `json:"text"`
	Event events.Event `json:"event"`
}

func (p *printer) print(ctx context.Context, m events.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.scripts != nil {
		lines, errs := p.scripts.Process(ctx, m)
		for _, e := range errs {
			log.Warn().Str("module", e.Module).Str("hook", e.Hook).Bool("timeout", e.Timeout).Msg(e.Message)
		}
		for _, l := range lines {
			if p.rawJSON {
				_ = json.NewEncoder(p.out).Encode(l)
				continue
			}
			_, _ = fmt.Fprintf(p.out, "[%s] %s\n", l.Module, l.Text)
		}
		return
	}

	if p.rawJSON {
		_ = json.NewEncoder(p.out).Encode(jsonMessage{Kind: m.Kind(), Text: events.Summary(m), Event: m.Header()})
		return
	}
	_, _ = fmt.Fprintln(p.out, events.Summary(m))
}
