package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-go-golems/cdslive/pkg/config"
	"github.com/go-go-golems/cdslive/pkg/queue"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newQueueCmd() *cobra.Command {
	var rawJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Fetch the workflow job queue once and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client := config.HTTPClient(ctx, cfg.SessionToken)
			fetcher := queue.HTTPFetcher{BaseURL: cfg.APIURL(), Client: client}

			fetchCtx := ctx
			if timeout > 0 {
				var cancel context.CancelFunc
				fetchCtx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			entries, err := fetcher.Queue(fetchCtx, cfg.Statuses())
			if err != nil {
				return errors.Wrap(err, "fetch queue")
			}

			if rawJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}
			renderQueue(cmd.OutOrStdout(), entries, time.Now())
			return nil
		},
	}

	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print the raw queue as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	return cmd
}

func renderQueue(w io.Writer, entries []queue.Entry, now time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Status", "Project", "Workflow", "Job", "Assigned", "Queued"})
	for _, e := range entries {
		project, _ := e.Param("cds.project")
		workflow, _ := e.Param("cds.workflow")
		job, _ := e.Param("cds.job")
		queued := "-"
		if e.Queued > 0 {
			queued = now.Sub(time.Unix(e.Queued, 0)).Truncate(time.Second).String()
		}
		t.AppendRow(table.Row{e.ID, e.Status, dash(project), dash(workflow), dash(job), dash(e.AssignedTo()), queued})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d jobs", len(entries))})
	t.Render()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
