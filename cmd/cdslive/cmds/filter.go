package cmds

import (
	"encoding/json"
	"fmt"

	"github.com/go-go-golems/cdslive/pkg/filter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newFilterCmd() *cobra.Command {
	var rawJSON bool

	cmd := &cobra.Command{
		Use:   "filter PATH...",
		Short: "Print the subscription filter derived from console paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, p := range args {
				f := filter.Derive(p)
				if rawJSON {
					if err := enc.Encode(struct {
						Path   string        `json:"path"`
						Filter filter.Filter `json:"filter"`
					}{p, f}); err != nil {
						return errors.Wrap(err, "encode filter")
					}
					continue
				}
				b, err := f.MarshalJSONBytes()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", p, f.Scope(), b)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&rawJSON, "json", false, "Print one JSON object per path")
	return cmd
}
