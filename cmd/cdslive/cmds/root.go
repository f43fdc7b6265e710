package cmds

import "github.com/spf13/cobra"

func AddCommands(root *cobra.Command) error {
	root.AddCommand(newFilterCmd())
	root.AddCommand(newListenCmd())
	root.AddCommand(newQueueCmd())
	root.AddCommand(newTuiCmd())
	return nil
}
