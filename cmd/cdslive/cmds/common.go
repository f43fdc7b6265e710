package cmds

import (
	"github.com/go-go-golems/cdslive/pkg/config"
	"github.com/go-go-golems/cdslive/pkg/eventjs"
	"github.com/spf13/cobra"
)

func AddRootFlags(root *cobra.Command) {
	config.AddFlags(root.PersistentFlags())
}

// loadConfig resolves and validates the connection settings.
func loadConfig(cmd *cobra.Command) (*config.File, error) {
	cfg, err := config.Load(cmd.Root().PersistentFlags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadScripts loads the --script modules plus any listed in the config file.
func loadScripts(cfg *config.File, paths []string, timeout string) (*eventjs.Set, error) {
	all := append(append([]string{}, cfg.Scripts...), paths...)
	if len(all) == 0 {
		return nil, nil
	}
	return eventjs.LoadSetFromFiles(all, eventjs.Options{HookTimeout: timeout})
}
