package cli

import (
	"github.com/spf13/cobra"

	"github.com/tutu-network/gpusizer/internal/daemon"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as TOML",
		Long: `Print the configuration after applying the config file over the
built-in defaults. Redirect the output to create a starting config:

  gpusizer config > ~/.gpusizer/config.toml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			return daemon.WriteConfig(cmd.OutOrStdout(), cfg)
		},
	}
}
