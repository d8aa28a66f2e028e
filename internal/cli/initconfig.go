package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"pelvicpics/pkg/config"
)

// NewInitConfigCmd creates the init-config command
func NewInitConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-config [PATH]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)
			return nil
		},
	}
}
