package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/config"
)

// configCommand creates the config management command.
func (c *CLI) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or create the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.configPath
			if path == "" {
				path = config.DefaultPath()
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as TOML",
		Long:  "Print the configuration after defaults, the config file and environment overrides are applied.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Print(c.Config, cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefault(c.configPath)
			if err != nil {
				return err
			}
			printSuccess("Created %s", path)
			printNextStep("Edit it, then check with", "spikeraster config show")
			return nil
		},
	})

	return cmd
}
