package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long:  "Prints configuration after merging defaults, the config file, and BREWLOG_* environment variables.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		out, err := yaml.Marshal(cfg)
		if err != nil {
			return eris.Wrap(err, "config show: marshal")
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
