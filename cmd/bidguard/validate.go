package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/bidguard/pkg/cli"
	"mercator-hq/bidguard/pkg/config"
	"mercator-hq/bidguard/pkg/policy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration, apply environment overrides, and validate it.

The policy list files are loaded as well, so a name on both the denylist
and the allowlist is reported here rather than on the first bid.

Examples:
  bidguard validate
  bidguard validate --config /etc/bidguard/bidguard.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	ec := cfg.Ethics
	if _, err := policy.LoadList(policy.Mode(ec.Mode), ec.StrictMode, ec.DenylistFile, ec.AllowlistFile); err != nil {
		return cli.NewConfigError("ethics", err.Error())
	}

	source := cfgFile
	if source == "" {
		source = "built-in defaults"
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (%s)\n", source)
	return err
}
