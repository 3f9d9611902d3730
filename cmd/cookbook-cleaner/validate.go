package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chefops/cookbook-cleaner/pkg/cli"
	"chefops/cookbook-cleaner/pkg/registry/chef"
)

var validateFlags struct {
	skipKey bool
}

var validateCmd = &cobra.Command{
	Use:   "validate-config",
	Short: "Check the configuration without contacting the server",
	Long: `Load the configuration file, apply environment overrides and validate
every field. Unless --skip-key is given, the Chef credentials are resolved
as well: knife.rb is read when settings are missing and the client key is
parsed.

Examples:
  cookbook-cleaner validate-config -c /etc/cookbook-cleaner/config.yaml
  cookbook-cleaner validate-config --skip-key`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().BoolVar(&validateFlags.skipKey, "skip-key", false, "do not resolve Chef credentials")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	source := cfgFile
	if source == "" {
		source = "defaults and environment"
	}
	fmt.Fprintf(out, "✓ Configuration valid (%s)\n", source)

	if validateFlags.skipKey {
		return nil
	}

	chefCfg, err := chef.FromConfig(cfg.Chef)
	if err != nil {
		return cli.NewConfigError("chef", err.Error())
	}
	fmt.Fprintf(out, "✓ Chef credentials resolved: %s as %s\n", chefCfg.ServerURL, chefCfg.ClientName)
	fmt.Fprintf(out, "  Environment: %s, historical versions: %d, really clean: %t\n",
		cfg.Cleanup.Environment, cfg.Cleanup.HistoricalVersions, cfg.Cleanup.ReallyClean)
	return nil
}
