package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"imgvault/internal/config"
	"imgvault/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		logLevel   string
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:           "imgvault",
		Short:         "Imgvault stores images and albums per user",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := setupCLILogger(loggerSettings{
				FlagLevel:   logLevel,
				ConfigLevel: cfg.LogLevel,
				FlagFormat:  logFormat,
			})
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}

			if jsonOutput && yamlOutput {
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			}
			name := "json"
			if yamlOutput {
				name = "yaml"
				jsonOutput = true
			}
			formatter, err := format.ByName(name)
			if err != nil {
				return err
			}
			outputFormatter = formatter
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text, json)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newMigrateCmd(cfg, &jsonOutput),
		newConfigCmd(cfg, &jsonOutput),
		newUserCmd(cfg, &jsonOutput),
		newReconcileCmd(cfg, &jsonOutput),
		newImportCmd(cfg, &jsonOutput),
		newLoginCmd(cfg, &jsonOutput),
		newLogoutCmd(cfg),
		newUploadCmd(cfg, &jsonOutput),
		newListCmd(cfg, &jsonOutput),
		newShowCmd(cfg, &jsonOutput),
		newDownloadCmd(cfg),
		newCaptionCmd(cfg, &jsonOutput),
		newRemoveCmd(cfg, &jsonOutput),
		newAlbumCmd(cfg, &jsonOutput),
	)

	return cmd
}
