package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"tunefetch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}

			if err := config.WriteSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Set TELEGRAM_BOT_TOKEN (optionally in a .env file) before running tunefetch.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolved, exists, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolved)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"staging_dir", cfg.Paths.StagingDir},
				{"log_dir", cfg.Paths.LogDir},
				{"bot_token", maskSecret(cfg.Telegram.BotToken)},
				{"api_base_url", cfg.Telegram.APIBaseURL},
				{"local_api_url", orDash(cfg.Telegram.LocalAPIURL)},
				{"streamed delivery", yesNo(cfg.StreamedDeliveryConfigured())},
				{"strategies", fmt.Sprintf("%d configured", len(cfg.Strategies))},
				{"attempt_timeout", fmt.Sprintf("%ds", cfg.Acquisition.AttemptTimeout)},
				{"bitrate", fmt.Sprintf("%dk", cfg.Transcode.BitrateKbps)},
				{"size_threshold", humanize.IBytes(uint64(cfg.SizeThresholdBytes()))},
				{"max_concurrent_jobs", fmt.Sprintf("%d", cfg.Workflow.MaxConcurrentJobs)},
				{"ntfy_topic", orDash(cfg.Notifications.NtfyTopic)},
				{"log_level", cfg.LogLevel},
				{"log_format", cfg.LogFormat},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(cmd.OutOrStdout(), []string{"Setting", "Value"}, rows, nil))
			return nil
		},
	}
}

func maskSecret(value string) string {
	if value == "" {
		return "-"
	}
	if idx := strings.IndexByte(value, ':'); idx > 0 {
		return value[:idx] + ":********"
	}
	return "********"
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
