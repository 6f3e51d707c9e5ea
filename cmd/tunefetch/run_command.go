package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"tunefetch/internal/acquire"
	"tunefetch/internal/bot"
	"tunefetch/internal/config"
	"tunefetch/internal/deliver"
	"tunefetch/internal/deps"
	"tunefetch/internal/logging"
	"tunefetch/internal/notifications"
	"tunefetch/internal/services/ffmpeg"
	"tunefetch/internal/services/telegram"
	"tunefetch/internal/services/ytdlp"
	"tunefetch/internal/strategy"
	"tunefetch/internal/transcode"
	"tunefetch/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot and process requests until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.New(logging.Options{
				Level:       cfg.LogLevel,
				Format:      cfg.LogFormat,
				OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "tunefetch.log")},
			})
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}

			if err := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg))); err != nil {
				return err
			}

			release, err := bot.AcquireInstanceLock(filepath.Join(cfg.Paths.LogDir, "tunefetch.lock"))
			if err != nil {
				return err
			}
			defer release()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			b, manager, err := buildBot(cfg, logger)
			if err != nil {
				return err
			}

			err = b.Run(runCtx)
			// Let in-flight jobs finish before tearing the process down.
			manager.Wait()
			logger.Info("shutdown complete")
			return err
		},
	}
}

func buildBot(cfg *config.Config, logger *slog.Logger) (*bot.Bot, *workflow.Manager, error) {
	ytClient, err := ytdlp.New(cfg.YtdlpBinary(), ytdlp.Options{
		UserAgent: cfg.Acquisition.UserAgent,
		GeoBypass: cfg.Acquisition.GeoBypass,
		Timeout:   time.Duration(cfg.Acquisition.AttemptTimeout) * time.Second,
	})
	if err != nil {
		return nil, nil, err
	}

	ffClient, err := ffmpeg.New(cfg.FFmpegBinary(), cfg.FFprobeBinary())
	if err != nil {
		return nil, nil, err
	}

	engine := acquire.NewEngine(ytClient, strategy.NewTable(cfg.Strategies), strategy.NewCookieStore(), logger)

	transcoder, err := transcode.New(ffClient, cfg.Transcode.BitrateKbps, logger)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.Telegram.RequestTimeout) * time.Second}
	direct, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.APIBaseURL, telegram.WithHTTPClient(httpClient))
	if err != nil {
		return nil, nil, err
	}

	var streamed deliver.Sender
	if cfg.StreamedDeliveryConfigured() {
		local, err := telegram.New(cfg.Telegram.BotToken, cfg.Telegram.LocalAPIURL, telegram.WithHTTPClient(httpClient))
		if err != nil {
			return nil, nil, err
		}
		streamed = local
	}

	deliverer, err := deliver.New(cfg.SizeThresholdBytes(), direct, streamed, deliver.Options{
		ProgressInterval:    time.Duration(cfg.Delivery.ProgressInterval) * time.Second,
		ProgressPercentStep: cfg.Delivery.ProgressPercentStep,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	manager, err := workflow.NewManager(engine, transcoder, deliverer, notifications.NewService(cfg), workflow.Options{
		StagingDir:          cfg.Paths.StagingDir,
		MaxConcurrentJobs:   cfg.Workflow.MaxConcurrentJobs,
		ProgressInterval:    time.Duration(cfg.Delivery.ProgressInterval) * time.Second,
		ProgressPercentStep: cfg.Delivery.ProgressPercentStep,
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	b, err := bot.New(direct, manager, bot.Options{
		PollTimeout: time.Duration(cfg.Telegram.PollTimeout) * time.Second,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return b, manager, nil
}
