package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"cadastro/internal/browser"
	"cadastro/internal/smoke"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	smokeBaseURL    string
	smokePreflight  bool
	smokeScreenshot string
	smokeEvents     bool
)

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Fill and submit the registration form in a real browser",
	Long: `Opens <base-url>/cadastro, types the fixed registration data into
nome, cpf, email and senha, checks lembrar and clicks cadastrar.

The first failing step stops the run and the command exits non-zero.`,
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().StringVar(&smokeBaseURL, "base-url", "", "Server base URL (overrides smoke.base_url)")
	smokeCmd.Flags().BoolVar(&smokePreflight, "preflight", false, "Check the form ids over plain HTTP before launching Chrome")
	smokeCmd.Flags().StringVar(&smokeScreenshot, "screenshot", "", "Write a PNG of the page here when a step fails")
	smokeCmd.Flags().BoolVar(&smokeEvents, "events", false, "Log the DOM events captured during the run")
}

func runSmoke(cmd *cobra.Command, args []string) error {
	baseURL := cfg.Smoke.BaseURL
	if smokeBaseURL != "" {
		baseURL = smokeBaseURL
	}
	sc := smoke.Registration(baseURL)

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.GetSmokeTimeout())
	defer cancel()

	if smokePreflight {
		if err := smoke.Preflight(ctx, http.DefaultClient, smoke.RegistrationURL(baseURL), smoke.FormIDs); err != nil {
			return fmt.Errorf("preflight: %w", err)
		}
		logger.Info("Preflight passed", zap.String("url", smoke.RegistrationURL(baseURL)))
	}

	var rec *browser.Recorder
	opts := smoke.Options{
		Browser:             browser.FromConfig(cfg.Browser),
		ScreenshotOnFailure: smokeScreenshot,
	}
	if smokeEvents {
		rec = browser.NewRecorder()
		opts.Sink = rec
	}

	logger.Info("Running smoke scenario",
		zap.String("scenario", sc.Name),
		zap.String("url", smoke.RegistrationURL(baseURL)))

	report, err := smoke.RunInBrowser(ctx, sc, opts)
	if report != nil {
		fmt.Fprint(cmd.OutOrStdout(), report.Summary())
	}
	if rec != nil {
		for _, ev := range rec.Events() {
			logger.Info("Event",
				zap.String("kind", string(ev.Kind)),
				zap.String("target", ev.Target),
				zap.String("value", ev.Value))
		}
	}
	return err
}
