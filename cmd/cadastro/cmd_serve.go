package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"cadastro/internal/logging"
	"cadastro/internal/store"
	"cadastro/internal/web"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the registration form",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	users, err := store.NewUserStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open user store: %w", err)
	}
	defer users.Close()

	srv, err := web.NewServer(users, web.Options{
		AppName:       cfg.Name,
		SecureCookies: cfg.Server.SecureCookies,
		Articles:      users.Articles(),
	})
	if err != nil {
		return err
	}

	logger.Info("Starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("db", users.Path()))

	if err := web.Run(ctx, srv.Handler(), cfg.Server); err != nil {
		logging.BootError("server failed: %v", err)
		return err
	}
	logging.Boot("server stopped")
	return nil
}

// commandContext falls back to Background when cobra was driven without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
