package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carlmjohnson/versioninfo"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"harbor/internal/config"
	"harbor/internal/helpers"
	"harbor/internal/platforms"
	"harbor/internal/server"
	"harbor/internal/store"
)

func main() {
	app := &cli.App{
		Name:    "harbor",
		Usage:   "sign-in and account linking for a personal site",
		Version: versioninfo.Short(),
		Commands: []*cli.Command{
			serveCmd,
			generateSecretCmd,
		},
	}

	app.RunAndExitOnError()
}

var serveCmd = &cli.Command{
	Name:  "serve",
	Usage: "run the http service",
	Action: func(cmd *cli.Context) error {
		// a missing .env is fine, the environment may be set another way
		godotenv.Load()

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		accounts, err := store.Open(cfg.DatabasePath)
		if err != nil {
			return err
		}

		registry := platforms.FromConfig(cfg)
		if len(registry.Names()) == 0 {
			return fmt.Errorf("no platform credentials configured")
		}

		srv := server.New(cfg, accounts, registry)

		errs := make(chan error, 1)
		go func() {
			errs <- srv.Start()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errs:
			return err
		case sig := <-stop:
			slog.Info("shutting down", "signal", sig.String())
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}

		return <-errs
	},
}

var generateSecretCmd = &cli.Command{
	Name:  "generate-secret",
	Usage: "print a fresh cookie signing secret",
	Action: func(cmd *cli.Context) error {
		secret, err := helpers.GenerateToken(32)
		if err != nil {
			return err
		}

		fmt.Println(secret)
		return nil
	},
}
