// Command planfold runs the day-plan service.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/planfold/planfold/internal/api"
	"github.com/planfold/planfold/internal/blocktype"
	"github.com/planfold/planfold/internal/config"
	"github.com/planfold/planfold/internal/plan"
	"github.com/planfold/planfold/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "planfold",
		Short: "Day-plan service: typed content blocks and projected todos per (user, date)",
	}
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(), "path to config file")

	root.AddCommand(serveCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			setupLogging(cfg.LogLevel)

			s, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return err
			}
			defer s.Close()

			engine := plan.NewEngine(s, blocktype.NewStaticRegistry(), log.Logger)
			server := api.NewServer(engine, s, api.HeaderIdentity{}, log.Logger)

			httpServer := &http.Server{
				Addr:              cfg.Listen,
				Handler:           server,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.Listen).Msg("listening")
				errCh <- httpServer.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				if err := httpServer.Shutdown(ctx); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
}

// setupLogging configures the global zerolog logger.
func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})
}
