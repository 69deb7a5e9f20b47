package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pesio-ai/be-plt-grc/internal/config"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
	"github.com/pesio-ai/be-plt-grc/internal/logger"
	"github.com/pesio-ai/be-plt-grc/internal/repository"
)

const serviceName = "grc-service"

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFiles []string

	root := &cobra.Command{
		Use:           "grc",
		Short:         "GRC platform service",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "env files to load before reading the environment")

	load := func() (*config.Config, *logger.Logger, error) {
		cfg, err := config.Load(envFiles...)
		if err != nil {
			return nil, nil, err
		}
		log := logger.New(logger.Config{
			Level:       cfg.Log.Level,
			ServiceName: serviceName,
			Pretty:      cfg.Log.Pretty,
		})
		return cfg, log, nil
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP and gRPC servers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				return serve(ctx, cfg, log)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				pool, err := repository.Connect(cmd.Context(), cfg.Database.URL, cfg.Database.MaxConns)
				if err != nil {
					return err
				}
				defer pool.Close()
				n, err := repository.Migrate(cmd.Context(), pool, log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", n)
				return nil
			},
		},
		&cobra.Command{
			Use:   "bootstrap",
			Short: "Create the built-in administrator, default company and settings",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, log, err := load()
				if err != nil {
					return err
				}
				rt, err := newRuntime(cmd.Context(), cfg, log)
				if err != nil {
					return err
				}
				defer rt.Close()
				res, err := rt.app.Bootstrap.Run(cmd.Context(), cfg.SeedAdminPassword)
				if err != nil {
					return err
				}
				printBootstrap(cmd.OutOrStdout(), res.AdminCreated, res.GeneratedPassword)
				return nil
			},
		},
		newScoreCmd(),
	)
	return root
}

func printBootstrap(w io.Writer, created bool, generated string) {
	switch {
	case generated != "":
		fmt.Fprintf(w, "administrator %s created with one-time password: %s\n", domain.SeedAdminID, generated)
	case created:
		fmt.Fprintf(w, "administrator %s created\n", domain.SeedAdminID)
	default:
		fmt.Fprintf(w, "administrator %s already exists\n", domain.SeedAdminID)
	}
}

// newScoreCmd scores a questionnaire offline. Input is a JSON object of
// question keys to answers, read from the named file or stdin.
func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score [file]",
		Short: "Compute the vendor risk score for a questionnaire",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			var responses map[string]string
			if err := json.NewDecoder(in).Decode(&responses); err != nil {
				return fmt.Errorf("failed to parse responses: %w", err)
			}
			score := domain.ComputeRiskScore(responses)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"score":    score,
				"band":     domain.BandFor(score),
				"findings": domain.ExplainRiskScore(responses),
			})
		},
	}
}
