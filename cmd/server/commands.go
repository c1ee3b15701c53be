package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/phrazzld/threadcraft-api/internal/config"
	"github.com/phrazzld/threadcraft-api/internal/domain"
	"github.com/phrazzld/threadcraft-api/internal/orchestrator"
	"github.com/phrazzld/threadcraft-api/internal/platform/logger"
	"github.com/phrazzld/threadcraft-api/internal/platform/postgres"
	"github.com/phrazzld/threadcraft-api/internal/service/auth"
	"github.com/spf13/cobra"
)

// loadFunc loads configuration. Tests replace it.
var loadFunc = config.Load

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "threadcraft",
		Short:         "ThreadCraft social content generation API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newGenerateCmd(),
		newPointsCmd(),
		newVersionCmd(),
	)
	return root
}

// bootstrap loads configuration and installs the configured logger.
func bootstrap() (*config.Config, *slog.Logger, error) {
	cfg, err := loadFunc()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return cfg, log, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			log.Info("server configuration loaded",
				slog.Int("port", cfg.Server.Port),
				slog.String("log_level", cfg.Server.LogLevel),
				slog.String("llm_provider", cfg.LLM.Provider),
				slog.Bool("database", cfg.Database.URL != ""),
				slog.Bool("image_archive", cfg.Storage.Enabled()))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := newApplication(ctx, cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return app.Run(ctx)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate <" + strings.Join(postgres.MigrationCommands, "|") + ">",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: postgres.MigrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is required for migrations")
			}

			db, err := openDatabase(cmd.Context(), cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return postgres.Migrate(cmd.Context(), db, args[0], log)
		},
	}
}

func newGenerateCmd() *cobra.Command {
	var (
		userID      string
		contentType string
		prompt      string
		images      []string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one generation for a user and print the outcome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}

			files, err := readImageFiles(images)
			if err != nil {
				return err
			}

			app, err := newApplication(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.cleanup()

			out, err := runGeneration(cmd.Context(), app, userID, domain.ContentType(contentType), prompt, files)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write outcome: %w", err)
			}
			if out.State == orchestrator.StateFailed {
				return fmt.Errorf("generation failed: %s", out.Notification.Message)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to generate for")
	cmd.Flags().StringVar(&contentType, "type", string(orchestrator.DefaultContentType), "content type (twitter, instagram, linkedin, image)")
	cmd.Flags().StringVar(&prompt, "prompt", "", "generation prompt")
	cmd.Flags().StringSliceVar(&images, "image", nil, "image file to attach (repeatable)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("prompt")
	return cmd
}

// runGeneration drives a single session as the given user, outside HTTP.
func runGeneration(
	ctx context.Context,
	app *application,
	userID string,
	contentType domain.ContentType,
	prompt string,
	files []domain.Attachment,
) (orchestrator.Outcome, error) {
	deps := app.deps
	deps.Gate = auth.StaticGate{Identity: auth.Identity{UserID: userID}}

	session, err := orchestrator.NewSession(userID, deps)
	if err != nil {
		return orchestrator.Outcome{}, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	if err := session.SelectContentType(ctx, contentType); err != nil {
		return orchestrator.Outcome{}, err
	}
	if _, err := session.Refresh(ctx); err != nil {
		return orchestrator.Outcome{}, fmt.Errorf("failed to load account: %w", err)
	}
	if len(files) > 0 {
		res, err := session.AddAttachments(ctx, files)
		if err != nil {
			return orchestrator.Outcome{}, err
		}
		for _, n := range res.Notices {
			app.logger.Info(n.Message, slog.String("kind", string(n.Kind)))
		}
	}
	return session.Generate(ctx, contentType, prompt), nil
}

func readImageFiles(paths []string) ([]domain.Attachment, error) {
	files := make([]domain.Attachment, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read image %q: %w", p, err)
		}
		files = append(files, domain.Attachment{Name: filepath.Base(p), Size: len(data), Data: data})
	}
	return files, nil
}

func newPointsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "points",
		Short: "Manage user point balances",
	}

	var (
		userID string
		amount int
	)
	grant := &cobra.Command{
		Use:   "grant",
		Short: "Credit points to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("database.url is required to grant points")
			}

			app, err := newApplication(cmd.Context(), cfg, log)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.cleanup()

			tx, err := app.ledger.Credit(cmd.Context(), userID, amount)
			if err != nil {
				return fmt.Errorf("failed to grant points: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "granted %d points to %s, balance %d\n", tx.Delta, tx.UserID, tx.Balance)
			return err
		},
	}
	grant.Flags().StringVar(&userID, "user", "", "user id to credit")
	grant.Flags().IntVar(&amount, "amount", 0, "points to add")
	_ = grant.MarkFlagRequired("user")
	_ = grant.MarkFlagRequired("amount")

	cmd.AddCommand(grant)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "threadcraft %s (built %s)\n", version, buildTime)
			return err
		},
	}
}
