package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/feedback-api/internal/models"
	"github.com/noah-isme/feedback-api/internal/repository"
	"github.com/noah-isme/feedback-api/internal/service"
	"github.com/noah-isme/feedback-api/pkg/config"
	"github.com/noah-isme/feedback-api/pkg/database"
	"github.com/noah-isme/feedback-api/pkg/logger"
)

type tokenAdmin interface {
	Issue(ctx context.Context, values []string) ([]string, error)
	Generate(ctx context.Context, req service.GenerateTokensRequest) ([]string, error)
	Stats(ctx context.Context) (*models.TokenStats, error)
}

// opener returns a token service bound to the store plus its release func.
type opener func(ctx context.Context) (tokenAdmin, func(), error)

func newRootCommand() *cobra.Command {
	return newRootCommandWith(openStore)
}

func newRootCommandWith(open opener) *cobra.Command {
	root := &cobra.Command{
		Use:           "feedback-tokens",
		Short:         "Issue and inspect single-use feedback tokens",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenerateCommand(open), newImportCommand(open), newStatsCommand(open))
	return root
}

func newGenerateCommand(open opener) *cobra.Command {
	var (
		length     int
		exportPath string
	)
	cmd := &cobra.Command{
		Use:   "generate [count]",
		Short: "Generate random tokens and issue them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count < 1 {
				return fmt.Errorf("count must be a positive integer, got %q", args[0])
			}
			admin, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			tokens, err := admin.Generate(cmd.Context(), service.GenerateTokensRequest{Count: count, Length: length})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, token := range tokens {
				fmt.Fprintln(out, token)
			}
			if exportPath != "" {
				if err := writeTokenFile(exportPath, tokens); err != nil {
					return err
				}
				fmt.Fprintf(out, "exported %d tokens to %s\n", len(tokens), exportPath)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&length, "length", 6, "token length (4-32)")
	cmd.Flags().StringVar(&exportPath, "export", "", "also write tokens to this file, one per line")
	return cmd
}

func newImportCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Issue tokens from a seed file",
		Long:  "Issue tokens listed one per line. Blank lines and lines starting with # are skipped. The batch is all-or-nothing.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			values, err := readSeedTokens(f)
			if err != nil {
				return err
			}

			admin, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			issued, err := admin.Issue(cmd.Context(), values)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "issued %d tokens\n", len(issued))
			return nil
		},
	}
}

func newStatsCommand(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print token usage counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, release, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			stats, err := admin.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total: %d\nused: %d\nunused: %d\n", stats.Total, stats.Used, stats.Unused)
			return nil
		},
	}
}

// readSeedTokens returns the non-comment lines of a seed file.
func readSeedTokens(r io.Reader) ([]string, error) {
	var values []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		values = append(values, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return values, nil
}

func writeTokenFile(path string, tokens []string) error {
	var b strings.Builder
	for _, token := range tokens {
		b.WriteString(token)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

func openStore(ctx context.Context) (tokenAdmin, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		logr = zap.NewNop()
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	tokens := service.NewTokenService(
		repository.NewTokenRepository(db),
		service.NewTokenGenerator(),
		nil,
		nil,
		validator.New(),
		logr,
		service.TokenConfig{Length: cfg.Tokens.Length, MaxBatch: cfg.Tokens.MaxBatch},
	)
	release := func() {
		_ = db.Close()
		_ = logr.Sync()
	}
	return tokens, release, nil
}
