package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ldreader/pkg/account"
	"ldreader/pkg/auth"
	"ldreader/pkg/config"
	"ldreader/pkg/logger"
	"ldreader/pkg/notify"
	"ldreader/pkg/runner"
)

var (
	baseTopicID int
	maxPosts    int
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read topics for every configured account",
	Long: `Run the reader for every configured account, sequentially, each in its
own isolated browser session. A report covering all accounts is pushed
once at the end.`,
	Example: `  # Run with stored and environment accounts
  ldreader run

  # Start from a fixed topic ID with a fixed quota
  ldreader run --base-topic-id 1050000 --max-posts 250`,
	RunE: runReader,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().IntVar(&baseTopicID, "base-topic-id", 0, "starting topic ID (default: random in the documented range)")
	runCmd.Flags().IntVar(&maxPosts, "max-posts", 0, "per-run read quota (default: random in the documented range)")
}

func runReader(cmd *cobra.Command, args []string) error {
	flags := make(map[string]interface{})
	if baseTopicID > 0 {
		flags["base-topic-id"] = baseTopicID
	}
	if maxPosts > 0 {
		flags["max-posts"] = maxPosts
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if headed {
		flags["headed"] = true
	}
	if debugMode {
		flags["debug"] = true
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(logger.Config{Level: cfg.Logging.Level, File: cfg.Logging.File}); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("ldreader starting")

	accounts := resolveAccounts()
	if len(accounts) == 0 {
		return errors.New("no accounts configured: set ACCOUNTS or run 'ldreader auth login'")
	}

	kit := notify.NewKit(cfg.Notifications)
	if channels := kit.Channels(); len(channels) > 0 {
		log.WithField("channels", fmt.Sprintf("%v", channels)).Info("notification channels configured")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results := runner.New(cfg, accounts, kit).Run(ctx)

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("all %d accounts failed", failed)
	}
	if failed > 0 {
		log.WithField("failed", failed).Warn("some accounts failed")
	}
	return nil
}

// resolveAccounts merges stored credentials with the ACCOUNTS variable.
// When no credential backend is usable the environment still works alone.
func resolveAccounts() []account.Account {
	manager, err := auth.NewManager()
	if err != nil {
		logger.GetLogger().WithError(err).Warn("credential stores unavailable, using environment only")
		return account.Parse(os.Getenv("ACCOUNTS"))
	}
	return manager.Accounts()
}
