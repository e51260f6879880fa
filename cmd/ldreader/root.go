package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	debugMode  bool
	headed     bool
)

// rootCmd represents the base command. Invoked without a subcommand it
// behaves like `ldreader run` so crontab entries stay a single word.
var rootCmd = &cobra.Command{
	Use:   "ldreader",
	Short: "Automated linux.do topic reader",
	Long: `ldreader walks forward through linux.do topic IDs with a real browser,
reading each reachable topic to the end of its reply timeline until the
per-run post quota is met. Progress is persisted per account, so every
run resumes where the previous one stopped.

Accounts come from stored credentials (see 'ldreader auth') or the
ACCOUNTS environment variable. A summary report is delivered over the
first configured notification channel (email, PushPlus, ServerChan,
DingTalk, Telegram).`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	RunE:    runReader,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .ldreader.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "save screenshots and page HTML on failures")
	rootCmd.PersistentFlags().BoolVar(&headed, "headed", false, "run the browser with a visible window")

	rootCmd.SetVersionTemplate(`ldreader {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
