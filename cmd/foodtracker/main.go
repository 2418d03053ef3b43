package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	foodtracker "github.com/unowned-ai/foodtracker/pkg"
	"github.com/unowned-ai/foodtracker/pkg/config"
	pkgdb "github.com/unowned-ai/foodtracker/pkg/db"
	"github.com/unowned-ai/foodtracker/pkg/logging"
)

var (
	configFile string
	envFile    string

	dbPath        string
	walMode       bool
	syncMode      string
	logLevel      string
	logFormat     string
	contact       string
	lookupTimeout string

	cfg    config.Config
	logger *zap.Logger
	log    *zap.SugaredLogger
)

// skipSetup marks commands that must work without a valid configuration.
const skipSetup = "skip-setup"

var rootCmd = &cobra.Command{
	Use:           "foodtracker",
	Short:         "Food diary backed by Open Food Facts.",
	Long:          `Scan or search for food products, see their nutrition facts and log them to a per-day, per-meal diary kept on this device.`,
	Version:       fmt.Sprintf("v%s", foodtracker.Version),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipSetup] == "true" {
			return nil
		}
		return setup(cmd)
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// setup resolves configuration (file, .env, environment, then flags) and builds the logger.
func setup(cmd *cobra.Command) error {
	loaded, err := config.Load(configFile, envFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		loaded.DBPath = dbPath
	}
	if flags.Changed("wal") {
		loaded.WAL = walMode
	}
	if flags.Changed("sync") {
		loaded.Sync = strings.ToUpper(syncMode)
	}
	if flags.Changed("log-level") {
		loaded.LogLevel = logLevel
	}
	if flags.Changed("log-format") {
		loaded.LogFormat = logFormat
	}
	if flags.Changed("contact") {
		loaded.Contact = contact
	}
	if flags.Changed("timeout") {
		d, err := time.ParseDuration(lookupTimeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		loaded.LookupTimeout = d
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	log = logger.Sugar()
	return nil
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for foodtracker.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(foodtracker completion bash)

  Bash (persist):
    $ foodtracker completion bash > /etc/bash_completion.d/foodtracker

  Zsh:
    $ foodtracker completion zsh > "${fpath[1]}/_foodtracker"

  Fish:
    $ foodtracker completion fish | source
    $ foodtracker completion fish > ~/.config/fish/completions/foodtracker.fish

  PowerShell:
    PS> foodtracker completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Annotations:           map[string]string{skipSetup: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print the version number of foodtracker",
	Annotations: map[string]string{skipSetup: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(foodtracker.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the diary database",
	Long:  `Provides commands for managing the foodtracker SQLite database, including schema upgrades.`,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the diary database schema to the latest version",
	Long: `Connects to the SQLite database (the --db flag, configuration, or the platform default) and
applies any schema migrations needed by the diarydb component. A missing database is created
and initialized with the latest schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolveDBPath()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Upgrading diarydb component in database at: %s (WAL: %t, Sync: %s)\n", path, cfg.WAL, cfg.Sync)

		dbConn, err := pkgdb.OpenDBConnection(path, cfg.WAL, cfg.Sync)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		return pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, log)
	},
}

func initCmd() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "Path to a YAML configuration file")
	flags.StringVar(&envFile, "env-file", config.DefaultDotEnv, "Path to a .env file with FOODTRACKER_* variables (ignored if missing)")
	flags.StringVar(&dbPath, "db", "", "Path to the database file (uses a system-specific default if not provided)")
	flags.BoolVar(&walMode, "wal", false, "Enable SQLite WAL (Write-Ahead Logging) mode")
	flags.StringVar(&syncMode, "sync", config.DefaultSync, "SQLite synchronous pragma (OFF, NORMAL, FULL, EXTRA)")
	flags.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", config.DefaultLogFormat, "Log format (console, json)")
	flags.StringVar(&contact, "contact", "", "Contact email sent to Open Food Facts in the User-Agent")
	flags.StringVar(&lookupTimeout, "timeout", "0s", "Timeout for each Open Food Facts request (0 waits forever)")

	dbCmd.AddCommand(dbUpgradeCmd)

	initDiaryCmd()
	initLookupCmds()
	initScanCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, diaryCmd, lookupCmd, searchCmd, scanCmd, mcpCmd, tuiCmd)
}

func main() {
	initCmd()

	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
