// Package cmd provides CLI commands for conti.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"conti/internal/amqp"
	"conti/internal/cli"
	"conti/internal/config"
	"conti/internal/ledger"
	"conti/internal/log"
	"conti/internal/services"
	"conti/internal/storage"
)

var (
	cfgFile string
	dbPath  string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "conti",
	Short: "Personal ledger with recurring transactions and credit payoff plans",
	Long: `conti keeps account balances in a local SQLite ledger.

It supports:
- Applying and reversing transactions
- Scheduling recurring transactions and forecasting them
- Credit payoff scenarios for credit accounts
- Category spend rollups

Example:
  conti accounts add --name Checking --kind checking --balance 1500
  conti apply --kind expense --amount -42.50 --account <id> --category groceries
  conti forecast --until 2025-12-31
  conti payoff <card-id> --months 12`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()

		level := log.ParseLevel(os.Getenv("LOG_LEVEL"))
		if debug {
			level = slog.LevelDebug
		}
		log.SetDefault(log.New(log.Config{
			Level:     level,
			Component: log.ComponentCLI,
			Output:    os.Stderr,
		}))
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(accountsCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(reverseCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(runDueCmd)
	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(payoffCmd)
	rootCmd.AddCommand(spendCmd)
	rootCmd.AddCommand(overviewCmd)
	rootCmd.AddCommand(dbCmd)
}

func loadConfig() *config.Config {
	if cfgFile != "" {
		os.Setenv("CONFIG_FILE", cfgFile)
	}
	cfg, err := config.Load()
	exitOnError(err, "failed to load configuration")
	if dbPath != "" {
		cfg.SQLiteDBPath = dbPath
	}
	exitOnError(cfg.Validate(), "invalid configuration")
	return cfg
}

// app bundles what the ledger commands share.
type app struct {
	cfg     *config.Config
	repo    *storage.SQLiteRepository
	ledger  *services.LedgerService
	closers []func() error
}

// openApp opens the ledger. When AMQP is configured, changes are announced
// so the ledger-worker exports them; a broker that is down only costs the
// events.
func openApp() *app {
	cfg := loadConfig()

	slog.Debug("Opening database", "path", cfg.SQLiteDBPath)
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	exitOnError(err, "failed to open database")

	a := &app{cfg: cfg, repo: repo, closers: []func() error{repo.Close}}

	var publisher services.EventPublisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, ledger events will not be published", "error", err)
		} else {
			publisher = client
			a.closers = append([]func() error{client.Close}, a.closers...)
		}
	}

	a.ledger = services.NewLedgerService(ledger.New(repo), publisher, nil)
	return a
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			slog.Warn("Close failed", "error", err)
		}
	}
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
