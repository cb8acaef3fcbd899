// Command projects tracks projects, their backlog items and the hours
// logged against them. Without a subcommand it starts the terminal UI.
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/project-tracker/internal/app"
	"github.com/nhle/project-tracker/internal/lock"
	"github.com/nhle/project-tracker/internal/logging"
	"github.com/nhle/project-tracker/internal/model"
	"github.com/nhle/project-tracker/internal/store"
	"github.com/nhle/project-tracker/internal/tracker"
)

// env holds what every subcommand needs once the root command has loaded
// the configuration.
type env struct {
	configPath string
	dbPath     string
	logPath    string
	logLevel   string

	cfg    *model.AppConfig
	logger *zap.Logger
	store  *store.SQLiteStore
	svc    *tracker.Service
	user   model.User
}

func newRootCmd() *cobra.Command {
	e := &env{}

	root := &cobra.Command{
		Use:           "projects",
		Short:         "Project backlog and time tracking",
		Long:          `Track projects, their backlog items, comments and the hours worked and billed on them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return e.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.runTUI()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&e.configPath, "config", model.DefaultConfigPath(), "config file")
	flags.StringVar(&e.dbPath, "db", "", "database file (overrides config)")
	flags.StringVar(&e.logPath, "log-file", "", "log file (overrides config)")
	flags.StringVar(&e.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newProjectCmd(e),
		newItemCmd(e),
		newLogCmd(e),
		newCommentCmd(e),
		newReconcileCmd(e),
	)
	return root
}

// open loads configuration, then the logger, store, lock and service.
func (e *env) open(cmd *cobra.Command) error {
	cfg, err := model.LoadConfig(e.configPath)
	if err != nil {
		return err
	}
	if e.dbPath != "" {
		cfg.Database.Path = e.dbPath
	}
	if cmd.Flags().Changed("log-file") {
		cfg.Log.Path = e.logPath
	}
	if e.logLevel != "" {
		cfg.Log.Level = e.logLevel
	}
	e.cfg = cfg

	if e.logger, err = logging.New(cfg.Log); err != nil {
		return err
	}

	e.store, err = store.NewSQLiteStore(cfg.Database.Path,
		store.WithWorkLogDescription(cfg.Billing.WorkLogDescription))
	if err != nil {
		return err
	}

	locker, err := newLocker(cfg.Lock, e.store)
	if err != nil {
		return err
	}

	e.user = cfg.CurrentUser()
	e.svc = tracker.New(e.store, locker, cfg, e.logger)
	e.logger.Debug("store opened",
		zap.String("db", cfg.Database.Path),
		zap.String("lock", cfg.Lock.Backend),
		zap.String("user", e.user.Name))
	return nil
}

func newLocker(cfg model.LockConfig, st *store.SQLiteStore) (lock.Locker, error) {
	switch cfg.Backend {
	case "memory":
		return lock.NewKeyed(), nil
	case "", "table":
		return lock.NewTable(st, cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Backend)
	}
}

func (e *env) close() error {
	if e.logger != nil {
		_ = e.logger.Sync()
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}

func (e *env) runTUI() error {
	interval := time.Duration(e.cfg.Reconcile.IntervalSec) * time.Second
	m := app.New(e.svc, e.user, interval, e.logger)
	defer m.Shutdown()

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
