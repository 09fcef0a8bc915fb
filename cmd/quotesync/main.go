// Command quotesync keeps a local quote collection in sync with a remote
// collection service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/Mschirtzinger/quotesync/internal/config"
	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/logging"
	"github.com/Mschirtzinger/quotesync/internal/remote"
	"github.com/Mschirtzinger/quotesync/internal/store"
	"github.com/Mschirtzinger/quotesync/internal/ui"
)

// Version is set at build time.
var Version = "dev"

var (
	v        = config.New()
	cfg      *config.Config
	logger   = zap.NewNop()
	closeLog = func() {}
)

var rootCmd = &cobra.Command{
	Use:   "quotesync",
	Short: "Local-first quote collection with background sync",
	Long: `quotesync keeps a quote collection in a local database and reconciles it
with a remote collection service.

Local edits are always saved first. Sync cycles fetch the remote snapshot,
merge it (the server wins for quotes it already knows; quotes that exist only
locally are never overwritten), save, and push local-only quotes back.

Configuration is read from quotesync.yaml, QUOTESYNC_* environment variables
and flags, in increasing order of precedence.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}

		logger, closeLog, err = logging.New(logging.Options{
			Level: cfg.Log.Level,
			File:  cfg.Log.File,
		})
		if err != nil {
			return err
		}

		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			ui.DisableColor()
		} else {
			ui.Init(os.Stdout)
		}

		logger.Debug("configuration loaded",
			zap.String("file", cfg.File),
			zap.String("data_dir", cfg.DataDir),
			zap.String("endpoint", cfg.Remote.Endpoint))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "quotes", Title: "Quote Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.String("data-dir", config.DefaultDataDir(), "Directory holding the database and config file")
	flags.String("endpoint", config.DefaultEndpoint, "Remote collection URL")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.String("log-file", "", "Write JSON logs to this file (rotated)")
	flags.Bool("no-color", false, "Disable colored output")
	mustBindFlags(flags, map[string]string{
		"data_dir":        "data-dir",
		"remote.endpoint": "endpoint",
		"log.level":       "log-level",
		"log.file":        "log-file",
	})
}

// mustBindFlags binds flags to config keys at init time. Values are read
// when the config is loaded, after flag parsing.
func mustBindFlags(flags *pflag.FlagSet, keys map[string]string) {
	if err := config.BindFlags(v, flags, keys); err != nil {
		panic(err)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderFail("Error:"), err)
		os.Exit(1)
	}
}

// signalContext is cancelled on Ctrl+C or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
}

// app bundles the components commands work with.
type app struct {
	store   *store.Store
	gateway *remote.Gateway
	engine  *engine.Engine
}

// openApp opens the store and builds the gateway and engine from cfg.
func openApp(ctx context.Context, sinks ...engine.Sink) (*app, error) {
	st, err := store.Open(cfg.DBPath(), store.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	gwConfig := remote.DefaultConfig(cfg.Remote.Endpoint)
	gwConfig.FetchLimit = cfg.Remote.FetchLimit
	gwConfig.RequestTimeout = cfg.Remote.RequestTimeout
	gwConfig.PushConcurrency = cfg.Remote.PushConcurrency
	gwConfig.UserAgent = "quotesync/" + Version
	gwConfig.Logger = logger
	gw, err := remote.New(gwConfig)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	engConfig := engine.DefaultConfig()
	engConfig.SettleDelay = cfg.Sync.SettleDelay
	engConfig.Logger = logger
	engConfig.Sinks = sinks
	eng, err := engine.New(st, gw, engConfig)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	if err := eng.Init(ctx); err != nil {
		eng.Close()
		_ = st.Close()
		return nil, err
	}

	return &app{store: st, gateway: gw, engine: eng}, nil
}

func (a *app) Close() {
	a.engine.Close()
	if err := a.store.Close(); err != nil {
		logger.Warn("failed to close store", zap.Error(err))
	}
}

// mustOpenApp is openApp for Run handlers.
func mustOpenApp(ctx context.Context, sinks ...engine.Sink) *app {
	a, err := openApp(ctx, sinks...)
	if err != nil {
		fatalf("failed to open quote store: %v", err)
	}
	return a
}

func fatalf(format string, args ...any) {
	closeLog()
	fmt.Fprintf(os.Stderr, "%s %s\n", ui.RenderFail("Error:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}
