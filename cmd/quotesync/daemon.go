package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mschirtzinger/quotesync/internal/daemon"
	"github.com/Mschirtzinger/quotesync/internal/dashboard"
	"github.com/Mschirtzinger/quotesync/internal/engine"
	"github.com/Mschirtzinger/quotesync/internal/scheduler"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Sync in the background and serve the dashboard",
	Long: `Run sync cycles on an interval until interrupted.

The daemon runs a cycle right away, then one every --interval. It also serves
a dashboard with a WebSocket status feed and a JSON API:

  GET  /ws                     status, categories, quote_added, import messages
  GET  /health                 liveness
  GET  /status                 engine state and last cycle
  POST /sync                   request a cycle now (202)
  GET  /categories             category list
  GET  /quotes/random          random quote (?category=)
  POST /quotes                 add {"text", "category"}
  GET  /export                 export (?format=json|yaml)
  POST /import                 import a JSON or YAML array

When --inbox is set, quote files (*.json, *.yaml) dropped into that directory
are imported and moved to processed/ or failed/.

Example usage:
  quotesync daemon                         # defaults: 30s interval, port 8080
  quotesync daemon --port 9000 --inbox inbox
  quotesync daemon --no-dashboard --log-file ~/.quotesync/daemon.log`,
	Run: func(cmd *cobra.Command, args []string) {
		noDashboard, _ := cmd.Flags().GetBool("no-dashboard")

		ctx, cancel := signalContext()
		defer cancel()

		log := logger.Named("status")
		statusSink := engine.SinkFunc(func(st engine.Status) {
			log.Info(st.Message, zap.String("kind", string(st.Kind)), zap.String("cycle", st.CycleID))
		})

		a := mustOpenApp(ctx, statusSink)
		defer a.Close()

		sched, err := scheduler.New(a.engine, &scheduler.Config{
			Interval: cfg.Sync.Interval,
			Logger:   logger,
		})
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		var dash *dashboard.Server
		if !noDashboard {
			dash = dashboard.NewServer(&dashboard.Config{
				Port:    cfg.Dashboard.Port,
				Engine:  a.engine,
				Trigger: sched,
				Logger:  logger,
			})
			a.engine.AddSink(dashboard.NewHandler(dash, logger))
		}

		d, err := daemon.New(a.engine, sched, dash, &daemon.Config{
			InboxDir: cfg.Inbox.Dir,
			Logger:   logger,
		})
		if err != nil {
			a.Close()
			fatalf("%v", err)
		}

		fmt.Printf("Syncing with %s every %s\n", cfg.Remote.Endpoint, cfg.Sync.Interval)
		if dash != nil {
			fmt.Printf("Dashboard: http://localhost:%d (WebSocket: ws://localhost:%d/ws)\n", cfg.Dashboard.Port, cfg.Dashboard.Port)
		}
		if cfg.Inbox.Dir != "" {
			fmt.Printf("Inbox: %s\n", cfg.Inbox.Dir)
		}
		fmt.Println("\nPress Ctrl+C to stop...")

		if err := d.Start(ctx); err != nil {
			a.Close()
			fatalf("daemon failed: %v", err)
		}
		fmt.Println("\nDaemon stopped")
	},
}

func init() {
	daemonCmd.Flags().IntP("port", "p", 8080, "Dashboard port")
	daemonCmd.Flags().Duration("interval", 0, "Sync interval (default from config, 30s)")
	daemonCmd.Flags().String("inbox", "", "Directory to watch for quote files to import")
	daemonCmd.Flags().Bool("no-dashboard", false, "Do not serve the dashboard")
	mustBindFlags(daemonCmd.Flags(), map[string]string{
		"dashboard.port": "port",
		"sync.interval":  "interval",
		"inbox.dir":      "inbox",
	})

	rootCmd.AddCommand(daemonCmd)
}
