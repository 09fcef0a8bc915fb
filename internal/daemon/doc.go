// Package daemon runs quotesync in the background.
//
// The daemon:
// 1. Runs the sync scheduler (initial cycle, then every interval)
// 2. Serves the dashboard, when one is configured
// 3. Imports quote files dropped into the inbox directory
// 4. Handles graceful shutdown
//
// Inbox layout
//
//	inbox/
//	  ├── *.json, *.yaml, *.yml   → imported, then moved
//	  ├── processed/              ← files that imported cleanly
//	  └── failed/                 ← files that were rejected
//
// Moved files get a timestamp prefix so repeated drops of the same name do
// not collide. Writes are debounced, so a file written in several chunks is
// imported once.
//
// Usage:
//
//	d, err := daemon.New(eng, sched, dash, &daemon.Config{InboxDir: "inbox"})
//	if err != nil {
//	    return err
//	}
//	// Blocks until ctx is cancelled.
//	if err := d.Start(ctx); err != nil {
//	    return err
//	}
package daemon
