// Package engine implements the local-first synchronization engine.
//
// # Overview
//
// The engine owns the in-memory quote collection. It hydrates it from the
// store (or seeds it), applies local edits, and runs reconciliation cycles
// against the remote collection:
//
//	Idle → Fetching → Merging → Pushing → Done → Idle
//
// Only one cycle runs at a time. A call to RunCycle while another cycle is
// in flight returns immediately with OutcomeSkipped.
//
// Every mutation of the collection (Add, Import, and the merge step of a
// cycle) holds the collection lock from read to persist, so collaborators
// never observe a partially applied change.
//
// # Cycle outcomes
//
//	unreachable  remote could not be contacted; collection untouched
//	no_data      remote answered with nothing usable
//	changed      merge appended or replaced records
//	unchanged    merge was a no-op
//	failed       the store could not be read or written
//
// Remote failures never surface as errors from RunCycle. They are reported
// through status sinks and the returned Result.
//
// # Usage
//
//	st, err := store.Open("quotesync.db")
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	gw, err := remote.New(remote.DefaultConfig(endpoint))
//	if err != nil {
//	    return err
//	}
//
//	e, err := engine.New(st, gw, nil)
//	if err != nil {
//	    return err
//	}
//	defer e.Close()
//
//	if err := e.Init(ctx); err != nil {
//	    return err
//	}
//	res, err := e.RunCycle(ctx)
//
// Status updates go to any number of sinks:
//
//	e.AddSink(engine.SinkFunc(func(st engine.Status) {
//	    fmt.Println(st.Message)
//	}))
package engine
