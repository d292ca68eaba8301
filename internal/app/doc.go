// Package app provides the orchestration layer for pufferwatch.
//
// # Overview
//
// This package wires together configuration, the log source, the producer
// pipeline, the filter engine and the UI. It serves as the composition root
// where all dependencies are initialized and connected.
//
// # Architecture
//
// Run follows a simple initialization pattern:
//
//  1. Load ~/.config/pufferwatch/config.toml (or --config)
//  2. Build the diagnostic logger and the header grammar
//  3. Open the source for the selected mode (file, stdin, remote, run)
//  4. Create the log store and start the producer goroutine
//  5. Start the viewer, or the printer with --print, and block until exit
//  6. Cancel, close the source, stop the child and wait for the producer
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()        settings and grammar rules
//	       ├─────> openSession()        source.File / source.Reader / supervisor.Start
//	       ├─────> StartProducer()      Source → Parser → Store
//	       ├─────> filter.NewEngine()   views over the store
//	       └─────> ui.Run()             viewer (blocks)
//
// The producer is the only writer of the store. The viewer refreshes its
// filter views on its own tick and never waits on the producer.
//
// # Error Handling
//
// Fatal errors (returned from Run):
//   - Invalid configuration or grammar
//   - A log file that cannot be opened, a remote log that cannot be fetched
//   - A child that cannot be started (see supervisor.SpawnError)
//
// Errors after startup (a failed read, the child exiting) end the stream
// but not the session: the operator keeps reviewing what was read and the
// cause is shown on the status bar.
package app
