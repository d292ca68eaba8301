// Package state provides thread-safe session status for pufferwatch.
//
// # Overview
//
// The log itself lives in the logstore package, which readers access without
// locks. Everything else the viewer shows about the session (which source is
// being read, how many bytes arrived, resets, the child process, warnings and
// terminal errors) is small, changes rarely and is kept here behind a mutex.
//
// # Architecture
//
//	Producer (pipeline):           Consumer (UI):
//	┌──────────────────┐           ┌──────────────────┐
//	│ AddBytes()       │           │                  │
//	│ Notify(reason)   │──────────→│ store.Snapshot() │
//	│ Warn(msg)        │  (mutex)  │      ↓           │
//	└──────────────────┘           │  status bar      │
//	                               └──────────────────┘
//
// # Phases
//
// A session starts in PhaseStarting, moves to PhaseStreaming with the first
// bytes, and ends in PhaseEnded (end of stream or child exit) or PhaseFailed
// (terminal source error). Resets do not change the phase; they are counted.
//
// # Notices
//
// Notify and Warn append to a bounded notice history. Warnings, such as a
// command the child could no longer receive, never change the phase.
//
// # Snapshots
//
// Snapshot returns a copy: the notice slice is cloned and the last error is
// wrapped so callers cannot mutate shared state. The zero Store is ready to
// use.
package state
