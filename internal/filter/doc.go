// Package filter derives incrementally maintained views from a log store.
//
// A View pairs a Predicate with a cursor into the store's live generation and
// the ordered list of matching sequence numbers. Refresh evaluates the
// predicate only on entries committed since the previous refresh, so its cost
// is proportional to new entries, not to the size of the log. Because
// predicates are pure and the store is append-only, a match once recorded is
// never removed; the list only starts over when the store resets to a new
// generation.
//
// Criteria is the structured filter state coming from the command line and
// the viewer (level threshold, hidden levels and sources, source match, text
// search). Changing criteria means building a new View.
//
// Engine groups named views over one store and refreshes them concurrently.
package filter
