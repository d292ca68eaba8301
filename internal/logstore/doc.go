// Package logstore holds parsed log entries in an append-only, concurrently
// readable structure.
//
// # Layout
//
// A Generation owns two growable structures:
//
//   - an arena of fixed-size byte segments holding entry text
//   - an index of fixed-size chunks holding one slot per entry
//
// Neither segments nor chunks ever move once allocated. Only the small
// directories listing them are replaced (copy-on-grow, via atomic pointers).
// Entries refer to their text by Span (segment, offset, length), so a span
// stays valid for the life of the generation and an Entry handed to a reader
// keeps its bytes alive even after a reset.
//
// # Publication
//
// The single producer calls Store.Append. Each append copies the bytes into
// the arena, fills the next index slot and only then advances the generation's
// Watermark. Readers load the watermark first and may read every slot below it
// with no lock held. The producer never waits for readers.
//
// # Generations
//
// Store.Reset retires the live generation and starts an empty one, used when a
// followed file is truncated or replaced. Sequence numbers continue across
// generations and are never reused. Readers detect a retired generation with
// Generation.Stale and re-subscribe through Store.Current.
//
// # Pending Entry
//
// The entry still being parsed is not committed until the next header line
// arrives. Store.SetPending publishes an immutable copy of it for display; it
// is never part of the index and never seen by filters.
package logstore
