// Package source unifies the places a log can come from behind one interface.
//
// # Variants
//
//   - File: a log file read once, or followed as it grows
//   - Reader: any blocking io.Reader such as stdin or an HTTP response body
//   - the supervisor package's child output, built on Reader
//
// Each variant yields Events: data chunks, resets and end of stream. Terminal
// failures are returned as *Error values carrying a Reason, so the session can
// tell an unreadable file from a dropped connection or a child that failed to
// start. A follower waiting for more bytes is not in an error state.
//
// # Resets
//
// A followed file that shrinks, or is replaced by a different file at the same
// path, yields EventReset. Offsets from before the reset are meaningless; the
// consumer discards its parse state and starts a new store generation.
//
// # Cancellation
//
// Next honours its context and Close. Reader performs reads on a background
// goroutine and closes the underlying handle on Close, so a consumer is never
// stuck behind a read that will not return.
//
// # Mirroring
//
// Tee copies every data chunk to a writer, used for the run command's output
// mirror file.
package source
