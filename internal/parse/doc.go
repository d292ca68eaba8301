// Package parse turns a raw SMAPI log byte stream into log records.
//
// # Overview
//
// A record starts at a header line and runs until the next header line or the
// end of the stream. SMAPI writes headers such as
//
//	[12:00:00 INFO  SMAPI] Loaded 42 mods
//	[12:00:01 ERROR Content Patcher] Failed to load asset
//	    at StardewModdingAPI.Framework...
//
// Lines that do not start with a header are continuation lines and belong to
// the record opened most recently. Text that appears before any header becomes
// an implicit record with an unknown level and no source.
//
// # Grammar
//
// Headers are recognized by a Grammar, an ordered table of anchored regular
// expressions with the named groups "time", "level" and "source". The default
// table covers the SMAPI layouts; configuration may add rules (tried first)
// and extra level tokens. A rule whose level token is not in the level table
// does not match.
//
// # Incremental Parsing
//
// Parser.Feed accepts arbitrary chunks. A trailing partial line is carried to
// the next call, so the records produced never depend on where chunk
// boundaries fall. Feed never blocks and never waits for more input.
//
// A record is handed to the emit callback once it is complete. The still-open
// record can be inspected with Pending, which lets followers preview the
// newest line before it is terminated.
//
// # Decoding
//
// Each physical line has a trailing carriage return removed. Invalid UTF-8 is
// replaced with U+FFFD per line, never failing the stream.
package parse
