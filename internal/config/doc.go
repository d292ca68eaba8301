// Package config loads pufferwatch's settings and locates the game files it
// needs.
//
// # Configuration Discovery
//
// Load follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/pufferwatch/config.toml
//  3. If the file doesn't exist, fall back to Default()
//  4. If the file exists but fields are missing or non-positive, use defaults
//
// # TOML Format
//
//	poll_interval = "250ms"     # how often a followed file is re-checked
//	refresh_interval = "100ms"  # how often the viewer refreshes its views
//	chunk_size = 65536          # read size for byte sources
//	segment_size = 262144       # log store segment size
//	log_path = "~/.config/StardewValley/ErrorLogs/SMAPI-latest.txt"
//	smapi_path = "~/GOG Games/Stardew Valley/game/StardewValley"
//	encoding = "utf8"           # child stdin encoding: utf8, utf16le, utf16be
//	theme = "Dracula"
//
//	[[grammar.header]]
//	pattern = '(?P<time>\d{2}:\d{2}:\d{2}) (?P<level>[A-Z]+) (?P<source>\w+): '
//
//	[grammar.levels]
//	WARNING = "warn"
//
// Header patterns are tried before the built-in SMAPI rules. A config whose
// grammar does not compile is rejected by Load rather than at first use.
//
// # Path Resolution
//
// ResolveLogPath and ResolveSMAPIPath apply a command-line override first,
// then the configured value, then discovery. Log discovery uses the platform
// config directory (~/.config on macOS). Install discovery reads GamePath
// from ~/stardewvalley.targets and then probes the usual Steam and GOG
// directories, keeping only those that contain the game assembly.
//
// Tilde expansion is performed on every path. Relative paths become absolute
// against the working directory.
package config
