package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	logFileName = "SMAPI-latest.txt"
	gameDLL     = "Stardew Valley.dll"
)

// DefaultLogPath returns where SMAPI writes its current log:
// <config dir>/StardewValley/ErrorLogs/SMAPI-latest.txt. On macOS the game
// uses ~/.config rather than the platform config directory.
func DefaultLogPath() (string, error) {
	var base string
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		base = dir
	}
	return filepath.Join(base, "StardewValley", "ErrorLogs", logFileName), nil
}

// ExecutablePath returns the SMAPI launcher inside a game install directory.
func ExecutablePath(installDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(installDir, "StardewModdingAPI.exe")
	}
	return filepath.Join(installDir, "StardewValley")
}

// InstallPaths returns detected game install directories, most specific
// first: the GamePath from ~/stardewvalley.targets, then the usual Steam and
// GOG locations. Only directories containing the game assembly are returned.
func InstallPaths() []string {
	home, _ := os.UserHomeDir()
	return filterInstalls(candidateInstallPaths(home, runtime.GOOS))
}

func candidateInstallPaths(home, goos string) []string {
	var out []string
	if home != "" {
		if p, err := readTargetsGamePath(filepath.Join(home, "stardewvalley.targets")); err == nil && p != "" {
			out = append(out, p)
		}
	}

	switch goos {
	case "windows":
		for _, pf := range []string{`C:\Program Files`, `C:\Program Files (x86)`} {
			out = append(out,
				filepath.Join(pf, "GalaxyClient", "Games", "Stardew Valley"),
				filepath.Join(pf, "GOG Galaxy", "Games", "Stardew Valley"),
				filepath.Join(pf, "GOG Games", "Stardew Valley"),
				filepath.Join(pf, "Steam", "steamapps", "common", "Stardew Valley"),
			)
		}
		for drive := 'C'; drive <= 'H'; drive++ {
			out = append(out, fmt.Sprintf(`%c:\Program Files\ModifiableWindowsApps\Stardew Valley`, drive))
		}
	default:
		if home != "" {
			out = append(out,
				filepath.Join(home, "GOG Games", "Stardew Valley", "game"),
				filepath.Join(home, ".steam", "steam", "steamapps", "common", "Stardew Valley"),
				filepath.Join(home, ".local", "share", "Steam", "steamapps", "common", "Stardew Valley"),
			)
		}
		if goos == "darwin" {
			out = append(out, "/Applications/Stardew Valley.app/Contents/MacOS")
			if home != "" {
				out = append(out, filepath.Join(home, "Library", "Application Support", "Steam", "steamapps", "common", "Stardew Valley", "Contents", "MacOS"))
			}
		}
	}
	return out
}

// filterInstalls resolves symlinks, drops duplicates and keeps directories
// that contain the game assembly.
func filterInstalls(candidates []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range candidates {
		resolved, err := filepath.EvalSymlinks(c)
		if err != nil {
			continue
		}
		resolved, err = filepath.Abs(resolved)
		if err != nil || seen[resolved] {
			continue
		}
		if info, err := os.Stat(filepath.Join(resolved, gameDLL)); err != nil || !info.Mode().IsRegular() {
			continue
		}
		seen[resolved] = true
		out = append(out, resolved)
	}
	return out
}

// readTargetsGamePath reads <PropertyGroup><GamePath> from an MSBuild targets
// file, the same file the mod build tooling uses to locate the game.
func readTargetsGamePath(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var targets struct {
		PropertyGroups []struct {
			GamePath string `xml:"GamePath"`
		} `xml:"PropertyGroup"`
	}
	if err := xml.Unmarshal(data, &targets); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	for _, pg := range targets.PropertyGroups {
		if p := strings.TrimSpace(pg.GamePath); p != "" {
			return p, nil
		}
	}
	return "", nil
}
