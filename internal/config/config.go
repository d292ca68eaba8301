package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/pufferwatch/internal/parse"
)

// Config captures pufferwatch's settings.
type Config struct {
	PollInterval    time.Duration
	RefreshInterval time.Duration
	ChunkSize       int
	SegmentSize     int
	LogPath         string
	SMAPIPath       string
	Encoding        string
	Theme           string
	HeaderPatterns  []string
	LevelAliases    map[string]string
}

const (
	defaultConfigPath      = "~/.config/pufferwatch/config.toml"
	defaultPollInterval    = 250 * time.Millisecond
	defaultRefreshInterval = 100 * time.Millisecond
	defaultChunkSize       = 64 * 1024
	defaultSegmentSize     = 256 * 1024
	defaultTheme           = "Dracula"
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		PollInterval:    defaultPollInterval,
		RefreshInterval: defaultRefreshInterval,
		ChunkSize:       defaultChunkSize,
		SegmentSize:     defaultSegmentSize,
		Theme:           defaultTheme,
	}
}

// Load locates and parses the config file, falling back to defaults when it
// is missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		PollInterval    string `toml:"poll_interval"`
		RefreshInterval string `toml:"refresh_interval"`
		ChunkSize       int    `toml:"chunk_size"`
		SegmentSize     int    `toml:"segment_size"`
		LogPath         string `toml:"log_path"`
		SMAPIPath       string `toml:"smapi_path"`
		Encoding        string `toml:"encoding"`
		Theme           string `toml:"theme"`
		Grammar         struct {
			Header []struct {
				Pattern string `toml:"pattern"`
			} `toml:"header"`
			Levels map[string]string `toml:"levels"`
		} `toml:"grammar"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.PollInterval, err = parseDuration("poll_interval", raw.PollInterval, defaultPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = parseDuration("refresh_interval", raw.RefreshInterval, defaultRefreshInterval); err != nil {
		return Config{}, err
	}
	if raw.ChunkSize > 0 {
		cfg.ChunkSize = raw.ChunkSize
	}
	if raw.SegmentSize > 0 {
		cfg.SegmentSize = raw.SegmentSize
	}
	if p := strings.TrimSpace(raw.LogPath); p != "" {
		cfg.LogPath = mustExpand(p)
	}
	if p := strings.TrimSpace(raw.SMAPIPath); p != "" {
		cfg.SMAPIPath = mustExpand(p)
	}
	cfg.Encoding = strings.TrimSpace(raw.Encoding)
	if theme := strings.TrimSpace(raw.Theme); theme != "" {
		cfg.Theme = theme
	}
	for _, h := range raw.Grammar.Header {
		if p := strings.TrimSpace(h.Pattern); p != "" {
			cfg.HeaderPatterns = append(cfg.HeaderPatterns, p)
		}
	}
	if len(raw.Grammar.Levels) > 0 {
		cfg.LevelAliases = raw.Grammar.Levels
	}

	if _, err := cfg.Grammar(); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Grammar builds the header grammar described by the config.
func (c Config) Grammar() (*parse.Grammar, error) {
	return parse.NewGrammar(c.HeaderPatterns, c.LevelAliases)
}

// ResolveLogPath picks the log file to read: the override, then log_path,
// then the default SMAPI location.
func (c Config) ResolveLogPath(override string) (string, error) {
	if p := strings.TrimSpace(override); p != "" {
		return expandPath(p)
	}
	if c.LogPath != "" {
		return c.LogPath, nil
	}
	p, err := DefaultLogPath()
	if err != nil {
		return "", fmt.Errorf("unable to find log path: %w", err)
	}
	return p, nil
}

// ResolveSMAPIPath picks the executable to run: the override, then
// smapi_path, then the first detected game install.
func (c Config) ResolveSMAPIPath(override string) (string, error) {
	if p := strings.TrimSpace(override); p != "" {
		return expandPath(p)
	}
	if c.SMAPIPath != "" {
		return c.SMAPIPath, nil
	}
	installs := InstallPaths()
	if len(installs) == 0 {
		return "", fmt.Errorf("unable to find game path")
	}
	return ExecutablePath(installs[0]), nil
}

func parseDuration(key, value string, fallback time.Duration) (time.Duration, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(trimmed)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if d <= 0 {
		return fallback, nil
	}
	return d, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
