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
)

// Range source names accepted by range_source.
const (
	RangeSourceQuery  = "query"
	RangeSourceShards = "shards"
)

// EnvAPIHost overrides api_host when set.
const EnvAPIHost = "BEACONSCOPE_API_HOST"

// Config holds the explorer's settings.
type Config struct {
	APIHost          string
	PageSize         int
	CacheSize        int
	FetchConcurrency int
	RangeSource      string
	ShardSize        int
	LogFile          string
	MetaPoll         time.Duration
}

const (
	defaultConfigPath       = "~/.config/beaconscope/config.toml"
	defaultAPIHost          = "http://127.0.0.1:3000"
	defaultPageSize         = 10
	defaultCacheSize        = 2048
	defaultFetchConcurrency = 8
	defaultShardSize        = 10
	defaultLogFile          = "~/.local/state/beaconscope/beaconscope.log"
	defaultMetaPoll         = 30 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		APIHost:          defaultAPIHost,
		PageSize:         defaultPageSize,
		CacheSize:        defaultCacheSize,
		FetchConcurrency: defaultFetchConcurrency,
		RangeSource:      RangeSourceQuery,
		ShardSize:        defaultShardSize,
		LogFile:          mustExpand(defaultLogFile),
		MetaPoll:         defaultMetaPoll,
	}
}

// Load locates and parses the config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnv(&cfg)
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
		APIHost          string `toml:"api_host"`
		PageSize         int    `toml:"page_size"`
		CacheSize        int    `toml:"cache_size"`
		FetchConcurrency int    `toml:"fetch_concurrency"`
		RangeSource      string `toml:"range_source"`
		ShardSize        int    `toml:"shard_size"`
		LogFile          string `toml:"log_file"`
		MetaPollSeconds  int    `toml:"meta_poll_seconds"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if host := strings.TrimSpace(raw.APIHost); host != "" {
		cfg.APIHost = host
	}
	if raw.PageSize > 0 {
		cfg.PageSize = raw.PageSize
	}
	if raw.CacheSize > 0 {
		cfg.CacheSize = raw.CacheSize
	}
	if raw.FetchConcurrency > 0 {
		cfg.FetchConcurrency = raw.FetchConcurrency
	}
	if raw.ShardSize > 0 {
		cfg.ShardSize = raw.ShardSize
	}
	if raw.MetaPollSeconds > 0 {
		cfg.MetaPoll = time.Duration(raw.MetaPollSeconds) * time.Second
	}

	switch source := strings.ToLower(strings.TrimSpace(raw.RangeSource)); source {
	case "":
	case RangeSourceQuery, RangeSourceShards:
		cfg.RangeSource = source
	default:
		return Config{}, fmt.Errorf("parse config: unknown range_source %q", raw.RangeSource)
	}

	if logFile := strings.TrimSpace(raw.LogFile); logFile != "" {
		cfg.LogFile = mustExpand(logFile)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if host := strings.TrimSpace(os.Getenv(EnvAPIHost)); host != "" {
		cfg.APIHost = host
	}
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
