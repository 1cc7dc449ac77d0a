package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/beaconscope/internal/config"
	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/indexer"
	"github.com/five82/beaconscope/internal/prefs"
	"github.com/five82/beaconscope/internal/records"
	"github.com/five82/beaconscope/internal/state"
	"github.com/five82/beaconscope/internal/ui"
)

// Options configure the explorer.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/beaconscope/prefs.toml
	APIHost    string // overrides the configured host when set
	Debug      bool
}

// Run boots the TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if opts.APIHost != "" {
		cfg.APIHost = opts.APIHost
	}

	logger, closeLog, err := openLog(cfg.LogFile, opts.Debug)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		logger.Warn("prefs unreadable, using defaults", "error", err)
	}

	client, err := indexer.NewClient(cfg.APIHost)
	if err != nil {
		return fmt.Errorf("init indexer client: %w", err)
	}
	logger.Info("starting", "api", client.BaseURL(), "range_source", cfg.RangeSource)

	store := &state.Store{}
	datasets := records.All()
	names := make([]string, len(datasets))
	for i, d := range datasets {
		names[i] = d.Name
	}
	StartPoller(ctx, store, client, names, cfg.MetaPoll, logger.With("component", "poller"))

	pageSize := cfg.PageSize
	if userPrefs.PageSize > 0 {
		pageSize = userPrefs.PageSize
	}

	return ui.Run(ui.Options{
		Context:  ctx,
		Datasets: datasets,
		Env: records.Env{
			Resolver:    grid.NewResolver(rangeSource(cfg, client)),
			Fetcher:     client,
			PageSize:    pageSize,
			CacheSize:   cfg.CacheSize,
			Concurrency: cfg.FetchConcurrency,
			Logger:      logger.With("component", "grid"),
		},
		Meta:      client,
		Store:     store,
		ThemeName: userPrefs.Theme,
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogFile,
		Logger:    logger.With("component", "ui"),
	})
}

func rangeSource(cfg config.Config, client *indexer.Client) grid.RangeSource {
	if cfg.RangeSource == config.RangeSourceShards {
		return indexer.NewShardSource(client, cfg.ShardSize)
	}
	return client
}

// openLog routes both the standard logger and slog into the log file; the
// terminal belongs to the TUI.
func openLog(path string, debug bool) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := tea.LogToFile(path, "beaconscope")
	if err != nil {
		return nil, nil, err
	}
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, func() { _ = f.Close() }, nil
}
