package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/five82/beaconscope/internal/indexer"
	"github.com/five82/beaconscope/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 5 * time.Minute
	refreshTimeout      = 10 * time.Second
)

// MetaFetcher reads a dataset's metadata.
type MetaFetcher interface {
	FetchMeta(ctx context.Context, dataset string) (indexer.Meta, error)
}

// StartPoller launches a background goroutine that refreshes dataset counts
// in store. After failures the wait doubles up to maxBackoff. It returns
// immediately; the goroutine exits when ctx is cancelled.
func StartPoller(ctx context.Context, store *state.Store, fetcher MetaFetcher, datasets []string, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	go func() {
		for {
			if err := refresh(ctx, store, fetcher, datasets); err != nil {
				logger.Warn("meta poll failed", "error", err)
			}
			wait := calculateBackoff(store.Snapshot().ConsecutiveFailures, interval)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// refresh fetches every dataset's count concurrently and records whatever
// succeeded; failures are joined into one error.
func refresh(ctx context.Context, store *state.Store, fetcher MetaFetcher, datasets []string) error {
	ctx, cancel := context.WithTimeout(ctx, refreshTimeout)
	defer cancel()

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		counts = make(map[string]int, len(datasets))
		errs   []error
	)
	for _, name := range datasets {
		wg.Add(1)
		go func() {
			defer wg.Done()
			meta, err := fetcher.FetchMeta(ctx, name)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			counts[name] = meta.Count
		}()
	}
	wg.Wait()

	err := errors.Join(errs...)
	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		return err
	}
	store.Update(counts, err)
	return err
}

// calculateBackoff doubles the base interval for each consecutive failure.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for range failures {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
