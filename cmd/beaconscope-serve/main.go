package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/five82/beaconscope/internal/dataserver"
	"github.com/five82/beaconscope/internal/indexer"
)

const shutdownTimeout = 5 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "127.0.0.1:3000", "listen address")
	dataDir := flag.String("db", "", "badger directory (empty keeps data in memory)")
	epochs := flag.Int("seed", 0, "seed this many synthetic epochs before serving (0 skips seeding)")
	validators := flag.Int("validators", 2048, "validators to seed")
	deposits := flag.Int("deposits", 512, "deposits to seed")
	requests := flag.Int("block-requests", 64, "block requests to seed")
	peers := flag.Int("peers", 48, "good peers to seed")
	seed := flag.Uint64("rand", 1, "random seed for synthetic data")
	shardSize := flag.Int("shard-size", indexer.DefaultShardSize, "ids per sort shard")
	verbose := flag.Bool("v", false, "log every request")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := serve(ctx, logger, *addr, *dataDir, *shardSize, dataserver.SeedOptions{
		Epochs:        *epochs,
		Validators:    *validators,
		Deposits:      *deposits,
		BlockRequests: *requests,
		GoodPeers:     *peers,
		Seed:          *seed,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "beaconscope-serve: %v\n", err)
		return 1
	}
	return 0
}

func serve(ctx context.Context, logger *slog.Logger, addr, dataDir string, shardSize int, seed dataserver.SeedOptions) error {
	store, err := dataserver.Open(dataDir, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	if seed.Epochs > 0 {
		start := time.Now()
		if err := dataserver.Seed(ctx, store, seed); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("seeded", "epochs", seed.Epochs, "validators", seed.Validators, "took", time.Since(start).Round(time.Millisecond))
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           dataserver.NewHandler(store, logger, shardSize),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "db", dataDir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
