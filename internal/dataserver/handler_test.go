package dataserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/indexer"
	"github.com/five82/beaconscope/internal/layout"
	"github.com/five82/beaconscope/internal/records"
)

func seededServer(t *testing.T) (*httptest.Server, *indexer.Client) {
	t.Helper()
	store := openTestStore(t)
	require.NoError(t, Seed(context.Background(), store, SeedOptions{
		Epochs:        4,
		Validators:    50,
		Deposits:      25,
		BlockRequests: 12,
		GoodPeers:     8,
		Seed:          7,
	}))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := httptest.NewServer(NewHandler(store, logger, 10))
	t.Cleanup(server.Close)

	client, err := indexer.NewClient(server.URL)
	require.NoError(t, err)
	return server, client
}

func TestHandlerServesSeededLayout(t *testing.T) {
	_, client := seededServer(t)
	ctx := context.Background()

	for dataset, want := range map[string]int{
		records.Epochs:        4,
		records.Blocks:        4*grid.EpochSize - 1,
		records.Validators:    50,
		records.Deposits:      25,
		records.BlockRequests: 12,
		records.GoodPeers:     8,
	} {
		meta, err := client.FetchMeta(ctx, dataset)
		require.NoError(t, err, dataset)
		require.Equal(t, want, meta.Count, dataset)
	}

	buf, err := client.FetchBuffer(ctx, grid.IntID(127), layout.RecordPath(records.Blocks, grid.IntID(127)))
	require.NoError(t, err)
	block, err := records.DecodeBlock(buf.ID, buf.Bytes)
	require.NoError(t, err)
	require.Equal(t, uint64(127), block.Slot)
	require.Equal(t, uint64(3), block.Epoch)

	_, err = client.FetchBuffer(ctx, grid.IntID(0), layout.RecordPath(records.Blocks, grid.IntID(0)))
	require.Error(t, err, "genesis slot is not indexed")
}

func TestHandlerRangeAndShardsAgree(t *testing.T) {
	_, client := seededServer(t)
	ctx := context.Background()
	blocks, ok := records.Lookup(records.Blocks)
	require.True(t, ok)

	q := grid.Query{
		Dataset:    records.Blocks,
		Kind:       blocks.Kind,
		Settings:   grid.PageSettings{PageIndex: 1, PageSize: 15, SortID: "attestationsCount", SortDesc: true},
		TotalCount: 4*grid.EpochSize - 1,
		PathOf:     blocks.PathOf,
	}
	fromQuery, err := client.FetchRange(ctx, q)
	require.NoError(t, err)
	require.Len(t, fromQuery, 15)

	fromShards, err := indexer.NewShardSource(client, 10).FetchRange(ctx, q)
	require.NoError(t, err)
	require.Len(t, fromShards, 15)

	// Equal sort values are ordered by id in both, so the pages match exactly.
	require.Equal(t, fromQuery, fromShards)

	peers, err := indexer.NewShardSource(client, 10).FetchRange(ctx, grid.Query{
		Dataset:    records.GoodPeers,
		Kind:       grid.Strings(),
		Settings:   grid.PageSettings{PageSize: 5, SortID: "address"},
		TotalCount: 8,
		PathOf:     func(id grid.ID) string { return layout.RecordPath(records.GoodPeers, id) },
	})
	require.NoError(t, err)
	require.Len(t, peers, 5)
	require.True(t, peers[0].ID.IsString())
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	server, _ := seededServer(t)

	for path, want := range map[string]int{
		"/data/blocks/range?page=0&size=10&sort=nope":          http.StatusBadRequest,
		"/data/blocks/range?page=-1&size=10":                   http.StatusBadRequest,
		"/data/blocks/range?page=0&size=1000":                  http.StatusBadRequest,
		"/data/blocks/range?kind=epoch&epoch=1&page=0&size=10": http.StatusBadRequest,
		"/data/blocks/s/default/99.cbor":                       http.StatusNotFound,
		"/data/blocks/abc":                                     http.StatusNotFound,
		"/data/unknown/meta.cbor":                              http.StatusNotFound,
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err, path)
		_ = resp.Body.Close()
		require.Equal(t, want, resp.StatusCode, path)
	}
}

func TestBlocksGridOverServer(t *testing.T) {
	_, client := seededServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	blocks, _ := records.Lookup(records.Blocks)
	meta, err := client.FetchMeta(ctx, records.Blocks)
	require.NoError(t, err)

	table, err := blocks.Mount(ctx, records.Env{
		Resolver:    grid.NewResolver(client),
		Fetcher:     client,
		PageSize:    20,
		CacheSize:   256,
		Concurrency: 4,
	}, meta.Count)
	require.NoError(t, err)
	defer table.Close()

	frame := settle(t, table)
	require.Len(t, frame.Rows, 20)
	require.Equal(t, grid.IntID(127), frame.Rows[0].ID)
	require.Equal(t, grid.IntID(108), frame.Rows[19].ID)
	for _, row := range frame.Rows {
		require.True(t, row.Loaded, "row %s", row.ID)
	}

	table.SetSort("attestationsCount", true)
	frame = settle(t, table)
	require.Equal(t, 0, frame.PageIndex)
	require.Len(t, frame.Rows, 20)
}

func settle(t *testing.T, table grid.Table) grid.Frame {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if f := table.Frame(); f.Phase == grid.PhaseSettled {
			return f
		}
		select {
		case <-table.Updates():
		case <-time.After(5 * time.Millisecond):
		case <-deadline:
			t.Fatal("grid did not settle")
		}
	}
}
