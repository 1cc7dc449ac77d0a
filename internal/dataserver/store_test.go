package dataserver

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/five82/beaconscope/internal/grid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSortKeysPreserveOrder(t *testing.T) {
	floats := []float64{math.Inf(-1), -2.5, -0.1, 0, 0.1, 0.8125, 3, math.Inf(1)}
	for i := 1; i < len(floats); i++ {
		require.Negative(t, bytes.Compare(Float(floats[i-1]), Float(floats[i])), "%v < %v", floats[i-1], floats[i])
	}
	require.Negative(t, bytes.Compare(Uint(255), Uint(256)))
	require.Negative(t, bytes.Compare(Text("ab"), Text("b")))
}

func TestIDEncodingRoundTrips(t *testing.T) {
	for _, id := range []grid.ID{grid.IntID(0), grid.IntID(981), grid.StringID("0xfeed")} {
		got, err := decodeID(encodeID(id))
		require.NoError(t, err)
		require.Equal(t, id, got)
	}
	_, err := decodeID([]byte{'i', 1})
	require.Error(t, err)
}

func TestStorePagesInEveryOrder(t *testing.T) {
	store := openTestStore(t)
	scores := map[uint64]uint64{1: 30, 2: 10, 3: 50, 4: 20, 5: 40}
	for slot, score := range scores {
		require.NoError(t, store.Put("blocks", grid.IntID(slot), []byte{byte(slot)}, map[string]SortKey{
			"attestationsCount": Uint(score),
		}))
	}

	count, err := store.Count("blocks")
	require.NoError(t, err)
	require.Equal(t, 5, count)

	ids, err := store.Page("blocks", grid.DefaultSort, true, 0, 3)
	require.NoError(t, err)
	require.Equal(t, []grid.ID{grid.IntID(5), grid.IntID(4), grid.IntID(3)}, ids)

	ids, err = store.Page("blocks", "attestationsCount", false, 0, 2)
	require.NoError(t, err)
	require.Equal(t, []grid.ID{grid.IntID(2), grid.IntID(4)}, ids)

	ids, err = store.Page("blocks", "attestations_count", true, 1, 2)
	require.NoError(t, err)
	require.Equal(t, []grid.ID{grid.IntID(1), grid.IntID(4)}, ids)

	ids, err = store.Page("blocks", "attestationsCount", true, 3, 2)
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = store.Page("blocks", "proposer", false, 0, 2)
	require.ErrorIs(t, err, ErrUnknownSort)
}

func TestStorePutReplacesIndexEntries(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Put("peers", grid.StringID("a"), []byte("one"), map[string]SortKey{"address": Text("z")}))
	require.NoError(t, store.Put("peers", grid.StringID("b"), []byte("two"), map[string]SortKey{"address": Text("m")}))
	require.NoError(t, store.Put("peers", grid.StringID("a"), []byte("three"), map[string]SortKey{"address": Text("c")}))

	count, err := store.Count("peers")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	ids, err := store.Page("peers", "address", false, 0, 10)
	require.NoError(t, err)
	require.Equal(t, []grid.ID{grid.StringID("a"), grid.StringID("b")}, ids)

	payload, err := store.Record("peers", "a")
	require.NoError(t, err)
	require.Equal(t, "three", string(payload))

	_, err = store.Record("peers", "zz")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = store.Count("nothing")
	require.ErrorIs(t, err, ErrNotFound)
}
