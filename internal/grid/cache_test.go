package grid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowCacheKeyIncludesPath(t *testing.T) {
	c, err := NewRowCache[string](4)
	require.NoError(t, err)

	c.Add("blocks", IntID(10), "/data/blocks/10.cbor", "ten")

	got, ok := c.Get("blocks", IntID(10), "/data/blocks/10.cbor")
	require.True(t, ok)
	require.Equal(t, "ten", got)

	_, ok = c.Get("blocks", IntID(10), "/data/blocks/s/10.cbor")
	require.False(t, ok, "a different path must miss")

	_, ok = c.Get("epochs", IntID(10), "/data/blocks/10.cbor")
	require.False(t, ok, "a different dataset must miss")
}

func TestRowCacheEvicts(t *testing.T) {
	c, err := NewRowCache[int](2)
	require.NoError(t, err)

	for i := range 3 {
		c.Add("d", IntID(uint64(i)), "", i)
	}
	require.Equal(t, 2, c.Len())
	_, ok := c.Get("d", IntID(0), "")
	require.False(t, ok)

	c.Purge()
	require.Zero(t, c.Len())
}

func TestNilRowCache(t *testing.T) {
	var c *RowCache[int]
	c.Add("d", IntID(1), "", 1)
	_, ok := c.Get("d", IntID(1), "")
	require.False(t, ok)
	require.Zero(t, c.Len())
}
