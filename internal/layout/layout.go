// Package layout names the URL paths under which the indexer publishes
// dataset metadata, records, range queries and sorted id shards. Both the
// client and the data server build paths through it.
package layout

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/five82/beaconscope/internal/grid"
)

// Root is the path prefix of every dataset.
const Root = "/data"

// RecordExt is the file extension of CBOR records, metadata and shards.
const RecordExt = ".cbor"

func MetaPath(dataset string) string {
	return fmt.Sprintf("%s/%s/meta%s", Root, dataset, RecordExt)
}

func RangePath(dataset string) string {
	return fmt.Sprintf("%s/%s/range", Root, dataset)
}

// RecordPath returns the path of one record, e.g. /data/blocks/981.cbor.
func RecordPath(dataset string, id grid.ID) string {
	return fmt.Sprintf("%s/%s/%s%s", Root, dataset, id, RecordExt)
}

// ShardPath returns the path of the n-th (1-based) sorted id shard.
func ShardPath(dataset, sortID string, n int) string {
	return fmt.Sprintf("%s/%s/s/%s/%d%s", Root, dataset, SortField(sortID), n, RecordExt)
}

// SortField converts a column id such as "attestationsCount" into the
// snake_case name used for sort indexes ("attestations_count").
func SortField(sortID string) string {
	if sortID == "" {
		return grid.DefaultSort
	}
	var b strings.Builder
	b.Grow(len(sortID) + 4)
	for i, r := range sortID {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
