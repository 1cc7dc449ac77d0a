package layout

import (
	"testing"

	"github.com/five82/beaconscope/internal/grid"
)

func TestSortField(t *testing.T) {
	tests := map[string]string{
		"attestationsCount":       "attestations_count",
		"globalParticipationRate": "global_participation_rate",
		"balance":                 "balance",
		"default":                 "default",
		"":                        "default",
	}
	for in, want := range tests {
		if got := SortField(in); got != want {
			t.Fatalf("SortField(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPaths(t *testing.T) {
	if got := RecordPath("blocks", grid.IntID(981)); got != "/data/blocks/981.cbor" {
		t.Fatalf("RecordPath = %q", got)
	}
	if got := RecordPath("good_peers", grid.StringID("16Uiu2")); got != "/data/good_peers/16Uiu2.cbor" {
		t.Fatalf("RecordPath = %q", got)
	}
	if got := ShardPath("blocks", "attestationsCount", 3); got != "/data/blocks/s/attestations_count/3.cbor" {
		t.Fatalf("ShardPath = %q", got)
	}
	if got := MetaPath("epochs"); got != "/data/epochs/meta.cbor" {
		t.Fatalf("MetaPath = %q", got)
	}
	if got := RangePath("epochs"); got != "/data/epochs/range" {
		t.Fatalf("RangePath = %q", got)
	}
}
