package grid

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// DefaultSort is the sort id meaning natural (identifier) order.
const DefaultSort = "default"

// EpochSize is the number of slots in one epoch.
const EpochSize = 32

// PageSizeOptions are the page sizes offered to the user.
var PageSizeOptions = []int{10, 20, 30, 40, 50}

// ID identifies one record. Integer-keyed datasets use IntID, hash-keyed
// datasets use StringID. IDs are comparable and usable as map keys.
type ID struct {
	num  uint64
	str  string
	text bool
}

// IntID returns an integer identifier.
func IntID(n uint64) ID { return ID{num: n} }

// StringID returns an opaque string identifier.
func StringID(s string) ID { return ID{str: s, text: true} }

// IsString reports whether the identifier is a string.
func (id ID) IsString() bool { return id.text }

// Uint64 returns the integer value; ok is false for string identifiers.
func (id ID) Uint64() (uint64, bool) {
	if id.text {
		return 0, false
	}
	return id.num, true
}

func (id ID) String() string {
	if id.text {
		return id.str
	}
	return strconv.FormatUint(id.num, 10)
}

// Compare orders integers numerically, strings lexically, and integers before strings.
func (id ID) Compare(other ID) int {
	if id.text != other.text {
		if id.text {
			return 1
		}
		return -1
	}
	if id.text {
		return cmp.Compare(id.str, other.str)
	}
	return cmp.Compare(id.num, other.num)
}

// MarshalJSON encodes integers as JSON numbers and strings as JSON strings.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.text {
		return json.Marshal(id.str)
	}
	return []byte(strconv.FormatUint(id.num, 10)), nil
}

// UnmarshalJSON accepts either a JSON number or a JSON string.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = StringID(s)
		return nil
	}
	var n uint64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode id: %w", err)
	}
	*id = IntID(n)
	return nil
}

// KindTag discriminates RangeKind variants.
type KindTag int

const (
	KindIntegers KindTag = iota
	KindStrings
	KindEpoch
)

// RangeKind describes how the identifiers of a dataset are ordered and scoped.
type RangeKind struct {
	Tag KindTag
	// Base is the lowest identifier of an Integers dataset.
	Base uint64
	// Number is the epoch of an Epoch range.
	Number uint64
}

// Integers returns the kind for monotonically increasing integer identifiers
// starting at base.
func Integers(base uint64) RangeKind { return RangeKind{Tag: KindIntegers, Base: base} }

// Strings returns the kind for opaque hash identifiers.
func Strings() RangeKind { return RangeKind{Tag: KindStrings} }

// Epoch returns the kind for the fixed slot set of epoch n.
func Epoch(n uint64) RangeKind { return RangeKind{Tag: KindEpoch, Number: n} }

// IsEpoch reports whether k is an Epoch range.
func (k RangeKind) IsEpoch() bool { return k.Tag == KindEpoch }

func (k RangeKind) String() string {
	switch k.Tag {
	case KindStrings:
		return "strings"
	case KindEpoch:
		return "epoch"
	default:
		return "integers"
	}
}

// FirstSlot returns the first slot of an Epoch range.
func (k RangeKind) FirstSlot() uint64 { return k.Number * EpochSize }

// PageSettings is the pagination and sort state of one grid.
type PageSettings struct {
	PageIndex int    `json:"pageIndex"`
	PageSize  int    `json:"pageSize"`
	SortID    string `json:"sortId"`
	SortDesc  bool   `json:"sortDesc"`
}

// IsDefaultSort reports whether the settings request natural order.
func (s PageSettings) IsDefaultSort() bool {
	return s.SortID == "" || s.SortID == DefaultSort
}

// Entry pairs an identifier with the path its record is fetched from.
type Entry struct {
	ID   ID     `json:"id"`
	Path string `json:"path"`
}

// Range is the ordered list of entries shown on one page.
type Range []Entry

// IDs returns the identifiers of r in order.
func (r Range) IDs() []ID {
	ids := make([]ID, len(r))
	for i, e := range r {
		ids[i] = e.ID
	}
	return ids
}

// Query carries everything needed to resolve one page.
type Query struct {
	Dataset    string
	Kind       RangeKind
	Settings   PageSettings
	TotalCount int
	// PathOf maps an identifier to its record path.
	PathOf func(ID) string
}

// RangeSource resolves pages that cannot be computed locally.
type RangeSource interface {
	FetchRange(ctx context.Context, q Query) (Range, error)
}

// Buffer holds the raw bytes of one record.
type Buffer struct {
	ID    ID
	Bytes []byte
}

// BufferFetcher retrieves the raw bytes of one record.
type BufferFetcher interface {
	FetchBuffer(ctx context.Context, id ID, path string) (Buffer, error)
}

// Decoder turns raw record bytes into a typed row value.
type Decoder[T any] func(id ID, data []byte) (T, error)

// Column describes one table column over values of type T.
type Column[T any] struct {
	ID       string
	Header   string
	Width    int
	Sortable bool
	Cell     func(T) string
	// Less orders values for client-side sorting (Epoch ranges).
	Less func(a, b T) bool
}

// Row is one decoded record plus its loading flags. Rows are values; a new
// Row is produced whenever any of its fields change.
type Row[T any] struct {
	Index  int
	ID     ID
	Path   string
	Value  T
	Loaded bool
	Stale  bool
	Err    error
}

// Phase is the state of one fetch cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseResolvingRange
	PhaseRangeReady
	PhaseFetchingRows
	PhaseSettled
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseResolvingRange:
		return "resolving"
	case PhaseRangeReady:
		return "range-ready"
	case PhaseFetchingRows:
		return "fetching"
	case PhaseSettled:
		return "settled"
	case PhaseFailed:
		return "failed"
	default:
		return "idle"
	}
}

// Busy reports whether a cycle is still in flight.
func (p Phase) Busy() bool {
	return p == PhaseResolvingRange || p == PhaseRangeReady || p == PhaseFetchingRows
}
