package dataserver

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/five82/beaconscope/internal/grid"
)

// Key layout:
//
//	m/{dataset}                              record count (uint64 BE)
//	f/{dataset}/{field}                      sort field marker
//	r/{dataset}/{id}                         record payload
//	k/{dataset}/{id}                         index keys owned by the record
//	s/{dataset}/{field}/{sortkey}\x00{id}    sort index entry, value = encoded id

// SortKey is an order-preserving byte encoding of a sort value.
type SortKey []byte

// Uint encodes v so that byte order matches numeric order.
func Uint(v uint64) SortKey {
	return binary.BigEndian.AppendUint64(nil, v)
}

// Float encodes v so that byte order matches numeric order.
func Float(v float64) SortKey {
	bits := math.Float64bits(v)
	if bits&(1<<63) != 0 {
		bits = ^bits
	} else {
		bits |= 1 << 63
	}
	return binary.BigEndian.AppendUint64(nil, bits)
}

// Text encodes s in lexical order.
func Text(s string) SortKey {
	return SortKey(s)
}

func idKey(id grid.ID) SortKey {
	if id.IsString() {
		return Text(id.String())
	}
	n, _ := id.Uint64()
	return Uint(n)
}

func metaKey(dataset string) []byte { return []byte("m/" + dataset) }

func fieldKey(dataset, field string) []byte { return []byte("f/" + dataset + "/" + field) }

func recordKey(dataset, id string) []byte { return []byte("r/" + dataset + "/" + id) }

func ownedKey(dataset, id string) []byte { return []byte("k/" + dataset + "/" + id) }

func indexPrefix(dataset, field string) []byte {
	return []byte("s/" + dataset + "/" + field + "/")
}

func indexKey(dataset, field string, sk SortKey, id grid.ID) []byte {
	key := indexPrefix(dataset, field)
	key = append(key, sk...)
	key = append(key, 0x00)
	return append(key, encodeID(id)...)
}

// prefixEnd returns the smallest key greater than every key with prefix.
func prefixEnd(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

func encodeID(id grid.ID) []byte {
	if id.IsString() {
		return append([]byte{'s'}, id.String()...)
	}
	n, _ := id.Uint64()
	return binary.BigEndian.AppendUint64([]byte{'i'}, n)
}

func decodeID(b []byte) (grid.ID, error) {
	if len(b) == 0 {
		return grid.ID{}, errors.New("empty id")
	}
	switch b[0] {
	case 's':
		return grid.StringID(string(b[1:])), nil
	case 'i':
		if len(b) != 9 {
			return grid.ID{}, errors.New("malformed integer id")
		}
		return grid.IntID(binary.BigEndian.Uint64(b[1:])), nil
	}
	return grid.ID{}, errors.New("unknown id tag")
}
