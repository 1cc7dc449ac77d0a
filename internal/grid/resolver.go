package grid

import (
	"context"
	"errors"
	"fmt"
)

// Resolver maps page settings to the ordered identifiers of one page. Pages
// in natural order over integer or epoch ranges are computed locally; every
// other page is delegated to the RangeSource.
type Resolver struct {
	source RangeSource
}

// NewResolver returns a resolver backed by source. source may be nil when
// only locally computable pages are requested.
func NewResolver(source RangeSource) *Resolver {
	return &Resolver{source: source}
}

// Resolve returns the page described by q. Failures are reported as
// *RangeResolutionError. Epoch ranges only resolve in the default order;
// any other sort fails with ErrEpochSort.
func (r *Resolver) Resolve(ctx context.Context, q Query) (Range, error) {
	rng, err := r.resolve(ctx, q)
	if err != nil {
		return nil, &RangeResolutionError{Dataset: q.Dataset, Settings: q.Settings, Err: err}
	}
	return rng, nil
}

func (r *Resolver) resolve(ctx context.Context, q Query) (Range, error) {
	s := q.Settings
	total := q.TotalCount
	if q.Kind.IsEpoch() {
		total = EpochSize
	}
	start, end, ok := Window(total, s.PageIndex, s.PageSize)
	if !ok {
		return Range{}, nil
	}

	switch {
	case q.Kind.IsEpoch():
		if !s.IsDefaultSort() {
			return nil, ErrEpochSort
		}
		if q.PathOf == nil {
			return nil, errors.New("no path template")
		}
		first := q.Kind.FirstSlot()
		return arithmetic(start, end, func(pos int) ID {
			if s.SortDesc {
				return IntID(first + uint64(EpochSize-1-pos))
			}
			return IntID(first + uint64(pos))
		}, q.PathOf), nil
	case q.Kind.Tag == KindIntegers && s.IsDefaultSort():
		if q.PathOf == nil {
			return nil, errors.New("no path template")
		}
		base := q.Kind.Base
		return arithmetic(start, end, func(pos int) ID {
			if s.SortDesc {
				return IntID(base + uint64(total-1-pos))
			}
			return IntID(base + uint64(pos))
		}, q.PathOf), nil
	}

	if r == nil || r.source == nil {
		return nil, ErrNoRangeSource
	}
	rng, err := r.source.FetchRange(ctx, q)
	if err != nil {
		return nil, err
	}
	if err := validate(rng, s.PageSize); err != nil {
		return nil, err
	}
	return rng, nil
}

// EpochMembers returns all slots of an epoch in ascending order.
func EpochMembers(kind RangeKind, pathOf func(ID) string) Range {
	first := kind.FirstSlot()
	return arithmetic(0, EpochSize, func(pos int) ID { return IntID(first + uint64(pos)) }, pathOf)
}

func arithmetic(start, end int, idAt func(int) ID, pathOf func(ID) string) Range {
	rng := make(Range, 0, end-start)
	for pos := start; pos < end; pos++ {
		id := idAt(pos)
		rng = append(rng, Entry{ID: id, Path: pathOf(id)})
	}
	return rng
}

func validate(rng Range, pageSize int) error {
	if len(rng) > pageSize {
		return fmt.Errorf("range has %d entries, page size is %d", len(rng), pageSize)
	}
	seen := make(map[ID]struct{}, len(rng))
	for _, e := range rng {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate id %s in range", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	return nil
}
