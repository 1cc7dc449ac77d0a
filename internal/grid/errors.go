package grid

import (
	"errors"
	"fmt"
)

// ErrNoRangeSource is returned when a page needs a server round trip but the
// resolver has no RangeSource.
var ErrNoRangeSource = errors.New("no range source configured")

// ErrEpochSort is returned when an epoch page is requested in a column
// order. Those pages are sorted by the Controller over EpochMembers.
var ErrEpochSort = errors.New("epoch sorts are applied by the controller")

// RangeResolutionError reports a failure to compute which identifiers belong
// to a page. The previously displayed page stays visible.
type RangeResolutionError struct {
	Dataset  string
	Settings PageSettings
	Err      error
}

func (e *RangeResolutionError) Error() string {
	return fmt.Sprintf("resolve %s page %d (size %d, sort %s): %v",
		e.Dataset, e.Settings.PageIndex, e.Settings.PageSize, sortLabel(e.Settings), e.Err)
}

func (e *RangeResolutionError) Unwrap() error { return e.Err }

// RowFetchError reports that one record could not be retrieved.
type RowFetchError struct {
	ID   ID
	Path string
	Err  error
}

func (e *RowFetchError) Error() string {
	return fmt.Sprintf("fetch %s (%s): %v", e.ID, e.Path, e.Err)
}

func (e *RowFetchError) Unwrap() error { return e.Err }

// RowDecodeError reports that one record's bytes did not parse.
type RowDecodeError struct {
	ID  ID
	Err error
}

func (e *RowDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.ID, e.Err)
}

func (e *RowDecodeError) Unwrap() error { return e.Err }

func sortLabel(s PageSettings) string {
	dir := "asc"
	if s.SortDesc {
		dir = "desc"
	}
	id := s.SortID
	if id == "" {
		id = DefaultSort
	}
	return id + " " + dir
}
