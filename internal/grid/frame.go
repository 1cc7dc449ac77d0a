package grid

// Table is the type-erased surface a rendering layer drives. Every
// *Controller[T] implements it.
type Table interface {
	Frame() Frame
	Updates() <-chan struct{}
	SetPageIndex(i int)
	SetPageSize(n int)
	SetSort(id string, desc bool)
	ClearSort()
	NextPage()
	PreviousPage()
	FirstPage()
	LastPage()
	Refresh()
	Close()
}

var _ Table = (*Controller[struct{}])(nil)

// FrameColumn describes one rendered column.
type FrameColumn struct {
	ID       string
	Header   string
	Width    int
	Sortable bool
}

// FrameRow is one row rendered to strings. Cells is nil while the row has
// not loaded.
type FrameRow struct {
	Index  int
	ID     ID
	Cells  []string
	Loaded bool
	Stale  bool
	Err    error
}

// Frame is a display-ready snapshot of a grid.
type Frame struct {
	Dataset    string
	Columns    []FrameColumn
	Rows       []FrameRow
	PageIndex  int
	PageSize   int
	PageCount  int
	TotalCount int
	SortID     string
	SortDesc   bool
	Phase      Phase
	Generation uint64
	Err        error
	Failures   int
}

// CanNextPage reports whether a later page exists.
func (f Frame) CanNextPage() bool { return f.PageIndex+1 < f.PageCount }

// CanPreviousPage reports whether an earlier page exists.
func (f Frame) CanPreviousPage() bool { return f.PageIndex > 0 }

// Stale reports whether the rows belong to an older cycle.
func (f Frame) Stale() bool {
	return len(f.Rows) > 0 && f.Rows[0].Stale
}

// Frame renders the current View to strings.
func (c *Controller[T]) Frame() Frame {
	v := c.View()
	f := Frame{
		Dataset:    v.Dataset,
		Columns:    make([]FrameColumn, len(v.Columns)),
		Rows:       make([]FrameRow, len(v.Rows)),
		PageIndex:  v.Settings.PageIndex,
		PageSize:   v.Settings.PageSize,
		PageCount:  v.PageCount,
		TotalCount: v.TotalCount,
		SortID:     v.Settings.SortID,
		SortDesc:   v.Settings.SortDesc,
		Phase:      v.Phase,
		Generation: v.Generation,
		Err:        v.Err,
		Failures:   v.Failures,
	}
	for i, col := range v.Columns {
		f.Columns[i] = FrameColumn{ID: col.ID, Header: col.Header, Width: col.Width, Sortable: col.Sortable}
	}
	for i, row := range v.Rows {
		fr := FrameRow{Index: row.Index, ID: row.ID, Loaded: row.Loaded, Stale: row.Stale, Err: row.Err}
		if row.Loaded {
			fr.Cells = make([]string, len(v.Columns))
			for j, col := range v.Columns {
				if col.Cell != nil {
					fr.Cells[j] = col.Cell(row.Value)
				}
			}
		}
		f.Rows[i] = fr
	}
	return f
}
