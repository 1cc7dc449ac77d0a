package grid

// Pagination holds the page index, page size and sort column of one grid.
// It is not safe for concurrent use; the Controller guards it with its mutex.
type Pagination struct {
	settings    PageSettings
	totalCount  int
	defaultSort string
	defaultDesc bool
}

// NewPagination returns a state holder positioned on page 0 in the default sort.
func NewPagination(totalCount, pageSize int, defaultSort string, defaultDesc bool) *Pagination {
	if pageSize <= 0 {
		pageSize = PageSizeOptions[0]
	}
	if totalCount < 0 {
		totalCount = 0
	}
	if defaultSort == "" {
		defaultSort = DefaultSort
	}
	return &Pagination{
		settings: PageSettings{
			PageSize: pageSize,
			SortID:   defaultSort,
			SortDesc: defaultDesc,
		},
		totalCount:  totalCount,
		defaultSort: defaultSort,
		defaultDesc: defaultDesc,
	}
}

// PageCount returns ceil(total/size), or 0 when either is not positive.
func PageCount(total, size int) int {
	if total <= 0 || size <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Window returns the half-open position window [start, end) of page
// pageIndex. ok is false when the page lies past the end of the data.
func Window(total, pageIndex, pageSize int) (start, end int, ok bool) {
	if total <= 0 || pageSize <= 0 || pageIndex < 0 {
		return 0, 0, false
	}
	start = pageIndex * pageSize
	if start >= total {
		return 0, 0, false
	}
	return start, min(start+pageSize, total), true
}

func (p *Pagination) Settings() PageSettings { return p.settings }

func (p *Pagination) TotalCount() int { return p.totalCount }

func (p *Pagination) PageCount() int { return PageCount(p.totalCount, p.settings.PageSize) }

// SetPageIndex moves to page i, clamped to the valid range. It reports
// whether the settings changed.
func (p *Pagination) SetPageIndex(i int) bool {
	return p.apply(func(s *PageSettings) {
		s.PageIndex = p.clamp(i)
	})
}

// SetPageSize changes the page size while keeping the first visible row on
// screen. Non-positive sizes are ignored.
func (p *Pagination) SetPageSize(n int) bool {
	if n <= 0 {
		return false
	}
	return p.apply(func(s *PageSettings) {
		first := s.PageIndex * s.PageSize
		s.PageSize = n
		s.PageIndex = p.clamp(first / n)
	})
}

// SetSort orders by column id (empty means the default sort) and returns to
// page 0.
func (p *Pagination) SetSort(id string, desc bool) bool {
	if id == "" {
		id = p.defaultSort
	}
	return p.apply(func(s *PageSettings) {
		s.SortID = id
		s.SortDesc = desc
		s.PageIndex = 0
	})
}

// ClearSort restores the dataset's default order and returns to page 0.
func (p *Pagination) ClearSort() bool {
	return p.SetSort(p.defaultSort, p.defaultDesc)
}

func (p *Pagination) NextPage() bool { return p.SetPageIndex(p.settings.PageIndex + 1) }

func (p *Pagination) PreviousPage() bool { return p.SetPageIndex(p.settings.PageIndex - 1) }

func (p *Pagination) FirstPage() bool { return p.SetPageIndex(0) }

func (p *Pagination) LastPage() bool { return p.SetPageIndex(p.PageCount() - 1) }

func (p *Pagination) CanNextPage() bool { return p.settings.PageIndex+1 < p.PageCount() }

func (p *Pagination) CanPreviousPage() bool { return p.settings.PageIndex > 0 }

func (p *Pagination) apply(fn func(*PageSettings)) bool {
	before := p.settings
	fn(&p.settings)
	return p.settings != before
}

func (p *Pagination) clamp(i int) int {
	last := p.PageCount() - 1
	if i > last {
		i = last
	}
	if i < 0 {
		i = 0
	}
	return i
}
