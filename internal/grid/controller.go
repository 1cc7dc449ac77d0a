package grid

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 8

// Options configures a Controller.
type Options[T any] struct {
	Dataset     string
	Kind        RangeKind
	TotalCount  int
	PageSize    int
	DefaultSort string
	DefaultDesc bool
	Columns     []Column[T]
	PathOf      func(ID) string
	Decoder     Decoder[T]
	Resolver    *Resolver
	Fetcher     BufferFetcher
	Cache       *RowCache[T]
	Concurrency int
	Logger      *slog.Logger
}

// View is a consistent snapshot of what a grid should display.
type View[T any] struct {
	Dataset    string
	Columns    []Column[T]
	Rows       []Row[T]
	Settings   PageSettings
	TotalCount int
	PageCount  int
	Phase      Phase
	Generation uint64
	// Err is the most recent range failure, cleared by the next resolved range.
	Err      error
	Failures int
}

type cycle[T any] struct {
	gen       uint64
	settings  PageSettings
	total     int
	phase     Phase
	rows      []Row[T]
	localSort bool
	cancel    context.CancelFunc
}

// Controller drives fetch cycles for one mounted grid. Every change of the
// page settings starts a new generation; results from older generations are
// dropped.
type Controller[T any] struct {
	opts    Options[T]
	logger  *slog.Logger
	updates chan struct{}

	mu         sync.Mutex
	pagination *Pagination
	generation uint64
	current    *cycle[T]
	committed  *cycle[T]
	// shown holds what a superseded cycle was displaying while nothing has
	// been committed yet. It stands in until the new cycle has rows.
	shown    []Row[T]
	lastErr  error
	failures int
	baseCtx  context.Context
	closed   bool

	wg sync.WaitGroup
}

// NewController validates opts and returns an idle controller. Call Start
// to run the first cycle.
func NewController[T any](opts Options[T]) (*Controller[T], error) {
	if opts.Dataset == "" {
		return nil, errors.New("dataset is required")
	}
	if opts.Decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if opts.Fetcher == nil {
		return nil, errors.New("fetcher is required")
	}
	if opts.PathOf == nil {
		return nil, errors.New("path template is required")
	}
	if opts.Resolver == nil {
		opts.Resolver = NewResolver(nil)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	total := opts.TotalCount
	if opts.Kind.IsEpoch() {
		total = EpochSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller[T]{
		opts:       opts,
		logger:     logger.With("component", "grid", "dataset", opts.Dataset),
		updates:    make(chan struct{}, 1),
		pagination: NewPagination(total, opts.PageSize, opts.DefaultSort, opts.DefaultDesc),
	}, nil
}

// Start runs the first cycle. Cycles are bound to ctx.
func (c *Controller[T]) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.baseCtx != nil {
		return
	}
	c.baseCtx = ctx
	c.startCycleLocked()
}

// Close cancels the running cycle, waits for its workers and closes the
// Updates channel.
func (c *Controller[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.current != nil {
		c.current.cancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	close(c.updates)
}

// Updates signals that View may have changed. Notifications coalesce.
func (c *Controller[T]) Updates() <-chan struct{} { return c.updates }

func (c *Controller[T]) SetPageIndex(i int) {
	c.mutate(func(p *Pagination) bool { return p.SetPageIndex(i) })
}

func (c *Controller[T]) SetPageSize(n int) {
	c.mutate(func(p *Pagination) bool { return p.SetPageSize(n) })
}

func (c *Controller[T]) SetSort(id string, desc bool) {
	c.mutate(func(p *Pagination) bool { return p.SetSort(id, desc) })
}

func (c *Controller[T]) ClearSort() { c.mutate((*Pagination).ClearSort) }

func (c *Controller[T]) NextPage() { c.mutate((*Pagination).NextPage) }

func (c *Controller[T]) PreviousPage() { c.mutate((*Pagination).PreviousPage) }

func (c *Controller[T]) FirstPage() { c.mutate((*Pagination).FirstPage) }

func (c *Controller[T]) LastPage() { c.mutate((*Pagination).LastPage) }

// Refresh re-runs the cycle for the current settings.
func (c *Controller[T]) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startCycleLocked()
}

// Settings returns the current page settings.
func (c *Controller[T]) Settings() PageSettings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pagination.Settings()
}

func (c *Controller[T]) mutate(fn func(*Pagination) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !fn(c.pagination) {
		return
	}
	c.startCycleLocked()
}

// View returns the rows to display. While a newer cycle is in flight the
// last committed rows are returned marked stale; before anything has been
// committed the partial in-flight rows are returned instead, or the rows a
// superseded cycle was showing until the new range arrives.
func (c *Controller[T]) View() View[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View[T]{
		Dataset:    c.opts.Dataset,
		Columns:    c.opts.Columns,
		Settings:   c.pagination.Settings(),
		TotalCount: c.pagination.TotalCount(),
		PageCount:  c.pagination.PageCount(),
		Generation: c.generation,
		Err:        c.lastErr,
		Failures:   c.failures,
	}
	cur := c.current
	if cur == nil {
		return v
	}
	v.Phase = cur.phase
	v.Rows = c.rowsLocked(cur)
	return v
}

func (c *Controller[T]) rowsLocked(cur *cycle[T]) []Row[T] {
	switch {
	case cur == c.committed:
		return slices.Clone(cur.rows)
	case c.committed != nil:
		return markStale(slices.Clone(c.committed.rows), cur.phase != PhaseFailed)
	case cur.localSort:
		return placeholders[T](cur)
	case cur.rows == nil && c.shown != nil:
		return markStale(slices.Clone(c.shown), cur.phase != PhaseFailed)
	default:
		return slices.Clone(cur.rows)
	}
}

// markStale sets every row's Stale flag. Rows kept on screen after a range
// failure are not stale since nothing newer is coming.
func markStale[T any](rows []Row[T], stale bool) []Row[T] {
	for i := range rows {
		rows[i].Stale = stale
	}
	return rows
}

func (c *Controller[T]) startCycleLocked() {
	if c.closed || c.baseCtx == nil {
		return
	}
	if c.current != nil {
		if c.committed == nil {
			if rows := c.rowsLocked(c.current); len(rows) > 0 {
				c.shown = rows
			}
		}
		c.current.cancel()
	}
	c.generation++
	ctx, cancel := context.WithCancel(c.baseCtx)
	settings := c.pagination.Settings()
	cy := &cycle[T]{
		gen:       c.generation,
		settings:  settings,
		total:     c.pagination.TotalCount(),
		phase:     PhaseResolvingRange,
		localSort: c.opts.Kind.IsEpoch() && !settings.IsDefaultSort(),
		cancel:    cancel,
	}
	c.current = cy
	c.logger.Debug("cycle started",
		"generation", cy.gen,
		"page", settings.PageIndex,
		"size", settings.PageSize,
		"sort", settings.SortID,
		"desc", settings.SortDesc)

	c.wg.Add(1)
	go c.run(ctx, cy)
	c.notifyLocked()
}

func (c *Controller[T]) run(ctx context.Context, cy *cycle[T]) {
	defer c.wg.Done()
	defer cy.cancel()

	var (
		rng Range
		err error
	)
	if cy.localSort {
		rng = EpochMembers(c.opts.Kind, c.opts.PathOf)
	} else {
		rng, err = c.opts.Resolver.Resolve(ctx, Query{
			Dataset:    c.opts.Dataset,
			Kind:       c.opts.Kind,
			Settings:   cy.settings,
			TotalCount: cy.total,
			PathOf:     c.opts.PathOf,
		})
	}
	if err != nil {
		c.failRange(cy, err)
		return
	}

	pending, ok := c.rangeReady(cy, rng)
	if !ok {
		return
	}

	var g errgroup.Group
	g.SetLimit(c.opts.Concurrency)
	for _, i := range pending {
		e := rng[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			value, err := c.load(ctx, e)
			c.commitRow(cy, i, value, err)
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return
	}
	c.settle(cy)
}

func (c *Controller[T]) load(ctx context.Context, e Entry) (T, error) {
	var zero T
	buf, err := c.opts.Fetcher.FetchBuffer(ctx, e.ID, e.Path)
	if err != nil {
		return zero, &RowFetchError{ID: e.ID, Path: e.Path, Err: err}
	}
	value, err := c.opts.Decoder(e.ID, buf.Bytes)
	if err != nil {
		return zero, &RowDecodeError{ID: e.ID, Err: err}
	}
	c.opts.Cache.Add(c.opts.Dataset, e.ID, e.Path, value)
	return value, nil
}

func (c *Controller[T]) failRange(cy *cycle[T], err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cy.gen != c.generation || c.closed {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	cy.phase = PhaseFailed
	c.lastErr = err
	c.failures++
	c.logger.Warn("range resolution failed",
		"generation", cy.gen,
		"failures", c.failures,
		"error", err)
	c.notifyLocked()
}

// rangeReady allocates the results array for rng, fills it from the cache
// and returns the positions that still need fetching.
func (c *Controller[T]) rangeReady(cy *cycle[T], rng Range) ([]int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cy.gen != c.generation || c.closed {
		return nil, false
	}
	c.lastErr = nil
	c.failures = 0

	rows := make([]Row[T], len(rng))
	var pending []int
	for i, e := range rng {
		rows[i] = Row[T]{Index: i, ID: e.ID, Path: e.Path}
		if value, ok := c.opts.Cache.Get(c.opts.Dataset, e.ID, e.Path); ok {
			rows[i].Value = value
			rows[i].Loaded = true
			continue
		}
		pending = append(pending, i)
	}
	cy.rows = rows
	cy.phase = PhaseRangeReady
	if len(pending) > 0 {
		cy.phase = PhaseFetchingRows
	}
	c.notifyLocked()
	return pending, true
}

func (c *Controller[T]) commitRow(cy *cycle[T], i int, value T, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cy.gen != c.generation || c.closed {
		return
	}
	row := cy.rows[i]
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		row.Err = err
		c.logger.Debug("row failed", "id", row.ID.String(), "error", err)
	} else {
		row.Value = value
		row.Loaded = true
		row.Err = nil
	}
	cy.rows[i] = row
	c.notifyLocked()
}

func (c *Controller[T]) settle(cy *cycle[T]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cy.gen != c.generation || c.closed {
		return
	}
	if cy.localSort {
		cy.rows = c.sortWindow(cy.rows, cy.settings)
	}
	cy.phase = PhaseSettled
	c.committed = cy
	c.shown = nil
	c.notifyLocked()
}

// sortWindow orders every member of an epoch by the sort column and cuts
// out the requested page.
func (c *Controller[T]) sortWindow(rows []Row[T], s PageSettings) []Row[T] {
	var less func(a, b T) bool
	for _, col := range c.opts.Columns {
		if col.ID == s.SortID {
			less = col.Less
			break
		}
	}
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b Row[T]) int {
		return compareRows(a, b, less, s.SortDesc)
	})
	start, end, ok := Window(len(sorted), s.PageIndex, s.PageSize)
	if !ok {
		return []Row[T]{}
	}
	page := sorted[start:end]
	for i := range page {
		page[i].Index = i
	}
	return page
}

func compareRows[T any](a, b Row[T], less func(a, b T) bool, desc bool) int {
	if a.Loaded != b.Loaded {
		if a.Loaded {
			return -1
		}
		return 1
	}
	c := 0
	if a.Loaded && less != nil {
		switch {
		case less(a.Value, b.Value):
			c = -1
		case less(b.Value, a.Value):
			c = 1
		}
	}
	if c == 0 {
		c = a.ID.Compare(b.ID)
	}
	if desc {
		c = -c
	}
	return c
}

// placeholders stands in for an epoch page whose order is unknown until
// every member has loaded.
func placeholders[T any](cy *cycle[T]) []Row[T] {
	start, end, ok := Window(EpochSize, cy.settings.PageIndex, cy.settings.PageSize)
	if !ok {
		return nil
	}
	rows := make([]Row[T], end-start)
	for i := range rows {
		rows[i].Index = i
	}
	return rows
}

func (c *Controller[T]) notifyLocked() {
	if c.closed {
		return
	}
	select {
	case c.updates <- struct{}{}:
	default:
	}
}
