package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/indexer"
	"github.com/five82/beaconscope/internal/logtail"
	"github.com/five82/beaconscope/internal/prefs"
	"github.com/five82/beaconscope/internal/records"
	"github.com/five82/beaconscope/internal/state"
)

const (
	defaultHeaderTick = time.Second
	metaTimeout       = 10 * time.Second
)

// MetaFetcher reads the record count a grid is mounted with.
type MetaFetcher interface {
	FetchMeta(ctx context.Context, dataset string) (indexer.Meta, error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Datasets  []records.Dataset
	Env       records.Env
	Meta      MetaFetcher
	Store     *state.Store
	ThemeName string
	PrefsPath string
	// LogPath is the file the log overlay tails. Empty disables it.
	LogPath string
	Logger  *slog.Logger
	// HeaderTick is how often header counts are re-read from Store.
	HeaderTick time.Duration
}

// entry is one mounted grid. The stack holds a top-level dataset and,
// when drilled in, the epoch view opened from it.
type entry struct {
	dataset   records.Dataset
	table     grid.Table
	frame     grid.Frame
	listening bool
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	datasets   []records.Dataset
	env        records.Env
	meta       MetaFetcher
	store      *state.Store
	prefsPath  string
	logPath    string
	logger     *slog.Logger
	headerTick time.Duration

	// UI state
	theme    Theme
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	table    table.Model
	width    int
	height   int
	ready    bool
	showHelp bool
	showLogs bool
	logLines []logtail.Line
	logErr   error

	// Grid state
	active   int
	stack    []entry
	seq      uint64
	mounting bool
	mountErr error
	snapshot state.Snapshot
	notice   string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	datasets := opts.Datasets
	if len(datasets) == 0 {
		datasets = records.All()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	headerTick := opts.HeaderTick
	if headerTick <= 0 {
		headerTick = defaultHeaderTick
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	env := opts.Env
	if env.PageSize <= 0 {
		env.PageSize = grid.PageSizeOptions[0]
	}

	m := Model{
		ctx:        ctx,
		datasets:   datasets,
		env:        env,
		meta:       opts.Meta,
		store:      opts.Store,
		prefsPath:  prefsPath,
		logPath:    opts.LogPath,
		logger:     logger,
		headerTick: headerTick,
		theme:      GetTheme(opts.ThemeName),
		keys:       DefaultKeyMap(),
		help:       help.New(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		table:      table.New(table.WithFocused(true)),
		seq:        1,
		mounting:   true,
	}
	m.applyTheme()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		tickCmd(m.headerTick),
		m.mountCmd(m.seq, m.datasets[m.active], false),
	}
	if m.store != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.resizeTable()
		return m, nil

	case tickMsg:
		var cmds []tea.Cmd
		if m.store != nil {
			cmds = append(cmds, fetchSnapshotCmd(m.store))
		}
		cmds = append(cmds, tickCmd(m.headerTick))
		return m, tea.Batch(cmds...)

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case mountedMsg:
		return m.handleMounted(msg)

	case frameMsg:
		return m.handleFrame(msg)

	case logLinesMsg:
		m.logLines, m.logErr = msg.lines, msg.err
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.showLogs {
		return m.renderLogs()
	}
	return m.renderMain()
}

// current returns the grid being shown, or nil while the first mount of a
// dataset is in flight.
func (m *Model) current() *entry {
	if len(m.stack) == 0 {
		return nil
	}
	return &m.stack[len(m.stack)-1]
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.showLogs {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.closeAll()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reload):
			return m, readLogsCmd(m.logPath, m.logRows())
		}
		m.showLogs = false
		return m, nil
	}
	m.notice = ""

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeAll()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.Logs):
		if m.logPath == "" {
			m.notice = "logging is disabled"
			return m, nil
		}
		m.showLogs = true
		return m, readLogsCmd(m.logPath, m.logRows())
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.applyTheme()
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.NextTab):
		return m.switchTab((m.active + 1) % len(m.datasets))
	case key.Matches(msg, m.keys.PrevTab):
		return m.switchTab((m.active - 1 + len(m.datasets)) % len(m.datasets))
	case key.Matches(msg, m.keys.Jump):
		if i := int(msg.String()[0] - '1'); i < len(m.datasets) {
			return m.switchTab(i)
		}
		return m, nil
	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	case key.Matches(msg, m.keys.Back):
		return m.back()
	}

	cur := m.current()
	if cur == nil {
		return m, nil
	}
	t := cur.table

	switch {
	case key.Matches(msg, m.keys.NextPage):
		t.NextPage()
	case key.Matches(msg, m.keys.PrevPage):
		t.PreviousPage()
	case key.Matches(msg, m.keys.FirstPage):
		t.FirstPage()
	case key.Matches(msg, m.keys.LastPage):
		t.LastPage()
	case key.Matches(msg, m.keys.Grow):
		m.stepPageSize(t, cur.frame.PageSize, 1)
	case key.Matches(msg, m.keys.Shrink):
		m.stepPageSize(t, cur.frame.PageSize, -1)
	case key.Matches(msg, m.keys.CycleSort):
		id, ok := nextSort(cur.dataset.Sortable(), cur.frame.SortID)
		if !ok {
			m.notice = "no sortable columns"
		} else if id == grid.DefaultSort {
			t.ClearSort()
		} else {
			t.SetSort(id, true)
		}
	case key.Matches(msg, m.keys.ToggleDesc):
		t.SetSort(cur.frame.SortID, !cur.frame.SortDesc)
	case key.Matches(msg, m.keys.ClearSort):
		t.ClearSort()
	case key.Matches(msg, m.keys.Drill):
		return m.drill()
	default:
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}

	m.syncFrame()
	return m, nil
}

// stepPageSize moves to the neighbouring page size option and remembers it
// for the next mount.
func (m *Model) stepPageSize(t grid.Table, current, dir int) {
	opts := grid.PageSizeOptions
	i := 0
	for i < len(opts)-1 && opts[i] < current {
		i++
	}
	i = min(max(i+dir, 0), len(opts)-1)
	if opts[i] == current {
		return
	}
	t.SetPageSize(opts[i])
	m.env.PageSize = opts[i]
	m.resizeTable()
	m.savePrefs()
}

// nextSort returns the sortable column after current, wrapping back to the
// default order.
func nextSort(sortable []string, current string) (string, bool) {
	if len(sortable) == 0 {
		return "", false
	}
	if current == "" {
		current = grid.DefaultSort
	}
	for i, id := range sortable {
		if id == current {
			return sortable[(i+1)%len(sortable)], true
		}
	}
	return sortable[0], true
}

func (m Model) switchTab(i int) (tea.Model, tea.Cmd) {
	if i == m.active && len(m.stack) == 1 {
		return m, nil
	}
	m.closeAll()
	m.active = i
	m.seq++
	m.mounting = true
	m.mountErr = nil
	m.syncFrame()
	return m, m.mountCmd(m.seq, m.datasets[i], false)
}

// reload remounts the top-level dataset with a fresh record count; inside
// an epoch it refetches the current page.
func (m Model) reload() (tea.Model, tea.Cmd) {
	if len(m.stack) > 1 {
		m.current().table.Refresh()
		m.syncFrame()
		return m, nil
	}
	m.closeAll()
	m.seq++
	m.mounting = true
	m.mountErr = nil
	return m, m.mountCmd(m.seq, m.datasets[m.active], false)
}

func (m Model) drill() (tea.Model, tea.Cmd) {
	cur := m.current()
	if cur == nil || cur.dataset.Drill == "" || len(m.stack) > 1 {
		return m, nil
	}
	rows := cur.frame.Rows
	i := m.table.Cursor()
	if i < 0 || i >= len(rows) {
		return m, nil
	}
	epoch, ok := rows[i].ID.Uint64()
	if !ok {
		return m, nil
	}
	m.seq++
	m.mounting = true
	m.mountErr = nil
	return m, m.mountCmd(m.seq, records.EpochBlocks(epoch), true)
}

func (m Model) back() (tea.Model, tea.Cmd) {
	if len(m.stack) < 2 {
		return m, nil
	}
	top := m.stack[len(m.stack)-1]
	top.table.Close()
	m.stack = m.stack[:len(m.stack)-1]
	m.seq++
	m.mounting = false
	m.mountErr = nil
	m.syncFrame()
	return m, m.listen()
}

func (m *Model) closeAll() {
	for _, e := range m.stack {
		e.table.Close()
	}
	m.stack = nil
}

func (m Model) handleMounted(msg mountedMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.seq {
		if msg.table != nil {
			msg.table.Close()
		}
		return m, nil
	}
	m.mounting = false
	if msg.err != nil {
		m.mountErr = msg.err
		m.logger.Warn("mount failed", "dataset", msg.dataset.Name, "error", msg.err)
		return m, nil
	}
	m.mountErr = nil
	e := entry{dataset: msg.dataset, table: msg.table}
	if msg.push {
		m.stack = append(m.stack, e)
	} else {
		m.stack = []entry{e}
	}
	m.syncFrame()
	return m, m.listen()
}

func (m Model) handleFrame(msg frameMsg) (tea.Model, tea.Cmd) {
	for i := range m.stack {
		if m.stack[i].table != msg.table {
			continue
		}
		m.stack[i].listening = false
		if msg.closed || i != len(m.stack)-1 {
			return m, nil
		}
		m.syncFrame()
		return m, m.listen()
	}
	return m, nil
}

// listen waits for the next update of the visible grid unless a wait is
// already pending for it.
func (m *Model) listen() tea.Cmd {
	cur := m.current()
	if cur == nil || cur.listening {
		return nil
	}
	cur.listening = true
	return waitForFrame(cur.table)
}

// syncFrame copies the visible grid's frame into the table widget.
func (m *Model) syncFrame() {
	cur := m.current()
	if cur == nil {
		m.table.SetRows(nil)
		m.table.SetColumns(nil)
		return
	}
	prev := cur.frame
	cur.frame = cur.table.Frame()
	f := cur.frame

	cursor := m.table.Cursor()
	if prev.Dataset != f.Dataset || prev.PageIndex != f.PageIndex || prev.SortID != f.SortID || prev.SortDesc != f.SortDesc {
		cursor = 0
	}
	m.table.SetStyles(m.theme.TableStyles(f.Stale()))
	// Rows go first: the widget indexes columns by row cell.
	m.table.SetRows(nil)
	m.table.SetColumns(tableColumns(f))
	m.table.SetRows(tableRows(f))
	m.table.SetCursor(max(cursor, 0))
	m.resizeTable()
}

func (m *Model) applyTheme() {
	styles := m.theme.Styles()
	m.spinner.Style = styles.AccentText
	m.help.Styles.ShortKey = styles.AccentText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
	m.help.Styles.FullKey = styles.WarningText
	m.help.Styles.FullDesc = styles.Text
	m.help.Styles.FullSeparator = styles.FaintText
	stale := false
	if cur := m.current(); cur != nil {
		stale = cur.frame.Stale()
	}
	m.table.SetStyles(m.theme.TableStyles(stale))
}

// resizeTable fits the widget between the header and footer, never taller
// than one page.
func (m *Model) resizeTable() {
	if m.width > 0 {
		m.table.SetWidth(m.width)
	}
	avail := m.height - chromeHeight
	if avail < 3 {
		avail = 3
	}
	m.table.SetHeight(min(avail, m.env.PageSize+2))
}

// logRows is how many log lines fit under the overlay title.
func (m Model) logRows() int {
	return max(m.height-4, 1)
}

func (m Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name, PageSize: m.env.PageSize}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", "error", err)
	}
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

type mountedMsg struct {
	seq     uint64
	dataset records.Dataset
	table   grid.Table
	push    bool
	err     error
}

type frameMsg struct {
	table  grid.Table
	closed bool
}

type logLinesMsg struct {
	lines []logtail.Line
	err   error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(store.Snapshot())
	}
}

// mountCmd reads the dataset's record count and mounts its grid. Epoch
// views always hold EpochSize rows and skip the metadata round trip.
func (m Model) mountCmd(seq uint64, ds records.Dataset, push bool) tea.Cmd {
	ctx, env, meta := m.ctx, m.env, m.meta
	return func() tea.Msg {
		msg := mountedMsg{seq: seq, dataset: ds, push: push}
		total := grid.EpochSize
		if !ds.Kind.IsEpoch() {
			if meta == nil {
				msg.err = fmt.Errorf("no metadata source for %s", ds.Name)
				return msg
			}
			metaCtx, cancel := context.WithTimeout(ctx, metaTimeout)
			info, err := meta.FetchMeta(metaCtx, ds.Name)
			cancel()
			if err != nil {
				msg.err = fmt.Errorf("fetch %s metadata: %w", ds.Name, err)
				return msg
			}
			total = info.Count
		}
		msg.table, msg.err = ds.Mount(ctx, env, total)
		return msg
	}
}

func readLogsCmd(path string, n int) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, n)
		return logLinesMsg{lines: lines, err: err}
	}
}

// waitForFrame blocks until t publishes a change.
func waitForFrame(t grid.Table) tea.Cmd {
	return func() tea.Msg {
		_, ok := <-t.Updates()
		return frameMsg{table: t, closed: !ok}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.closeAll()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}

var _ tea.Model = Model{}
