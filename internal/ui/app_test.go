package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/indexer"
	"github.com/five82/beaconscope/internal/records"
)

type fakeTable struct {
	mu      sync.Mutex
	frame   grid.Frame
	calls   []string
	updates chan struct{}
	closed  bool
}

func newFakeTable(f grid.Frame) *fakeTable {
	return &fakeTable{frame: f, updates: make(chan struct{}, 1)}
}

func (t *fakeTable) record(call string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, call)
}

func (t *fakeTable) Frame() grid.Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frame
}

func (t *fakeTable) Updates() <-chan struct{}     { return t.updates }
func (t *fakeTable) SetPageIndex(i int)           { t.record("index") }
func (t *fakeTable) SetPageSize(n int)            { t.record("size:" + itoa(n)) }
func (t *fakeTable) SetSort(id string, desc bool) { t.record("sort:" + id + ":" + boolText(desc)) }
func (t *fakeTable) ClearSort()                   { t.record("clear") }
func (t *fakeTable) NextPage()                    { t.record("next") }
func (t *fakeTable) PreviousPage()                { t.record("prev") }
func (t *fakeTable) FirstPage()                   { t.record("first") }
func (t *fakeTable) LastPage()                    { t.record("last") }
func (t *fakeTable) Refresh()                     { t.record("refresh") }

func (t *fakeTable) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed {
		t.closed = true
		close(t.updates)
	}
}

func (t *fakeTable) Calls() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func itoa(n int) string {
	return records.FormatCount(n)
}

func boolText(b bool) string {
	if b {
		return "desc"
	}
	return "asc"
}

type fakeMeta struct{ count int }

func (f fakeMeta) FetchMeta(context.Context, string) (indexer.Meta, error) {
	return indexer.Meta{Count: f.count}, nil
}

func epochFrame() grid.Frame {
	return grid.Frame{
		Dataset: records.Epochs,
		Columns: []grid.FrameColumn{
			{ID: grid.DefaultSort, Header: "Epoch", Width: 8, Sortable: true},
			{ID: "attestationsCount", Header: "Attestations", Width: 12, Sortable: true},
			{ID: "timestamp", Header: "Time (UTC)", Width: 19},
		},
		Rows: []grid.FrameRow{
			{Index: 0, ID: grid.IntID(12), Loaded: true, Cells: []string{"12", "4,000", "2020-12-01 12:00:23"}},
			{Index: 1, ID: grid.IntID(11)},
			{Index: 2, ID: grid.IntID(10), Err: errors.New("fetch 10: boom")},
		},
		PageIndex:  0,
		PageSize:   10,
		PageCount:  2,
		TotalCount: 13,
		SortID:     grid.DefaultSort,
		SortDesc:   true,
		Phase:      grid.PhaseFetchingRows,
		Generation: 1,
		Failures:   1,
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()
	m := New(Options{
		Meta:      fakeMeta{count: 13},
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 160, Height: 40})
	return next.(Model)
}

func mount(t *testing.T, m Model, tbl *fakeTable, push bool) Model {
	t.Helper()
	ds := m.datasets[m.active]
	if push {
		ds = records.EpochBlocks(12)
	}
	next, cmd := m.Update(mountedMsg{seq: m.seq, dataset: ds, table: tbl, push: push})
	if cmd == nil {
		t.Fatalf("mountedMsg returned no listen command")
	}
	return next.(Model)
}

func press(m Model, keys string) Model {
	var msg tea.KeyMsg
	switch keys {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)}
	}
	next, _ := m.Update(msg)
	return next.(Model)
}

func TestTableRowsPlaceholdersAndErrors(t *testing.T) {
	rows := tableRows(epochFrame())
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0][1] != "4,000" {
		t.Fatalf("loaded row = %v, want cells as rendered", rows[0])
	}
	if rows[1][0] != "11" || rows[1][1] != placeholderCell || rows[1][2] != placeholderCell {
		t.Fatalf("placeholder row = %v, want id then placeholders", rows[1])
	}
	if rows[2][0] != "10" || !strings.Contains(rows[2][1], "boom") || rows[2][2] != "" {
		t.Fatalf("failed row = %v, want id then error", rows[2])
	}
}

func TestTableColumnsMarkSort(t *testing.T) {
	f := epochFrame()
	cols := tableColumns(f)
	if cols[0].Title != "Epoch"+sortDesc {
		t.Fatalf("cols[0].Title = %q, want %q", cols[0].Title, "Epoch"+sortDesc)
	}
	if cols[1].Title != "Attestations" {
		t.Fatalf("cols[1].Title = %q, want unmarked", cols[1].Title)
	}

	f.SortID, f.SortDesc = "attestationsCount", false
	cols = tableColumns(f)
	if cols[1].Title != "Attestations"+sortAsc || cols[1].Width < len("Attestations")+2 {
		t.Fatalf("cols[1] = %+v, want ascending mark and room for it", cols[1])
	}
}

func TestNextSortCyclesThroughSortable(t *testing.T) {
	sortable := []string{grid.DefaultSort, "balance", "effectiveBalance"}
	tests := []struct {
		current string
		want    string
	}{
		{"", "balance"},
		{grid.DefaultSort, "balance"},
		{"balance", "effectiveBalance"},
		{"effectiveBalance", grid.DefaultSort},
		{"gone", grid.DefaultSort},
	}
	for _, tt := range tests {
		got, ok := nextSort(sortable, tt.current)
		if !ok || got != tt.want {
			t.Fatalf("nextSort(%q) = %q, %v, want %q", tt.current, got, ok, tt.want)
		}
	}
	if _, ok := nextSort(nil, ""); ok {
		t.Fatalf("nextSort(nil) ok = true, want false")
	}
}

func TestKeysDriveTable(t *testing.T) {
	m := newTestModel(t)
	tbl := newFakeTable(epochFrame())
	m = mount(t, m, tbl, false)

	for _, k := range []string{"right", "p", "<", ">", "s", "o", "x", "+"} {
		m = press(m, k)
	}

	want := []string{"next", "prev", "first", "last", "sort:attestationsCount:desc", "sort:default:asc", "clear", "size:20"}
	got := tbl.Calls()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", got, want)
	}
	if m.env.PageSize != 20 {
		t.Fatalf("env.PageSize = %d, want 20 for later mounts", m.env.PageSize)
	}
}

func TestStaleMountIsClosed(t *testing.T) {
	m := newTestModel(t)
	current := newFakeTable(epochFrame())
	m = mount(t, m, current, false)

	late := newFakeTable(epochFrame())
	next, _ := m.Update(mountedMsg{seq: m.seq - 1, dataset: m.datasets[0], table: late})
	m = next.(Model)

	if !late.closed {
		t.Fatalf("superseded mount was not closed")
	}
	if m.current().table != current {
		t.Fatalf("superseded mount replaced the visible grid")
	}
}

func TestTabSwitchClosesGrid(t *testing.T) {
	m := newTestModel(t)
	tbl := newFakeTable(epochFrame())
	m = mount(t, m, tbl, false)
	seq := m.seq

	m = press(m, "tab")
	if !tbl.closed {
		t.Fatalf("previous grid not closed on tab switch")
	}
	if m.active != 1 || m.seq != seq+1 || m.current() != nil {
		t.Fatalf("active=%d seq=%d stack=%d, want 1, %d, empty", m.active, m.seq, len(m.stack), seq+1)
	}
}

func TestDrillIntoEpochAndBack(t *testing.T) {
	m := newTestModel(t)
	epochs := newFakeTable(epochFrame())
	m = mount(t, m, epochs, false)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("enter on an epoch returned no mount command")
	}

	blocks := newFakeTable(grid.Frame{Dataset: records.Blocks, PageSize: 10, PageCount: 4, TotalCount: grid.EpochSize})
	m = mount(t, m, blocks, true)
	if len(m.stack) != 2 || m.current().table != blocks {
		t.Fatalf("stack = %d, want epoch blocks on top", len(m.stack))
	}
	if !strings.Contains(m.renderTabs(), "Epoch 12 blocks") {
		t.Fatalf("tabs missing breadcrumb: %q", m.renderTabs())
	}

	m = press(m, "enter")
	if len(m.stack) != 2 {
		t.Fatalf("drilled twice")
	}

	m = press(m, "esc")
	if !blocks.closed || epochs.closed {
		t.Fatalf("esc closed blocks=%v epochs=%v, want true false", blocks.closed, epochs.closed)
	}
	if m.current().table != epochs {
		t.Fatalf("esc did not return to epochs")
	}
}

func TestFrameMsgRefreshesVisibleGrid(t *testing.T) {
	m := newTestModel(t)
	tbl := newFakeTable(epochFrame())
	m = mount(t, m, tbl, false)

	f := epochFrame()
	f.Phase = grid.PhaseSettled
	f.Generation = 2
	tbl.mu.Lock()
	tbl.frame = f
	tbl.mu.Unlock()

	next, cmd := m.Update(frameMsg{table: tbl})
	m = next.(Model)
	if cmd == nil {
		t.Fatalf("frameMsg did not re-listen")
	}
	if m.current().frame.Phase != grid.PhaseSettled {
		t.Fatalf("phase = %v, want settled", m.current().frame.Phase)
	}

	next, cmd = m.Update(frameMsg{table: tbl, closed: true})
	if cmd != nil {
		t.Fatalf("closed grid kept listening")
	}
	_ = next
}

func TestViewShowsFailuresAndStatus(t *testing.T) {
	m := newTestModel(t)
	m = mount(t, m, newFakeTable(epochFrame()), false)

	out := m.View()
	for _, want := range []string{"1 row(s) failed", "Page 1 of 2", "13 rows", "fetching"} {
		if !strings.Contains(out, want) {
			t.Fatalf("View() missing %q", want)
		}
	}
}

func TestMountErrorIsShown(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(mountedMsg{seq: m.seq, dataset: m.datasets[0], err: errors.New("fetch epochs metadata: refused")})
	m = next.(Model)
	if !strings.Contains(m.View(), "refused") {
		t.Fatalf("View() does not show the mount error")
	}
}

func TestThemeCycleSavesPrefs(t *testing.T) {
	m := newTestModel(t)
	start := m.theme.Name
	m = press(m, "T")
	if m.theme.Name == start {
		t.Fatalf("theme did not change from %q", start)
	}
}

func TestLogOverlayShowsTail(t *testing.T) {
	m := newTestModel(t)
	m.logPath = filepath.Join(t.TempDir(), "beaconscope.log")
	content := "time=2026-01-01T00:00:00Z level=INFO msg=starting\n" +
		"time=2026-01-01T00:00:01Z level=WARN msg=\"meta poll failed\"\n"
	if err := os.WriteFile(m.logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("L")})
	m = next.(Model)
	if !m.showLogs || cmd == nil {
		t.Fatalf("L did not open the log overlay")
	}
	next, _ = m.Update(cmd())
	m = next.(Model)
	if len(m.logLines) != 2 {
		t.Fatalf("logLines = %d, want 2", len(m.logLines))
	}
	if out := m.View(); !strings.Contains(out, "meta poll failed") {
		t.Fatalf("View() missing log line")
	}

	m = press(m, "j")
	if m.showLogs {
		t.Fatalf("any key should close the log overlay")
	}
}

func TestLogOverlayNeedsLogPath(t *testing.T) {
	m := newTestModel(t)
	m = press(m, "L")
	if m.showLogs || m.notice == "" {
		t.Fatalf("overlay opened without a log path")
	}
}
