package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/records"
)

// chromeHeight is the number of lines around the grid: header, tabs,
// banner, status and key hints.
const chromeHeight = 5

const (
	placeholderCell = "…"
	sortAsc         = " ▲"
	sortDesc        = " ▼"
)

func (m Model) renderMain() string {
	lines := []string{
		m.renderHeader(),
		m.renderTabs(),
		m.renderGrid(),
		m.renderBanner(),
		m.renderStatus(),
		m.help.View(m.keys),
	}
	return strings.Join(lines, "\n")
}

// renderHeader shows the indexer connection state from the last poll.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	parts := []string{bg.Render("beaconscope", styles.Logo)}
	snap := m.snapshot
	switch {
	case snap.IsOffline():
		parts = append(parts,
			bg.Render("● OFFLINE", styles.DangerText),
			bg.Render(truncate(snap.LastError.Error(), 60), styles.MutedText))
	case snap.LastError != nil:
		parts = append(parts,
			bg.Render("● DEGRADED", styles.WarningText),
			bg.Render(truncate(snap.LastError.Error(), 60), styles.MutedText))
	case snap.HasCounts:
		parts = append(parts, bg.Render("● ONLINE", styles.SuccessText))
	default:
		parts = append(parts, bg.Render("Connecting...", styles.WarningText))
	}
	if !snap.LastUpdated.IsZero() {
		parts = append(parts, bg.Render("polled "+snap.LastUpdated.Format("15:04:05"), styles.FaintText))
	}
	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// renderTabs lists the top-level datasets with their last known counts.
// When drilled into an epoch the breadcrumb follows the active tab.
func (m Model) renderTabs() string {
	styles := m.theme.Styles()
	tabs := make([]string, 0, len(m.datasets)+1)
	for i, d := range m.datasets {
		label := fmt.Sprintf("%d %s", i+1, d.Title)
		if n, ok := m.snapshot.Count(d.Name); ok {
			label += " " + records.FormatCount(n)
		}
		if i == m.active {
			tabs = append(tabs, styles.TabActive.Render(label))
		} else {
			tabs = append(tabs, styles.Tab.Render(label))
		}
	}
	if len(m.stack) > 1 {
		tabs = append(tabs, styles.AccentText.Render(" › "+m.stack[len(m.stack)-1].dataset.Title))
	}
	return lipgloss.NewStyle().MaxWidth(m.width).Render(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
}

func (m Model) renderGrid() string {
	if len(m.stack) == 0 {
		styles := m.theme.Styles()
		msg := m.spinner.View() + " mounting " + m.datasets[m.active].Title
		if m.mountErr != nil {
			msg = styles.DangerText.Render("✗ " + m.mountErr.Error())
		}
		return lipgloss.NewStyle().Height(m.table.Height() + 2).Render(msg)
	}
	return m.table.View()
}

// renderBanner shows one line of trouble: a failed range, failed rows,
// a failed drill-down, or a transient notice.
func (m Model) renderBanner() string {
	styles := m.theme.Styles()
	var text string
	if cur := m.current(); cur != nil {
		f := cur.frame
		switch {
		case f.Err != nil:
			text = "range failed: " + f.Err.Error()
		case f.Failures > 0:
			text = fmt.Sprintf("%d row(s) failed: %s", f.Failures, firstRowError(f))
		}
	}
	if text == "" && m.mountErr != nil && len(m.stack) > 0 {
		text = m.mountErr.Error()
	}
	if text != "" {
		return styles.Banner.MaxWidth(m.width).Render(truncate(text, max(m.width-4, 10)))
	}
	if m.notice != "" {
		return styles.MutedText.Render(m.notice)
	}
	return ""
}

func firstRowError(f grid.Frame) string {
	for _, row := range f.Rows {
		if row.Err != nil {
			return row.Err.Error()
		}
	}
	return ""
}

// renderStatus shows paging, sort order and the grid's cycle phase.
func (m Model) renderStatus() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	cur := m.current()
	if cur == nil {
		return styles.Footer.Width(m.width).Render("")
	}
	f := cur.frame

	page := fmt.Sprintf("Page %s of %s", records.FormatCount(f.PageIndex+1), records.FormatCount(max(f.PageCount, 1)))
	parts := []string{
		bg.Render(page, styles.Text),
		bg.Render(records.FormatCount(f.TotalCount)+" rows", styles.MutedText),
		bg.Render(fmt.Sprintf("%d/page", f.PageSize), styles.MutedText),
		bg.Render("sort "+sortLabel(f), styles.AccentText),
	}
	phase := m.theme.Styles().PhaseStyle(f.Phase.String()).Render(f.Phase.String())
	if f.Phase.Busy() {
		phase = m.spinner.View() + bg.Spaces(1) + phase
	}
	parts = append(parts, phase)
	if f.Stale() {
		parts = append(parts, bg.Render("showing previous page", styles.FaintText))
	}
	return styles.Footer.Width(m.width).Render(bg.Join(parts, "  "))
}

func sortLabel(f grid.Frame) string {
	id := f.SortID
	if id == "" {
		id = grid.DefaultSort
	}
	label := id
	for _, col := range f.Columns {
		if col.ID == id {
			label = col.Header
		}
	}
	if f.SortDesc {
		return label + sortDesc
	}
	return label + sortAsc
}

// tableColumns turns frame columns into widget columns, marking the sort
// column with its direction.
func tableColumns(f grid.Frame) []table.Column {
	sortID := f.SortID
	if sortID == "" {
		sortID = grid.DefaultSort
	}
	cols := make([]table.Column, len(f.Columns))
	for i, c := range f.Columns {
		title := c.Header
		if c.ID == sortID {
			title += sortAsc
			if f.SortDesc {
				title = c.Header + sortDesc
			}
		}
		cols[i] = table.Column{Title: title, Width: max(c.Width, lipgloss.Width(title))}
	}
	return cols
}

// tableRows renders frame rows. Unloaded rows keep their id in the first
// column and a placeholder or the failure in the second.
func tableRows(f grid.Frame) []table.Row {
	rows := make([]table.Row, len(f.Rows))
	n := len(f.Columns)
	for i, r := range f.Rows {
		if r.Loaded && len(r.Cells) == n {
			rows[i] = table.Row(r.Cells)
			continue
		}
		cells := make(table.Row, n)
		if n == 0 {
			rows[i] = cells
			continue
		}
		cells[0] = r.ID.String()
		fill := placeholderCell
		if r.Err != nil {
			fill = "✗ " + r.Err.Error()
		}
		if n > 1 {
			cells[1] = fill
			for j := 2; j < n; j++ {
				if r.Err == nil {
					cells[j] = placeholderCell
				}
			}
		}
		rows[i] = cells
	}
	return rows
}

// renderHelp renders the help overlay.
func (m Model) renderHelp() string {
	styles := m.theme.Styles()

	h := m.help
	h.ShowAll = true

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")
	b.WriteString(h.View(m.keys))
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("theme " + m.theme.Name + " · any key closes"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}

// renderLogs shows the tail of the log file, coloured by level.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Header.Render(" Log " + truncate(m.logPath, max(m.width-8, 10))))
	b.WriteString("\n")
	switch {
	case m.logErr != nil:
		b.WriteString(styles.DangerText.Render("read log: " + m.logErr.Error()))
		b.WriteString("\n")
	case len(m.logLines) == 0:
		b.WriteString(styles.MutedText.Render("log is empty"))
		b.WriteString("\n")
	}
	for _, line := range m.logLines {
		style := styles.MutedText
		switch {
		case line.Level >= slog.LevelError:
			style = styles.DangerText
		case line.Level >= slog.LevelWarn:
			style = styles.WarningText
		}
		b.WriteString(style.Render(truncate(line.Text, m.width)))
		b.WriteString("\n")
	}
	b.WriteString(styles.FaintText.Render("r refresh · any key closes"))
	return b.String()
}

// truncate shortens s to limit runes, adding an ellipsis.
func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	if limit <= 3 {
		return string(runes[:limit])
	}
	return string(runes[:limit-3]) + "..."
}
