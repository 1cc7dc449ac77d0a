// Package ui is the Bubble Tea front end of the explorer.
//
// # Layout
//
//	header   connection state from the metadata poller
//	tabs     datasets with last known counts, breadcrumb when drilled in
//	grid     bubbles/table fed from grid.Frame
//	banner   range or row failures
//	status   page, row count, sort order, cycle phase
//	hints    short key help
//
// # Grids
//
// Selecting a dataset reads its record count once and mounts a grid with
// it; the count is not changed while the grid is mounted, and "r" remounts
// with a fresh one. Every mount carries a sequence number so a slow mount
// that was superseded by another key press is closed on arrival instead of
// replacing the newer grid.
//
// The model listens to the visible grid's Updates channel through
// waitForFrame and re-renders from Frame on each notification. Pages that
// are still loading keep showing the previous rows in faint cells; rows that
// have no data yet show their id followed by placeholders.
//
// Enter on an epoch mounts records.EpochBlocks for it on top of the epochs
// grid; esc closes it and returns to the epochs page that was showing.
package ui
