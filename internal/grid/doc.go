// Package grid implements the paginated, sortable table engine behind every
// list view.
//
// # Overview
//
// A grid shows one page of a dataset that lives on a remote indexer. The
// engine splits the work into three steps:
//
//  1. Resolve the page: a Resolver turns PageSettings into the ordered list
//     of identifiers (and record paths) that belong on screen. Natural order
//     over integer and epoch ranges is computed locally; any other order is
//     delegated to a RangeSource.
//  2. Fetch rows: every entry of the range is retrieved by a BufferFetcher
//     and decoded by a Decoder, in parallel, each row completing on its own.
//  3. Present: the Controller publishes a View that never mixes rows from
//     two different cycles.
//
// # Cycles
//
// Each change of the page settings starts a new cycle and bumps the
// generation counter. The previous cycle's context is cancelled and any
// result it still delivers is dropped by the generation check. While a
// cycle runs, the rows of the last settled cycle stay on screen marked
// Stale; a cycle that fails to resolve its range leaves them in place and
// reports the error in View.Err.
//
// # Rendering
//
// The Table interface erases the row type so a terminal UI can drive any
// grid through Frame snapshots and the Updates channel.
package grid
