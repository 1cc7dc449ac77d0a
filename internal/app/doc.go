// Package app is the composition root of the explorer.
//
// Run loads configuration and preferences, opens the log file, builds the
// indexer client and the configured range source, starts the metadata
// poller and hands everything to the UI:
//
//	Run()
//	  ├─> config.Load()          TOML + BEACONSCOPE_API_HOST
//	  ├─> prefs.Load()           theme, page size
//	  ├─> tea.LogToFile()        slog into the log file
//	  ├─> indexer.NewClient()    metadata, ranges, records
//	  ├─> StartPoller()          dataset counts into state.Store
//	  └─> ui.Run()               blocks until quit
//
// The poller refreshes counts every meta_poll_seconds. Failed polls back
// off exponentially up to five minutes and never stop the UI; the header
// turns offline after two consecutive failures.
package app
