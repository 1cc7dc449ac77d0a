// Package config loads the explorer's TOML configuration.
//
// # Configuration Discovery
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/beaconscope/config.toml
//  3. If the file doesn't exist, fall back to defaults
//  4. Missing, empty or non-positive fields keep their defaults
//
// BEACONSCOPE_API_HOST overrides api_host in every case.
//
// # Fields
//
//	api_host          = "http://127.0.0.1:3000"
//	page_size         = 10
//	cache_size        = 2048   # decoded rows kept per dataset
//	fetch_concurrency = 8
//	range_source      = "query" # or "shards"
//	shard_size        = 10
//	log_file          = "~/.local/state/beaconscope/beaconscope.log"
//	meta_poll_seconds = 30
//
// An unknown range_source is a parse error rather than a silent fallback.
package config
