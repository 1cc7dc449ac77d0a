// Package indexer is the HTTP client for the beacon-chain indexer.
//
// # Overview
//
// The indexer publishes every dataset as a tree of static CBOR files plus
// one query endpoint:
//
//	/data/{dataset}/meta.cbor              record count
//	/data/{dataset}/{id}.cbor              one record
//	/data/{dataset}/range?page=..&size=..  ids of one sorted page (JSON)
//	/data/{dataset}/s/{sort}/{n}.cbor      n-th shard of ids sorted by {sort}
//
// Client implements grid.BufferFetcher and grid.RangeSource against the
// range endpoint. ShardSource is an alternative grid.RangeSource that
// assembles pages from the shard files, for deployments that only serve
// static files.
//
// Requests are made once. Failures surface to the grid, which decides how
// to present them.
package indexer
