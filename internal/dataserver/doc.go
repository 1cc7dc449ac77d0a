// Package dataserver serves the indexer's HTTP layout from a local badger
// store so the explorer can run without a live indexer.
//
// # Overview
//
// Store keeps each record's CBOR payload plus one ordered index per sort
// field; a page in any order is an index scan. The handler exposes:
//
//	GET /data/{dataset}/meta.cbor
//	GET /data/{dataset}/range?page=&size=&sort=&desc=
//	GET /data/{dataset}/s/{sort}/{n}.cbor
//	GET /data/{dataset}/{id}.cbor
//
// Seed fills a store with deterministic synthetic epochs, blocks,
// validators, deposits, block requests and peers.
package dataserver
