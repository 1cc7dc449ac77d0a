// Package state shares dataset metadata between the background poller and
// the UI.
//
// The poller calls Store.Update with the record counts it managed to fetch
// and the joined error for the ones it did not; the UI reads copies through
// Store.Snapshot on every header refresh. Counts shown in the header never
// change the total of a grid that is already mounted. A snapshot whose last
// two polls failed reports IsOffline.
package state
