// Package records defines the explorer's datasets: the CBOR models the
// indexer publishes, the decoded views the grids display, their columns and
// the registry that mounts a typed grid for each dataset.
package records
