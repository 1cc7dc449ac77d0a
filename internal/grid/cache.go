package grid

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cacheKey struct {
	dataset string
	id      ID
	path    string
}

// RowCache keeps recently decoded row values. A nil *RowCache is valid and
// never hits.
type RowCache[T any] struct {
	lru *lru.Cache[cacheKey, T]
}

// NewRowCache returns a cache holding at most size values.
func NewRowCache[T any](size int) (*RowCache[T], error) {
	c, err := lru.New[cacheKey, T](size)
	if err != nil {
		return nil, fmt.Errorf("create row cache: %w", err)
	}
	return &RowCache[T]{lru: c}, nil
}

func (c *RowCache[T]) Get(dataset string, id ID, path string) (T, bool) {
	if c == nil {
		var zero T
		return zero, false
	}
	return c.lru.Get(cacheKey{dataset: dataset, id: id, path: path})
}

func (c *RowCache[T]) Add(dataset string, id ID, path string, value T) {
	if c == nil {
		return
	}
	c.lru.Add(cacheKey{dataset: dataset, id: id, path: path}, value)
}

func (c *RowCache[T]) Len() int {
	if c == nil {
		return 0
	}
	return c.lru.Len()
}

func (c *RowCache[T]) Purge() {
	if c == nil {
		return
	}
	c.lru.Purge()
}
