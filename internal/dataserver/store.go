package dataserver

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/five82/beaconscope/internal/grid"
	"github.com/five82/beaconscope/internal/layout"
	"github.com/five82/beaconscope/internal/records"
)

var (
	// ErrNotFound is returned for unknown datasets and records.
	ErrNotFound = errors.New("not found")
	// ErrUnknownSort is returned when a dataset has no index for a field.
	ErrUnknownSort = errors.New("unknown sort field")
)

// Store keeps records and their sort indexes in badger.
type Store struct {
	db *badger.DB
}

// Open opens the store under dataDir, or an in-memory store when dataDir
// is empty. A nil logger silences badger.
func Open(dataDir string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if dataDir != "" {
		opts = badger.DefaultOptions(filepath.Join(dataDir, "badger"))
	}
	opts = opts.WithLogger(nil)
	if logger != nil {
		opts = opts.WithLogger(badgerLogger{logger.With("component", "badger")})
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores one record and indexes it under the default order plus every
// field in sortKeys. Field names are column ids and are stored snake_case.
func (s *Store) Put(dataset string, id grid.ID, payload []byte, sortKeys map[string]SortKey) error {
	ids := id.String()
	return s.db.Update(func(txn *badger.Txn) error {
		var owned [][]byte
		item, err := txn.Get(ownedKey(dataset, ids))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			if err := incrementCount(txn, dataset); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return records.Decode(val, &owned)
			}); err != nil {
				return fmt.Errorf("read index keys: %w", err)
			}
			for _, key := range owned {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			owned = owned[:0]
		}

		if err := txn.Set(recordKey(dataset, ids), payload); err != nil {
			return err
		}
		fields := map[string]SortKey{grid.DefaultSort: idKey(id)}
		for name, sk := range sortKeys {
			fields[layout.SortField(name)] = sk
		}
		for field, sk := range fields {
			key := indexKey(dataset, field, sk, id)
			if err := txn.Set(key, encodeID(id)); err != nil {
				return err
			}
			if err := txn.Set(fieldKey(dataset, field), nil); err != nil {
				return err
			}
			owned = append(owned, key)
		}
		encoded, err := records.Encode(owned)
		if err != nil {
			return err
		}
		return txn.Set(ownedKey(dataset, ids), encoded)
	})
}

func incrementCount(txn *badger.Txn, dataset string) error {
	count, err := readCount(txn, dataset)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return txn.Set(metaKey(dataset), binary.BigEndian.AppendUint64(nil, count+1))
}

func readCount(txn *badger.Txn, dataset string) (uint64, error) {
	item, err := txn.Get(metaKey(dataset))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	var count uint64
	err = item.Value(func(val []byte) error {
		if len(val) != 8 {
			return errors.New("malformed count")
		}
		count = binary.BigEndian.Uint64(val)
		return nil
	})
	return count, err
}

// Count returns the number of records in dataset.
func (s *Store) Count(dataset string) (int, error) {
	var count uint64
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		count, err = readCount(txn, dataset)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// Record returns the payload stored under dataset/id.
func (s *Store) Record(dataset, id string) ([]byte, error) {
	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(dataset, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	return payload, err
}

// Page returns the ids at positions [page*size, page*size+size) of dataset
// ordered by field.
func (s *Store) Page(dataset, field string, desc bool, page, size int) ([]grid.ID, error) {
	if page < 0 || size <= 0 {
		return nil, fmt.Errorf("invalid page %d size %d", page, size)
	}
	field = layout.SortField(field)
	ids := make([]grid.ID, 0, size)
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get(fieldKey(dataset, field)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrUnknownSort
			}
			return err
		}

		prefix := indexPrefix(dataset, field)
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = desc
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if desc {
			seek = prefixEnd(prefix)
		}
		skip := page * size
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(ids) < size; it.Next() {
			if skip > 0 {
				skip--
				continue
			}
			err := it.Item().Value(func(val []byte) error {
				id, err := decodeID(val)
				if err != nil {
					return err
				}
				ids = append(ids, id)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// badgerLogger adapts slog to badger's printf-style logger.
type badgerLogger struct{ l *slog.Logger }

func (b badgerLogger) Errorf(format string, args ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Warningf(format string, args ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Infof(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLogger) Debugf(format string, args ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
