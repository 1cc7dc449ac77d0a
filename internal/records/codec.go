package records

import (
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/jinzhu/copier"
)

var (
	cachedDecMode     cbor.DecMode
	cachedDecModeErr  error
	cachedDecModeOnce sync.Once

	cachedEncMode     cbor.EncMode
	cachedEncModeErr  error
	cachedEncModeOnce sync.Once
)

// maxRecordBytes bounds a single record document.
const maxRecordBytes = 1 << 20

func getDecMode() (cbor.DecMode, error) {
	cachedDecModeOnce.Do(func() {
		decOptions := cbor.DecOptions{
			MaxArrayElements: 1 << 16,
			MaxMapPairs:      1 << 12,
		}
		cachedDecMode, cachedDecModeErr = decOptions.DecMode()
	})
	return cachedDecMode, cachedDecModeErr
}

func getEncMode() (cbor.EncMode, error) {
	cachedEncModeOnce.Do(func() {
		cachedEncMode, cachedEncModeErr = cbor.CanonicalEncOptions().EncMode()
	})
	return cachedEncMode, cachedEncModeErr
}

// Decode parses one CBOR record into dest.
func Decode(data []byte, dest any) error {
	if len(data) == 0 {
		return errors.New("empty record")
	}
	if len(data) > maxRecordBytes {
		return fmt.Errorf("record is %d bytes, limit %d", len(data), maxRecordBytes)
	}
	decMode, err := getDecMode()
	if err != nil {
		return err
	}
	return decMode.Unmarshal(data, dest)
}

// Encode serializes a record the way the indexer publishes it.
func Encode(v any) ([]byte, error) {
	encMode, err := getEncMode()
	if err != nil {
		return nil, err
	}
	return encMode.Marshal(v)
}

// decodeView decodes a model of type M and copies its fields into view.
func decodeView[M any, V any](data []byte, view *V) error {
	var model M
	if err := Decode(data, &model); err != nil {
		return err
	}
	return copyModel(view, &model)
}

func copyModel(dst, src any) error {
	if err := copier.Copy(dst, src); err != nil {
		return fmt.Errorf("convert record: %w", err)
	}
	return nil
}
