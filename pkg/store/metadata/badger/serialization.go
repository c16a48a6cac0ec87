package badger

import (
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

func encodeFile(f *metadata.File) ([]byte, error) {
	bytes, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode file: %w", err)
	}
	return bytes, nil
}

func decodeFile(bytes []byte) (*metadata.File, error) {
	var f metadata.File
	if err := json.Unmarshal(bytes, &f); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	return &f, nil
}

func decodeUUID(bytes []byte) (uuid.UUID, error) {
	id, err := uuid.FromBytes(bytes)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to decode uuid: %w", err)
	}
	return id, nil
}

// getFileTxn loads and decodes the object stored under id.
func getFileTxn(txn *badger.Txn, id uuid.UUID) (*metadata.File, error) {
	item, err := txn.Get(keyFile(id))
	if err == badger.ErrKeyNotFound {
		return nil, metadata.NotFound("object not found", id.String())
	}
	if err != nil {
		return nil, ioError("failed to get file", err)
	}

	var f *metadata.File
	err = item.Value(func(val []byte) error {
		var decErr error
		f, decErr = decodeFile(val)
		return decErr
	})
	if err != nil {
		return nil, ioError("failed to read file", err)
	}
	return f, nil
}

func putFileTxn(txn *badger.Txn, f *metadata.File) error {
	bytes, err := encodeFile(f)
	if err != nil {
		return err
	}
	if err := txn.Set(keyFile(f.ID), bytes); err != nil {
		return ioError("failed to store file", err)
	}
	return nil
}

// getUUIDTxn loads a 16 byte UUID value. found is false when key is absent.
func getUUIDTxn(txn *badger.Txn, key []byte) (id uuid.UUID, found bool, err error) {
	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, ioError("failed to get key", err)
	}

	err = item.Value(func(val []byte) error {
		var decErr error
		id, decErr = decodeUUID(val)
		return decErr
	})
	if err != nil {
		return uuid.Nil, false, ioError("failed to read key", err)
	}
	return id, true, nil
}

func ioError(msg string, err error) error {
	return &metadata.StoreError{
		Code:    metadata.ErrIOError,
		Message: fmt.Sprintf("%s: %v", msg, err),
	}
}
