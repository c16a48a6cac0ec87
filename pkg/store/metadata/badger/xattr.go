package badger

import (
	"context"
	"sort"
	"strings"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

func (s *BadgerMetadataStore) GetXattr(ctx context.Context, id uuid.UUID, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getFileTxn(txn, id); err != nil {
			return err
		}

		item, err := txn.Get(keyXattr(id, name))
		if err == badger.ErrKeyNotFound {
			return &metadata.StoreError{Code: metadata.ErrNoAttribute, Message: "attribute not found", Path: name}
		}
		if err != nil {
			return ioError("failed to get attribute", err)
		}

		value, err = item.ValueCopy(nil)
		if err != nil {
			return ioError("failed to read attribute", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *BadgerMetadataStore) SetXattr(ctx context.Context, id uuid.UUID, name string, value []byte, flag metadata.XattrFlag) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if name == "" {
		return &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "empty attribute name"}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		f, err := getFileTxn(txn, id)
		if err != nil {
			return err
		}

		_, err = txn.Get(keyXattr(id, name))
		exists := err == nil
		if err != nil && err != badger.ErrKeyNotFound {
			return ioError("failed to get attribute", err)
		}

		switch {
		case flag == metadata.XattrCreate && exists:
			return &metadata.StoreError{Code: metadata.ErrAlreadyExists, Message: "attribute exists", Path: name}
		case flag == metadata.XattrReplace && !exists:
			return &metadata.StoreError{Code: metadata.ErrNoAttribute, Message: "attribute not found", Path: name}
		}

		stored := make([]byte, len(value))
		copy(stored, value)
		if err := txn.Set(keyXattr(id, name), stored); err != nil {
			return ioError("failed to store attribute", err)
		}

		f.Ctime = time.Now()
		return putFileTxn(txn, f)
	})
}

func (s *BadgerMetadataStore) ListXattrs(ctx context.Context, id uuid.UUID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	names := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getFileTxn(txn, id); err != nil {
			return err
		}

		prefix := keyXattrPrefix(id)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			names = append(names, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(names)
	return names, nil
}

func (s *BadgerMetadataStore) RemoveXattr(ctx context.Context, id uuid.UUID, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		f, err := getFileTxn(txn, id)
		if err != nil {
			return err
		}

		if _, err := txn.Get(keyXattr(id, name)); err == badger.ErrKeyNotFound {
			return &metadata.StoreError{Code: metadata.ErrNoAttribute, Message: "attribute not found", Path: name}
		} else if err != nil {
			return ioError("failed to get attribute", err)
		}

		if err := txn.Delete(keyXattr(id, name)); err != nil {
			return ioError("failed to delete attribute", err)
		}

		f.Ctime = time.Now()
		return putFileTxn(txn, f)
	})
}
