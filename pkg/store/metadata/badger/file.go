package badger

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/store/metadata/internal"
)

func (s *BadgerMetadataStore) GetFile(ctx context.Context, id uuid.UUID) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var f *metadata.File
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		f, err = getFileTxn(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *BadgerMetadataStore) Lookup(ctx context.Context, dir uuid.UUID, name string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *metadata.File
	err := s.db.View(func(txn *badger.Txn) error {
		d, err := getDirTxn(txn, dir)
		if err != nil {
			return err
		}

		switch name {
		case ".":
			result = d
			return nil
		case "..":
			result, err = getFileTxn(txn, d.Parent)
			return err
		}

		childID, found, err := getUUIDTxn(txn, keyChild(dir, name))
		if err != nil {
			return err
		}
		if !found {
			return metadata.NotFound("name not found", name)
		}

		result, err = getFileTxn(txn, childID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *BadgerMetadataStore) Create(ctx context.Context, dir uuid.UUID, name string, attr *metadata.FileAttr) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var created *metadata.File
	err := s.db.Update(func(txn *badger.Txn) error {
		parent, err := getDirTxn(txn, dir)
		if err != nil {
			return err
		}

		_, exists, err := getUUIDTxn(txn, keyChild(dir, name))
		if err != nil {
			return err
		}
		if exists {
			return metadata.AlreadyExists(name)
		}

		now := time.Now()
		f, err := internal.NewChild(dir, name, attr, now)
		if err != nil {
			return err
		}

		if err := putFileTxn(txn, f); err != nil {
			return err
		}
		if err := txn.Set(keyChild(dir, name), f.ID[:]); err != nil {
			return ioError("failed to store child entry", err)
		}

		if f.Type == metadata.FileTypeDirectory {
			parent.Nlink++
		}
		parent.Mtime = now
		parent.Ctime = now
		if err := putFileTxn(txn, parent); err != nil {
			return err
		}

		created = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *BadgerMetadataStore) Remove(ctx context.Context, dir uuid.UUID, name string) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := metadata.ValidateName(name); err != nil {
		return nil, err
	}

	var removed *metadata.File
	err := s.db.Update(func(txn *badger.Txn) error {
		parent, err := getDirTxn(txn, dir)
		if err != nil {
			return err
		}

		childID, found, err := getUUIDTxn(txn, keyChild(dir, name))
		if err != nil {
			return err
		}
		if !found {
			return metadata.NotFound("name not found", name)
		}

		child, err := getFileTxn(txn, childID)
		if err != nil {
			return err
		}

		if child.Type == metadata.FileTypeDirectory {
			empty, err := isEmptyDirTxn(txn, childID)
			if err != nil {
				return err
			}
			if !empty {
				return &metadata.StoreError{Code: metadata.ErrNotEmpty, Message: "directory not empty", Path: name}
			}
			parent.Nlink--
		}

		if err := deletePrefixTxn(txn, keyXattrPrefix(childID)); err != nil {
			return err
		}
		if err := txn.Delete(keyChild(dir, name)); err != nil {
			return ioError("failed to delete child entry", err)
		}
		if err := txn.Delete(keyFile(childID)); err != nil {
			return ioError("failed to delete file", err)
		}

		now := time.Now()
		parent.Mtime = now
		parent.Ctime = now
		if err := putFileTxn(txn, parent); err != nil {
			return err
		}

		child.Nlink = 0
		removed = child
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (s *BadgerMetadataStore) SetFileAttributes(ctx context.Context, id uuid.UUID, attrs *metadata.SetAttrs) (*metadata.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var updated *metadata.File
	err := s.db.Update(func(txn *badger.Txn) error {
		f, err := getFileTxn(txn, id)
		if err != nil {
			return err
		}
		if err := internal.ApplySetAttrs(f, attrs, time.Now()); err != nil {
			return err
		}
		if err := putFileTxn(txn, f); err != nil {
			return err
		}
		updated = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *BadgerMetadataStore) ReadSymlink(ctx context.Context, id uuid.UUID) (string, error) {
	f, err := s.GetFile(ctx, id)
	if err != nil {
		return "", err
	}
	if f.Type != metadata.FileTypeSymlink {
		return "", &metadata.StoreError{Code: metadata.ErrInvalidArgument, Message: "not a symlink", Path: f.Name}
	}
	return f.LinkTarget, nil
}

func getDirTxn(txn *badger.Txn, id uuid.UUID) (*metadata.File, error) {
	f, err := getFileTxn(txn, id)
	if err != nil {
		return nil, err
	}
	if f.Type != metadata.FileTypeDirectory {
		return nil, metadata.NotDirectory(f.Name)
	}
	return f, nil
}

func isEmptyDirTxn(txn *badger.Txn, id uuid.UUID) (bool, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = keyChildPrefix(id)

	it := txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return !it.Valid(), nil
}

func deletePrefixTxn(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix

	it := txn.NewIterator(opts)
	var keys [][]byte
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()

	for _, key := range keys {
		if err := txn.Delete(key); err != nil {
			return ioError("failed to delete key", err)
		}
	}
	return nil
}
