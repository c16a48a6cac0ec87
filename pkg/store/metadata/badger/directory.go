package badger

import (
	"context"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// ReadDirectory iterates the child index of dir. Child keys are ordered by
// name, so resuming from a cookie is a Seek past "<prefix><cookie>".
func (s *BadgerMetadataStore) ReadDirectory(ctx context.Context, dir uuid.UUID, cookie string, limit int) (*metadata.ReadDirPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := &metadata.ReadDirPage{NextCookie: cookie}

	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := getDirTxn(txn, dir); err != nil {
			return err
		}

		prefix := keyChildPrefix(dir)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		start := prefix
		if cookie != "" {
			start = keyChild(dir, cookie)
		}

		for it.Seek(start); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			name := strings.TrimPrefix(string(item.Key()), string(prefix))
			if cookie != "" && name <= cookie {
				continue
			}

			if limit > 0 && len(page.Entries) == limit {
				page.HasMore = true
				break
			}

			var childID uuid.UUID
			err := item.Value(func(val []byte) error {
				var decErr error
				childID, decErr = decodeUUID(val)
				return decErr
			})
			if err != nil {
				return ioError("failed to read child entry", err)
			}

			child, err := getFileTxn(txn, childID)
			if err != nil {
				return err
			}

			attr := child.FileAttr
			page.Entries = append(page.Entries, metadata.DirEntry{
				Name: name,
				ID:   childID,
				Attr: &attr,
			})
			page.NextCookie = name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}
