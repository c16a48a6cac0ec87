// Package badger implements a persistent metadata store on BadgerDB.
package badger

import (
	"context"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/marmos91/handlefs/pkg/store/metadata"
	"github.com/marmos91/handlefs/pkg/store/metadata/internal"
)

// BadgerMetadataStore implements metadata.Store on top of BadgerDB.
//
// Every mutation runs inside a single db.Update transaction, so a Create or
// Remove either updates the object, its parent and the child index together
// or not at all. Reads use db.View and see a consistent snapshot.
type BadgerMetadataStore struct {
	db *badger.DB

	volumeID uuid.UUID
	rootID   uuid.UUID
}

// BadgerMetadataStoreConfig configures a BadgerMetadataStore.
type BadgerMetadataStoreConfig struct {
	// DBPath is the directory holding the database files.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk. DBPath is ignored.
	InMemory bool `mapstructure:"in_memory"`

	// BlockCacheSizeMB sizes the block cache. 0 uses 64MB.
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`

	// IndexCacheSizeMB sizes the index cache. 0 uses 32MB.
	IndexCacheSizeMB int64 `mapstructure:"index_cache_size_mb"`

	// BadgerOptions overrides every other setting when non-nil.
	BadgerOptions *badger.Options `mapstructure:"-"`
}

// NewBadgerMetadataStore opens (or creates) a store at config.DBPath.
//
// On first open the volume ID and an empty root directory are created.
// Later opens load them from the database.
func NewBadgerMetadataStore(ctx context.Context, config BadgerMetadataStoreConfig) (*BadgerMetadataStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if config.BadgerOptions != nil {
		opts = *config.BadgerOptions
	} else {
		if config.InMemory {
			opts = badger.DefaultOptions("").WithInMemory(true)
		} else {
			opts = badger.DefaultOptions(config.DBPath)
		}

		opts = opts.WithLoggingLevel(badger.WARNING)
		opts = opts.WithCompression(options.None)

		blockCacheMB := config.BlockCacheSizeMB
		if blockCacheMB == 0 {
			blockCacheMB = 64
		}
		indexCacheMB := config.IndexCacheSizeMB
		if indexCacheMB == 0 {
			indexCacheMB = 32
		}

		opts = opts.WithBlockCacheSize(blockCacheMB << 20)
		opts = opts.WithIndexCacheSize(indexCacheMB << 20)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerMetadataStore{db: db}

	if err := store.initializeSingletons(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize singletons: %w", err)
	}

	return store, nil
}

// initializeSingletons loads or creates the volume ID and root directory.
func (s *BadgerMetadataStore) initializeSingletons(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		volumeID, found, err := getUUIDTxn(txn, keyVolumeID())
		if err != nil {
			return err
		}
		if !found {
			volumeID = uuid.New()
			if err := txn.Set(keyVolumeID(), volumeID[:]); err != nil {
				return fmt.Errorf("failed to store volume id: %w", err)
			}
		}

		rootID, found, err := getUUIDTxn(txn, keyRootID())
		if err != nil {
			return err
		}
		if !found {
			root := internal.NewRoot(time.Now())
			if err := putFileTxn(txn, root); err != nil {
				return err
			}
			if err := txn.Set(keyRootID(), root.ID[:]); err != nil {
				return fmt.Errorf("failed to store root id: %w", err)
			}
			rootID = root.ID
		}

		s.volumeID = volumeID
		s.rootID = rootID
		return nil
	})
}

func (s *BadgerMetadataStore) VolumeID(ctx context.Context) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	return s.volumeID, nil
}

func (s *BadgerMetadataStore) Root(ctx context.Context) (*metadata.File, error) {
	return s.GetFile(ctx, s.rootID)
}

func (s *BadgerMetadataStore) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return &metadata.StoreError{Code: metadata.ErrIOError, Message: "database closed"}
	}
	return s.db.View(func(txn *badger.Txn) error {
		_, err := getFileTxn(txn, s.rootID)
		return err
	})
}

func (s *BadgerMetadataStore) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}
