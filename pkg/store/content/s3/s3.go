// Package s3 implements content storage in an S3 bucket.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/handlefs/internal/logger"
	"github.com/marmos91/handlefs/pkg/store/content"
	"github.com/marmos91/handlefs/pkg/store/metadata"
)

// S3ContentStore stores each content item as one object.
//
// S3 objects are immutable, so WriteAt and Truncate are read-modify-write
// cycles on the whole object. This is acceptable for the small files a
// handle-level API typically edits in place; large sequential writes should
// go through a single WriteAt at offset 0.
type S3ContentStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
}

// S3ContentStoreConfig configures an S3ContentStore.
type S3ContentStoreConfig struct {
	// Client is the configured S3 client.
	Client *s3.Client

	// Bucket is the bucket name.
	Bucket string

	// KeyPrefix is prepended to every object key, e.g. "volumes/vol0/".
	KeyPrefix string
}

// NewS3ContentStore validates cfg and checks that the bucket is reachable.
func NewS3ContentStore(ctx context.Context, cfg S3ContentStoreConfig) (*S3ContentStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if cfg.Client == nil {
		return nil, fmt.Errorf("s3 client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ContentStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

func (s *S3ContentStore) getObjectKey(id metadata.ContentID) string {
	return s.keyPrefix + string(id)
}

func (s *S3ContentStore) contentIDFromKey(key string) metadata.ContentID {
	return metadata.ContentID(strings.TrimPrefix(key, s.keyPrefix))
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	return errors.As(err, &notFound)
}

func (s *S3ContentStore) ReadAt(ctx context.Context, id metadata.ContentID, p []byte, offset int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if offset < 0 {
		return 0, content.ErrInvalidOffset
	}

	size, err := s.GetContentSize(ctx, id)
	if err != nil {
		return 0, err
	}
	if offset >= int64(size) {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}

	end := offset + int64(len(p)) - 1
	if end >= int64(size) {
		end = int64(size) - 1
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, end)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	n, err := io.ReadFull(result.Body, p[:end-offset+1])
	if err != nil {
		return n, fmt.Errorf("failed to read object body: %w", err)
	}
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// readAll returns the whole object, or nil when it does not exist.
func (s *S3ContentStore) readAll(ctx context.Context, id metadata.ContentID) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer func() { _ = result.Body.Close() }()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	return data, nil
}

func (s *S3ContentStore) put(ctx context.Context, id metadata.ContentID, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to write content to S3: %w", err)
	}
	return nil
}

func (s *S3ContentStore) WriteAt(ctx context.Context, id metadata.ContentID, data []byte, offset int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if offset < 0 {
		return content.ErrInvalidOffset
	}

	existing, err := s.readAll(ctx, id)
	if err != nil {
		return err
	}

	end := offset + int64(len(data))
	if end > int64(len(existing)) {
		grown := make([]byte, end)
		copy(grown, existing)
		existing = grown
	}
	copy(existing[offset:], data)

	logger.Debug("S3 WriteAt: content_id=%s offset=%d len=%d object_size=%d", id, offset, len(data), len(existing))
	return s.put(ctx, id, existing)
}

func (s *S3ContentStore) Truncate(ctx context.Context, id metadata.ContentID, newSize uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	existing, err := s.readAll(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil && uint64(len(existing)) == newSize {
		return nil
	}

	resized := make([]byte, newSize)
	copy(resized, existing)
	return s.put(ctx, id, resized)
}

func (s *S3ContentStore) Delete(ctx context.Context, id metadata.ContentID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

func (s *S3ContentStore) GetContentSize(ctx context.Context, id metadata.ContentID) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.getObjectKey(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return 0, fmt.Errorf("content %s: %w", id, content.ErrContentNotFound)
		}
		return 0, fmt.Errorf("failed to head object: %w", err)
	}

	return uint64(aws.ToInt64(result.ContentLength)), nil
}

func (s *S3ContentStore) ContentExists(ctx context.Context, id metadata.ContentID) (bool, error) {
	_, err := s.GetContentSize(ctx, id)
	if errors.Is(err, content.ErrContentNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *S3ContentStore) GetStorageStats(ctx context.Context) (*content.StorageStats, error) {
	var used, count uint64
	err := s.listObjects(ctx, func(obj types.Object) {
		used += uint64(aws.ToInt64(obj.Size))
		count++
	})
	if err != nil {
		return nil, err
	}
	return content.NewStorageStats(used, count), nil
}

func (s *S3ContentStore) ListAllContent(ctx context.Context) ([]metadata.ContentID, error) {
	var ids []metadata.ContentID
	err := s.listObjects(ctx, func(obj types.Object) {
		ids = append(ids, s.contentIDFromKey(aws.ToString(obj.Key)))
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *S3ContentStore) listObjects(ctx context.Context, fn func(types.Object)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.keyPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			fn(obj)
		}
	}
	return nil
}
