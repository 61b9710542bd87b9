package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/logging"
	"github.com/papayastack/papaya/internal/metrics"
)

// Object stores cannot set arbitrary modification times, so POSIX
// timestamps are carried in custom object metadata as RFC 3339 strings
// and applied with a metadata-replacing copy.
const (
	metaLastModified = "last-modified"
	metaLastAccessed = "last-accessed"
)

// ObjectInfo is the result of a Head call.
type ObjectInfo struct {
	Size         int64
	LastModified time.Time
	ContentType  string
	Metadata     map[string]string
}

// ObjectBackend executes operations against S3-compatible object stores,
// one cached client per endpoint host. Rename is not a primitive here; the
// gateway emulates it as Copy+Delete.
type ObjectBackend struct {
	clients  *ClientCache
	partSize int64
}

// NewObjectBackend creates an object backend around the given client cache.
func NewObjectBackend(clients *ClientCache, partSize int64) *ObjectBackend {
	return &ObjectBackend{clients: clients, partSize: partSize}
}

// Get opens an object for reading and reports its length and content type.
func (b *ObjectBackend) Get(ctx context.Context, ref RemoteRef) (*ReadStream, error) {
	client, err := b.clients.Get(ctx, ref.Host)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		metrics.RecordStorageOp("s3", "get_object", time.Since(start), false)
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("get %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	metrics.RecordStorageOp("s3", "get_object", time.Since(start), true)

	length := int64(-1)
	if result.ContentLength != nil {
		length = *result.ContentLength
		metrics.AddBytesDownloaded("s3", length)
	}
	return &ReadStream{
		Body:        result.Body,
		Length:      length,
		ContentType: aws.ToString(result.ContentType),
	}, nil
}

// Put uploads a buffer.
func (b *ObjectBackend) Put(ctx context.Context, ref RemoteRef, data []byte) error {
	client, err := b.clients.Get(ctx, ref.Host)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(ref.Bucket),
		Key:           aws.String(ref.Key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		metrics.RecordStorageOp("s3", "put_object", time.Since(start), false)
		return fmt.Errorf("put %s: %w", ref, err)
	}
	metrics.RecordStorageOp("s3", "put_object", time.Since(start), true)
	metrics.AddBytesUploaded("s3", int64(len(data)))

	logging.Debug("object put", zap.String("ref", ref.String()), zap.Int("size", len(data)))
	return nil
}

// PutStream uploads from a reader of possibly unknown length, switching to
// multipart upload for large bodies.
func (b *ObjectBackend) PutStream(ctx context.Context, ref RemoteRef, body io.Reader) error {
	client, err := b.clients.Get(ctx, ref.Host)
	if err != nil {
		return err
	}

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = b.partSize
	})

	counted := &countingReader{r: body}
	start := time.Now()
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
		Body:   counted,
	})
	if err != nil {
		metrics.RecordStorageOp("s3", "put_stream", time.Since(start), false)
		return fmt.Errorf("put stream %s: %w", ref, err)
	}
	metrics.RecordStorageOp("s3", "put_stream", time.Since(start), true)
	metrics.AddBytesUploaded("s3", counted.n)

	logging.Debug("object stream uploaded",
		zap.String("ref", ref.String()), zap.Int64("size", counted.n))
	return nil
}

// countingReader tracks how many bytes the uploader consumed; streamed
// bodies have no length known up front.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Head returns object length, last-modified and custom metadata.
func (b *ObjectBackend) Head(ctx context.Context, ref RemoteRef) (*ObjectInfo, error) {
	client, err := b.clients.Get(ctx, ref.Host)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		metrics.RecordStorageOp("s3", "head_object", time.Since(start), false)
		var notFound *s3types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("head %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("head %s: %w", ref, err)
	}
	metrics.RecordStorageOp("s3", "head_object", time.Since(start), true)

	info := &ObjectInfo{
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		ContentType:  aws.ToString(result.ContentType),
		Metadata:     make(map[string]string, len(result.Metadata)),
	}
	for k, v := range result.Metadata {
		info.Metadata[k] = v
	}
	return info, nil
}

// Copy performs a server-side copy. When metadata is non-nil the
// destination's metadata is replaced with it; otherwise the source
// metadata is carried over.
func (b *ObjectBackend) Copy(ctx context.Context, src, dst RemoteRef, metadata map[string]string) error {
	if src.Host != dst.Host {
		return fmt.Errorf("copy %s -> %s: %w", src, dst, ErrUnsupported)
	}

	client, err := b.clients.Get(ctx, src.Host)
	if err != nil {
		return err
	}

	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dst.Bucket),
		Key:        aws.String(dst.Key),
		CopySource: aws.String(src.Bucket + "/" + src.Key),
	}
	if metadata != nil {
		input.Metadata = metadata
		input.MetadataDirective = s3types.MetadataDirectiveReplace
	}

	start := time.Now()
	if _, err := client.CopyObject(ctx, input); err != nil {
		metrics.RecordStorageOp("s3", "copy_object", time.Since(start), false)
		return fmt.Errorf("copy %s -> %s: %w", src, dst, err)
	}
	metrics.RecordStorageOp("s3", "copy_object", time.Since(start), true)

	logging.Debug("object copied", zap.String("src", src.String()), zap.String("dst", dst.String()))
	return nil
}

// Delete removes an object. Deleting an absent key is not an error on S3.
func (b *ObjectBackend) Delete(ctx context.Context, ref RemoteRef) error {
	client, err := b.clients.Get(ctx, ref.Host)
	if err != nil {
		return err
	}

	start := time.Now()
	_, err = client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		metrics.RecordStorageOp("s3", "delete_object", time.Since(start), false)
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	metrics.RecordStorageOp("s3", "delete_object", time.Since(start), true)

	logging.Debug("object deleted", zap.String("ref", ref.String()))
	return nil
}

// SetTimes writes modification and access times into custom object
// metadata via a metadata-replacing self-copy, preserving any other
// metadata already present.
func (b *ObjectBackend) SetTimes(ctx context.Context, ref RemoteRef, mtime, atime time.Time) error {
	info, err := b.Head(ctx, ref)
	if err != nil {
		return err
	}

	metadata := make(map[string]string, len(info.Metadata)+2)
	for k, v := range info.Metadata {
		metadata[k] = v
	}
	metadata[metaLastModified] = mtime.UTC().Format(time.RFC3339Nano)
	metadata[metaLastAccessed] = atime.UTC().Format(time.RFC3339Nano)

	return b.Copy(ctx, ref, ref, metadata)
}

// statFromInfo synthesizes a FileStat from head results, preferring the
// emulated POSIX timestamps over the store's own last-modified.
func statFromInfo(info *ObjectInfo) FileStat {
	stat := FileStat{
		Size:       info.Size,
		ModTime:    info.LastModified,
		AccessTime: info.LastModified,
		BirthTime:  info.LastModified,
	}
	if v, ok := info.Metadata[metaLastModified]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			stat.ModTime = t
			stat.BirthTime = t
		}
	}
	if v, ok := info.Metadata[metaLastAccessed]; ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			stat.AccessTime = t
		}
	}
	return stat
}
