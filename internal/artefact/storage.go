package artefact

import (
	"context"
	"io"
)

// ObjectInfo is one entry of a bucket listing.
type ObjectInfo struct {
	Key  string
	ETag string
	Size int64
}

// Storage is the object store surface used by this module.
// *s3.Client and *s3.MemoryStore implement it.
type Storage interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
	PutObject(ctx context.Context, bucket, key string, body io.Reader, contentLength int64) error
	UploadFile(ctx context.Context, localPath, bucket, key string) error
}
