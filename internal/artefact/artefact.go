package artefact

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Artefact is a stored object whose key carries a timestamp and a
// supported format extension.
type Artefact struct {
	bucket    string
	key       string
	etag      string
	timestamp time.Time
	format    Format
}

// New validates key and derives the artefact's timestamp and format. The
// timestamp is checked first, so a key lacking both reports ErrNoTimestamp.
func New(bucket, key, etag string) (*Artefact, error) {
	ts, ok := ExtractTimestamp(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoTimestamp, key)
	}
	f, ok := ExtractFormat(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoFormat, key)
	}
	return &Artefact{
		bucket:    bucket,
		key:       key,
		etag:      etag,
		timestamp: ts,
		format:    f,
	}, nil
}

func (a *Artefact) Bucket() string       { return a.bucket }
func (a *Artefact) Key() string          { return a.key }
func (a *Artefact) ETag() string         { return a.etag }
func (a *Artefact) Timestamp() time.Time { return a.timestamp }
func (a *Artefact) Format() Format       { return a.format }

// Less orders artefacts by timestamp only.
func (a *Artefact) Less(other *Artefact) bool {
	return a.timestamp.Before(other.timestamp)
}

// Compare orders by timestamp, then by key, so equal timestamps still
// resolve deterministically.
func Compare(a, b *Artefact) int {
	if c := a.timestamp.Compare(b.timestamp); c != 0 {
		return c
	}
	switch {
	case a.key < b.key:
		return -1
	case a.key > b.key:
		return 1
	}
	return 0
}

// Get opens the artefact's bytes. The caller closes the returned reader.
func (a *Artefact) Get(ctx context.Context, store Storage) (io.ReadCloser, error) {
	rc, err := store.GetObject(ctx, a.bucket, a.key)
	if err != nil {
		return nil, fmt.Errorf("%w from s3://%s/%s: %w", ErrRetrieval, a.bucket, a.key, err)
	}
	return rc, nil
}

func (a *Artefact) String() string {
	return fmt.Sprintf("s3://%s/%s (%s, %s)", a.bucket, a.key, a.format, a.timestamp.Format(timestampLayout))
}
