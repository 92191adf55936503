package artefact

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"PipelineUtils/pkg/logger"
)

// FindLatest lists bucket/folder and returns the artefact of the given
// format with the newest key timestamp. Keys without a timestamp or a
// supported extension are skipped. Ties on timestamp go to the greater key.
func FindLatest(ctx context.Context, store Storage, format Format, bucket, folder string) (*Artefact, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q is not a supported file type", ErrUnsupportedFormat, string(format))
	}
	prefix := Folder(folder)

	objects, err := store.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w dataset from s3://%s/%s: %w", ErrListing, bucket, prefix, err)
	}

	var candidates []*Artefact
	for _, obj := range objects {
		a, err := New(bucket, obj.Key, obj.ETag)
		if err != nil {
			logger.Log.Debug().Str("key", obj.Key).Err(err).Msg("skipping object")
			continue
		}
		if a.Format() != format {
			continue
		}
		candidates = append(candidates, a)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w in s3://%s/%s", ErrNoArtefacts, bucket, prefix)
	}

	latest := slices.MaxFunc(candidates, Compare)
	logger.Log.Debug().
		Str("bucket", bucket).
		Str("key", latest.Key()).
		Time("timestamp", latest.Timestamp()).
		Int("candidates", len(candidates)).
		Msg("resolved latest artefact")
	return latest, nil
}

// IsNotFound reports whether err means no matching artefact exists, as
// opposed to a failure talking to the store.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoArtefacts)
}
