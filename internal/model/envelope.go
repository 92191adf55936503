package model

import (
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/zeebo/blake3"

	"PipelineUtils/internal/dataset"
	"PipelineUtils/internal/serial"
)

const (
	DefaultRevisionEnv = "GIT_COMMIT_HASH"
	UnknownRevision    = "NA"
)

// Envelope wraps a trained model with the provenance needed to trace it
// back to its training data and pipeline revision.
//
// The model is stored through its exported fields. Models that keep their
// state in unexported fields must implement cbor.Marshaler or
// encoding.BinaryMarshaler (with the matching unmarshaler for GetLatest);
// New rejects them with ErrPickle otherwise.
//
// Two envelopes are equal when their Identity matches. The model and its
// hash do not take part, so retraining on the same data at the same instant
// and revision yields an equal envelope even if the fitted model differs.
type Envelope[M any] struct {
	name        string
	model       M
	modelType   string
	modelHash   string
	createdAt   time.Time
	revision    string
	trainKey    string
	trainBucket string
	trainHash   string
	metadata    map[string]any
}

// Identity is the provenance used for envelope equality.
type Identity struct {
	TrainDatasetHash string
	TrainDatasetKey  string
	CreatedAt        time.Time
	Revision         string
}

type settings struct {
	metadata    map[string]any
	revisionEnv string
	now         func() time.Time
}

type Option func(*settings)

func WithMetadata(md map[string]any) Option {
	return func(s *settings) { s.metadata = md }
}

// WithRevisionEnv names the environment variable holding the source
// revision. The default is GIT_COMMIT_HASH.
func WithRevisionEnv(name string) Option {
	return func(s *settings) {
		if name != "" {
			s.revisionEnv = name
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// New hashes model and records its provenance from train.
func New[M any](name string, model M, train *dataset.Dataset, opts ...Option) (*Envelope[M], error) {
	if train == nil {
		return nil, ErrDataset
	}
	s := settings{revisionEnv: DefaultRevisionEnv, now: time.Now}
	for _, o := range opts {
		o(&s)
	}

	hash, err := Hash(model)
	if err != nil {
		return nil, err
	}
	revision, ok := os.LookupEnv(s.revisionEnv)
	if !ok {
		revision = UnknownRevision
	}
	return &Envelope[M]{
		name:        name,
		model:       model,
		modelType:   fmt.Sprintf("%T", model),
		modelHash:   hash,
		createdAt:   s.now().UTC(),
		revision:    revision,
		trainKey:    train.Key,
		trainBucket: train.Bucket,
		trainHash:   train.Hash,
		metadata:    s.metadata,
	}, nil
}

// Hash returns the hex BLAKE3 digest of the canonical encoding of model.
func Hash(model any) (string, error) {
	b, err := serial.Canonical(model)
	if err != nil {
		return "", fmt.Errorf("%w into bytes before hashing: %w", ErrPickle, err)
	}
	h := blake3.New()
	if _, err := h.Write(b); err != nil {
		return "", fmt.Errorf("%w: %w", ErrHash, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (e *Envelope[M]) Name() string               { return e.name }
func (e *Envelope[M]) Model() M                   { return e.model }
func (e *Envelope[M]) ModelType() string          { return e.modelType }
func (e *Envelope[M]) ModelHash() string          { return e.modelHash }
func (e *Envelope[M]) CreatedAt() time.Time       { return e.createdAt }
func (e *Envelope[M]) Revision() string           { return e.revision }
func (e *Envelope[M]) TrainDatasetKey() string    { return e.trainKey }
func (e *Envelope[M]) TrainDatasetBucket() string { return e.trainBucket }
func (e *Envelope[M]) TrainDatasetHash() string   { return e.trainHash }
func (e *Envelope[M]) Metadata() map[string]any   { return e.metadata }

func (e *Envelope[M]) Identity() Identity {
	return Identity{
		TrainDatasetHash: e.trainHash,
		TrainDatasetKey:  e.trainKey,
		CreatedAt:        e.createdAt,
		Revision:         e.revision,
	}
}

// Equal compares provenance only. See Envelope.
func (e *Envelope[M]) Equal(other *Envelope[M]) bool {
	if e == nil || other == nil {
		return e == other
	}
	a, b := e.Identity(), other.Identity()
	return a.TrainDatasetHash == b.TrainDatasetHash &&
		a.TrainDatasetKey == b.TrainDatasetKey &&
		a.CreatedAt.Equal(b.CreatedAt) &&
		a.Revision == b.Revision
}

func (e *Envelope[M]) String() string {
	return fmt.Sprintf(
		"name: %s, model_type: %s, model_timestamp: %s, model_hash: %s, train_dataset_key: %s, train_dataset_hash: %s, pipeline_git_commit_hash: %s",
		e.name, e.modelType, e.createdAt.Format(time.RFC3339Nano), e.modelHash, e.trainKey, e.trainHash, e.revision,
	)
}
