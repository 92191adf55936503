package model

import (
	"context"
	"fmt"
	"os"
	"time"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/serial"
	"PipelineUtils/pkg/logger"
)

// envelopeKind marks persisted payloads as model envelopes.
const envelopeKind = "pipelineutils.model/v1"

var requiredFields = []string{
	"kind", "name", "model", "model_hash", "created_at",
	"revision", "train_dataset_key", "train_dataset_hash",
}

type record[M any] struct {
	Kind        string         `cbor:"kind"`
	Name        string         `cbor:"name"`
	Model       M              `cbor:"model"`
	ModelType   string         `cbor:"model_type"`
	ModelHash   string         `cbor:"model_hash"`
	CreatedAt   time.Time      `cbor:"created_at"`
	Revision    string         `cbor:"revision"`
	TrainKey    string         `cbor:"train_dataset_key"`
	TrainBucket string         `cbor:"train_dataset_bucket"`
	TrainHash   string         `cbor:"train_dataset_hash"`
	Metadata    map[string]any `cbor:"metadata,omitempty"`
}

func (e *Envelope[M]) record() record[M] {
	return record[M]{
		Kind:        envelopeKind,
		Name:        e.name,
		Model:       e.model,
		ModelType:   e.modelType,
		ModelHash:   e.modelHash,
		CreatedAt:   e.createdAt,
		Revision:    e.revision,
		TrainKey:    e.trainKey,
		TrainBucket: e.trainBucket,
		TrainHash:   e.trainHash,
		Metadata:    e.metadata,
	}
}

func (r record[M]) envelope() *Envelope[M] {
	return &Envelope[M]{
		name:        r.Name,
		model:       r.Model,
		modelType:   r.ModelType,
		modelHash:   r.ModelHash,
		createdAt:   r.CreatedAt.UTC(),
		revision:    r.Revision,
		trainKey:    r.TrainKey,
		trainBucket: r.TrainBucket,
		trainHash:   r.TrainHash,
		metadata:    r.Metadata,
	}
}

// Filename is the object name the envelope is stored under.
func (e *Envelope[M]) Filename() string {
	return artefact.TimestampedFilename(e.name, e.createdAt, artefact.FormatPickle)
}

// Put stores the whole envelope, model included, under bucket/folder and
// returns its location as "bucket/key".
func (e *Envelope[M]) Put(ctx context.Context, store artefact.Storage, bucket, folder string) (string, error) {
	filename := e.Filename()

	tmp, err := os.CreateTemp("", "model-*.pkl")
	if err != nil {
		return "", fmt.Errorf("%w %s: temp file: %w", artefact.ErrSerialize, filename, err)
	}
	defer os.Remove(tmp.Name())

	if err := serial.Encode(tmp, e.record()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("%w %s: %w", artefact.ErrSerialize, filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w %s: %w", artefact.ErrSerialize, filename, err)
	}

	key, err := artefact.PutFile(ctx, store, tmp.Name(), bucket, folder, filename)
	if err != nil {
		return "", err
	}
	logger.Log.Debug().Str("model", e.name).Str("hash", e.modelHash).Str("key", key).Msg("model stored")
	return artefact.Location(bucket, key), nil
}

// GetLatest loads the newest envelope under bucket/folder. The payload must
// carry every envelope field and a model that decodes into M.
func GetLatest[M any](ctx context.Context, store artefact.Storage, bucket, folder string) (*Envelope[M], error) {
	a, err := artefact.FindLatest(ctx, store, artefact.FormatPickle, bucket, folder)
	if err != nil {
		return nil, err
	}
	rc, err := a.Get(ctx, store)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := serial.Decode(rc)
	if err != nil {
		return nil, fmt.Errorf("s3://%s/%s %w: %w", bucket, a.Key(), ErrUnpickle, err)
	}

	fields, ok := serial.Fields(data)
	if !ok {
		return nil, fmt.Errorf("s3://%s/%s is %w", bucket, a.Key(), ErrNotModel)
	}
	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("s3://%s/%s is %w: missing %q", bucket, a.Key(), ErrNotModel, name)
		}
	}

	var r record[M]
	if err := serial.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("s3://%s/%s is %w: %w", bucket, a.Key(), ErrNotModel, err)
	}
	if r.Kind != envelopeKind {
		return nil, fmt.Errorf("s3://%s/%s is %w: kind %q", bucket, a.Key(), ErrNotModel, r.Kind)
	}
	return r.envelope(), nil
}
