package model

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/dataset"
	"PipelineUtils/internal/s3"
	"PipelineUtils/internal/serial"
)

const bucket = "project-bucket"

type linearModel struct {
	Coef      []float64 `cbor:"coef"`
	Intercept float64   `cbor:"intercept"`
}

var (
	trainedAt = time.Date(2021, 7, 12, 13, 0, 0, 500, time.UTC)
	train     = &dataset.Dataset{Bucket: bucket, Key: "datasets/train_2021-07-12T00:00:00.csv", Hash: `"abc123"`}
)

func fixedClock(ts time.Time) Option {
	return WithClock(func() time.Time { return ts })
}

func newEnvelope(t *testing.T, m linearModel, ds *dataset.Dataset, ts time.Time, opts ...Option) *Envelope[linearModel] {
	t.Helper()
	e, err := New("regressor", m, ds, append([]Option{fixedClock(ts)}, opts...)...)
	require.NoError(t, err)
	return e
}

func TestNew(t *testing.T) {
	t.Setenv(DefaultRevisionEnv, "deadbeef")
	m := linearModel{Coef: []float64{1, 2}, Intercept: 0.5}
	e := newEnvelope(t, m, train, trainedAt, WithMetadata(map[string]any{"owner": "ml"}))

	assert.Equal(t, "regressor", e.Name())
	assert.Equal(t, m, e.Model())
	assert.Equal(t, "model.linearModel", e.ModelType())
	assert.Len(t, e.ModelHash(), 64)
	assert.True(t, trainedAt.Equal(e.CreatedAt()))
	assert.Equal(t, "deadbeef", e.Revision())
	assert.Equal(t, train.Key, e.TrainDatasetKey())
	assert.Equal(t, train.Bucket, e.TrainDatasetBucket())
	assert.Equal(t, train.Hash, e.TrainDatasetHash())
	assert.Equal(t, "ml", e.Metadata()["owner"])
}

func TestNew_RevisionDefaultsToNA(t *testing.T) {
	e := newEnvelope(t, linearModel{}, train, trainedAt, WithRevisionEnv("PIPELINEUTILS_TEST_REVISION_UNSET"))
	assert.Equal(t, UnknownRevision, e.Revision())
}

func TestNew_RequiresDataset(t *testing.T) {
	_, err := New("m", 1, nil)
	assert.ErrorIs(t, err, ErrDataset)
}

func TestHash(t *testing.T) {
	a, err := Hash(linearModel{Coef: []float64{1}})
	require.NoError(t, err)
	b, err := Hash(linearModel{Coef: []float64{1}})
	require.NoError(t, err)
	c, err := Hash(linearModel{Coef: []float64{2}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	_, err = Hash(make(chan int))
	assert.ErrorIs(t, err, ErrPickle)

	_, err = New("m", make(chan int), train)
	assert.ErrorIs(t, err, ErrPickle)
}

func TestEqual_IgnoresModel(t *testing.T) {
	t.Setenv(DefaultRevisionEnv, "rev1")
	a := newEnvelope(t, linearModel{Coef: []float64{1}}, train, trainedAt)
	b := newEnvelope(t, linearModel{Coef: []float64{99}}, train, trainedAt)
	assert.NotEqual(t, a.ModelHash(), b.ModelHash())
	assert.True(t, a.Equal(b))
}

func TestEqual_IdentityFields(t *testing.T) {
	t.Setenv(DefaultRevisionEnv, "rev1")
	base := newEnvelope(t, linearModel{}, train, trainedAt)

	otherHash := *train
	otherHash.Hash = `"zzz"`
	otherKey := *train
	otherKey.Key = "datasets/other.csv"

	t.Run("dataset hash", func(t *testing.T) {
		assert.False(t, base.Equal(newEnvelope(t, linearModel{}, &otherHash, trainedAt)))
	})
	t.Run("dataset key", func(t *testing.T) {
		assert.False(t, base.Equal(newEnvelope(t, linearModel{}, &otherKey, trainedAt)))
	})
	t.Run("created at", func(t *testing.T) {
		assert.False(t, base.Equal(newEnvelope(t, linearModel{}, train, trainedAt.Add(time.Nanosecond))))
	})
	t.Run("revision", func(t *testing.T) {
		t.Setenv(DefaultRevisionEnv, "rev2")
		assert.False(t, base.Equal(newEnvelope(t, linearModel{}, train, trainedAt)))
	})
	t.Run("dataset bucket is not identity", func(t *testing.T) {
		otherBucket := *train
		otherBucket.Bucket = "elsewhere"
		assert.True(t, base.Equal(newEnvelope(t, linearModel{}, &otherBucket, trainedAt)))
	})
}

func TestString(t *testing.T) {
	t.Setenv(DefaultRevisionEnv, "rev1")
	e := newEnvelope(t, linearModel{}, train, trainedAt)
	s := e.String()
	for _, want := range []string{
		"name: regressor",
		"model_type: model.linearModel",
		"model_timestamp: 2021-07-12T13:00:00.0000005Z",
		"model_hash: " + e.ModelHash(),
		"train_dataset_key: " + train.Key,
		"train_dataset_hash: " + train.Hash,
		"pipeline_git_commit_hash: rev1",
	} {
		assert.Contains(t, s, want)
	}
	assert.Equal(t, s, e.String())
}

func TestPutThenGetLatest(t *testing.T) {
	t.Setenv(DefaultRevisionEnv, "rev1")
	ctx := context.Background()
	store := s3.NewMemoryStore()

	older := newEnvelope(t, linearModel{Coef: []float64{0}}, train, trainedAt.Add(-time.Hour))
	_, err := older.Put(ctx, store, bucket, "models")
	require.NoError(t, err)

	m := linearModel{Coef: []float64{1.5, -2}, Intercept: 3}
	e := newEnvelope(t, m, train, trainedAt, WithMetadata(map[string]any{"owner": "ml"}))
	loc, err := e.Put(ctx, store, bucket, "models")
	require.NoError(t, err)
	assert.Equal(t, bucket+"/models/regressor_2021-07-12T13:00:00.pkl", loc)

	got, err := GetLatest[linearModel](ctx, store, bucket, "models")
	require.NoError(t, err)
	assert.True(t, e.Equal(got))
	assert.Equal(t, m, got.Model())
	assert.Equal(t, e.ModelHash(), got.ModelHash())
	assert.Equal(t, e.ModelType(), got.ModelType())
	assert.Equal(t, e.TrainDatasetBucket(), got.TrainDatasetBucket())
	assert.Equal(t, "ml", got.Metadata()["owner"])
	assert.Equal(t, e.String(), got.String())
}

func TestGetLatest_Corrupt(t *testing.T) {
	store := s3.NewMemoryStore()
	store.Set(bucket, "models/m_2030-01-01T00:00:00.pkl", []byte("definitely not a model"))
	_, err := GetLatest[linearModel](context.Background(), store, bucket, "models")
	assert.ErrorIs(t, err, ErrUnpickle)
	assert.NotErrorIs(t, err, ErrNotModel)
}

func TestGetLatest_NotModel(t *testing.T) {
	encode := func(v any) []byte {
		var buf bytes.Buffer
		require.NoError(t, serial.Encode(&buf, v))
		return buf.Bytes()
	}

	cases := map[string][]byte{
		"scalar":      encode(42),
		"foreign map": encode(map[string]any{"foo": 1}),
		"wrong kind": encode(map[string]any{
			"kind": "other", "name": "x", "model": 1, "model_hash": "h", "created_at": trainedAt,
			"revision": "r", "train_dataset_key": "k", "train_dataset_hash": "h",
		}),
	}

	t.Setenv(DefaultRevisionEnv, "rev1")
	e, err := New("regressor", "a string model", train, fixedClock(trainedAt))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, serial.Encode(&buf, e.record()))
	cases["model type"] = buf.Bytes()

	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			store := s3.NewMemoryStore()
			store.Set(bucket, "models/m_2030-01-01T00:00:00.pkl", payload)
			_, err := GetLatest[linearModel](context.Background(), store, bucket, "models")
			assert.ErrorIs(t, err, ErrNotModel)
			assert.NotErrorIs(t, err, ErrUnpickle)
		})
	}
}

func TestGetLatest_NotFound(t *testing.T) {
	store := s3.NewMemoryStore()
	store.Set(bucket, "models/readme.txt", []byte("x"))
	_, err := GetLatest[linearModel](context.Background(), store, bucket, "models")
	assert.True(t, artefact.IsNotFound(err))
}

func TestFilename(t *testing.T) {
	e := newEnvelope(t, linearModel{}, train, trainedAt)
	assert.True(t, strings.HasPrefix(e.Filename(), "regressor_2021-07-12T13:00:00"))
	assert.True(t, strings.HasSuffix(e.Filename(), ".pkl"))
}

type privateModel struct {
	weights []float64
}

type packedModel struct {
	weights []byte
}

func (p packedModel) MarshalBinary() ([]byte, error) { return p.weights, nil }

func (p *packedModel) UnmarshalBinary(b []byte) error {
	p.weights = append([]byte(nil), b...)
	return nil
}

type brokenUpload struct {
	*s3.MemoryStore
}

func (brokenUpload) UploadFile(context.Context, string, string, string) error {
	return errors.New("connection reset")
}

func TestNew_UnexportedStateIsRejected(t *testing.T) {
	_, err := New("private", privateModel{weights: []float64{1, 2}}, train)
	assert.ErrorIs(t, err, ErrPickle)

	_, err = Hash(privateModel{weights: []float64{3}})
	assert.ErrorIs(t, err, ErrPickle)
}

func TestPutThenGetLatest_BinaryMarshaler(t *testing.T) {
	ctx := context.Background()
	store := s3.NewMemoryStore()

	a, err := New("packed", packedModel{weights: []byte{1, 2, 3}}, train, fixedClock(trainedAt))
	require.NoError(t, err)
	b, err := New("packed", packedModel{weights: []byte{9}}, train, fixedClock(trainedAt))
	require.NoError(t, err)
	assert.NotEqual(t, a.ModelHash(), b.ModelHash())

	_, err = a.Put(ctx, store, bucket, "models")
	require.NoError(t, err)
	got, err := GetLatest[packedModel](ctx, store, bucket, "models")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got.Model().weights)
	assert.Equal(t, a.ModelHash(), got.ModelHash())
}

func TestPut_RemovesTempFile(t *testing.T) {
	ctx := context.Background()
	unencodable := newEnvelope(t, linearModel{}, train, trainedAt,
		WithMetadata(map[string]any{"callback": make(chan int)}))

	tests := []struct {
		name    string
		env     *Envelope[linearModel]
		store   artefact.Storage
		wantErr error
	}{
		{"success", newEnvelope(t, linearModel{Coef: []float64{1}}, train, trainedAt), s3.NewMemoryStore(), nil},
		{"encode failure", unencodable, s3.NewMemoryStore(), artefact.ErrSerialize},
		{"upload failure", newEnvelope(t, linearModel{}, train, trainedAt), brokenUpload{s3.NewMemoryStore()}, artefact.ErrUpload},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Setenv("TMPDIR", dir)

			_, err := tt.env.Put(ctx, tt.store, bucket, "models")
			if tt.wantErr == nil {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, tt.wantErr)
			}
			left, err := filepath.Glob(filepath.Join(dir, "model-*"))
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}
