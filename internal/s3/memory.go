package s3

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"PipelineUtils/internal/artefact"
)

type memoryObject struct {
	data []byte
	etag string
}

// MemoryStore is an in-process artefact.Storage. Entity tags are the quoted
// MD5 of the body, as S3 reports for single-part uploads, and listings are
// in key order.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string]memoryObject
}

var _ artefact.Storage = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string]memoryObject)}
}

func (m *MemoryStore) ListObjects(_ context.Context, bucket, prefix string) ([]artefact.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("memory list: bucket %q does not exist", bucket)
	}
	var out []artefact.ObjectInfo
	for key, obj := range objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, artefact.ObjectInfo{Key: key, ETag: obj.etag, Size: int64(len(obj.data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, fmt.Errorf("memory get: no such key %s/%s", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStore) PutObject(_ context.Context, bucket, key string, body io.Reader, _ int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("memory put: %w", err)
	}
	m.put(bucket, key, data)
	return nil
}

func (m *MemoryStore) UploadFile(_ context.Context, localPath, bucket, key string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s", artefact.ErrLocalFileMissing, localPath)
		}
		return fmt.Errorf("memory upload: %w", err)
	}
	m.put(bucket, key, data)
	return nil
}

// CreateBucket makes bucket available for listing; existing buckets are kept.
func (m *MemoryStore) CreateBucket(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memoryObject)
	}
	return nil
}

// Ping fails when bucket has not been created or written to.
func (m *MemoryStore) Ping(_ context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		return fmt.Errorf("memory ping: bucket %q does not exist", bucket)
	}
	return nil
}

// Set stores data directly, for seeding fixtures.
func (m *MemoryStore) Set(bucket, key string, data []byte) {
	m.put(bucket, key, data)
}

// Bytes returns a copy of the stored object and whether it exists.
func (m *MemoryStore) Bytes(bucket, key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.buckets[bucket][key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), obj.data...), true
}

func (m *MemoryStore) put(bucket, key string, data []byte) {
	sum := md5.Sum(data)
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string]memoryObject)
		m.buckets[bucket] = objects
	}
	objects[key] = memoryObject{data: data, etag: `"` + hex.EncodeToString(sum[:]) + `"`}
}
