//go:build integration

package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"PipelineUtils/internal/s3"
)

func getMinIOEnv() (endpoint, accessKey, secretKey, bucket string) {
	endpoint = os.Getenv("PIPELINEUTILS_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	accessKey = os.Getenv("PIPELINEUTILS_MINIO_ACCESS_KEY")
	if accessKey == "" {
		accessKey = "minioadmin"
	}
	secretKey = os.Getenv("PIPELINEUTILS_MINIO_SECRET_KEY")
	if secretKey == "" {
		secretKey = "minioadmin"
	}
	bucket = os.Getenv("PIPELINEUTILS_MINIO_BUCKET")
	if bucket == "" {
		bucket = "pipelineutils-test"
	}
	return strings.TrimSuffix(endpoint, "/"), accessKey, secretKey, bucket
}

// newClient connects to MinIO, ensures the test bucket exists and returns a
// fresh folder so runs do not see each other's artefacts. Everything
// written under the folder is deleted when the test ends.
func newClient(ctx context.Context, t *testing.T, opts s3.Options) (*s3.Client, string, string) {
	t.Helper()
	endpoint, accessKey, secretKey, bucket := getMinIOEnv()
	opts.Endpoint = endpoint
	opts.AccessKey = accessKey
	opts.SecretKey = secretKey
	opts.PathStyle = true
	opts.InsecureSkipVerify = true

	client, err := s3.New(ctx, opts)
	if err != nil {
		t.Fatalf("s3.New: %v", err)
	}
	if err := client.CreateBucket(ctx, bucket); err != nil {
		t.Fatalf("CreateBucket: %v", err)
	}
	folder := "integration-test/" + uuid.NewString()
	t.Cleanup(func() { deleteFolder(t, client, bucket, folder) })
	return client, bucket, folder
}

func deleteFolder(t *testing.T, client *s3.Client, bucket, folder string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	objects, err := client.ListObjects(ctx, bucket, folder+"/")
	if err != nil {
		t.Logf("cleanup list %s: %v", folder, err)
		return
	}
	for _, obj := range objects {
		if err := client.DeleteObject(ctx, bucket, obj.Key); err != nil {
			t.Errorf("cleanup delete %s: %v", obj.Key, err)
		}
	}
}
