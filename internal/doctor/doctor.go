package doctor

import (
	"context"
	"fmt"
	"os"
	"time"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/config"
)

type CheckResult struct {
	Name   string
	OK     bool
	Detail string
}

// Prober is the part of the store the checks need.
type Prober interface {
	Ping(ctx context.Context, bucket string) error
	ListObjects(ctx context.Context, bucket, prefix string) ([]artefact.ObjectInfo, error)
}

func Run(ctx context.Context, cfg *config.Config, store Prober) []CheckResult {
	var results []CheckResult

	results = append(results, CheckResult{
		Name:   "config",
		OK:     cfg != nil,
		Detail: "configuration loaded",
	})

	if cfg != nil && store != nil {
		ok, detail := checkBucket(ctx, cfg, store)
		results = append(results, CheckResult{Name: "s3", OK: ok, Detail: detail})
		ok, detail = checkArtefacts(ctx, cfg, store)
		results = append(results, CheckResult{Name: "artefacts", OK: ok, Detail: detail})
	} else {
		results = append(results, CheckResult{Name: "s3", OK: false, Detail: "s3 not configured"})
	}

	ok, detail := checkDisk()
	results = append(results, CheckResult{Name: "disk", OK: ok, Detail: detail})

	return results
}

func checkBucket(ctx context.Context, cfg *config.Config, store Prober) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx, cfg.Bucket); err != nil {
		return false, fmt.Sprintf("s3 bucket check failed: %v", err)
	}
	return true, fmt.Sprintf("s3 OK (bucket=%s)", cfg.Bucket)
}

// checkArtefacts reports how many keys under the folder follow the
// timestamped naming convention.
func checkArtefacts(ctx context.Context, cfg *config.Config, store Prober) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	prefix := artefact.Folder(cfg.Folder)
	objects, err := store.ListObjects(ctx, cfg.Bucket, prefix)
	if err != nil {
		return false, fmt.Sprintf("s3 list failed: %v", err)
	}
	counts := map[artefact.Format]int{}
	for _, obj := range objects {
		if a, err := artefact.New(cfg.Bucket, obj.Key, obj.ETag); err == nil {
			counts[a.Format()]++
		}
	}
	return true, fmt.Sprintf("%d objects under s3://%s/%s (csv=%d, parquet=%d, pkl=%d)",
		len(objects), cfg.Bucket, prefix,
		counts[artefact.FormatCSV], counts[artefact.FormatParquet], counts[artefact.FormatPickle])
}

func checkDisk() (bool, string) {
	dir := os.TempDir()
	f, err := os.CreateTemp(dir, "pipelineutils-doctor-*")
	if err != nil {
		return false, fmt.Sprintf("create temp file failed in %s: %v", dir, err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString("test"); err != nil {
		_ = f.Close()
		return false, fmt.Sprintf("write temp file failed: %v", err)
	}
	if err := f.Close(); err != nil {
		return false, fmt.Sprintf("close temp file failed: %v", err)
	}
	return true, fmt.Sprintf("temp dir writable (%s)", dir)
}
