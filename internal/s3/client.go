package s3

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/pkg/logger"
)

const (
	MinPartSizeMB    = 5
	MinPartSizeBytes = MinPartSizeMB * 1024 * 1024

	DefaultMultipartThresholdMB = 64
	DefaultRegion               = "us-east-1"
)

type Options struct {
	Endpoint           string
	Region             string
	AccessKey          string
	SecretKey          string
	PathStyle          bool
	InsecureSkipVerify bool
	// Files at or above this size are uploaded in parts.
	MultipartThresholdBytes int64
	PartSizeBytes           int64
}

// Client is a reusable handle on an S3-compatible store. It carries only
// connection settings; bucket and key are passed on every call.
type Client struct {
	client             *s3.Client
	multipartThreshold int64
	partSize           int64
}

var _ artefact.Storage = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Region == "" {
		opts.Region = DefaultRegion
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if endpoint := strings.TrimSpace(opts.Endpoint); endpoint != "" {
		endpointURL, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("s3 endpoint: %w", err)
		}
		if endpointURL.Scheme == "" {
			endpointURL, err = url.Parse("https://" + endpoint)
			if err != nil {
				return nil, fmt.Errorf("s3 endpoint: %w", err)
			}
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpointURL.String())
		})
	}
	if opts.PathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	if opts.InsecureSkipVerify {
		httpClient := &http.Client{
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		}
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.HTTPClient = httpClient
		})
	}

	threshold := opts.MultipartThresholdBytes
	if threshold <= 0 {
		threshold = DefaultMultipartThresholdMB * 1024 * 1024
	}
	partSize := opts.PartSizeBytes
	if partSize < MinPartSizeBytes {
		partSize = MinPartSizeBytes
	}

	return &Client{
		client:             s3.NewFromConfig(cfg, s3Opts...),
		multipartThreshold: threshold,
		partSize:           partSize,
	}, nil
}

// ListObjects returns the objects under prefix from a single ListObjectsV2
// call; results beyond the backend's page size are not fetched.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]artefact.ObjectInfo, error) {
	out, err := c.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return nil, describe("list", err)
	}
	objects := make([]artefact.ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		if obj.Key == nil {
			continue
		}
		objects = append(objects, artefact.ObjectInfo{
			Key:  *obj.Key,
			ETag: aws.ToString(obj.ETag),
			Size: aws.ToInt64(obj.Size),
		})
	}
	if aws.ToBool(out.IsTruncated) {
		logger.Log.Debug().Str("bucket", bucket).Str("prefix", prefix).Msg("listing truncated")
	}
	return objects, nil
}

func (c *Client) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, describe("get", err)
	}
	return out.Body, nil
}

func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, contentLength int64) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(contentLength),
	})
	if err != nil {
		return describe("put", err)
	}
	return nil
}

// UploadFile streams a local file to bucket/key, switching to a multipart
// upload for large files.
func (c *Client) UploadFile(ctx context.Context, localPath, bucket, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w at %s", artefact.ErrLocalFileMissing, localPath)
		}
		return fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}
	if info.Size() >= c.multipartThreshold {
		return c.UploadMultipart(ctx, bucket, key, f, c.partSize)
	}
	return c.PutObject(ctx, bucket, key, f, info.Size())
}

// DeleteObject removes a single key. Deleting a missing key is not an error.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return describe("delete", err)
	}
	return nil
}

// CreateBucket creates bucket, treating an existing bucket owned by the
// caller as success.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			return nil
		}
		return describe("create bucket", err)
	}
	return nil
}

func (c *Client) Ping(ctx context.Context, bucket string) error {
	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return describe("head bucket", err)
	}
	return nil
}

func (c *Client) Client() *s3.Client {
	return c.client
}

func describe(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 %s: %s: %w", op, apiErr.ErrorCode(), err)
	}
	return fmt.Errorf("s3 %s: %w", op, err)
}
