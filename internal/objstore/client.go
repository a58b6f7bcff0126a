package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/avast/retry-go/v4"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes the bucket the client talks to.
type Config struct {
	// Endpoint is the S3 host, e.g. "s3.amazonaws.com" or "localhost:9000".
	Endpoint string
	// Bucket is the bucket holding all wiki objects.
	Bucket string
	// AccessKey and SecretKey authenticate the client.
	AccessKey string
	SecretKey string
	// Region is optional; the zero value lets the SDK resolve it.
	Region string
	// Insecure disables TLS, for local development against minio.
	Insecure bool
}

// Client implements Store on top of an S3-compatible bucket via minio-go.
type Client struct {
	mc     *minio.Client
	bucket string
}

var _ Store = (*Client)(nil)

// New creates a client for the configured bucket.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: !cfg.Insecure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}
	return &Client{mc: mc, bucket: cfg.Bucket}, nil
}

// Get returns the object's bytes and current ETag.
func (c *Client) Get(ctx context.Context, key string) ([]byte, string, error) {
	var data []byte
	var etag string
	err := c.withTransientRetry(ctx, func() error {
		obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return classify("get", key, err)
		}
		defer func() { _ = obj.Close() }()
		stat, err := obj.Stat()
		if err != nil {
			return classify("get", key, err)
		}
		data, err = io.ReadAll(obj)
		if err != nil {
			return classify("get", key, err)
		}
		etag = normalizeETag(stat.ETag)
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return data, etag, nil
}

// Put writes the object subject to opts and returns the new ETag.
//
// Retrying a timed-out conditional write is safe: if the original attempt
// actually landed, the replay fails the precondition, which is
// distinguishable from "never happened".
func (c *Client) Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error) {
	if opts.IfMatch != "" && opts.IfNoneMatch {
		return "", &Error{Op: "put", Key: key, Err: fmt.Errorf("%w: both IfMatch and IfNoneMatch set", ErrFatal)}
	}
	var etag string
	err := c.withTransientRetry(ctx, func() error {
		po := minio.PutObjectOptions{ContentType: opts.ContentType}
		if po.ContentType == "" {
			po.ContentType = "application/octet-stream"
		}
		if opts.IfMatch != "" {
			po.SetMatchETag(opts.IfMatch)
		}
		if opts.IfNoneMatch {
			po.SetMatchETagExcept("*")
		}
		info, err := c.mc.PutObject(ctx, c.bucket, key, bytes.NewReader(data), int64(len(data)), po)
		if err != nil {
			return classify("put", key, err)
		}
		etag = normalizeETag(info.ETag)
		return nil
	})
	if err != nil {
		return "", err
	}
	return etag, nil
}

// Delete removes the object. S3 deletes are idempotent so an absent key
// succeeds.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.withTransientRetry(ctx, func() error {
		err := c.mc.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
		if err != nil {
			err = classify("delete", key, err)
			if IsNotFound(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

// List yields all objects under prefix in key order.
func (c *Client) List(ctx context.Context, prefix string) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if obj.Err != nil {
				yield(ObjectInfo{}, classify("list", prefix, obj.Err))
				return
			}
			info := ObjectInfo{Key: obj.Key, ETag: normalizeETag(obj.ETag), Size: obj.Size}
			if !yield(info, nil) {
				return
			}
		}
	}
}

// withTransientRetry replays fn while it fails with ErrTransient, up to the
// package budget, with exponential backoff and jitter.
func (c *Client) withTransientRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.Attempts(transientAttempts),
		retry.Delay(transientBaseDelay),
		retry.MaxDelay(transientMaxDelay),
		retry.MaxJitter(transientBaseDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(IsTransient),
		retry.LastErrorOnly(true),
	)
}

// normalizeETag strips the quotes S3 wraps around ETag header values so
// comparisons and If-Match round trips are consistent.
func normalizeETag(etag string) string {
	return strings.Trim(etag, `"`)
}
