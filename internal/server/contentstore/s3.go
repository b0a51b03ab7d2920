package contentstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/zeebo/blake3"
)

// s3ContentPrefix marks content ids derived from a BLAKE3 hash of the bytes.
const s3ContentPrefix = "b3-"

// S3Options configures the S3-compatible backend (MinIO or AWS).
type S3Options struct {
	Region   string
	User     string
	Password string
	Bucket   string
	Endpoint string
}

// S3 is a content-addressable Backend on top of an S3 bucket: objects are
// keyed by the BLAKE3 hash of their bytes.
type S3 struct {
	client *s3.Client
	bucket string
}

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

// NewS3 builds an S3 client with static credentials and path-style
// addressing against opts.Endpoint.
func NewS3(ctx context.Context, opts S3Options) (*S3, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3 bucket is required")
	}
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.User, opts.Password, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = true
		o.RetryMaxAttempts = 1
	})
	return &S3{client: client, bucket: opts.Bucket}, nil
}

func (b *S3) Name() string { return "s3" }

// Add hashes r, rewinds it and stores it under its content id. Storing the
// same bytes twice is idempotent.
func (b *S3) Add(ctx context.Context, r io.ReadSeeker) (string, error) {
	cid, size, err := blake3ContentID(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind: %w", err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(b.bucket),
		Key:           aws.String(cid),
		Body:          r,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return cid, nil
}

func (b *S3) Stat(ctx context.Context, contentID string) (Info, error) {
	if !strings.HasPrefix(contentID, s3ContentPrefix) {
		return Info{}, fmt.Errorf("not an s3 content id: %q", contentID)
	}
	out, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(contentID),
	})
	if err != nil {
		return Info{}, fmt.Errorf("head object: %w", err)
	}
	return Info{
		ContentID: contentID,
		Size:      aws.ToInt64(out.ContentLength),
		Type:      aws.ToString(out.ContentType),
	}, nil
}

func (b *S3) Node(ctx context.Context) (NodeStatus, error) {
	if _, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(b.bucket)}); err != nil {
		return NodeStatus{}, fmt.Errorf("head bucket: %w", err)
	}
	return NodeStatus{NodeID: b.bucket}, nil
}

// Pin is a no-op: objects stay until deleted.
func (b *S3) Pin(context.Context, string) error { return nil }

// Unpin deletes the object.
func (b *S3) Unpin(ctx context.Context, contentID string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(contentID),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func blake3ContentID(r io.Reader) (string, int64, error) {
	h := blake3.New()
	n, err := io.Copy(h, r)
	if err != nil {
		return "", 0, fmt.Errorf("hash content: %w", err)
	}
	return s3ContentPrefix + hex.EncodeToString(h.Sum(nil)), n, nil
}
