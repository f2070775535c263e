package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/ruteri/certificate-registry/interfaces"
)

// S3Config holds the settings of an S3 or S3-compatible archive bucket.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// ACL is applied to stored objects when set, e.g. "public-read".
	ACL string
	// PathStyle forces path-style addressing, required by most S3-compatible servers.
	PathStyle bool
}

// S3Backend implements a storage backend using Amazon S3 or compatible services.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	prefix      string
	acl         string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates a new S3 storage backend. Without static credentials the
// default AWS credential chain is used.
func NewS3Backend(cfg S3Config, log *slog.Logger) (*S3Backend, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: missing S3 bucket", interfaces.ErrInvalidLocationURI)
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if log == nil {
		log = slog.Default()
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", cfg.Bucket, cfg.Prefix, cfg.Region)
	if cfg.Endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", cfg.Endpoint)
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.PathStyle {
		awsCfg = awsCfg.WithS3ForcePathStyle(true)
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucketName:  cfg.Bucket,
		prefix:      strings.Trim(cfg.Prefix, "/"),
		acl:         cfg.ACL,
		log:         log,
		locationURI: uri,
	}, nil
}

// Fetch retrieves an object from S3 by its content identifier and type.
// Returns ErrContentNotFound if the object doesn't exist.
func (b *S3Backend) Fetch(ctx context.Context, id interfaces.ContentID, contentType interfaces.ContentType) ([]byte, error) {
	start := time.Now()
	key := b.getObjectKey(id, contentType)

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			b.log.Debug("Content not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", key),
				slog.Duration("duration", time.Since(start)))
			return nil, interfaces.ErrContentNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", key),
			"err", err)
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}
	if interfaces.ComputeID(data) != id {
		return nil, fmt.Errorf("%w: s3://%s/%s", ErrContentMismatch, b.bucketName, key)
	}

	b.log.Debug("Fetched content from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Store saves data to S3 and returns its content identifier.
func (b *S3Backend) Store(ctx context.Context, data []byte, contentType interfaces.ContentType) (interfaces.ContentID, error) {
	id := interfaces.ComputeID(data)
	key := b.getObjectKey(id, contentType)

	input := &s3.PutObjectInput{
		Bucket:      aws.String(b.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	if b.acl != "" {
		input.ACL = aws.String(b.acl)
	}

	if _, err := b.client.PutObjectWithContext(ctx, input); err != nil {
		return id, fmt.Errorf("failed to upload object to S3: %w", err)
	}

	b.log.Debug("Stored content in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", key),
		slog.String("contentID", id.String()))

	return id, nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

func (b *S3Backend) getObjectKey(id interfaces.ContentID, contentType interfaces.ContentType) string {
	return path.Join(b.prefix, contentType.String(), id.String())
}

func isS3NotFound(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) && reqErr.StatusCode() == 404 {
		return true
	}
	return false
}
