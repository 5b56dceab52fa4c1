// Package objectstore provides the S3-backed prompt backup writer that
// internal/db.BackupWriter is satisfied by in production.
package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

// Config names the bucket and optional endpoint/region override, so the
// same client works against real S3 or an S3-compatible store in tests.
type Config struct {
	Bucket   string
	Region   string
	Endpoint string // optional: non-AWS S3-compatible endpoint
}

// S3Backup implements db.BackupWriter by uploading prompt backup content
// as an S3 object under the configured bucket.
type S3Backup struct {
	bucket   string
	uploader *s3manager.Uploader
	client   *s3.S3
}

// New constructs an S3Backup from cfg, establishing one shared AWS
// session for both the upload and list paths.
func New(cfg Config) (*S3Backup, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket is required")
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	return &S3Backup{
		bucket:   cfg.Bucket,
		uploader: s3manager.NewUploader(sess),
		client:   s3.New(sess),
	}, nil
}

// WritePromptBackup uploads content to key under the configured bucket,
// satisfying db.BackupWriter.
func (b *S3Backup) WritePromptBackup(ctx context.Context, path string, content string) error {
	_, err := b.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(path),
		Body:   bytes.NewReader([]byte(content)),
	})
	if err != nil {
		return fmt.Errorf("upload prompt backup %s: %w", path, err)
	}
	return nil
}

// ListBackups returns every object key under the prompt-backups/ prefix,
// newest-first by key (the key is a formatted timestamp, so lexical
// order is chronological).
func (b *S3Backup) ListBackups(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list prompt backups: %w", err)
	}
	for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
		keys[i], keys[j] = keys[j], keys[i]
	}
	return keys, nil
}
