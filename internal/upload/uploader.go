// Package upload copies the files of a local directory to S3-compatible
// object storage. It is a thin wrapper over the AWS SDK: no retry logic,
// no recursion, no content inspection.
package upload

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the slice of the S3 API the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader uploads every regular file of one directory, non-recursively,
// keyed by file name under an optional prefix.
type Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	log    *slog.Logger
}

// New creates an uploader on an existing client.
func New(client ObjectPutter, bucket, prefix string, log *slog.Logger) *Uploader {
	if log == nil {
		log = slog.Default()
	}
	return &Uploader{client: client, bucket: bucket, prefix: prefix, log: log}
}

// NewFromConfig builds an uploader backed by the default AWS credential
// chain (environment, shared config, instance role).
func NewFromConfig(ctx context.Context, bucket, prefix string, log *slog.Logger) (*Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, prefix, log), nil
}

// UploadDir sends each regular file directly under dir to the bucket.
// Subdirectories and non-regular entries are skipped. Returns the number
// of files uploaded; the first failed upload aborts the rest.
func (u *Uploader) UploadDir(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("list directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		localPath := filepath.Join(dir, entry.Name())
		key := path.Join(u.prefix, entry.Name())

		f, err := os.Open(localPath)
		if err != nil {
			return count, fmt.Errorf("open %s: %w", localPath, err)
		}
		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(key),
			Body:   f,
		})
		_ = f.Close()
		if err != nil {
			return count, fmt.Errorf("upload %s: %w", entry.Name(), err)
		}

		count++
		u.log.Info("uploaded", "file", entry.Name(), "bucket", u.bucket, "key", key)
	}
	return count, nil
}
