// Package backup mirrors the durable state file to an S3-compatible object
// store. Uploads are best-effort: the engine never blocks or fails on a
// backup error.
package backup

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"kite-futures-bot/internal/interfaces"
)

// Config holds the connection settings for an S3-compatible provider.
// Endpoint may be left empty for standard AWS S3; path-style addressing is
// required by most compatible providers (MinIO, iDrive e2, R2).
type Config struct {
	Endpoint       string
	Region         string
	Bucket         string
	Prefix         string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
}

// S3Mirror implements interfaces.Mirror on the AWS SDK.
type S3Mirror struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ interfaces.Mirror = (*S3Mirror)(nil)

// New creates an S3 mirror from the given configuration.
func New(ctx context.Context, cfg Config) (*S3Mirror, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("backup: bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("backup: region is required")
	}

	creds := credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("backup: load aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)

	if cfg.Endpoint != "" {
		endpoint := normaliseEndpoint(cfg.Endpoint)
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &S3Mirror{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Upload copies the local state file to the bucket under its base name.
func (m *S3Mirror) Upload(ctx context.Context, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("backup: open %s: %w", localPath, err)
	}
	defer f.Close()

	uploader := manager.NewUploader(m.client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.bucket),
		Key:         aws.String(m.key(localPath)),
		Body:        f,
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("backup: upload %s: %w", localPath, err)
	}
	return nil
}

// Restore downloads the remote copy of the state file over the local path.
// A missing remote object is not an error; it simply means no position was
// ever persisted.
func (m *S3Mirror) Restore(ctx context.Context, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return fmt.Errorf("backup: create state dir: %w", err)
	}

	tmp := localPath + ".restore"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("backup: create %s: %w", tmp, err)
	}

	downloader := manager.NewDownloader(m.client)
	_, err = downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: aws.String(m.bucket),
		Key:    aws.String(m.key(localPath)),
	})
	f.Close()
	if err != nil {
		_ = os.Remove(tmp)
		var noKey *s3types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		return fmt.Errorf("backup: download %s: %w", m.key(localPath), err)
	}

	if err := os.Rename(tmp, localPath); err != nil {
		return fmt.Errorf("backup: commit restore: %w", err)
	}
	return nil
}

func (m *S3Mirror) key(localPath string) string {
	return path.Join(m.prefix, filepath.Base(localPath))
}

func normaliseEndpoint(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err == nil && parsed.Scheme != "" {
		return endpoint
	}
	return "https://" + endpoint
}
