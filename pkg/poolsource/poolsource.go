// Package poolsource opens newline-delimited pool files from the local file
// system, S3 or Google Cloud Storage. Files ending in .gz or .zst are
// decompressed on the fly.
package poolsource

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"google.golang.org/api/option"

	"github.com/TFMV/masquerade/config"
)

// Sources opens pool files by location. Cloud clients are created on first use.
type Sources struct {
	cfg config.StorageConfig

	mu  sync.Mutex
	s3  *s3.Client
	gcs *storage.Client
}

// New creates Sources using cfg for cloud credentials.
func New(cfg config.StorageConfig) *Sources {
	return &Sources{cfg: cfg}
}

// Open returns a reader over the decompressed contents at location, which is
// a local path, an s3://bucket/key URI or a gs://bucket/object URI.
func (s *Sources) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	rc, err := s.openRaw(ctx, location)
	if err != nil {
		return nil, err
	}
	return decompress(location, rc)
}

// Close releases cloud clients.
func (s *Sources) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gcs != nil {
		err := s.gcs.Close()
		s.gcs = nil
		return err
	}
	return nil
}

func (s *Sources) openRaw(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "s3://"):
		bucket, key, err := splitURI(location)
		if err != nil {
			return nil, err
		}
		client, err := s.s3Client(ctx)
		if err != nil {
			return nil, err
		}
		out, err := client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", location, err)
		}
		return out.Body, nil
	case strings.HasPrefix(location, "gs://"):
		bucket, object, err := splitURI(location)
		if err != nil {
			return nil, err
		}
		client, err := s.gcsClient(ctx)
		if err != nil {
			return nil, err
		}
		r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetching %s: %w", location, err)
		}
		return r, nil
	default:
		f, err := os.Open(strings.TrimPrefix(location, "file://"))
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

func splitURI(location string) (string, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", fmt.Errorf("invalid location %q: %w", location, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host == "" || key == "" {
		return "", "", fmt.Errorf("invalid location %q: bucket and key are required", location)
	}
	return u.Host, key, nil
}

func (s *Sources) s3Client(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.s3 != nil {
		return s.s3, nil
	}
	cfg := s.cfg.S3
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	s.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return s.s3, nil
}

func (s *Sources) gcsClient(ctx context.Context) (*storage.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gcs != nil {
		return s.gcs, nil
	}
	opts := []option.ClientOption{}
	if path := strings.TrimSpace(s.cfg.GCS.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	s.gcs = client
	return client, nil
}

// decompressed closes both the decoder and the underlying source.
type decompressed struct {
	io.Reader
	closeDecoder func() error
	src          io.Closer
}

func (d *decompressed) Close() error {
	derr := d.closeDecoder()
	if err := d.src.Close(); err != nil {
		return err
	}
	return derr
}

func decompress(location string, rc io.ReadCloser) (io.ReadCloser, error) {
	switch {
	case strings.HasSuffix(location, ".gz"):
		zr, err := gzip.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", location, err)
		}
		return &decompressed{Reader: zr, closeDecoder: zr.Close, src: rc}, nil
	case strings.HasSuffix(location, ".zst"):
		zr, err := zstd.NewReader(rc)
		if err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("opening zstd stream %s: %w", location, err)
		}
		return &decompressed{Reader: zr, closeDecoder: func() error { zr.Close(); return nil }, src: rc}, nil
	default:
		return rc, nil
	}
}
