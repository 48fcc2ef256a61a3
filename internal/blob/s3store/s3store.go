package s3store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/thiagomk/eventdesk/internal/config"
)

// presignExpiry is used only when no public base URL is configured. Logo URLs
// are persisted on the event row, so a public bucket (or CDN) base URL is the
// intended production setup.
const presignExpiry = 7 * 24 * time.Hour

// maxLogoSize bounds a single logo upload.
const maxLogoSize = 5 * 1024 * 1024

// S3LogoStore stores event logos in an S3 bucket.
type S3LogoStore struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	prefix        string
	publicBaseURL string
}

// Load builds the logo store from config. Requires cfg.S3Bucket.
func Load(ctx context.Context, cfg *config.Config) (*S3LogoStore, error) {
	if cfg == nil || cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3store: S3 bucket is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("s3store: load AWS config: %w", err)
	}
	usePathStyle := cfg.S3UsePathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
	return &S3LogoStore{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.S3Bucket,
		prefix:        strings.Trim(strings.TrimSpace(cfg.S3Prefix), "/"),
		publicBaseURL: strings.TrimRight(strings.TrimSpace(cfg.S3PublicBaseURL), "/"),
	}, nil
}

// key builds the object key: <prefix>/<unix-nanos><ext>, mirroring the
// timestamped filename scheme the dashboard has always used for logos.
func (s *S3LogoStore) key(filename string) string {
	name := fmt.Sprintf("%d%s", time.Now().UnixNano(), strings.ToLower(path.Ext(filename)))
	if s.prefix != "" {
		return s.prefix + "/" + name
	}
	return name
}

func (s *S3LogoStore) Upload(ctx context.Context, filename string, data io.Reader, contentType string) (string, error) {
	key := s.key(filename)

	buf, err := io.ReadAll(io.LimitReader(data, maxLogoSize+1))
	if err != nil {
		return "", fmt.Errorf("s3store: read upload: %w", err)
	}
	if int64(len(buf)) > maxLogoSize {
		return "", fmt.Errorf("logo exceeds maximum size of %d bytes", int64(maxLogoSize))
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
		ContentType:   &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("s3store: put object: %w", err)
	}

	return s.publicURL(ctx, key)
}

func (s *S3LogoStore) publicURL(ctx context.Context, key string) (string, error) {
	if s.publicBaseURL != "" {
		return s.publicBaseURL + "/" + key, nil
	}
	resp, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", fmt.Errorf("s3store: presign: %w", err)
	}
	return resp.URL, nil
}
