package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/xralks/Bancodealimentos/pkg/config"
)

// ObjectStore stores public blobs such as avatar images.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Remove(ctx context.Context, key string) error
	PublicURL(key string) string
}

// AllowImage lists the avatar content types accepted by default.
var AllowImage = []string{"image/jpeg", "image/png"}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store writes objects to an S3 compatible bucket.
type S3Store struct {
	client        s3API
	bucket        string
	publicBaseURL string
}

// NewS3Store builds an S3 client from the avatar configuration. Static credentials are
// used when provided, otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg config.AvatarsConfig) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("avatar bucket not configured")
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return newS3Store(client, cfg.Bucket, base), nil
}

func newS3Store(client s3API, bucket, publicBaseURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}
}

// Put uploads body under key with a public-read ACL and returns its public URL.
func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		ACL:           "public-read",
	})
	if err != nil {
		return "", fmt.Errorf("s3 put %s: %w", key, err)
	}
	return s.PublicURL(key), nil
}

// Remove deletes key from the bucket.
func (s *S3Store) Remove(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

// PublicURL returns the public link for key.
func (s *S3Store) PublicURL(key string) string {
	return s.publicBaseURL + "/" + (&url.URL{Path: strings.TrimLeft(key, "/")}).EscapedPath()
}

// KeyFromURL maps a public URL produced by store back to its object key.
// It returns an empty string for URLs the store did not issue.
func KeyFromURL(store ObjectStore, link string) string {
	if link == "" {
		return ""
	}
	prefix := strings.TrimSuffix(store.PublicURL(""), "/") + "/"
	if !strings.HasPrefix(link, prefix) {
		return ""
	}
	key, err := url.PathUnescape(strings.TrimPrefix(link, prefix))
	if err != nil {
		return ""
	}
	return key
}

// NewObjectStore picks the avatar backend named by cfg.Driver.
func NewObjectStore(ctx context.Context, cfg config.AvatarsConfig) (ObjectStore, error) {
	switch cfg.Driver {
	case config.AvatarDriverS3:
		return NewS3Store(ctx, cfg)
	case config.AvatarDriverLocal, "":
		local, err := NewLocalStorage(cfg.LocalDir)
		if err != nil {
			return nil, err
		}
		return local.WithPublicBaseURL(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown avatar driver %q", cfg.Driver)
	}
}
