package logo

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3API is the subset of *s3.Client used by S3Store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Presigner is the subset of *s3.PresignClient used by S3Store.
type Presigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Store uploads logos to an S3 bucket.
//
// With a public URL the reference is publicURL/key. Otherwise a presigned
// GET URL is returned, valid for the configured expiry.
//
//	client := s3.New(s3.Options{Region: "sa-east-1"})
//	store := logo.NewS3Store(client, "painel-logos",
//	    logo.WithPresigner(s3.NewPresignClient(client)))
type S3Store struct {
	client    S3API
	presigner Presigner
	bucket    string
	prefix    string
	publicURL string
	urlExpiry time.Duration
}

// S3Option configures an S3Store.
type S3Option func(*S3Store)

// WithKeyPrefix sets the key prefix, e.g. "logos/".
func WithKeyPrefix(prefix string) S3Option {
	return func(s *S3Store) {
		s.prefix = prefix
	}
}

// WithPublicURL sets the base URL the bucket is publicly readable at.
func WithPublicURL(base string) S3Option {
	return func(s *S3Store) {
		s.publicURL = strings.TrimRight(base, "/")
	}
}

// WithPresigner sets the presigner used when there is no public URL.
func WithPresigner(p Presigner) S3Option {
	return func(s *S3Store) {
		s.presigner = p
	}
}

// WithURLExpiry sets how long presigned URLs are valid.
// Default: 7 days, the SigV4 maximum.
func WithURLExpiry(d time.Duration) S3Option {
	return func(s *S3Store) {
		s.urlExpiry = d
	}
}

// NewS3Store creates an S3 logo store.
func NewS3Store(client S3API, bucket string, opts ...S3Option) *S3Store {
	s := &S3Store{
		client:    client,
		bucket:    bucket,
		prefix:    "logos/",
		urlExpiry: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put uploads the image and returns its URL.
func (s *S3Store) Put(ctx context.Context, img Image) (string, error) {
	key := s.prefix + newName(img)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(img.Data),
		ContentType:  aws.String(img.ContentType),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
		Metadata: map[string]string{
			"original-filename": img.Filename,
			"upload-time":       time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return "", fmt.Errorf("logo: s3 upload failed: %w", err)
	}

	if s.publicURL != "" {
		return s.publicURL + "/" + key, nil
	}
	if s.presigner == nil {
		return "", fmt.Errorf("logo: s3 store has neither a public URL nor a presigner")
	}
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.urlExpiry))
	if err != nil {
		return "", fmt.Errorf("logo: presign failed: %w", err)
	}
	return req.URL, nil
}
