package repositories

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/sendit-labs/sendit-server/internal/config"
)

// deleteBatchSize is the S3 DeleteObjects limit per request.
const deleteBatchSize = 1000

// deleteConcurrency bounds parallel DeleteObjects calls during a sweep.
const deleteConcurrency = 4

// s3API is the slice of the S3 client the object store uses.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// ObjectStore is the blob store adapter. File bytes live under keys of the
// form {transfer_id}/{file_name} in a single bucket on any S3-compatible
// store (Cloudflare R2, MinIO, AWS).
type ObjectStore struct {
	client s3API
	bucket string
}

// NewObjectStore builds an object store from static credentials and a
// custom endpoint. When no explicit endpoint is configured the Cloudflare
// R2 endpoint is derived from the account ID.
func NewObjectStore(cfg config.S3Config) (*ObjectStore, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("object store bucket not configured")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.WithField("bucket", cfg.BucketName).Info("object store client initialized")

	return &ObjectStore{client: client, bucket: cfg.BucketName}, nil
}

// Put uploads one object.
func (s *ObjectStore) Put(ctx context.Context, path string, body io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(path),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// Get opens one object for reading. The caller closes the returned stream.
func (s *ObjectStore) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", path, err)
	}
	return out.Body, nil
}

// DeleteMany removes the given objects best-effort in batches. Keys that no
// longer exist count as deleted (S3 semantics), so redundant sweeps never
// fail here. Per-key failures are collected and returned once every batch
// has been attempted; a non-nil error means some blobs may remain.
func (s *ObjectStore) DeleteMany(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(deleteConcurrency)

	for start := 0; start < len(paths); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		batch := paths[start:end]

		g.Go(func() error {
			ids := make([]s3types.ObjectIdentifier, 0, len(batch))
			for _, p := range batch {
				ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(p)})
			}
			out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(s.bucket),
				Delete: &s3types.Delete{
					Objects: ids,
					Quiet:   aws.Bool(true),
				},
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil // keep deleting the remaining batches
			}
			for _, de := range out.Errors {
				mu.Lock()
				errs = append(errs, fmt.Errorf("delete %s: %s", aws.ToString(de.Key), aws.ToString(de.Message)))
				mu.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait()
	return errors.Join(errs...)
}
