// Package blob provides the remote storage backend over an S3-compatible
// blob store. Uploads land in an owner-scoped key namespace and downloads
// are served through short-lived presigned URLs that force attachment
// disposition.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/jmalhotra/filedrive"
)

// MaxObjectSize is the upload cap enforced at placement time.
const MaxObjectSize = 10 << 20 // 10 MiB

// allowedExtensions is the upload allow-list. Anything else is rejected
// before the remote call.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".pdf":  true,
	".doc":  true,
	".docx": true,
	".txt":  true,
	".zip":  true,
}

// Config holds the connection settings for the blob store.
type Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	// RequestTimeout bounds every remote call (default: 15s).
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// DownloadURLTTL bounds presigned download URLs (default: 15m).
	DownloadURLTTL time.Duration `mapstructure:"download_url_ttl"`
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Store uploads, removes, and presigns objects in one bucket.
type Store struct {
	client    objectAPI
	presigner presignAPI
	endpoint  string
	bucket    string
	timeout   time.Duration
	urlTTL    time.Duration
}

// NewStore builds a Store from config, using static credentials against the
// configured endpoint (AWS S3 or any compatible store such as MinIO).
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("new blob store: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return newStore(client, s3.NewPresignClient(client), cfg), nil
}

func newStore(client objectAPI, presigner presignAPI, cfg Config) *Store {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	urlTTL := cfg.DownloadURLTTL
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &Store{
		client:    client,
		presigner: presigner,
		endpoint:  strings.TrimSuffix(cfg.Endpoint, "/"),
		bucket:    cfg.Bucket,
		timeout:   timeout,
		urlTTL:    urlTTL,
	}
}

// Place uploads content under the owner's key namespace. It enforces the
// extension allow-list and MaxObjectSize before the remote call, and
// reports filedrive.ErrBackendUnavailable when the call fails or the
// bounded timeout expires.
func (s *Store) Place(ctx context.Context, ownerID uuid.UUID, name string, content io.Reader) (filedrive.Locator, int64, error) {
	if err := ctx.Err(); err != nil {
		return filedrive.Locator{}, 0, err
	}

	safe := filedrive.SafeBaseName(name)
	ext := strings.ToLower(filepath.Ext(safe))
	if !allowedExtensions[ext] {
		return filedrive.Locator{}, 0, fmt.Errorf("place %s: %w: extension %q is not allowed", safe, filedrive.ErrInvalidInput, ext)
	}

	// The upload cap is checked by reading one byte past it.
	data, err := io.ReadAll(io.LimitReader(content, MaxObjectSize+1))
	if err != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("place %s: read content: %w", safe, err)
	}
	if len(data) > MaxObjectSize {
		return filedrive.Locator{}, 0, fmt.Errorf("place %s: %w: object exceeds %d bytes", safe, filedrive.ErrInvalidInput, MaxObjectSize)
	}

	key := objectKey(ownerID, safe)

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err = s.client.PutObject(callCtx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return filedrive.Locator{}, 0, fmt.Errorf("place %s: %w: %w", safe, filedrive.ErrBackendUnavailable, err)
	}

	loc := filedrive.Locator{
		Kind:      filedrive.LocatorRemote,
		URL:       fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, key),
		RemoteKey: key,
	}
	return loc, int64(len(data)), nil
}

// DownloadURL presigns a GET for the locator's key, rewritten to force
// attachment disposition so browsers download instead of render.
func (s *Store) DownloadURL(ctx context.Context, loc filedrive.Locator) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if loc.Kind != filedrive.LocatorRemote {
		return "", fmt.Errorf("download url: %w: locator kind %q is not remote", filedrive.ErrInvalidInput, loc.Kind)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	disposition := fmt.Sprintf("attachment; filename=%q", filepath.Base(loc.RemoteKey))
	req, err := s.presigner.PresignGetObject(callCtx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(loc.RemoteKey),
		ResponseContentDisposition: aws.String(disposition),
	}, s3.WithPresignExpires(s.urlTTL))
	if err != nil {
		return "", fmt.Errorf("download url: %w: %w", filedrive.ErrBackendUnavailable, err)
	}

	return req.URL, nil
}

// Remove deletes the object by key. S3 deletes are idempotent: removing a
// missing key succeeds.
func (s *Store) Remove(ctx context.Context, loc filedrive.Locator) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if loc.Kind != filedrive.LocatorRemote {
		return fmt.Errorf("remove: %w: locator kind %q is not remote", filedrive.ErrInvalidInput, loc.Kind)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.DeleteObject(callCtx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(loc.RemoteKey),
	})
	if err != nil {
		return fmt.Errorf("remove %s: %w: %w", loc.RemoteKey, filedrive.ErrBackendUnavailable, err)
	}

	return nil
}

// objectKey builds the owner-scoped key namespace for uploads.
func objectKey(ownerID uuid.UUID, name string) string {
	return fmt.Sprintf("file-uploader/user-%s/%d-%s", ownerID, time.Now().UnixMilli(), name)
}
