package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"skydrive/internal/pkg"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
)

// StorageProvider is the blob storage capability consumed by the tree and
// archive components. Delete is idempotent: removing an absent key is not
// an error. GetPresignedURL returns pkg.ErrSigningUnsupported on backends
// that cannot sign, and callers fall back to GetURL.
type StorageProvider interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	GetURL(ctx context.Context, key string) (string, error)
	GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// UploadResult represents upload result
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

// StorageConfig represents storage configuration
type StorageConfig struct {
	Provider  string `json:"provider"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
	Endpoint  string `json:"endpoint,omitempty"`
	BaseURL   string `json:"base_url"`
	LocalPath string `json:"local_path,omitempty"`
}

// StorageService handles blob storage operations
type StorageService struct {
	provider     StorageProvider
	providerType string
}

// NewStorageService creates a new storage service
func NewStorageService(config *StorageConfig) (*StorageService, error) {
	var provider StorageProvider
	var err error

	switch strings.ToLower(config.Provider) {
	case "s3", "aws", "r2", "spaces", "wasabi":
		provider, err = NewS3Provider(config)
	case "local":
		provider, err = NewLocalProvider(config)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage provider: %w", err)
	}

	return &StorageService{
		provider:     provider,
		providerType: config.Provider,
	}, nil
}

// NewStorageServiceWithProvider wraps an already-built provider
func NewStorageServiceWithProvider(provider StorageProvider) *StorageService {
	return &StorageService{provider: provider, providerType: "custom"}
}

// ObjectKey builds the storage key for a new upload. Keys are namespaced
// per owner and randomized so renames never touch the object store.
func (s *StorageService) ObjectKey(ownerID, filename string) string {
	return fmt.Sprintf("files/%s/%s%s", ownerID, uuid.NewString(), filepath.Ext(filename))
}

// Upload uploads a blob to storage
func (s *StorageService) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	result, err := s.provider.Upload(ctx, key, body, size, contentType)
	if err != nil {
		return nil, pkg.ErrStorageProviderError.WithCause(err)
	}

	return result, nil
}

// Download downloads a blob from storage
func (s *StorageService) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	reader, err := s.provider.Download(ctx, key)
	if err != nil {
		if appErr, ok := pkg.IsAppError(err); ok {
			return nil, appErr
		}
		return nil, pkg.ErrBlobNotFound.WithCause(err)
	}

	return reader, nil
}

// Delete deletes a blob from storage
func (s *StorageService) Delete(ctx context.Context, key string) error {
	if err := s.provider.Delete(ctx, key); err != nil {
		return pkg.ErrStorageProviderError.WithCause(err)
	}

	return nil
}

// List lists keys under a prefix
func (s *StorageService) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.provider.List(ctx, prefix)
	if err != nil {
		return nil, pkg.ErrStorageProviderError.WithCause(err)
	}

	return keys, nil
}

// ViewURL returns a short-lived signed URL for a blob, falling back to a
// plain URL on providers that cannot sign.
func (s *StorageService) ViewURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	url, err := s.provider.GetPresignedURL(ctx, key, expiry)
	if err == nil {
		return url, nil
	}

	if appErr, ok := pkg.IsAppError(err); ok && appErr.Code == pkg.ErrSigningUnsupported.Code {
		return s.provider.GetURL(ctx, key)
	}

	return "", pkg.ErrStorageProviderError.WithCause(err)
}

// S3Provider implements S3-compatible storage (AWS, R2, Spaces, Wasabi)
type S3Provider struct {
	s3Client *s3.S3
	uploader *s3manager.Uploader
	bucket   string
	region   string
	baseURL  string
}

// NewS3Provider creates a new S3 provider
func NewS3Provider(config *StorageConfig) (*S3Provider, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:   aws.String(config.Region),
		Endpoint: aws.String(config.Endpoint),
		Credentials: credentials.NewStaticCredentials(
			config.AccessKey,
			config.SecretKey,
			"",
		),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &S3Provider{
		s3Client: s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   config.Bucket,
		region:   config.Region,
		baseURL:  config.BaseURL,
	}, nil
}

// Upload uploads a blob to S3
func (p *S3Provider) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	result, err := p.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	upload := &UploadResult{
		Key:  key,
		URL:  result.Location,
		Size: size,
	}
	if result.ETag != nil {
		upload.ETag = strings.Trim(*result.ETag, "\"")
	}

	return upload, nil
}

// Download downloads a blob from S3
func (p *S3Provider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := p.s3Client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, pkg.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	return result.Body, nil
}

// Delete deletes a blob from S3. S3 delete succeeds on absent keys.
func (p *S3Provider) Delete(ctx context.Context, key string) error {
	_, err := p.s3Client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// List lists S3 keys under prefix
func (p *S3Provider) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	}
	err := p.s3Client.ListObjectsV2PagesWithContext(ctx, input, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list S3 objects: %w", err)
	}

	return keys, nil
}

// GetURL gets public URL for an S3 object
func (p *S3Provider) GetURL(ctx context.Context, key string) (string, error) {
	if p.baseURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(p.baseURL, "/"), key), nil
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key), nil
}

// GetPresignedURL gets presigned URL for an S3 object
func (p *S3Provider) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, _ := p.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiry)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return url, nil
}

// LocalProvider implements local disk storage
type LocalProvider struct {
	basePath string
	baseURL  string
}

// NewLocalProvider creates a new local provider
func NewLocalProvider(config *StorageConfig) (*LocalProvider, error) {
	basePath := config.LocalPath
	if basePath == "" {
		basePath = "./storage"
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalProvider{
		basePath: basePath,
		baseURL:  config.BaseURL,
	}, nil
}

// Upload writes a blob under the base directory
func (p *LocalProvider) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (*UploadResult, error) {
	path := filepath.Join(p.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	written, err := io.Copy(f, body)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write file: %w", err)
	}

	url, _ := p.GetURL(ctx, key)

	return &UploadResult{Key: key, URL: url, Size: written}, nil
}

// Download opens a blob from disk
func (p *LocalProvider) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.basePath, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, pkg.ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return f, nil
}

// Delete removes a blob from disk. Absent keys are not an error.
func (p *LocalProvider) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(p.basePath, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// List walks the base directory collecting keys under prefix
func (p *LocalProvider) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string

	err := filepath.Walk(p.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		rel, err := filepath.Rel(p.basePath, path)
		if err != nil {
			return err
		}

		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return keys, nil
}

// GetURL gets URL for a local blob
func (p *LocalProvider) GetURL(ctx context.Context, key string) (string, error) {
	return fmt.Sprintf("%s/%s", strings.TrimRight(p.baseURL, "/"), key), nil
}

// GetPresignedURL is not supported on local disk
func (p *LocalProvider) GetPresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", pkg.ErrSigningUnsupported
}
