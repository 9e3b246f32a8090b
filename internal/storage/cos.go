package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tencentyun/cos-go-sdk-v5"

	apperrors "github.com/storage-analysis/pkg/errors"
)

// COSConfig holds COS-specific configuration.
type COSConfig struct {
	Bucket    string
	Region    string
	SecretID  string
	SecretKey string
	Domain    string // e.g., "myqcloud.com"
	Scheme    string // e.g., "https" or "http"

	// Endpoint replaces the bucket URL derived from the fields above,
	// for COS-compatible gateways.
	Endpoint string
}

// COSStorage implements Storage for Tencent Cloud COS.
type COSStorage struct {
	client    *cos.Client
	bucketURL *url.URL
}

// NewCOSStorage creates a new COSStorage instance.
func NewCOSStorage(cfg *COSConfig) (*COSStorage, error) {
	if cfg.Bucket == "" || cfg.Region == "" {
		return nil, fmt.Errorf("bucket and region are required for COS storage")
	}
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("credentials are required for COS storage")
	}

	domain := cfg.Domain
	if domain == "" {
		domain = "myqcloud.com"
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s://%s.cos.%s.%s", scheme, cfg.Bucket, cfg.Region, domain)
	}
	bucketURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bucket URL: %w", err)
	}

	client := cos.NewClient(&cos.BaseURL{BucketURL: bucketURL}, &http.Client{
		Transport: &cos.AuthorizationTransport{
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
		},
	})

	return &COSStorage{client: client, bucketURL: bucketURL}, nil
}

func putOptions(opts *PutOptions) *cos.ObjectPutOptions {
	if opts == nil {
		return nil
	}
	return &cos.ObjectPutOptions{
		ObjectPutHeaderOptions: &cos.ObjectPutHeaderOptions{
			ContentType:     opts.ContentType,
			ContentEncoding: opts.ContentEncoding,
		},
	}
}

// Put uploads the reader's content to key.
func (s *COSStorage) Put(ctx context.Context, key string, reader io.Reader, opts *PutOptions) error {
	if _, err := s.client.Object.Put(ctx, key, reader, putOptions(opts)); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "upload to COS", err)
	}
	return nil
}

// PutFile uploads a local file to key.
func (s *COSStorage) PutFile(ctx context.Context, key string, localPath string, opts *PutOptions) error {
	if _, err := s.client.Object.PutFromFile(ctx, key, localPath, putOptions(opts)); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "upload file to COS", err)
	}
	return nil
}

// Get downloads the object at key.
func (s *COSStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	resp, err := s.client.Object.Get(ctx, key, nil)
	if err != nil {
		if cos.IsNotFoundError(err) {
			return nil, apperrors.Newf(apperrors.CodeNotFound, "object not found: %s", key)
		}
		return nil, apperrors.Wrap(apperrors.CodeStorageError, "download from COS", err)
	}
	return resp.Body, nil
}

// Exists checks if an object exists at key.
func (s *COSStorage) Exists(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.Object.IsExist(ctx, key)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeStorageError, "check existence in COS", err)
	}
	return ok, nil
}

// Delete removes the object at key.
func (s *COSStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Object.Delete(ctx, key, nil); err != nil {
		return apperrors.Wrap(apperrors.CodeStorageError, "delete from COS", err)
	}
	return nil
}

// URL returns the object URL for key.
func (s *COSStorage) URL(key string) string {
	return strings.TrimRight(s.bucketURL.String(), "/") + "/" + strings.TrimLeft(key, "/")
}
