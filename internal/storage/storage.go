// Package storage publishes report files to a local directory or to COS.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/storage-analysis/pkg/config"
)

// Storage defines the object operations report publishing needs.
type Storage interface {
	// Put stores the reader's content at key.
	Put(ctx context.Context, key string, reader io.Reader, opts *PutOptions) error

	// PutFile stores a local file at key.
	PutFile(ctx context.Context, key string, localPath string, opts *PutOptions) error

	// Get opens the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// Delete removes the object at key. Missing objects are not an error.
	Delete(ctx context.Context, key string) error

	// URL returns where the object at key can be fetched.
	URL(key string) string
}

// PutOptions carries object metadata.
type PutOptions struct {
	ContentType     string
	ContentEncoding string
}

// OptionsFor returns the metadata for a report file name.
func OptionsFor(name string) *PutOptions {
	switch {
	case strings.HasSuffix(name, ".json.gz"):
		return &PutOptions{ContentType: "application/json", ContentEncoding: "gzip"}
	case strings.HasSuffix(name, ".json"):
		return &PutOptions{ContentType: "application/json"}
	default:
		return &PutOptions{ContentType: "application/octet-stream"}
	}
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeCOS   StorageType = "cos"
)

// NewStorage creates a new Storage instance based on the configuration.
func NewStorage(cfg *config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch StorageType(cfg.Type) {
	case StorageTypeCOS:
		return NewCOSStorage(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates the storage configuration.
func ValidateConfig(cfg *config.StorageConfig) error {
	if cfg == nil {
		return fmt.Errorf("storage config is nil")
	}

	storageType := StorageType(cfg.Type)
	if storageType == "" {
		storageType = StorageTypeLocal
	}

	switch storageType {
	case StorageTypeCOS:
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	case StorageTypeLocal:
		if cfg.LocalPath == "" {
			return fmt.Errorf("local storage path is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}

	return nil
}

// ReportKey returns "<prefix>/<network>/<yyyymmdd-hhmmss>/<file name>".
// Keys always use forward slashes.
func ReportKey(prefix, network string, at time.Time, localPath string) string {
	return path.Join(prefix, network, at.UTC().Format("20060102-150405"), filepath.Base(localPath))
}

// Publish uploads the report at localPath under ReportKey and returns its URL.
func Publish(ctx context.Context, s Storage, prefix, network string, at time.Time, localPath string) (string, error) {
	key := ReportKey(prefix, network, at, localPath)
	if err := s.PutFile(ctx, key, localPath, OptionsFor(localPath)); err != nil {
		return "", err
	}
	return s.URL(key), nil
}
