// Package storage stores the raw policy documents that templates are
// generated from. Extracted text lives in the database; the original
// PDF/DOCX blob goes here so auditors can pull up the source.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStore stores and retrieves policy document blobs by storage key.
type BlobStore interface {
	// Put stores a document blob and returns its storage key
	Put(ctx context.Context, documentID uuid.UUID, filename string, data io.Reader) (string, error)

	// Get retrieves a document blob by storage key
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a document blob by storage key
	Delete(ctx context.Context, key string) error
}

// Backend selects the blob store implementation
type Backend string

const (
	BackendLocal Backend = "local"
	BackendS3    Backend = "s3"
)

// Config holds blob store configuration
type Config struct {
	Backend      Backend
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// NewFromEnv builds a blob store from DOCUMENT_STORE_* and AWS_* variables.
// Defaults to local storage for development.
func NewFromEnv() (BlobStore, error) {
	backend := Backend(os.Getenv("DOCUMENT_STORE_BACKEND"))
	if backend == "" {
		backend = BackendLocal
	}

	switch backend {
	case BackendLocal:
		localPath := os.Getenv("DOCUMENT_STORE_PATH")
		if localPath == "" {
			localPath = "./storage/documents"
		}
		return NewLocalStore(localPath)

	case BackendS3:
		cfg := Config{
			Backend:      BackendS3,
			S3Bucket:     os.Getenv("AWS_S3_BUCKET"),
			S3Region:     os.Getenv("AWS_REGION"),
			AWSAccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			AWSSecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		}
		if cfg.S3Region == "" {
			cfg.S3Region = "us-east-1"
		}
		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET is required for the s3 document store")
		}
		return NewS3Store(cfg)

	default:
		return nil, fmt.Errorf("unknown document store backend: %s", backend)
	}
}

// storageKey builds a unique key for a document blob. The two-char prefix
// keeps local directories and S3 listings from growing flat.
func storageKey(documentID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filepath.Base(filename), ext)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, base)

	id := documentID.String()
	return fmt.Sprintf("%s/%s_%s%s", id[:2], id, base, ext)
}
