// Package avatar stores profile pictures either on local disk or in a GCS
// bucket, matching the backend mode the app was started in.
package avatar

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// Storage persists one avatar per account and returns the URL to serve it.
type Storage interface {
	Save(ctx context.Context, accountID, filename string, r io.Reader) (string, error)
}

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

func objectName(accountID, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported avatar type %q", ext)
	}
	return accountID + ext, nil
}

// DirStorage writes avatars to a local directory, served under /avatars/.
type DirStorage struct {
	Dir string
}

func NewDirStorage(dir string) (*DirStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar directory: %w", err)
	}
	return &DirStorage{Dir: dir}, nil
}

func (s *DirStorage) Save(ctx context.Context, accountID, filename string, r io.Reader) (string, error) {
	name, err := objectName(accountID, filename)
	if err != nil {
		return "", err
	}

	dst := filepath.Join(s.Dir, name)
	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("write avatar file: %w", err)
	}
	return "/avatars/" + name, nil
}

// GCSStorage uploads avatars to a bucket. Assumes Application Default
// Credentials are configured.
type GCSStorage struct {
	client *storage.Client
	bucket string
}

func NewGCSStorage(ctx context.Context, bucket string) (*GCSStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStorage{client: client, bucket: bucket}, nil
}

func (s *GCSStorage) Close() error {
	return s.client.Close()
}

func (s *GCSStorage) Save(ctx context.Context, accountID, filename string, r io.Reader) (string, error) {
	name, err := objectName(accountID, filename)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := s.client.Bucket(s.bucket).Object("avatars/" + name)
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("copy avatar to GCS writer: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize upload: %w", err)
	}

	return fmt.Sprintf("https://storage.googleapis.com/%s/avatars/%s", s.bucket, name), nil
}
