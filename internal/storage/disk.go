// Package storage keeps uploaded attachments on local disk and serves them
// under a public base URL.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("invalid storage path")

// Disk stores each bucket as a directory below Root.
type Disk struct {
	Root    string
	BaseURL string
}

// NewDisk creates root if needed.
func NewDisk(root, publicURL string) (*Disk, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Disk{Root: root, BaseURL: strings.TrimRight(publicURL, "/")}, nil
}

// resolve maps bucket/path to a file below Root, refusing anything that
// would land outside the bucket.
func (d *Disk) resolve(bucket, path string) (string, error) {
	if bucket == "" || path == "" || strings.Contains(bucket, "/") || strings.Contains(bucket, "..") {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, bucket, path)
	}
	base := filepath.Join(d.Root, bucket)
	full := filepath.Join(base, filepath.FromSlash(path))
	rel, err := filepath.Rel(base, full)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("%w: %s/%s", ErrInvalidPath, bucket, path)
	}
	return full, nil
}

func (d *Disk) UploadFile(ctx context.Context, bucket, path string, r io.Reader) error {
	full, err := d.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s/%s: %w", bucket, path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(full)
		return fmt.Errorf("failed to write %s/%s: %w", bucket, path, err)
	}
	return f.Close()
}

func (d *Disk) PublicURL(bucket, path string) string {
	return d.BaseURL + "/" + bucket + "/" + strings.TrimLeft(path, "/")
}
