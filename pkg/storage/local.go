// Package storage keeps uploaded files on the local disk below a directory
// that the HTTP server exposes as static content.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for object names that escape the root directory.
var ErrInvalidName = errors.New("invalid object name")

// Local writes objects to Root and serves them under PublicPath.
type Local struct {
	root       string
	publicPath string
}

// NewLocal creates the root directory when missing.
func NewLocal(root, publicPath string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	if publicPath == "" {
		publicPath = "/uploads"
	}
	return &Local{root: root, publicPath: "/" + strings.Trim(publicPath, "/")}, nil
}

// Upload copies reader into root/name and returns the public URL path.
func (l *Local) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := path.Clean("/" + filepath.ToSlash(name))
	if clean == "/" || strings.Contains(name, "..") {
		return "", ErrInvalidName
	}
	target := filepath.Join(l.root, filepath.FromSlash(clean))

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create directory: %w", err)
	}

	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}

	if _, err := io.Copy(file, reader); err != nil {
		file.Close()
		_ = os.Remove(target)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("close object: %w", err)
	}

	return l.publicPath + clean, nil
}
