// Package storage delivers fetched CSV files to their destination.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// CSVContentType is set on every stored object.
const CSVContentType = "text/csv; charset=utf-8"

// Sink stores a named CSV and returns where it ended up.
type Sink interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) (string, error)
}

// FileSink writes into a local directory.
type FileSink struct {
	Dir string
}

// Put writes r to Dir/name through a temporary file, so a failed write never
// leaves a partial CSV behind.
func (s FileSink) Put(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dest := name
	if s.Dir != "" && !filepath.IsAbs(name) {
		dest = filepath.Join(s.Dir, name)
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name()) // no-op after rename

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return "", fmt.Errorf("write %s: %w", dest, err)
	}
	if size >= 0 && n != size {
		tmp.Close()
		return "", fmt.Errorf("write %s: wrote %d of %d bytes", dest, n, size)
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	return dest, nil
}

// objectName joins prefix and name with a single slash.
func objectName(prefix, name string) string {
	name = strings.TrimLeft(filepath.ToSlash(name), "/")
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
