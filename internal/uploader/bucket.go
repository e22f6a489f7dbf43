package uploader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fileBucket confines file lookups to a single directory. Names coming out
// of nomination documents are attacker-influenced, so every resolved path is
// checked against the bucket root after cleaning and symlink resolution.
type fileBucket struct {
	root string
}

func newFileBucket(root string) (*fileBucket, error) {
	if root == "" {
		return nil, fmt.Errorf("bucket directory cannot be empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve bucket directory: %w", err)
	}
	return &fileBucket{root: filepath.Clean(abs)}, nil
}

// Resolve turns a file name, or a path already inside the bucket, into an
// absolute path and verifies it stays inside the bucket root.
func (b *fileBucket) Resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("file name cannot be empty")
	}
	name = strings.ReplaceAll(name, "\x00", "")

	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.root, path)
	}
	path = filepath.Clean(path)

	if !b.contains(path) {
		return "", fmt.Errorf("%q is outside the bucket directory", name)
	}

	// Symlinks inside the bucket must not lead back out of it.
	if resolved, err := filepath.EvalSymlinks(path); err == nil && !b.contains(resolved) {
		return "", fmt.Errorf("%q resolves outside the bucket directory", name)
	}

	return path, nil
}

func (b *fileBucket) contains(path string) bool {
	root := b.root
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	for _, dir := range []string{b.root, root} {
		prefix := dir + string(filepath.Separator)
		if path == dir || strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// Dir returns the bucket root.
func (b *fileBucket) Dir() string {
	return b.root
}

// Exists reports whether the named file resolves inside the bucket and is a
// regular file.
func (b *fileBucket) Exists(name string) bool {
	path, err := b.Resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
