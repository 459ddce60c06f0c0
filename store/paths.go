package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// DocExt is the file extension of stored documents
const DocExt = ".json"

// TempSuffix marks in-flight atomic writes. Files carrying it are never listed as documents.
const TempSuffix = ".tmp"

// PathResolver maps (collection, id) pairs onto files below a base directory.
// It has no side effects and never creates anything.
type PathResolver struct {
	base string
	ext  string
}

// NewPathResolver returns a resolver rooted at base, which is made absolute.
// ext is appended to ids to form file names; an empty ext defaults to [DocExt].
func NewPathResolver(base string, ext string) (*PathResolver, error) {
	if base == "" {
		return nil, fmt.Errorf("%w: empty base path", ErrPath)
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrPath, base, err)
	}
	if ext == "" {
		ext = DocExt
	}
	return &PathResolver{base: abs, ext: ext}, nil
}

// Base returns the absolute base directory
func (r *PathResolver) Base() string {
	return r.base
}

// Ext returns the document file extension
func (r *PathResolver) Ext() string {
	return r.ext
}

// CollectionDir returns the directory backing collection.
// Nested names like "tenants/acme" are allowed as long as they stay below the base.
func (r *PathResolver) CollectionDir(collection string) (string, error) {
	if strings.TrimSpace(collection) == "" {
		return "", fmt.Errorf("%w: empty collection name", ErrPath)
	}
	dir := filepath.Join(r.base, filepath.FromSlash(collection))
	rel, err := filepath.Rel(r.base, dir)
	if err != nil || rel == "." || escapes(rel) {
		return "", fmt.Errorf("%w: collection %q resolves outside %s", ErrPath, collection, r.base)
	}
	if err := r.checkSymlinks(dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Resolve returns the document file for id in collection and the directory containing it
func (r *PathResolver) Resolve(collection, id string) (file, dir string, err error) {
	if err := validID(id); err != nil {
		return "", "", err
	}
	dir, err = r.CollectionDir(collection)
	if err != nil {
		return "", "", err
	}
	file = filepath.Join(dir, id+r.ext)
	if err := r.checkSymlinks(file); err != nil {
		return "", "", err
	}
	return file, dir, nil
}

// ResolvePath is [PathResolver.Resolve] for a single slash-delimited path whose last
// segment is the id. A trailing extension on p is not doubled.
func (r *PathResolver) ResolvePath(p string) (file, dir string, err error) {
	collection, id, err := r.SplitPath(p)
	if err != nil {
		return "", "", err
	}
	return r.Resolve(collection, id)
}

// SplitPath breaks "collection/sub/id[.json]" into its collection and id parts
func (r *PathResolver) SplitPath(p string) (collection, id string, err error) {
	p = strings.TrimRight(filepath.ToSlash(strings.TrimSpace(p)), "/")
	p = strings.TrimSuffix(p, r.ext)
	i := strings.LastIndex(p, "/")
	if i <= 0 || i == len(p)-1 {
		return "", "", fmt.Errorf("%w: %q is not of the form collection/id", ErrPath, p)
	}
	return p[:i], p[i+1:], nil
}

func validID(id string) error {
	switch {
	case strings.TrimSpace(id) == "":
		return fmt.Errorf("%w: empty document id", ErrPath)
	case id == "." || id == "..":
		return fmt.Errorf("%w: document id %q", ErrPath, id)
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("%w: document id %q contains a path separator", ErrPath, id)
	}
	return nil
}

// checkSymlinks walks up from target to its deepest existing ancestor and makes sure that,
// with symlinks resolved, it is still inside the resolved base directory.
func (r *PathResolver) checkSymlinks(target string) error {
	realBase, err := filepath.EvalSymlinks(r.base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPath, r.base, err)
	}

	cur := target
	for {
		real, err := filepath.EvalSymlinks(cur)
		if err == nil {
			rel, err := filepath.Rel(realBase, real)
			if err != nil || escapes(rel) {
				return fmt.Errorf("%w: %s escapes %s through a symlink", ErrPath, target, r.base)
			}
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s: %w", ErrPath, cur, err)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return nil
		}
		cur = parent
	}
}

func escapes(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel)
}
