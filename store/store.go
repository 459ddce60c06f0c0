package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/filter"
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/brettbedarf/docfs/metrics"
)

// Store persists one JSON document per file below a base directory, one
// subdirectory per collection. Writes to the same file are serialized by the
// store's lock registry; reads take no lock and rely on atomic replacement.
//
// Two Store values on the same base path do not coordinate with each other.
type Store struct {
	cfg        *config.Config
	paths      *PathResolver
	locks      *LockRegistry
	writer     *AtomicWriter
	validators ValidatorLookup
	metrics    *metrics.Collector
	logger     util.Logger
}

// New creates a store for cfg. A nil cfg uses the defaults. When CreateDirectory is
// set the base directory is created up front.
func New(cfg *config.Config, opts ...Option) (*Store, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	c := *cfg
	c.Normalize()
	cfg = &c

	paths, err := NewPathResolver(cfg.BasePath, DocExt)
	if err != nil {
		return nil, err
	}
	if cfg.CreateDirectory {
		if err := os.MkdirAll(paths.Base(), cfg.DirMode); err != nil {
			return nil, fmt.Errorf("%w: create base %s: %w", ErrWriteFailed, paths.Base(), err)
		}
	}

	s := &Store{
		cfg:    cfg,
		paths:  paths,
		locks:  NewLockRegistry(cfg.LockMaxAttempts, cfg.LockRetryDelay),
		writer: NewAtomicWriter(cfg.FileMode),
		logger: util.GetLogger("Store"),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger.Debug().
		Str("base", paths.Base()).
		Bool("createDirectory", cfg.CreateDirectory).
		Bool("validateOnRead", cfg.ValidateOnRead).
		Msg("Store initialized")
	return s, nil
}

// BasePath returns the absolute base directory
func (s *Store) BasePath() string {
	return s.paths.Base()
}

// Paths exposes the store's resolver
func (s *Store) Paths() *PathResolver {
	return s.paths
}

// Locks exposes the store's lock registry
func (s *Store) Locks() *LockRegistry {
	return s.locks
}

func (s *Store) opLogger(op string) util.Logger {
	return s.logger.With().Str("op", op).Logger()
}

func (s *Store) validatorFor(collection string, o callOptions) Validator {
	if o.validator != nil {
		return o.validator
	}
	if s.validators == nil {
		return nil
	}
	if v, ok := s.validators.Lookup(collection); ok {
		return v
	}
	return nil
}

func validate(v Validator, collection, id string, data any) (any, error) {
	if v == nil {
		return data, nil
	}
	out, err := v.Validate(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s/%s: %w", ErrValidation, collection, id, err)
	}
	return out, nil
}

// ensureDir makes sure a collection directory exists before a write
func (s *Store) ensureDir(dir string) error {
	if s.cfg.CreateDirectory {
		if err := os.MkdirAll(dir, s.cfg.DirMode); err != nil {
			return fmt.Errorf("%w: create %s: %w", ErrWriteFailed, dir, err)
		}
		return nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: collection directory %s: %w", ErrWriteFailed, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrWriteFailed, dir)
	}
	return nil
}

// Write validates data and atomically stores it as collection/id, replacing any previous version.
func (s *Store) Write(ctx context.Context, collection, id string, data any, opts ...CallOption) error {
	file, dir, err := s.paths.Resolve(collection, id)
	if err != nil {
		return err
	}
	return s.write(ctx, collection, id, file, dir, data, newCallOptions(opts), true)
}

// WritePath is [Store.Write] addressed by a "collection/id" path
func (s *Store) WritePath(ctx context.Context, p string, data any, opts ...CallOption) error {
	collection, id, err := s.paths.SplitPath(p)
	if err != nil {
		return err
	}
	return s.Write(ctx, collection, id, data, opts...)
}

// Insert writes data under a freshly generated id and returns it
func (s *Store) Insert(ctx context.Context, collection string, data any, opts ...CallOption) (string, error) {
	id := uuid.NewString()
	if err := s.Write(ctx, collection, id, data, opts...); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) write(
	ctx context.Context,
	collection, id, file, dir string,
	data any,
	o callOptions,
	mkdir bool,
) (err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("write", start, err) }()
	logger := s.opLogger("write")

	data, err = validate(s.validatorFor(collection, o), collection, id, data)
	if err != nil {
		logger.Debug().Err(err).Str("collection", collection).Str("id", id).Msg("Validation failed")
		return err
	}
	if mkdir {
		if err = s.ensureDir(dir); err != nil {
			return err
		}
	}

	if err = s.locks.Acquire(ctx, file); err != nil {
		return err
	}
	defer s.locks.Release(file)

	if err = s.writer.Write(file, data); err != nil {
		logger.Error().Err(err).Str("path", file).Msg("Write failed")
		return err
	}
	logger.Trace().Str("path", file).Msg("Document written")
	return nil
}

// Read returns the decoded document collection/id, or nil when it does not exist.
// Reads take no lock.
func (s *Store) Read(ctx context.Context, collection, id string, opts ...CallOption) (doc any, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("read", start, err) }()

	file, _, err := s.paths.Resolve(collection, id)
	if err != nil {
		return nil, err
	}
	doc, _, err = s.read(collection, id, file, newCallOptions(opts))
	return doc, err
}

// ReadPath is [Store.Read] addressed by a "collection/id" path
func (s *Store) ReadPath(ctx context.Context, p string, opts ...CallOption) (any, error) {
	collection, id, err := s.paths.SplitPath(p)
	if err != nil {
		return nil, err
	}
	return s.Read(ctx, collection, id, opts...)
}

// read loads one file. found is false when the file does not exist.
func (s *Store) read(collection, id, file string, o callOptions) (doc any, found bool, err error) {
	raw, err := os.ReadFile(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", file, err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, true, fmt.Errorf("%w: %s: %w", ErrParse, file, err)
	}
	if s.cfg.ValidateOnRead {
		doc, err = validate(s.validatorFor(collection, o), collection, id, doc)
		if err != nil {
			return nil, true, err
		}
	}
	return doc, true, nil
}

// Exists reports whether collection/id is stored
func (s *Store) Exists(ctx context.Context, collection, id string) (bool, error) {
	file, _, err := s.paths.Resolve(collection, id)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(file)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", file, err)
	}
	return !info.IsDir(), nil
}

// scan calls fn for each readable document of collection in file name order until fn
// returns false. Unreadable documents are logged and skipped.
func (s *Store) scan(collection string, o callOptions, fn func(Entry) bool) error {
	logger := s.opLogger("scan")

	dir, err := s.paths.CollectionDir(collection)
	if err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	ext := s.paths.Ext()
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ext {
			continue
		}
		id := strings.TrimSuffix(name, ext)
		file, _, err := s.paths.Resolve(collection, id)
		if err != nil {
			logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("Skipping unresolvable document")
			s.metrics.IncSkipped(collection)
			continue
		}
		doc, found, err := s.read(collection, id, file, o)
		if err != nil {
			logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("Skipping unreadable document")
			s.metrics.IncSkipped(collection)
			continue
		}
		if !found {
			// removed between listing and reading
			continue
		}
		if !fn(Entry{ID: id, Data: doc}) {
			return nil
		}
	}
	return nil
}

// ReadAll returns every readable document of collection keyed by id.
// A missing collection yields an empty map.
func (s *Store) ReadAll(ctx context.Context, collection string, opts ...CallOption) (docs map[string]any, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("readAll", start, err) }()

	docs = make(map[string]any)
	err = s.scan(collection, newCallOptions(opts), func(e Entry) bool {
		docs[e.ID] = e.Data
		return true
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Find returns the documents of collection matching expr in file name order.
// A nil expr matches every document.
func (s *Store) Find(ctx context.Context, collection string, expr filter.Expr, opts ...CallOption) (found []Entry, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("find", start, err) }()

	found = []Entry{}
	err = s.scan(collection, newCallOptions(opts), func(e Entry) bool {
		if filter.Match(expr, e.Data) {
			found = append(found, e)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return found, nil
}

// FindOne returns the first match in file name order, or nil
func (s *Store) FindOne(ctx context.Context, collection string, expr filter.Expr, opts ...CallOption) (*Entry, error) {
	var first *Entry
	err := s.scan(collection, newCallOptions(opts), func(e Entry) bool {
		if filter.Match(expr, e.Data) {
			first = &e
			return false
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return first, nil
}

// Count returns the number of readable documents in collection
func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	return s.CountFiltered(ctx, collection, nil)
}

// CountFiltered returns the number of documents in collection matching expr
func (s *Store) CountFiltered(ctx context.Context, collection string, expr filter.Expr) (int, error) {
	n := 0
	err := s.scan(collection, callOptions{}, func(e Entry) bool {
		if filter.Match(expr, e.Data) {
			n++
		}
		return true
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Delete removes collection/id. It reports false when there was nothing to remove.
func (s *Store) Delete(ctx context.Context, collection, id string) (bool, error) {
	file, _, err := s.paths.Resolve(collection, id)
	if err != nil {
		return false, err
	}
	return s.delete(ctx, file)
}

// DeletePath is [Store.Delete] addressed by a "collection/id" path
func (s *Store) DeletePath(ctx context.Context, p string) (bool, error) {
	file, _, err := s.paths.ResolvePath(p)
	if err != nil {
		return false, err
	}
	return s.delete(ctx, file)
}

func (s *Store) delete(ctx context.Context, file string) (deleted bool, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("delete", start, err) }()

	if _, err := os.Stat(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", file, err)
	}

	if err := s.locks.Acquire(ctx, file); err != nil {
		return false, err
	}
	defer s.locks.Release(file)

	if err := os.Remove(file); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("delete %s: %w", file, err)
	}
	s.opLogger("delete").Trace().Str("path", file).Msg("Document deleted")
	return true, nil
}

// DeleteMany deletes each id independently and returns how many were removed.
// Individual failures are logged and do not stop the others.
func (s *Store) DeleteMany(ctx context.Context, collection string, ids []string) (int, error) {
	if _, err := s.paths.CollectionDir(collection); err != nil {
		return 0, err
	}
	logger := s.opLogger("deleteMany")

	n := 0
	for _, id := range ids {
		deleted, err := s.Delete(ctx, collection, id)
		if err != nil {
			logger.Warn().Err(err).Str("collection", collection).Str("id", id).Msg("Delete failed")
			continue
		}
		if deleted {
			n++
		}
	}
	return n, nil
}

// DeleteManyFiltered deletes every document of collection matching expr
func (s *Store) DeleteManyFiltered(ctx context.Context, collection string, expr filter.Expr) (int, error) {
	matches, err := s.Find(ctx, collection, expr)
	if err != nil {
		return 0, err
	}
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
	}
	return s.DeleteMany(ctx, collection, ids)
}

// DropCollection removes the collection directory and everything in it.
// It reports false when the collection did not exist.
func (s *Store) DropCollection(ctx context.Context, collection string) (dropped bool, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveOp("drop", start, err) }()

	dir, err := s.paths.CollectionDir(collection)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%w: %s is not a directory", ErrPath, dir)
	}

	if err := s.locks.Acquire(ctx, dir); err != nil {
		return false, err
	}
	defer s.locks.Release(dir)

	if err := os.RemoveAll(dir); err != nil {
		return false, fmt.Errorf("drop %s: %w", dir, err)
	}
	s.opLogger("drop").Debug().Str("collection", collection).Msg("Collection dropped")
	return true, nil
}

// ListCollections returns the sorted names of the base directory's immediate subdirectories
func (s *Store) ListCollections(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.paths.Base())
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.paths.Base(), err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
