package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/brettbedarf/docfs/filter"
)

// OpType names a batch write operation
type OpType string

const (
	OpWrite  OpType = "write"
	OpInsert OpType = "insert"
	OpDelete OpType = "delete"
)

// WriteOp is one mutation of a [Store.BatchWrite]. ID is generated for inserts.
type WriteOp struct {
	Type       OpType
	Collection string
	ID         string
	Data       any
}

// OpResult reports the outcome of the WriteOp at the same index
type OpResult struct {
	ID      string `json:"id,omitempty"`
	Success bool   `json:"success"`
	Deleted bool   `json:"deleted,omitempty"`
	Err     error  `json:"-"`
}

// ReadOp is one query of a [Store.BatchRead]: a single document when ID is set,
// a filtered scan when Filter is set, otherwise the whole collection.
type ReadOp struct {
	Collection string
	ID         string
	Filter     filter.Expr
}

// ReadResult holds the outcome of the ReadOp at the same index.
// Exactly one of Doc, Docs or Entries is populated depending on the op's shape.
type ReadResult struct {
	Doc     any            `json:"doc,omitempty"`
	Docs    map[string]any `json:"docs,omitempty"`
	Entries []Entry        `json:"entries,omitempty"`
	Err     error          `json:"-"`
}

func (op WriteOp) check() error {
	if op.Collection == "" {
		return fmt.Errorf("%w: %s without collection", ErrInvalidOp, op.Type)
	}
	switch op.Type {
	case OpWrite:
		if op.ID == "" || op.Data == nil {
			return fmt.Errorf("%w: write needs id and data", ErrInvalidOp)
		}
	case OpInsert:
		if op.Data == nil {
			return fmt.Errorf("%w: insert needs data", ErrInvalidOp)
		}
	case OpDelete:
		if op.ID == "" {
			return fmt.Errorf("%w: delete needs id", ErrInvalidOp)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidOp, op.Type)
	}
	return nil
}

// BatchWrite applies ops grouped by collection. Each group runs in its original order and
// groups run concurrently, bounded by the configured batch concurrency. A failing op only
// affects its own result; the returned slice is index-aligned with ops.
func (s *Store) BatchWrite(ctx context.Context, ops []WriteOp) []OpResult {
	logger := s.opLogger("batchWrite")
	results := make([]OpResult, len(ops))

	groups := make(map[string][]int)
	var order []string
	for i, op := range ops {
		if err := op.check(); err != nil {
			results[i] = OpResult{ID: op.ID, Err: err}
			continue
		}
		if _, ok := groups[op.Collection]; !ok {
			order = append(order, op.Collection)
		}
		groups[op.Collection] = append(groups[op.Collection], i)
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for _, collection := range order {
		idx := groups[collection]
		g.Go(func() error {
			s.runWriteGroup(ctx, collection, ops, idx, results)
			return nil
		})
	}
	_ = g.Wait()

	logger.Debug().Int("ops", len(ops)).Int("collections", len(order)).Msg("Batch write complete")
	return results
}

func (s *Store) runWriteGroup(ctx context.Context, collection string, ops []WriteOp, idx []int, results []OpResult) {
	dir, err := s.paths.CollectionDir(collection)
	if err != nil {
		for _, i := range idx {
			results[i] = OpResult{ID: ops[i].ID, Err: err}
		}
		return
	}

	// directory is ensured once per group and only if something is written
	var dirErr error
	for _, i := range idx {
		if ops[i].Type != OpDelete {
			dirErr = s.ensureDir(dir)
			break
		}
	}

	for _, i := range idx {
		op := ops[i]
		switch op.Type {
		case OpDelete:
			deleted, err := s.Delete(ctx, collection, op.ID)
			results[i] = OpResult{ID: op.ID, Success: err == nil, Deleted: deleted, Err: err}
		default:
			id := op.ID
			if op.Type == OpInsert {
				id = uuid.NewString()
			}
			if dirErr != nil {
				results[i] = OpResult{ID: id, Err: dirErr}
				continue
			}
			file, _, err := s.paths.Resolve(collection, id)
			if err == nil {
				err = s.write(ctx, collection, id, file, dir, op.Data, callOptions{}, false)
			}
			results[i] = OpResult{ID: id, Success: err == nil, Err: err}
		}
	}
}

// BatchRead runs ops concurrently, bounded by the configured batch concurrency.
// Each op fails independently; the returned slice is index-aligned with ops.
func (s *Store) BatchRead(ctx context.Context, ops []ReadOp) []ReadResult {
	results := make([]ReadResult, len(ops))

	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, op := range ops {
		g.Go(func() error {
			results[i] = s.readOp(ctx, op)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Store) readOp(ctx context.Context, op ReadOp) ReadResult {
	if op.Collection == "" {
		return ReadResult{Err: fmt.Errorf("%w: read without collection", ErrInvalidOp)}
	}
	switch {
	case op.ID != "":
		doc, err := s.Read(ctx, op.Collection, op.ID)
		return ReadResult{Doc: doc, Err: err}
	case op.Filter != nil:
		entries, err := s.Find(ctx, op.Collection, op.Filter)
		return ReadResult{Entries: entries, Err: err}
	default:
		docs, err := s.ReadAll(ctx, op.Collection)
		return ReadResult{Docs: docs, Err: err}
	}
}
