package requests

import (
	"context"

	"github.com/brettbedarf/docfs/store"
)

// Run applies all writes of b, then all reads, and returns one result per entry in input order
func (b *Batch) Run(ctx context.Context, s *store.Store) []ResultDTO {
	results := make([]ResultDTO, len(b.Ops))
	for i, op := range b.Ops {
		results[i] = ResultDTO{Index: i, Type: op.Type, Collection: op.Collection}
	}

	if len(b.Writes) > 0 {
		for j, r := range s.BatchWrite(ctx, b.Writes) {
			res := &results[b.WriteIdx[j]]
			res.ID = r.ID
			res.Success = r.Success
			if b.Writes[j].Type == store.OpDelete {
				deleted := r.Deleted
				res.Deleted = &deleted
			}
			if r.Err != nil {
				res.Error = r.Err.Error()
			}
		}
	}

	if len(b.Reads) > 0 {
		for j, r := range s.BatchRead(ctx, b.Reads) {
			res := &results[b.ReadIdx[j]]
			res.ID = b.Reads[j].ID
			res.Success = r.Err == nil
			res.Doc = r.Doc
			res.Docs = r.Docs
			if r.Entries != nil {
				res.Entries = make([]EntryDTO, len(r.Entries))
				for k, e := range r.Entries {
					res.Entries[k] = EntryDTO{ID: e.ID, Data: e.Data}
				}
			}
			if r.Err != nil {
				res.Error = r.Err.Error()
			}
		}
	}
	return results
}
