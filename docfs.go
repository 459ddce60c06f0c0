// Package docfs is an embedded document store that persists one JSON document per
// file, grouped into collection directories, with MongoDB-style filtering on top.
//
// Layout on disk:
//
//	<base>/
//	  users/
//	    1.json
//	    2.json
//	  orders/
//	    7f9c....json
//
// The heavy lifting lives in the store and filter packages; this package only
// re-exports the pieces most callers need.
package docfs

import (
	"github.com/brettbedarf/docfs/config"
	"github.com/brettbedarf/docfs/store"
)

type (
	Store         = store.Store
	Entry         = store.Entry
	Validator     = store.Validator
	ValidatorFunc = store.ValidatorFunc
)

// New creates a Store instance given your config.
func New(cfg *config.Config, opts ...store.Option) (*store.Store, error) {
	return store.New(cfg, opts...)
}
