package requests

// OpType values accepted in the "type" field of a batch entry
const (
	WriteOpType  = "write"
	InsertOpType = "insert"
	DeleteOpType = "delete"
	ReadOpType   = "read"
)

// OpDTO is the wire representation of one batch entry.
//
// Fields used depend on the "type" value:
//
//	write:  collection, id, data
//	insert: collection, data
//	delete: collection, id
//	read:   collection, and optionally id or filter
type OpDTO struct {
	Type       string         `json:"type" yaml:"type"`
	Collection string         `json:"collection" yaml:"collection"`
	ID         *string        `json:"id,omitempty" yaml:"id,omitempty"`
	Data       any            `json:"data,omitempty" yaml:"data,omitempty"`
	Filter     map[string]any `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// ResultDTO is the wire representation of one batch outcome, in input order
type ResultDTO struct {
	Index      int            `json:"index"`
	Type       string         `json:"type"`
	Collection string         `json:"collection"`
	ID         string         `json:"id,omitempty"`
	Success    bool           `json:"success"`
	Deleted    *bool          `json:"deleted,omitempty"`
	Doc        any            `json:"doc,omitempty"`
	Docs       map[string]any `json:"docs,omitempty"`
	Entries    []EntryDTO     `json:"entries,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// EntryDTO is the wire representation of a found document
type EntryDTO struct {
	ID   string `json:"id"`
	Data any    `json:"data"`
}
