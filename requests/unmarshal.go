package requests

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/brettbedarf/docfs/filter"
	"github.com/brettbedarf/docfs/internal/util"
	"github.com/brettbedarf/docfs/store"
)

// Batch is a decoded batch file split into the store's write and read operations.
// WriteIdx and ReadIdx map each operation back to its position in Ops.
type Batch struct {
	Ops      []OpDTO
	Writes   []store.WriteOp
	WriteIdx []int
	Reads    []store.ReadOp
	ReadIdx  []int
}

// GetOpType extracts the operation type from a single JSON entry without full unmarshaling
func GetOpType(data []byte) (string, error) {
	var meta struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return "", err
	}
	return meta.Type, nil
}

// UnmarshalJSON decodes a JSON array of batch entries
func UnmarshalJSON(data []byte) (*Batch, error) {
	var dtos []OpDTO
	if err := json.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return Decode(dtos)
}

// UnmarshalYAML decodes a YAML sequence of batch entries
func UnmarshalYAML(data []byte) (*Batch, error) {
	var dtos []OpDTO
	if err := yaml.Unmarshal(data, &dtos); err != nil {
		return nil, fmt.Errorf("failed to unmarshal batch: %w", err)
	}
	return Decode(dtos)
}

// LoadFile reads a batch file, choosing the format by extension (.json, .yaml, .yml)
func LoadFile(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return UnmarshalYAML(data)
	case ".json":
		return UnmarshalJSON(data)
	default:
		return nil, fmt.Errorf("unknown batch file extension: %s", path)
	}
}

// Decode converts wire entries into store operations. Entries with missing fields are kept
// so the store can report them per operation; only undecodable filters fail the whole batch.
func Decode(dtos []OpDTO) (*Batch, error) {
	logger := util.GetLogger("Requests.Decode")
	b := &Batch{Ops: dtos}

	for i, dto := range dtos {
		id := util.ValueOrDefault(dto.ID, "")
		opType := strings.ToLower(strings.TrimSpace(dto.Type))

		if opType == ReadOpType {
			op := store.ReadOp{Collection: dto.Collection, ID: id}
			if dto.Filter != nil {
				expr, err := filter.Parse(dto.Filter)
				if err != nil {
					return nil, fmt.Errorf("entry %d: %w", i, err)
				}
				op.Filter = expr
			}
			b.Reads = append(b.Reads, op)
			b.ReadIdx = append(b.ReadIdx, i)
			continue
		}

		b.Writes = append(b.Writes, store.WriteOp{
			Type:       store.OpType(opType),
			Collection: dto.Collection,
			ID:         id,
			Data:       dto.Data,
		})
		b.WriteIdx = append(b.WriteIdx, i)
	}

	logger.Debug().Int("writes", len(b.Writes)).Int("reads", len(b.Reads)).Msg("Batch decoded")
	return b, nil
}
