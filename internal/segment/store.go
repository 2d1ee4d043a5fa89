package segment

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/ignite/campaign-engine/internal/domain"
)

// FileDefinitions reads segment definitions from
// <dir>/<shop>/segments.json, a JSON array of {id, filters} objects.
type FileDefinitions struct {
	dir string
}

// NewFileDefinitions creates a file-backed definition source under dir.
func NewFileDefinitions(dir string) *FileDefinitions {
	return &FileDefinitions{dir: dir}
}

// ListSegments loads the shop's definitions. Missing or malformed files
// yield an empty list and no error.
func (s *FileDefinitions) ListSegments(ctx context.Context, shop string) ([]domain.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.dir, shop, "segments.json"))
	if err != nil {
		return nil, nil
	}
	var defs []domain.Segment
	if err := json.Unmarshal(data, &defs); err != nil {
		return nil, nil
	}
	return defs, nil
}
