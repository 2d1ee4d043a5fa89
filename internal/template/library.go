package template

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Library resolves template ids to Liquid sources stored as
// <dir>/<id>.liquid and renders them. The renderer's parse cache is
// keyed by id, so a template parses once however many campaigns use
// it.
type Library struct {
	dir string
	r   *Renderer
}

func NewLibrary(dir string, r *Renderer) *Library {
	return &Library{dir: dir, r: r}
}

// RenderTemplate loads and renders the identified template against
// data. Missing templates are an error; campaigns reference templates
// by id on purpose, so a dangling id should fail the delivery rather
// than silently send an empty body.
func (l *Library) RenderTemplate(ctx context.Context, templateID string, data map[string]interface{}) (string, error) {
	src, err := os.ReadFile(filepath.Join(l.dir, templateID+".liquid"))
	if err != nil {
		return "", fmt.Errorf("loading template %s: %w", templateID, err)
	}
	out, err := l.r.Render(templateID, string(src), data)
	if err != nil {
		return "", fmt.Errorf("rendering template %s: %w", templateID, err)
	}
	return out, nil
}
