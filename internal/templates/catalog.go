// Package templates holds the built-in compliance framework catalogs.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pesio-ai/be-plt-grc/internal/apperrors"
	"github.com/pesio-ai/be-plt-grc/internal/domain"
)

//go:embed catalog/*.yaml
var catalogFS embed.FS

// Catalog is an immutable set of framework templates keyed by framework name.
type Catalog struct {
	byName map[string]*domain.ControlTemplate
	names  []string
}

// Builtin parses the embedded catalogs.
func Builtin() (*Catalog, error) {
	return Load(catalogFS, "catalog")
}

// MustBuiltin is Builtin for program start-up.
func MustBuiltin() *Catalog {
	c, err := Builtin()
	if err != nil {
		panic(err)
	}
	return c
}

// Load reads every *.yaml file directly under dir.
func Load(fsys fs.FS, dir string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog dir: %w", err)
	}

	c := &Catalog{byName: make(map[string]*domain.ControlTemplate)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		tpl, err := Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		if _, dup := c.byName[tpl.Framework]; dup {
			return nil, fmt.Errorf("%s: duplicate framework %q", e.Name(), tpl.Framework)
		}
		c.byName[tpl.Framework] = tpl
		c.names = append(c.names, tpl.Framework)
	}
	sort.Strings(c.names)
	return c, nil
}

// Parse decodes and checks one catalog document.
func Parse(raw []byte) (*domain.ControlTemplate, error) {
	var tpl domain.ControlTemplate
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(&tpl); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if strings.TrimSpace(tpl.Framework) == "" {
		return nil, fmt.Errorf("invalid catalog: framework is required")
	}
	if len(tpl.Controls) == 0 {
		return nil, fmt.Errorf("invalid catalog: %s has no controls", tpl.Framework)
	}
	seen := make(map[string]struct{}, len(tpl.Controls))
	for i, tc := range tpl.Controls {
		if tc.ControlID == "" || tc.Title == "" {
			return nil, fmt.Errorf("invalid catalog: control %d needs id and title", i)
		}
		if _, dup := seen[tc.ControlID]; dup {
			return nil, fmt.Errorf("invalid catalog: duplicate control %q", tc.ControlID)
		}
		seen[tc.ControlID] = struct{}{}
	}
	return &tpl, nil
}

// List returns copies of every template sorted by framework name.
func (c *Catalog) List() []*domain.ControlTemplate {
	out := make([]*domain.ControlTemplate, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, clone(c.byName[n]))
	}
	return out
}

// Get returns a copy of the named template.
func (c *Catalog) Get(framework string) (*domain.ControlTemplate, error) {
	tpl, ok := c.byName[framework]
	if !ok {
		return nil, apperrors.NotFound("framework", framework)
	}
	return clone(tpl), nil
}

func clone(t *domain.ControlTemplate) *domain.ControlTemplate {
	cp := *t
	cp.Controls = append([]domain.TemplateControl(nil), t.Controls...)
	return &cp
}
