// Package area resolves human-readable area slugs to stable area ids.
//
// The catalog is embedded at build time and is the single source of truth
// for area identity; the areas table is seeded from it.
package area

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

//go:embed areas.yaml
var defaultCatalog []byte

type Area struct {
	ID   string `yaml:"id" json:"id"`
	Slug string `yaml:"slug" json:"slug"`
	Code string `yaml:"code" json:"code"`
	Name string `yaml:"name" json:"name"`
}

type Catalog struct {
	bySlug  map[string]Area
	byID    map[string]Area
	ordered []Area
}

// Default returns the embedded catalog. It panics on a malformed catalog,
// which can only happen if areas.yaml is edited incorrectly.
func Default() *Catalog {
	catalog, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("area: embedded catalog: %v", err))
	}
	return catalog
}

// Parse builds a catalog from YAML. Slugs and ids must be unique.
func Parse(raw []byte) (*Catalog, error) {
	var doc struct {
		Areas []Area `yaml:"areas"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Areas)
}

func New(areas []Area) (*Catalog, error) {
	c := &Catalog{
		bySlug:  make(map[string]Area, len(areas)),
		byID:    make(map[string]Area, len(areas)),
		ordered: make([]Area, 0, len(areas)),
	}
	for _, a := range areas {
		a.Slug = normalize(a.Slug)
		a.ID = strings.TrimSpace(a.ID)
		if a.Slug == "" || a.ID == "" {
			return nil, fmt.Errorf("area %q: slug and id are required", a.Name)
		}
		if _, dup := c.bySlug[a.Slug]; dup {
			return nil, fmt.Errorf("duplicate area slug %q", a.Slug)
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate area id %q", a.ID)
		}
		c.bySlug[a.Slug] = a
		c.byID[a.ID] = a
		c.ordered = append(c.ordered, a)
	}
	sort.SliceStable(c.ordered, func(i, j int) bool { return c.ordered[i].Slug < c.ordered[j].Slug })
	return c, nil
}

// Resolve looks up an area by slug.
func (c *Catalog) Resolve(slug string) (Area, bool) {
	a, ok := c.bySlug[normalize(slug)]
	return a, ok
}

// Lookup accepts either a slug or an area id. Clients send both forms.
func (c *Catalog) Lookup(slugOrID string) (Area, bool) {
	if a, ok := c.Resolve(slugOrID); ok {
		return a, true
	}
	a, ok := c.byID[strings.TrimSpace(slugOrID)]
	return a, ok
}

// All returns the areas ordered by slug.
func (c *Catalog) All() []Area {
	out := make([]Area, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func normalize(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
