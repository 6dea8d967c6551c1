package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	apperrors "github.com/rajasatyajit/EcoScan/internal/errors"
	"github.com/rajasatyajit/EcoScan/internal/models"
	"github.com/rajasatyajit/EcoScan/pkg/utils"
)

//go:embed catalog.yaml
var embedded []byte

// Catalog is immutable reference data: fully specified products keyed by
// normalized identifier and the recommended alternatives for some of them.
// Entries are returned exactly as written in the document.
type Catalog struct {
	products     map[string]models.Product
	alternatives map[string][]string
}

type document struct {
	Products     []models.Product    `yaml:"products"`
	Alternatives map[string][]string `yaml:"alternatives"`
}

// Default returns the catalog compiled into the binary
func Default() *Catalog {
	c, err := Parse(embedded)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// LoadFile loads an operator supplied catalog
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load catalog %q: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse catalog %q: %w", path, err)
	}
	return c, nil
}

// Load returns the file catalog when path is set and the embedded one otherwise
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// Parse decodes and validates a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	c := &Catalog{
		products:     make(map[string]models.Product, len(doc.Products)),
		alternatives: make(map[string][]string, len(doc.Alternatives)),
	}

	var problems apperrors.MultiError
	for i, p := range doc.Products {
		key := utils.NormalizeIdentifier(p.ID)
		switch {
		case key == "":
			problems.Add(apperrors.ValidationError{Field: fmt.Sprintf("products[%d].id", i), Message: "is required"})
			continue
		case p.Score < 0 || p.Score > 100:
			problems.Add(apperrors.ValidationError{Field: p.ID + ".score", Message: "must be between 0 and 100"})
		case !p.Grade.Valid():
			problems.Add(apperrors.ValidationError{Field: p.ID + ".grade", Message: "must be one of A, B, C, D, E"})
		}
		if prev, dup := c.products[key]; dup {
			problems.Add(apperrors.ValidationError{Field: p.ID, Message: fmt.Sprintf("duplicate product id (same as %q)", prev.ID)})
		}
		c.products[key] = p
	}

	for id, alts := range doc.Alternatives {
		key := utils.NormalizeIdentifier(id)
		if _, dup := c.alternatives[key]; dup {
			problems.Add(apperrors.ValidationError{Field: "alternatives." + id, Message: "duplicate product id"})
		}
		resolved := make([]string, 0, len(alts))
		for _, alt := range alts {
			p, ok := c.products[utils.NormalizeIdentifier(alt)]
			if !ok {
				problems.Add(apperrors.ValidationError{Field: "alternatives." + id, Message: fmt.Sprintf("unknown product %q", alt)})
				continue
			}
			resolved = append(resolved, p.ID)
		}
		c.alternatives[key] = resolved
	}

	if problems.HasErrors() {
		return nil, problems
	}
	return c, nil
}

// Lookup returns a copy of the catalog entry for id
func (c *Catalog) Lookup(id string) (*models.Product, bool) {
	p, ok := c.products[utils.NormalizeIdentifier(id)]
	if !ok {
		return nil, false
	}
	return &p, true
}

// Alternatives returns the recommended replacements for id, possibly none
func (c *Catalog) Alternatives(id string) []string {
	alts := c.alternatives[utils.NormalizeIdentifier(id)]
	if len(alts) == 0 {
		return []string{}
	}
	return append([]string(nil), alts...)
}

// All returns every product sorted by id
func (c *Catalog) All() []models.Product {
	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of products
func (c *Catalog) Len() int {
	return len(c.products)
}
