// Package schema describes the categories (pallets) and sub-items (storage
// items) that record keys are classified into, and loads them from files.
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/storage-analysis/pkg/errors"
)

// Item is a named sub-item of a category.
type Item struct {
	Name     string   `yaml:"name" json:"name"`
	Modifier string   `yaml:"modifier,omitempty" json:"modifier,omitempty"`
	Docs     []string `yaml:"docs,omitempty" json:"docs,omitempty"`
}

// Category is a named grouping of records sharing a key prefix.
type Category struct {
	Name  string `yaml:"name" json:"name"`
	Items []Item `yaml:"items,omitempty" json:"items,omitempty"`
}

// ItemNames returns the names of the category's items.
func (c Category) ItemNames() []string {
	names := make([]string, len(c.Items))
	for i, it := range c.Items {
		names[i] = it.Name
	}
	return names
}

// Document is the on-disk layout of a schema file.
type Document struct {
	Network    string     `yaml:"network,omitempty" json:"network,omitempty"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// Provider supplies the category list for a run.
type Provider interface {
	Categories(ctx context.Context) ([]Category, error)
}

// Static is a Provider over a fixed category list.
type Static []Category

// Categories implements Provider.
func (s Static) Categories(ctx context.Context) ([]Category, error) {
	return Sorted(s), nil
}

// FileProvider reads categories from a YAML or JSON file.
type FileProvider struct {
	Path string
}

// NewFileProvider creates a provider for path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// Categories implements Provider.
func (p *FileProvider) Categories(ctx context.Context) ([]Category, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSchemaError, "read schema file", err)
	}

	doc, err := Decode(data, filepath.Ext(p.Path))
	if err != nil {
		return nil, err
	}
	if err := Validate(doc.Categories); err != nil {
		return nil, err
	}
	return Sorted(doc.Categories), nil
}

// Decode parses a schema document. ext selects the format; ".json" is JSON,
// anything else is YAML.
func Decode(data []byte, ext string) (*Document, error) {
	var doc Document
	var err error
	switch strings.ToLower(ext) {
	case ".json":
		err = json.Unmarshal(data, &doc)
	default:
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeSchemaError, "decode schema", err)
	}
	return &doc, nil
}

// Validate rejects categories or items without a name.
func Validate(categories []Category) error {
	for i, c := range categories {
		if c.Name == "" {
			return apperrors.Newf(apperrors.CodeSchemaError, "category %d has no name", i)
		}
		for j, it := range c.Items {
			if it.Name == "" {
				return apperrors.Newf(apperrors.CodeSchemaError, "item %d of %s has no name", j, c.Name)
			}
		}
	}
	return nil
}

// Sorted returns a copy of categories in ascending name order.
func Sorted(categories []Category) []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Find returns the category with the given name.
func Find(categories []Category, name string) (Category, error) {
	for _, c := range categories {
		if c.Name == name {
			return c, nil
		}
	}
	return Category{}, apperrors.Wrap(apperrors.CodeNotFound, "category", fmt.Errorf("%q not in schema", name))
}
