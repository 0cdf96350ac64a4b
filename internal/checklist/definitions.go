// Package checklist loads the checklist definitions and the category registry.
package checklist

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/casecheck/internal/model"
)

//go:embed default.yaml
var defaultDefinitions []byte

// ErrInvalidDefinitions is returned for any inconsistency in a definitions file
var ErrInvalidDefinitions = errors.New("invalid checklist definitions")

// Item is one checklist key with its description
type Item struct {
	Key         string `yaml:"key"`
	Description string `yaml:"description"`
}

type definitionsFile struct {
	Version    string                   `yaml:"version"`
	Items      []Item                   `yaml:"items"`
	Categories []model.CategoryMetadata `yaml:"categories"`
}

// Registry holds the immutable checklist definitions and category metadata
type Registry struct {
	version      string
	items        []Item
	descriptions map[string]string
	categories   []model.CategoryMetadata
	categoryOf   map[string]string
}

// Default returns the built-in registry
func Default() *Registry {
	r, err := Load(defaultDefinitions)
	if err != nil {
		panic(fmt.Sprintf("built-in checklist definitions: %v", err))
	}
	return r
}

// LoadFile loads a registry from a YAML file
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	return Load(data)
}

// Load parses and validates checklist definitions
func Load(data []byte) (*Registry, error) {
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse definitions: %w", err)
	}

	if strings.TrimSpace(file.Version) == "" {
		return nil, fmt.Errorf("%w: version is required", ErrInvalidDefinitions)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("%w: no checklist items", ErrInvalidDefinitions)
	}

	r := &Registry{
		version:      file.Version,
		descriptions: make(map[string]string, len(file.Items)),
		categoryOf:   make(map[string]string, len(file.Items)),
	}

	for _, item := range file.Items {
		if item.Key == "" {
			return nil, fmt.Errorf("%w: item with empty key", ErrInvalidDefinitions)
		}
		if _, dup := r.descriptions[item.Key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrInvalidDefinitions, item.Key)
		}
		r.descriptions[item.Key] = item.Description
		r.items = append(r.items, item)
	}

	seenCategory := make(map[string]bool, len(file.Categories))
	for _, cat := range file.Categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("%w: category with empty id", ErrInvalidDefinitions)
		}
		if seenCategory[cat.ID] {
			return nil, fmt.Errorf("%w: duplicate category %q", ErrInvalidDefinitions, cat.ID)
		}
		seenCategory[cat.ID] = true

		for _, key := range cat.Members {
			if _, ok := r.descriptions[key]; !ok {
				return nil, fmt.Errorf("%w: category %q references unknown key %q", ErrInvalidDefinitions, cat.ID, key)
			}
			if other, dup := r.categoryOf[key]; dup {
				return nil, fmt.Errorf("%w: key %q is in categories %q and %q", ErrInvalidDefinitions, key, other, cat.ID)
			}
			r.categoryOf[key] = cat.ID
		}

		cat.Members = append([]string(nil), cat.Members...)
		r.categories = append(r.categories, cat)
	}

	for _, item := range r.items {
		if _, ok := r.categoryOf[item.Key]; !ok {
			return nil, fmt.Errorf("%w: key %q belongs to no category", ErrInvalidDefinitions, item.Key)
		}
	}

	return r, nil
}

// Version returns the definitions version, part of every extraction signature
func (r *Registry) Version() string {
	return r.version
}

// Definitions returns a copy of the key → description map
func (r *Registry) Definitions() map[string]string {
	out := make(map[string]string, len(r.descriptions))
	for k, v := range r.descriptions {
		out[k] = v
	}
	return out
}

// Keys returns checklist keys in definition order
func (r *Registry) Keys() []string {
	keys := make([]string, len(r.items))
	for i, item := range r.items {
		keys[i] = item.Key
	}
	return keys
}

// Description returns the description of a key
func (r *Registry) Description(key string) string {
	return r.descriptions[key]
}

// Has reports whether key is a defined checklist key
func (r *Registry) Has(key string) bool {
	_, ok := r.descriptions[key]
	return ok
}

// Categories returns category metadata in display order
func (r *Registry) Categories() []model.CategoryMetadata {
	out := make([]model.CategoryMetadata, len(r.categories))
	for i, cat := range r.categories {
		out[i] = cat
		out[i].Members = append([]string(nil), cat.Members...)
	}
	return out
}

// Category returns the metadata of one category
func (r *Registry) Category(id string) (model.CategoryMetadata, bool) {
	for _, cat := range r.categories {
		if cat.ID == id {
			cat.Members = append([]string(nil), cat.Members...)
			return cat, true
		}
	}
	return model.CategoryMetadata{}, false
}

// CategoryOf returns the category id a key belongs to
func (r *Registry) CategoryOf(key string) (string, bool) {
	id, ok := r.categoryOf[key]
	return id, ok
}
