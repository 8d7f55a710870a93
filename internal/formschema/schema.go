// internal/formschema/schema.go
package formschema

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingName = errors.New("schema item has no name")

// Item is one node of a proposal form schema.
type Item struct {
	Name       string            `json:"name"`
	Label      string            `json:"label,omitempty"`
	Type       string            `json:"type,omitempty"`
	Children   []Item            `json:"children,omitempty"`
	Repetition bool              `json:"repetition,omitempty"`
	Conditions map[string][]Item `json:"conditions,omitempty"`
}

// IsGroup reports whether the item nests other items.
func (i Item) IsGroup() bool {
	return i.Children != nil
}

type Schema []Item

// Parse decodes a JSON schema list.
func Parse(raw []byte) (Schema, error) {
	var s Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse form schema: %w", err)
	}
	return s, nil
}

// FileFields lists the names of every file item in the schema, including
// those nested in groups and condition branches.
func (s Schema) FileFields() []string {
	var names []string
	var walk func(items []Item)
	walk = func(items []Item) {
		for _, it := range items {
			if it.Type == TypeFile {
				names = append(names, it.Name)
			}
			walk(it.Children)
			for _, branch := range it.Conditions {
				walk(branch)
			}
		}
	}
	walk(s)
	return names
}
