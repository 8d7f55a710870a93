// internal/revisions/compare.go
package revisions

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Fields that change on every save and carry no history value.
var ignoredFields = map[string]bool{
	"updated_at": true,
	"deleted_at": true,
}

// FieldDiff describes how one field differs between two versions.
type FieldDiff struct {
	Field string      `json:"field"`
	Old   interface{} `json:"old"`
	New   interface{} `json:"new"`
	Diff  string      `json:"diff,omitempty"`
}

// Compare returns the fields that changed from older to newer, sorted by
// name. Text and structured values carry a unified diff.
func Compare(older, newer map[string]interface{}) []FieldDiff {
	keys := make(map[string]struct{}, len(older)+len(newer))
	for k := range older {
		keys[k] = struct{}{}
	}
	for k := range newer {
		keys[k] = struct{}{}
	}

	names := make([]string, 0, len(keys))
	for k := range keys {
		if !ignoredFields[k] {
			names = append(names, k)
		}
	}
	sort.Strings(names)

	var diffs []FieldDiff
	for _, name := range names {
		oldVal, newVal := older[name], newer[name]
		if reflect.DeepEqual(oldVal, newVal) {
			continue
		}
		fd := FieldDiff{Field: name, Old: oldVal, New: newVal}
		if diffable(oldVal) || diffable(newVal) {
			fd.Diff = unified(name, render(oldVal), render(newVal))
		}
		diffs = append(diffs, fd)
	}
	return diffs
}

func diffable(v interface{}) bool {
	switch v.(type) {
	case string, map[string]interface{}, []interface{}:
		return true
	}
	return false
}

func render(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, err := json.MarshalIndent(t, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	}
}

func unified(name, a, b string) string {
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(ensureNewline(a)),
		B:        difflib.SplitLines(ensureNewline(b)),
		FromFile: name + " (older)",
		ToFile:   name + " (newer)",
		Context:  2,
	})
	if err != nil {
		return ""
	}
	return text
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
