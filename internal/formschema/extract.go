// internal/formschema/extract.go
package formschema

import (
	"fmt"
	"mime/multipart"
	"net/url"
	"sort"
	"strconv"
)

const (
	TypeCheckbox    = "checkbox"
	TypeDeclaration = "declaration"
	TypeFile        = "file"
	TypeMultiSelect = "multi-select"
)

// Extract walks schema and pulls each field's value out of the posted form.
// The result is a single-element list holding the merged field map, the
// shape stored on a proposal's data column.
func Extract(schema Schema, values url.Values, files map[string][]*multipart.FileHeader) ([]map[string]interface{}, error) {
	data := map[string]interface{}{}
	for _, item := range schema {
		itemData, err := extractItem(item, values, files, "")
		if err != nil {
			return nil, err
		}
		merge(data, itemData)
	}
	return []map[string]interface{}{data}, nil
}

func extractItem(item Item, values url.Values, files map[string][]*multipart.FileHeader, suffix string) (map[string]interface{}, error) {
	if item.Name == "" {
		return nil, fmt.Errorf("%w: %q", ErrMissingName, item.Label)
	}

	key := item.Name + suffix
	data := map[string]interface{}{}

	if !item.IsGroup() {
		switch item.Type {
		case TypeCheckbox, TypeDeclaration:
			_, present := values[key]
			data[item.Name] = present
		case TypeFile:
			if fh := files[key]; len(fh) > 0 {
				data[item.Name] = fh[0].Filename
			} else if existing := values.Get(key + "-existing"); existing != "" {
				data[item.Name] = existing
			} else {
				data[item.Name] = ""
			}
		case TypeMultiSelect:
			if v, ok := values[key]; ok {
				data[item.Name] = append([]string(nil), v...)
			}
		default:
			if v, ok := values[key]; ok && len(v) > 0 {
				data[item.Name] = v[0]
			}
		}
	} else {
		var groups []map[string]interface{}
		if item.Repetition {
			for rep := 0; rep < len(values[key]); rep++ {
				child, err := extractChildren(item.Children, values, files, suffix+"-"+strconv.Itoa(rep))
				if err != nil {
					return nil, err
				}
				groups = append(groups, child)
			}
		} else {
			child, err := extractChildren(item.Children, values, files, suffix)
			if err != nil {
				return nil, err
			}
			groups = append(groups, child)
		}
		if groups == nil {
			groups = []map[string]interface{}{}
		}
		data[item.Name] = groups
	}

	// sorted so colliding keys resolve the same way every time
	conditions := make([]string, 0, len(item.Conditions))
	for cond := range item.Conditions {
		conditions = append(conditions, cond)
	}
	sort.Strings(conditions)
	for _, cond := range conditions {
		for _, child := range item.Conditions[cond] {
			childData, err := extractItem(child, values, files, suffix)
			if err != nil {
				return nil, err
			}
			merge(data, childData)
		}
	}

	return data, nil
}

func extractChildren(children []Item, values url.Values, files map[string][]*multipart.FileHeader, suffix string) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	for _, child := range children {
		childData, err := extractItem(child, values, files, suffix)
		if err != nil {
			return nil, err
		}
		merge(out, childData)
	}
	return out, nil
}

func merge(dst, src map[string]interface{}) {
	for k, v := range src {
		dst[k] = v
	}
}
