package formschema

import (
	"mime/multipart"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tourSchema = `[
  {"name": "operator_name", "label": "Operator", "type": "text"},
  {"name": "accept_terms", "label": "Terms", "type": "declaration"},
  {"name": "has_vessel", "label": "Vessel?", "type": "checkbox"},
  {"name": "activities", "label": "Activities", "type": "multi-select"},
  {"name": "insurance", "label": "Insurance", "type": "file"},
  {"name": "permit_copy", "label": "Permit", "type": "file"},
  {"name": "notes", "label": "Notes", "type": "text"},
  {"name": "vehicles", "label": "Vehicles", "repetition": true, "children": [
    {"name": "rego", "label": "Rego", "type": "text"},
    {"name": "seats", "label": "Seats", "type": "text"}
  ]},
  {"name": "contact", "label": "Contact", "children": [
    {"name": "phone", "label": "Phone", "type": "text"}
  ]},
  {"name": "guided", "label": "Guided", "type": "radiobuttons", "conditions": {
    "yes": [{"name": "guide_count", "label": "Guides", "type": "text"}]
  }}
]`

func TestExtract(t *testing.T) {
	schema, err := Parse([]byte(tourSchema))
	require.NoError(t, err)

	values := url.Values{
		"operator_name":        {"Reef Walkers"},
		"accept_terms":         {"on"},
		"activities":           {"snorkel", "kayak"},
		"permit_copy-existing": {"permit.pdf"},
		"vehicles":             {"", ""},
		"rego-0":               {"1ABC234"},
		"seats-0":              {"12"},
		"rego-1":               {"1XYZ999"},
		"phone":                {"0400 000 000"},
		"guided":               {"yes"},
		"guide_count":          {"3"},
	}
	files := map[string][]*multipart.FileHeader{
		"insurance": {{Filename: "insurance.pdf"}},
	}

	out, err := Extract(schema, values, files)
	require.NoError(t, err)
	require.Len(t, out, 1)
	data := out[0]

	assert.Equal(t, "Reef Walkers", data["operator_name"])
	assert.Equal(t, true, data["accept_terms"])
	assert.Equal(t, false, data["has_vessel"])
	assert.Equal(t, []string{"snorkel", "kayak"}, data["activities"])
	assert.Equal(t, "insurance.pdf", data["insurance"])
	assert.Equal(t, "permit.pdf", data["permit_copy"])
	assert.NotContains(t, data, "notes")

	vehicles := data["vehicles"].([]map[string]interface{})
	require.Len(t, vehicles, 2)
	assert.Equal(t, "1ABC234", vehicles[0]["rego"])
	assert.Equal(t, "12", vehicles[0]["seats"])
	assert.Equal(t, "1XYZ999", vehicles[1]["rego"])
	assert.NotContains(t, vehicles[1], "seats")

	contact := data["contact"].([]map[string]interface{})
	require.Len(t, contact, 1)
	assert.Equal(t, "0400 000 000", contact[0]["phone"])

	assert.Equal(t, "yes", data["guided"])
	assert.Equal(t, "3", data["guide_count"])
}

func TestExtractFileWithoutUploadOrExisting(t *testing.T) {
	schema := Schema{{Name: "site_plan", Type: TypeFile}}
	out, err := Extract(schema, url.Values{"site_plan-existing": {""}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", out[0]["site_plan"])
}

func TestExtractNestedRepetitionSuffixes(t *testing.T) {
	schema := Schema{{
		Name: "sites", Repetition: true, Children: []Item{
			{Name: "site_name", Type: "text"},
			{Name: "zones", Repetition: true, Children: []Item{{Name: "zone", Type: "text"}}},
		},
	}}
	values := url.Values{
		"sites":       {"", ""},
		"site_name-0": {"North"},
		"site_name-1": {"South"},
		"zones-1":     {"", ""},
		"zone-1-0":    {"A"},
		"zone-1-1":    {"B"},
	}

	out, err := Extract(schema, values, nil)
	require.NoError(t, err)

	sites := out[0]["sites"].([]map[string]interface{})
	require.Len(t, sites, 2)
	assert.Empty(t, sites[0]["zones"])
	zones := sites[1]["zones"].([]map[string]interface{})
	require.Len(t, zones, 2)
	assert.Equal(t, "A", zones[0]["zone"])
	assert.Equal(t, "B", zones[1]["zone"])
}

func TestExtractMissingName(t *testing.T) {
	schema := Schema{{Label: "Orphan", Type: "text"}}
	_, err := Extract(schema, url.Values{}, nil)
	assert.ErrorIs(t, err, ErrMissingName)
	assert.Contains(t, err.Error(), "Orphan")

	nested := Schema{{Name: "g", Children: []Item{{Label: "Inner"}}}}
	_, err = Extract(nested, url.Values{}, nil)
	assert.ErrorIs(t, err, ErrMissingName)
}

func TestParseAndFileFields(t *testing.T) {
	_, err := Parse([]byte(`{"not": "a list"}`))
	assert.Error(t, err)

	schema, err := Parse([]byte(tourSchema))
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"insurance", "permit_copy"}, schema.FileFields())
}
