package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyFromPath(t *testing.T) {
	assert.Equal(t, ZipCodesV1, generateKeyFromPath("llm/zip-codes/v1.json"))
	assert.Equal(t, SearchParamsV1, generateKeyFromPath("llm/search-params/v1.json"))
	assert.Equal(t, "", generateKeyFromPath("llm/broken.json"))
}

func TestAllSchemasCompile(t *testing.T) {
	compiled, err := loadSchemas()
	require.NoError(t, err)
	assert.Contains(t, compiled, ZipCodesV1)
	assert.Contains(t, compiled, SearchParamsV1)
}

func TestDecodeStrict(t *testing.T) {
	v, err := DecodeStrict(` {"price_max": 2500} `)
	require.NoError(t, err)
	assert.Equal(t, json.Number("2500"), v.(map[string]any)["price_max"])

	_, err = DecodeStrict(`{"a": 1} trailing`)
	assert.Error(t, err)

	_, err = DecodeStrict("```json\n[\"1\"]\n```")
	assert.Error(t, err)

	_, err = DecodeStrict("")
	assert.Error(t, err)
}

func TestZipCodesSchema(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"two strings", `["78701", "78702"]`, true},
		{"empty list", `[]`, true},
		{"number element", `["78701", 78702]`, false},
		{"object", `{"zip": "78701"}`, false},
		{"string", `"78701"`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAndValidate(ZipCodesV1, tc.raw)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSearchParamsSchema(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		valid bool
	}{
		{"full", `{"price_min": 1000, "price_max": 2500, "bedrooms": 2, "amenities": ["pool"]}`, true},
		{"partial", `{"bedrooms": 2}`, true},
		{"nulls", `{"price_min": null, "amenities": null}`, true},
		{"empty object", `{}`, true},
		{"string price", `{"price_max": "2500"}`, false},
		{"fractional bedrooms", `{"bedrooms": 1.5}`, false},
		{"negative price", `{"price_min": -1}`, false},
		{"amenity not string", `{"amenities": ["pool", 3]}`, false},
		{"array", `[1, 2]`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeAndValidate(SearchParamsV1, tc.raw)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateUnknownSchema(t *testing.T) {
	assert.Error(t, Validate("Nope/1.0.0", []any{}))
}
