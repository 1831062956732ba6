package jsonutil_test

import (
	"testing"

	"github.com/evidentry-project/evidentry/pkg/jsonutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalMarshal_SortsKeys(t *testing.T) {
	data, err := jsonutil.CanonicalMarshal(map[string]any{
		"zeta":  1,
		"alpha": 2,
		"mid":   3,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":2,"mid":3,"zeta":1}`, string(data))
}

func TestCanonicalMarshal_NestedDeterminism(t *testing.T) {
	v := map[string]any{
		"b": map[string]any{"y": []any{1, "two", nil}, "x": true},
		"a": nil,
	}
	first, err := jsonutil.CanonicalMarshal(v)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := jsonutil.CanonicalMarshal(v)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
	assert.Equal(t, `{"a":null,"b":{"x":true,"y":[1,"two",null]}}`, string(first))
}

func TestCanonicalMarshal_StructFieldsViaTags(t *testing.T) {
	type rec struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	data, err := jsonutil.CanonicalMarshal(rec{Name: "a", Count: 2})
	require.NoError(t, err)
	assert.Equal(t, `{"count":2,"name":"a"}`, string(data))
}

func TestCanonicalHash_Stable(t *testing.T) {
	v := map[string]any{"doc": "d1", "n": 3}
	h1, err := jsonutil.CanonicalHash(v)
	require.NoError(t, err)
	h2, err := jsonutil.CanonicalHash(map[string]any{"n": 3, "doc": "d1"})
	require.NoError(t, err)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
}

func TestCanonicalHash_SensitiveToContent(t *testing.T) {
	h1, err := jsonutil.CanonicalHash(map[string]any{"doc": "d1"})
	require.NoError(t, err)
	h2, err := jsonutil.CanonicalHash(map[string]any{"doc": "d2"})
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}
