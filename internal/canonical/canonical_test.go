package canonical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Basic(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{"string", "hello", `"hello"`},
		{"empty string", "", `""`},
		{"int", 42, "42"},
		{"int64", int64(-7), "-7"},
		{"bool", true, "true"},
		{"float", 115.776237215495, "115.776237215495"},
		{"float integral", 2.0, "2"},
		{"negative zero", math.Copysign(0, -1), "0"},
		{"small float", 0.0014730201842096616, "0.0014730201842096616"},
		{"empty array", []any{}, "[]"},
		{"empty object", map[string]any{}, "{}"},
		{"nested", map[string]any{"b": []any{1, "x"}, "a": map[string]any{"z": false}}, `{"a":{"z":false},"b":[1,"x"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Marshal(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(out))
		})
	}
}

func TestMarshal_Rejects(t *testing.T) {
	for name, v := range map[string]any{
		"nil":          nil,
		"nan":          math.NaN(),
		"inf":          math.Inf(1),
		"struct":       struct{}{},
		"nested nil":   map[string]any{"a": nil},
		"invalid utf8": string([]byte{0xff}),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Marshal(v)
			assert.Error(t, err)
		})
	}
}

func TestMarshal_Strings(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`a"b`, `"a\"b"`},
		{`a\b`, `"a\\b"`},
		{"line\nbreak\ttab", `"line\nbreak\ttab"`},
		{"\x01", `"\u0001"`},
		{"<&>", `"<&>"`},
		{"\u2028", "\"\u2028\""},
		{`\u2028`, `"\\u2028"`},
		// NFD e + combining acute becomes NFC e-acute.
		{"e\u0301", "\"\u00e9\""},
	}
	for _, tt := range tests {
		out, err := Marshal(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, string(out))
	}
}

func TestSortedKeys_UTF16Order(t *testing.T) {
	// U+FF61 sorts before U+1F600 in UTF-8 but after it in UTF-16.
	keys := SortedKeys(map[string]any{"\U0001F600": 1, "\uff61": 2, "a": 3})
	assert.Equal(t, []string{"a", "\U0001F600", "\uff61"}, keys)
}

func TestMarshalIndent(t *testing.T) {
	out, err := MarshalIndent(map[string]any{"b": 1, "a": []any{true}})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": [\n    true\n  ],\n  \"b\": 1\n}\n", string(out))
}
