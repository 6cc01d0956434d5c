package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type edgeVerdict struct {
	CompatibilityType string  `json:"compatibility_type"`
	Confidence        float64 `json:"confidence"`
	TranslationHint   string  `json:"translation_hint"`
}

func TestDecode_PlainJSON(t *testing.T) {
	var v edgeVerdict
	res := Decode(`{"compatibility_type": "direct", "confidence": 0.9, "translation_hint": ""}`, &v)

	require.True(t, res.OK)
	assert.Equal(t, "direct", v.CompatibilityType)
	assert.Equal(t, 0.9, v.Confidence)
}

func TestDecode_JSONFence(t *testing.T) {
	raw := "```json\n{\"compatibility_type\": \"translatable\", \"confidence\": 0.7}\n```"

	var v edgeVerdict
	res := Decode(raw, &v)

	require.True(t, res.OK)
	assert.Equal(t, "translatable", v.CompatibilityType)
}

func TestDecode_BareFence(t *testing.T) {
	raw := "```\n{\"confidence\": 0.5}\n```"

	var v edgeVerdict
	res := Decode(raw, &v)

	require.True(t, res.OK)
	assert.Equal(t, 0.5, v.Confidence)
}

func TestDecode_ProseAroundBraces(t *testing.T) {
	raw := `Sure! Here is the verdict you asked for:
{"compatibility_type": "incompatible", "confidence": 0.2}
Let me know if you need anything else.`

	var v edgeVerdict
	res := Decode(raw, &v)

	require.True(t, res.OK)
	assert.Equal(t, "incompatible", v.CompatibilityType)
}

func TestDecode_GarbageKeepsRaw(t *testing.T) {
	raw := "I cannot answer that."

	var v edgeVerdict
	res := Decode(raw, &v)

	assert.False(t, res.OK)
	assert.Equal(t, raw, res.Raw)
}

func TestDecode_MalformedJSONInsideBraces(t *testing.T) {
	raw := `{"compatibility_type": direct}` // unquoted value

	var v edgeVerdict
	res := Decode(raw, &v)

	assert.False(t, res.OK)
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"no fence", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence without newlines", "```json{\"a\": 1}```", `{"a": 1}`},
		{"leading whitespace", "  \n```json\n{}\n```  ", "{}"},
		{"unterminated fence", "```json\n{\"a\": 1}", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripFences(tt.input))
		})
	}
}
