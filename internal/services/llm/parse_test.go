package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONBlockFenced(t *testing.T) {
	text := "Here is the analysis:\n```json\n{\"overall_rating\": \"buy\"}\n```\nLet me know if you need more."
	block, err := ExtractJSONBlock(text)
	require.NoError(t, err)
	assert.Equal(t, `{"overall_rating": "buy"}`, block)
}

func TestExtractJSONBlockPlainFence(t *testing.T) {
	text := "```\n{\"score\": 42}\n```"
	block, err := ExtractJSONBlock(text)
	require.NoError(t, err)
	assert.Equal(t, `{"score": 42}`, block)
}

func TestExtractJSONBlockBareObject(t *testing.T) {
	text := "Sure, the result is {\"score\": 42, \"notes\": [\"a\", \"b\"]} as requested."
	block, err := ExtractJSONBlock(text)
	require.NoError(t, err)
	assert.Equal(t, `{"score": 42, "notes": ["a", "b"]}`, block)
}

func TestExtractJSONBlockNestedObjects(t *testing.T) {
	text := `{"outer": {"inner": {"deep": true}}, "after": 1}`
	block, err := ExtractJSONBlock(text)
	require.NoError(t, err)
	assert.Equal(t, text, block)
}

func TestExtractJSONBlockBracesInsideStrings(t *testing.T) {
	text := `{"note": "uses { and } inside", "esc": "quote \" here"}`
	block, err := ExtractJSONBlock(text)
	require.NoError(t, err)
	assert.Equal(t, text, block)
}

func TestExtractJSONBlockErrors(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"whitespace only", "   \n\t  "},
		{"no object", "I could not produce a rating."},
		{"unbalanced", `{"score": 42, "notes": ["a"`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExtractJSONBlock(tc.text)
			assert.Error(t, err)
		})
	}
}
