package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/ai"
)

func TestExtractJSONObjectBare(t *testing.T) {
	data, err := ai.ExtractJSONObject(`{"title": "Hiking in Vernazza", "score": 4}`)
	require.NoError(t, err)
	assert.Equal(t, "Hiking in Vernazza", data["title"])
}

func TestExtractJSONObjectFenced(t *testing.T) {
	data, err := ai.ExtractJSONObject("```json\n{\"title\": \"Corniglia\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Corniglia", data["title"])
}

func TestExtractJSONObjectWithLeadingProse(t *testing.T) {
	data, err := ai.ExtractJSONObject("Here is the result:\n{\"a\": {\"b\": 1}, \"c\": \"}\"}")
	require.NoError(t, err)
	assert.Equal(t, "}", data["c"])
}

func TestExtractJSONObjectNoObject(t *testing.T) {
	_, err := ai.ExtractJSONObject("sorry, I cannot help with that")
	assert.Error(t, err)
}

func TestExtractJSONObjectUnbalanced(t *testing.T) {
	_, err := ai.ExtractJSONObject(`{"title": "truncated`)
	assert.Error(t, err)
}

func TestExtractContentSucceeded(t *testing.T) {
	ext := ai.ExtractContent(ai.BatchResult{
		CustomID: "village-0",
		Type:     "succeeded",
		Text:     "```json\n{\"name\": \"Manarola\"}\n```",
	})
	require.True(t, ext.Success)
	assert.Equal(t, "village-0", ext.CustomID)
	assert.Equal(t, "Manarola", ext.Data["name"])
}

func TestExtractContentErrored(t *testing.T) {
	ext := ai.ExtractContent(ai.BatchResult{CustomID: "village-1", Type: "errored", Error: "overloaded"})
	assert.False(t, ext.Success)
	assert.Equal(t, "overloaded", ext.Error)
}

func TestExtractContentUnparsable(t *testing.T) {
	ext := ai.ExtractContent(ai.BatchResult{CustomID: "village-2", Type: "succeeded", Text: "not json"})
	assert.False(t, ext.Success)
	assert.NotEmpty(t, ext.Error)
}
