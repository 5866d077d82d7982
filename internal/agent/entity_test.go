package agent_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftled/contentops/internal/agent"
)

func TestCapabilityDecodeLegacyStrings(t *testing.T) {
	var a agent.Agent
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "a-1",
		"capabilities": ["content_writing", "seo_audit"]
	}`), &a))

	require.Len(t, a.Capabilities, 2)
	assert.Equal(t, agent.Capability{Name: "content_writing", Enabled: true}, a.Capabilities[0])
	assert.True(t, a.CanWriteContent())
}

func TestCapabilityDecodeObjects(t *testing.T) {
	var a agent.Agent
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "a-2",
		"capabilities": [
			{"name": "content_writing", "enabled": false},
			{"name": "research_topic", "enabled": true}
		]
	}`), &a))

	require.Len(t, a.Capabilities, 2)
	assert.False(t, a.Capabilities[0].Enabled)
	assert.True(t, a.CanWriteContent())
}

func TestCapabilityDecodeMixed(t *testing.T) {
	var a agent.Agent
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "a-3",
		"capabilities": ["image_search", {"name": "write_draft", "enabled": true}]
	}`), &a))
	assert.True(t, a.CanWriteContent())
}

func TestCannotWriteContent(t *testing.T) {
	var a agent.Agent
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "a-4",
		"capabilities": [{"name": "content_writing", "enabled": false}, "seo_audit"]
	}`), &a))
	assert.False(t, a.CanWriteContent())
}
