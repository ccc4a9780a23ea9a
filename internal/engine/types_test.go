package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectInfoChoices(t *testing.T) {
	raw := `{
		"CheckpointLoaderSimple": {
			"input": {"required": {"ckpt_name": [["a.safetensors", "b.safetensors"], {"tooltip": "pick one"}]}}
		},
		"KSampler": {
			"input": {"required": {"steps": ["INT", {"default": 20}]}}
		}
	}`
	var info ObjectInfo
	require.NoError(t, json.Unmarshal([]byte(raw), &info))

	assert.Equal(t, []string{"a.safetensors", "b.safetensors"}, info.Choices("CheckpointLoaderSimple", "ckpt_name"))
	assert.Nil(t, info.Choices("CheckpointLoaderSimple", "missing_field"))
	assert.Nil(t, info.Choices("NoSuchClass", "ckpt_name"))
	// Non-enum fields decode to nothing rather than erroring.
	assert.Nil(t, info.Choices("KSampler", "steps"))
}

func TestHistoryEntryDecodesEngineShape(t *testing.T) {
	raw := `{
		"status": {
			"status_str": "error",
			"completed": false,
			"messages": [
				["execution_start", {"prompt_id": "p1"}],
				["execution_error", {
					"node_id": "248",
					"node_type": "KSampler",
					"exception_type": "RuntimeError",
					"exception_message": "boom",
					"traceback": ["line one", "line two"]
				}]
			]
		},
		"outputs": {},
		"progress": {"value": 0.4}
	}`
	var entry HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))

	assert.True(t, entry.Failed())
	errs := entry.ExecutionErrors()
	require.Len(t, errs, 1)
	assert.Equal(t, "248", errs[0].NodeID)
	assert.Equal(t, "KSampler", errs[0].NodeType)
	assert.Equal(t, "boom", errs[0].ExceptionMessage)
	assert.Equal(t, []string{"line one", "line two"}, errs[0].Traceback)
	require.NotNil(t, entry.Progress)
	assert.InDelta(t, 0.4, entry.Progress.Value, 1e-9)
}

func TestHistoryEntryOutputImages(t *testing.T) {
	raw := `{
		"status": {"status_str": "success", "completed": true},
		"outputs": {
			"9": {"images": [{"filename": "output_1.png", "subfolder": "batch", "type": "output"}]}
		}
	}`
	var entry HistoryEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))

	assert.False(t, entry.Failed())
	images := entry.OutputImages("9")
	require.Len(t, images, 1)
	assert.Equal(t, "output_1.png", images[0].Filename)
	assert.Equal(t, "batch", images[0].Subfolder)
	assert.Nil(t, entry.OutputImages("248"))
}
