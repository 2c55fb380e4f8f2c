package detapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusRunning(t *testing.T) {
	raw := []byte(`{
		"TaskId": "1111",
		"Status": {"request_status": "running", "message": "97% done"}
	}`)

	status, err := ParseStatus(raw)
	require.NoError(t, err)
	assert.Equal(t, "1111", status.TaskID)
	assert.Equal(t, StateRunning, status.State)
	assert.Equal(t, "97% done", status.Note)
	assert.False(t, status.Completed())
	assert.False(t, status.State.Terminal())
}

func TestParseStatusCompleted(t *testing.T) {
	raw := []byte(`{
		"TaskId": "2222",
		"Status": {
			"request_status": "completed",
			"message": {
				"num_failed_shards": 2,
				"output_file_urls": {
					"images": "https://out/images.json",
					"detections": "https://out/detections.json",
					"failed_images": "https://out/failed_images.json"
				}
			}
		}
	}`)

	status, err := ParseStatus(raw)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, status.State)
	assert.True(t, status.Completed())
	assert.True(t, status.State.Terminal())
	assert.Equal(t, 2, status.NumFailedShards)
	assert.Equal(t, "https://out/detections.json", status.OutputFileURLs.Detections)
	assert.Equal(t, "https://out/images.json", status.OutputFileURLs.Images)
	assert.Equal(t, "https://out/failed_images.json", status.OutputFileURLs.FailedImages)
}

func TestParseStatusTerminalFailures(t *testing.T) {
	for _, state := range []string{"failed", "problem"} {
		status, err := ParseStatus([]byte(`{"TaskId": "3", "Status": {"request_status": "` + state + `"}}`))
		require.NoError(t, err)
		assert.True(t, status.State.Terminal())
		assert.False(t, status.Completed())
	}
}

func TestParseStatusUnknownState(t *testing.T) {
	_, err := ParseStatus([]byte(`{"TaskId": "4", "Status": {"request_status": "exploded"}}`))
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Error(), "exploded")
}

func TestParseStatusMalformed(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `<html>504</html>`},
		{name: "empty status", raw: `{}`},
		{name: "message wrong type", raw: `{"Status": {"request_status": "running", "message": 42}}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseStatus([]byte(tc.raw))
			var decodeErr *DecodeError
			assert.ErrorAs(t, err, &decodeErr)
		})
	}
}
