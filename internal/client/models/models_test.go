package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for _, s := range []string{"image", "video", "voice"} {
		k, err := ParseKind(s)
		require.NoError(t, err)
		require.Equal(t, Kind(s), k)
	}
	_, err := ParseKind("audio")
	require.Error(t, err)
}

func TestTaskState_Terminal(t *testing.T) {
	require.False(t, TaskPending.Terminal())
	require.False(t, TaskInFlight.Terminal())
	require.True(t, TaskSucceeded.Terminal())
	require.True(t, TaskFailed.Terminal())
	require.True(t, TaskCancelled.Terminal())
}

func TestEnvelope_DecodeMediaFile(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"code":0,"message":"ok","data":{"id":"m1","file_url":"/files/a.png","file_size":12}}`), &env))
	require.True(t, env.OK())

	var mf MediaFile
	require.NoError(t, env.DecodeData(&mf))
	require.Equal(t, "m1", mf.ID)
	require.Equal(t, "/files/a.png", mf.Location())
	require.EqualValues(t, 12, mf.FileSize)
}

func TestEnvelope_EmptyData(t *testing.T) {
	env := Envelope{Code: 0}
	var mf MediaFile
	require.Error(t, env.DecodeData(&mf))
}
