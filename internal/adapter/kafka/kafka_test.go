package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/wind-repower-usa/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2019, 1, 7, 15, 10, 0, 0, time.UTC)
	event := domain.RunEvent{
		RunID:    "run-1",
		Target:   "unit_test",
		Status:   domain.RunFailed,
		ExitCode: 2,
		Error:    "target unit_test: exit status 2",
		At:       now,
	}

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("run-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"status":"failed"`)
	assert.Contains(t, string(msg.Value), `"exit_code":2`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "target", msg.Headers[0].Key)
	assert.Equal(t, []byte("unit_test"), msg.Headers[0].Value)
	assert.Equal(t, []byte("failed"), msg.Headers[1].Value)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)

	var roundtrip domain.RunEvent
	require.NoError(t, json.Unmarshal(msg.Value, &roundtrip))
	assert.Equal(t, event.Target, roundtrip.Target)
	assert.True(t, event.At.Equal(roundtrip.At))
}

func TestSerializeToMessage_OmitsEmptyError(t *testing.T) {
	msg, err := serializeToMessage(domain.RunEvent{RunID: "run-2", Target: "lint", Status: domain.RunSucceeded})
	require.NoError(t, err)
	assert.NotContains(t, string(msg.Value), `"error"`)
}
