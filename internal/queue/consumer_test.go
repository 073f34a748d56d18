package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/irctc-booking-supporter/internal/model"
	"github.com/iliyamo/irctc-booking-supporter/internal/status"
)

func TestEventFromUpdate(t *testing.T) {
	ev := EventFromUpdate(status.Update{
		RunID:     "run-1",
		State:     model.StateError,
		Level:     status.LevelError,
		ErrorKind: "WaitTimeout",
		Message:   "Search timeout. Please check manually.",
		At:        time.Date(2025, 2, 1, 9, 30, 0, 0, time.FixedZone("IST", 19800)),
	})
	assert.Equal(t, "ERROR", ev.State)
	assert.Equal(t, "error", ev.Level)
	assert.Equal(t, "2025-02-01T04:00:00Z", ev.At)
}

func TestAppendStatusWritesOneLinePerEvent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	for _, ev := range []StatusEvent{
		{RunID: "run-1", State: "SEARCHING", Level: "info", Message: "Searching trains...", At: "2025-02-01T09:00:00Z"},
		{RunID: "run-1", State: "ERROR", Level: "error", ErrorKind: "NoTrains", Message: "No trains found", At: "2025-02-01T09:00:05Z"},
	} {
		body, err := json.Marshal(ev)
		require.NoError(t, err)
		require.NoError(t, AppendStatus(dir, body))
	}

	raw, err := os.ReadFile(filepath.Join(dir, LogFileName))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `[2025-02-01T09:00:00Z] info | run_id=run-1 | state=SEARCHING | "Searching trains..."`, lines[0])
	assert.Contains(t, lines[1], "| error=NoTrains |")
}

func TestAppendStatusRejectsBadPayload(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, AppendStatus(dir, []byte("{not json")))
	assert.Error(t, AppendStatus(dir, []byte(`{"message":"orphan"}`)))
	_, err := os.Stat(filepath.Join(dir, LogFileName))
	assert.True(t, os.IsNotExist(err))
}
