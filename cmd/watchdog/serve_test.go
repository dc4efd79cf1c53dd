package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSnapshotStatus(t *testing.T) {
	assert.Equal(t, "2024-03-05: 2 entries, 2h 2m tracked", snapshotStatus(testSnapshot()))
}

func TestNotifySnapshotLogsFailures(t *testing.T) {
	// A notify socket nobody listens on makes every sd_notify call fail
	t.Setenv("NOTIFY_SOCKET", filepath.Join(t.TempDir(), "missing.sock"))

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	notifySnapshot(logger, testSnapshot())

	out := buf.String()
	assert.Contains(t, out, "Failed to send systemd watchdog ping")
	assert.Contains(t, out, "Failed to send systemd status")
	assert.Contains(t, out, `"level":"warn"`)
}
