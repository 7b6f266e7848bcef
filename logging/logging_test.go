package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupStderr(t *testing.T) {
	var buf bytes.Buffer
	log, cleanup, err := Setup(Config{Stderr: &buf})
	require.NoError(t, err)
	defer cleanup()

	log.Debug("hidden")
	log.Info("circulation.borrow", "book_id", "B001")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=circulation.borrow")
	assert.Contains(t, out, "book_id=B001")
}

func TestSetupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "library.json")
	log, cleanup, err := Setup(Config{Path: path, Debug: true})
	require.NoError(t, err)

	log.Info("fine.paid", "membership_id", "M01")
	require.NoError(t, cleanup())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, jsoniter.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "fine.paid", entry["msg"])
	assert.Equal(t, "M01", entry["membership_id"])
	assert.Contains(t, entry, "source")
}
