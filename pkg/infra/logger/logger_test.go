package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_LevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	l, closeFn, err := NewLogger("")
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	t.Setenv("LOG_LEVEL", "nonsense")
	l, _, err = NewLogger("")
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNewLogger_JSONFields(t *testing.T) {
	l, _, err := NewLogger("")
	require.NoError(t, err)
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("fingerprint", "fp::abc").Info("decision")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "decision", entry["msg"])
	assert.Equal(t, "fp::abc", entry["fingerprint"])
	assert.Contains(t, entry, "time")
}

func TestAsyncFileWriter_FlushOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gateway.log")
	w, err := NewAsyncFileWriter(path, 1024)
	require.NoError(t, err)

	n, err := w.Write([]byte("line one\n"))
	require.NoError(t, err)
	assert.Equal(t, 9, n)
	_, _ = w.Write([]byte("line two\n"))
	w.Close()
	w.Close()

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two\n", string(content))
	assert.Zero(t, w.Dropped())
}

func TestConsoleHook_Fire(t *testing.T) {
	var buf bytes.Buffer
	l := Discard()
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.AddHook(NewConsoleHook(&buf))

	l.Warn("oracle slow")
	assert.Contains(t, buf.String(), "oracle slow")
}
