package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_Format(t *testing.T) {
	var buf bytes.Buffer
	log := Configure(&buf, "info")
	log.Info().Msg("hello pipeline")

	line := buf.String()
	assert.Contains(t, line, "- INFO -")
	assert.Contains(t, line, "logger_test.go")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(line), "hello pipeline"), "line = %q", line)
}

func TestConfigure_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	log := Configure(&buf, "warn")
	log.Info().Msg("quiet")
	assert.Empty(t, buf.String())
	log.Warn().Msg("loud")
	assert.Contains(t, buf.String(), "loud")
}

func TestSetLevel(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, Log.GetLevel())

	SetLevel("not-a-level")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
}

func TestDefault_WritesToStderr(t *testing.T) {
	dir := t.TempDir()
	stdout, err := os.Create(filepath.Join(dir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.Create(filepath.Join(dir, "stderr"))
	require.NoError(t, err)

	origOut, origErr := os.Stdout, os.Stderr
	os.Stdout, os.Stderr = stdout, stderr
	t.Cleanup(func() {
		os.Stdout, os.Stderr = origOut, origErr
		stdout.Close()
		stderr.Close()
	})

	log := newDefault()
	log.Info().Msg("resolved latest artefact")

	out, err := os.ReadFile(stdout.Name())
	require.NoError(t, err)
	assert.Empty(t, out)
	diag, err := os.ReadFile(stderr.Name())
	require.NoError(t, err)
	assert.Contains(t, string(diag), "resolved latest artefact")
}
