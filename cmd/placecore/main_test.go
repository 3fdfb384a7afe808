package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ManuGH/placecore/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PLACECORE_DATA_DIR", dir)
	t.Setenv("PLACECORE_STORE_BACKEND", "file")
	t.Setenv("PLACECORE_STORE_PATH", "")
	t.Setenv("PLACECORE_DEBUG_LISTEN", "")
	t.Setenv("PLACECORE_TELEMETRY_ENABLED", "false")
	return dir
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	code, _, stderr := runCLI(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Usage:")
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, stderr := runCLI(t, "frobnicate")
	assert.Equal(t, 2, code)
	assert.Contains(t, stderr, "Unknown command: frobnicate")
}

func TestRun_Version(t *testing.T) {
	code, stdout, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "commit:")
}

func TestConfigValidate(t *testing.T) {
	isolateEnv(t)

	good := filepath.Join(t.TempDir(), "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("session:\n  maxUsage: 10\n"), 0o600))
	code, stdout, _ := runCLI(t, "config", "validate", "-config", good)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "valid")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("sesion:\n  maxUsage: 10\n"), 0o600))
	code, _, stderr := runCLI(t, "config", "validate", "-config", bad)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Configuration error")
}

func TestConfigDump_MasksSecrets(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLACECORE_LAYOUT_REDIS_PASSWORD", "hunter2")

	code, stdout, _ := runCLI(t, "config", "dump", "-format", "json")
	require.Equal(t, 0, code)
	assert.NotContains(t, stdout, "hunter2")
	assert.Contains(t, stdout, "***")

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Contains(t, decoded, "session")

	code, stdout, _ = runCLI(t, "config", "dump")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "maxUsage: 50")

	code, _, _ = runCLI(t, "config", "dump", "-format", "toml")
	assert.Equal(t, 2, code)
}

func TestSession_TagPersistsAcrossInvocations(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := runCLI(t, "session", "set-tag", "tag-1")
	require.Equal(t, 0, code, stderr)

	code, stdout, stderr := runCLI(t, "session", "show")
	require.Equal(t, 0, code, stderr)

	var st session.State
	require.NoError(t, json.Unmarshal([]byte(stdout), &st))
	assert.Equal(t, "tag-1", st.OwnerTag)
	assert.Empty(t, st.SessionID)
}

func TestSession_SetDurationRejectsNonPositive(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := runCLI(t, "session", "set-duration", "0s")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "duration must be positive")

	code, _, _ = runCLI(t, "session", "set-duration")
	assert.Equal(t, 2, code)
}

func TestEvents_FlushOnEmptyStore(t *testing.T) {
	isolateEnv(t)

	code, _, stderr := runCLI(t, "events", "flush")
	assert.Equal(t, 0, code, stderr)

	code, _, _ = runCLI(t, "events", "bogus")
	assert.Equal(t, 2, code)
}

func TestFetch_RequiresURL(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PLACECORE_LAYOUT_ENDPOINT", "")

	code, _, stderr := runCLI(t, "fetch")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "layout.endpoint")
}
