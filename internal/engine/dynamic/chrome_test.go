package dynamic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExecutable(t *testing.T, name string, mode os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), mode))
	return path
}

func TestFindChrome_ConfiguredPathWins(t *testing.T) {
	configured := writeExecutable(t, "my-chrome", 0o755)
	t.Setenv("CHROME_PATH", writeExecutable(t, "env-chrome", 0o755))

	assert.Equal(t, configured, FindChrome(configured))
}

func TestFindChrome_FallsBackToEnv(t *testing.T) {
	env := writeExecutable(t, "env-chrome", 0o755)
	t.Setenv("CHROME_PATH", env)

	assert.Equal(t, env, FindChrome(filepath.Join(t.TempDir(), "missing")))
}

func TestIsExecutable(t *testing.T) {
	assert.False(t, isExecutable(t.TempDir()))
	assert.False(t, isExecutable(filepath.Join(t.TempDir(), "missing")))
	assert.True(t, isExecutable(writeExecutable(t, "bin", 0o755)))
}
