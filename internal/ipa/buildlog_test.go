package ipa

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	tg := Target{IOS, Aarch64}

	l, err := openBuildLog(dir, tg)
	require.NoError(t, err)
	_, err = fmt.Fprint(l, "   Compiling demo v1.0.0\n    Finished dev profile\n")
	require.NoError(t, err)

	path, err := l.Close()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "aarch64-apple-ios.log.xz"), path)
	assert.NoFileExists(t, filepath.Join(dir, "aarch64-apple-ios.log"))

	lines, err := readBuildLog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"   Compiling demo v1.0.0", "    Finished dev profile"}, lines)
}

func TestListBuildLogs(t *testing.T) {
	dir := t.TempDir()
	for _, tg := range []Target{{MacOS, X86_64}, {IOS, Aarch64}} {
		l, err := openBuildLog(dir, tg)
		require.NoError(t, err)
		_, err = l.Close()
		require.NoError(t, err)
	}

	found, err := listBuildLogs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"aarch64-apple-ios", "x86_64-apple-darwin"}, found)
}

func TestListBuildLogsMissingDir(t *testing.T) {
	found, err := listBuildLogs(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestReadBuildLogMissing(t *testing.T) {
	_, err := readBuildLog(filepath.Join(t.TempDir(), "x86_64-apple-ios.log.xz"))
	assert.ErrorIs(t, err, ErrLogNotFound)
}
