package ipa

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutorRunsInDir(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	cmd := exec.Command("sh", "-c", "echo hello; pwd")
	cmd.Dir = dir
	cmd.Stdout = &out

	require.NoError(t, NewExecutor(context.Background()).Run(cmd))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "hello", lines[0])
	want, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(lines[1])
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestExecutorFailure(t *testing.T) {
	var stderr bytes.Buffer
	cmd := exec.Command("sh", "-c", "echo boom >&2; exit 3")
	cmd.Stderr = &stderr

	err := NewExecutor(context.Background()).Run(cmd)
	require.Error(t, err)
	assert.Contains(t, stderr.String(), "boom")
}

func TestExecutorCancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := NewExecutor(ctx).Run(exec.Command("sh", "-c", "sleep 10"))
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
