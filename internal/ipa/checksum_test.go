package ipa

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const emptyBLAKE3 = "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"

func TestB3FileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bin")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	sum, err := b3File(path)
	require.NoError(t, err)
	assert.Equal(t, emptyBLAKE3, sum)
}

func TestWriteChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Demo.ipa")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	sidecar, err := writeChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, path+".b3", sidecar)

	data, err := os.ReadFile(sidecar)
	require.NoError(t, err)
	assert.Equal(t, emptyBLAKE3+"  Demo.ipa\n", string(data))
}

func TestWriteChecksumMissingFile(t *testing.T) {
	_, err := writeChecksum(filepath.Join(t.TempDir(), "missing.ipa"))
	assert.ErrorIs(t, err, ErrChecksum)
}
