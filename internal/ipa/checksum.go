package ipa

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lukechampine.com/blake3"
)

const checksumExt = ".b3"

// b3File returns the hex BLAKE3-256 digest of the file at path.
func b3File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeChecksum writes a b3sum-compatible sidecar next to path and returns
// the sidecar's path.
func writeChecksum(path string) (string, error) {
	sum, err := b3File(path)
	if err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrChecksum, path, err)
	}
	sidecar := path + checksumExt
	line := fmt.Sprintf("%s  %s\n", sum, filepath.Base(path))
	if err := os.WriteFile(sidecar, []byte(line), 0o644); err != nil {
		return "", fmt.Errorf("%w for %s: %v", ErrChecksum, path, err)
	}
	return sidecar, nil
}
