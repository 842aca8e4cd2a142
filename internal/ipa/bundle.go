package ipa

import (
	"fmt"
	"os"
	"path/filepath"
)

// BundleState is how far assembly of a bundle got.
type BundleState int

const (
	StateEmpty BundleState = iota
	StateBundleDirCreated
	StateManifestCopied
	StateBinaryCopied
	StatePermissionsSet
)

func (s BundleState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateBundleDirCreated:
		return "bundle-dir-created"
	case StateManifestCopied:
		return "manifest-copied"
	case StateBinaryCopied:
		return "binary-copied"
	case StatePermissionsSet:
		return "permissions-set"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Bundle is an .app directory on disk.
type Bundle struct {
	Dir        string
	PlistPath  string
	BinaryPath string
	Target     Target
	State      BundleState
}

// newBundle computes the platform-specific layout. macOS nests everything
// under Contents/ with the binary in Contents/MacOS/; iOS keeps both files at
// the bundle root.
func newBundle(dir string, t Target, executable string) *Bundle {
	b := &Bundle{Dir: dir, Target: t}
	if t.Platform.Mobile() {
		b.PlistPath = filepath.Join(dir, "Info.plist")
		b.BinaryPath = filepath.Join(dir, executable)
	} else {
		b.PlistPath = filepath.Join(dir, "Contents", "Info.plist")
		b.BinaryPath = filepath.Join(dir, "Contents", "MacOS", executable)
	}
	return b
}

// AssembleBundle creates the bundle directory for t at dir, replacing any
// previous one, and copies the manifest and the binary into it. The returned
// bundle records the last state reached, also on error.
func AssembleBundle(dir string, t Target, plistSrc string, art Artifact) (*Bundle, error) {
	b := newBundle(dir, t, art.Name)

	if err := os.RemoveAll(dir); err != nil {
		return b, fmt.Errorf("%w %s: %v", ErrBundleRemove, dir, err)
	}
	if err := os.MkdirAll(filepath.Dir(b.BinaryPath), 0o755); err != nil {
		return b, fmt.Errorf("%w %s: %v", ErrBundleDirCreate, dir, err)
	}
	b.State = StateBundleDirCreated

	if err := copyFile(plistSrc, b.PlistPath); err != nil {
		return b, fmt.Errorf("%w: %v", ErrManifestCopy, err)
	}
	b.State = StateManifestCopied

	if err := copyFile(art.Path, b.BinaryPath); err != nil {
		return b, fmt.Errorf("%w: %v", ErrBinaryCopy, err)
	}
	b.State = StateBinaryCopied

	if err := os.Chmod(b.BinaryPath, 0o755); err != nil {
		return b, fmt.Errorf("%w: %v", ErrChmod, err)
	}
	b.State = StatePermissionsSet

	return b, nil
}
