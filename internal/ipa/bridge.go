package ipa

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// bindgenTool generates the Swift and C glue for the bridge modules.
const bindgenTool = "swift-bridge-cli"

// Bridge is the resolved Swift package that gets compiled into a static
// library and linked into the Cargo binary.
type Bridge struct {
	Bridges        []string // absolute paths of the bridge definition files
	PackageDir     string   // Swift package root
	LibraryName    string   // base name of PackageDir
	SourceDir      string   // <pkg>/Sources/<lib>
	BuildDir       string   // <pkg>/.build/<debug|release>
	GeneratedDir   string   // <source>/generated
	BridgingHeader string   // <source>/bridging-header.h

	// ForceRebuild cleans cargo's artifacts for each target before
	// building, so the binary always relinks against the fresh library.
	ForceRebuild bool
}

// ResolveBridge returns nil when no Swift integration is configured. Setting
// only one of swift-bridges and swift-library is an error.
func ResolveBridge(root string, cfg *ToolConfig, release bool) (*Bridge, error) {
	if cfg == nil {
		return nil, nil
	}
	hasBridges := len(cfg.SwiftBridges) > 0
	hasLibrary := cfg.SwiftLibrary != ""
	switch {
	case !hasBridges && !hasLibrary:
		return nil, nil
	case hasBridges && !hasLibrary:
		return nil, fmt.Errorf("%w: swift-bridges were listed, but no swift-library was listed to compile", ErrBridgeConfigIncomplete)
	case !hasBridges && hasLibrary:
		return nil, fmt.Errorf("%w: swift-library was listed, but no swift-bridges were listed", ErrBridgeConfigIncomplete)
	}

	pkgDir := cfg.SwiftLibrary
	if !filepath.IsAbs(pkgDir) {
		pkgDir = filepath.Join(root, pkgDir)
	}
	pkgDir = filepath.Clean(pkgDir)
	lib := filepath.Base(pkgDir)
	src := filepath.Join(pkgDir, "Sources", lib)

	profile := "debug"
	if release {
		profile = "release"
	}

	bridges := make([]string, 0, len(cfg.SwiftBridges))
	for _, b := range cfg.SwiftBridges {
		if !filepath.IsAbs(b) {
			b = filepath.Join(root, b)
		}
		bridges = append(bridges, filepath.Clean(b))
	}

	force := true
	if cfg.ForceRebuild != nil {
		force = *cfg.ForceRebuild
	}

	return &Bridge{
		Bridges:        bridges,
		PackageDir:     pkgDir,
		LibraryName:    lib,
		SourceDir:      src,
		BuildDir:       filepath.Join(pkgDir, ".build", profile),
		GeneratedDir:   filepath.Join(src, "generated"),
		BridgingHeader: filepath.Join(src, "bridging-header.h"),
		ForceRebuild:   force,
	}, nil
}

// checkBridges fails when a bridge definition file is missing.
func (b *Bridge) checkBridges() error {
	for _, path := range b.Bridges {
		fi, err := os.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: swift bridge %s does not exist", ErrConfigInvalid, path)
		}
		if err != nil {
			return fmt.Errorf("%w: swift bridge %s: %v", ErrConfigInvalid, path, err)
		}
		if fi.IsDir() {
			return fmt.Errorf("%w: swift bridge %s is a directory", ErrConfigInvalid, path)
		}
	}
	return nil
}

// bindgenArgs parse every bridge file and write the concatenated bindings
// for crate into GeneratedDir.
func (b *Bridge) bindgenArgs(crate string) []string {
	args := []string{"parse-bridges", "--crate-name", crate}
	for _, path := range b.Bridges {
		args = append(args, "-f", path)
	}
	return append(args, "-o", b.GeneratedDir)
}

// swiftArgs are the arguments to `swift build` for t.
func (b *Bridge) swiftArgs(t Target, sdk string, release bool) []string {
	args := []string{
		"build",
		"-Xswiftc", "-target",
		"-Xswiftc", t.Triple(SwiftTriple),
		"--sdk", sdk,
		"-Xswiftc", "-static",
		"-Xswiftc", "-import-objc-header",
		"-Xswiftc", b.BridgingHeader,
	}
	if release {
		args = append(args, "-c", "release")
	}
	return args
}

// linkArgs are passed to rustc after `--` to link the static library.
func (b *Bridge) linkArgs(sdkLibDir string) []string {
	return []string{
		"-l", "static=" + b.LibraryName,
		"-L", b.BuildDir,
		"-L", sdkLibDir,
		"-L", "/usr/lib/swift",
	}
}
