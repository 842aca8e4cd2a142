package ipa

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const defaultXcodePath = "/Applications/Xcode.app/Contents/Developer"

// CompileOptions selects what cargo builds.
type CompileOptions struct {
	Example string // build this example instead of the package binary
	Release bool
}

// Artifact is a compiled binary waiting to be bundled.
type Artifact struct {
	Path string // where cargo left it
	Name string // file name inside the bundle (CFBundleExecutable)
}

// Toolchain drives cargo and, when a Bridge is configured, swift for one
// target at a time.
type Toolchain struct {
	Runner  commandRunner
	Layout  Layout
	ID      string  // cargo package name, the default binary name
	Bridge  *Bridge // nil without Swift integration
	Options CompileOptions

	// Output receives live tool output in addition to the build log.
	// Defaults to os.Stdout. With --quiet output only reaches the log.
	Output io.Writer
}

// Build compiles t and returns the produced binary. Stages run in order:
// cargo clean (bridge + force rebuild), binding generation and swift build
// (bridge), cargo build.
// The first failing stage aborts the target.
func (tc *Toolchain) Build(t Target, buildLog io.Writer) (Artifact, error) {
	triple := t.Triple(CargoTriple)
	var linkArgs []string

	if tc.Bridge != nil {
		if err := tc.Bridge.checkBridges(); err != nil {
			return Artifact{}, err
		}
		if tc.Bridge.ForceRebuild {
			step("Cleaning cargo artifacts for %s...", triple)
			cmd := exec.Command("cargo", "clean", "--target", triple)
			cmd.Dir = tc.Layout.Root
			if err := tc.run(cmd, buildLog); err != nil {
				return Artifact{}, fmt.Errorf("%w for %s: %v", ErrCleanFailed, triple, err)
			}
		}

		step("Compiling Swift package %s for %s...", tc.Bridge.LibraryName, t.Triple(SwiftTriple))
		var err error
		linkArgs, err = tc.compileSwift(t, buildLog)
		if err != nil {
			return Artifact{}, err
		}
	}

	step("Compiling Rust binary for %s...", triple)
	cmd := exec.Command("cargo", tc.cargoArgs(t, linkArgs)...)
	cmd.Dir = tc.Layout.Root
	if err := tc.run(cmd, buildLog); err != nil {
		return Artifact{}, fmt.Errorf("%w for %s: %v", ErrPrimaryCompileFailed, triple, err)
	}

	return tc.artifact(t), nil
}

// compileSwift builds the Swift package for t and returns the rustc link
// arguments for the resulting static library.
func (tc *Toolchain) compileSwift(t Target, buildLog io.Writer) ([]string, error) {
	sdk, err := tc.sdkPath(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBridgeCompileFailed, err)
	}
	if err := os.MkdirAll(tc.Bridge.GeneratedDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindingsFailed, err)
	}

	gen := exec.Command(bindgenTool, tc.Bridge.bindgenArgs(tc.ID)...)
	gen.Dir = tc.Layout.Root
	if err := tc.run(gen, buildLog); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBindingsFailed, err)
	}

	cmd := exec.Command("swift", tc.Bridge.swiftArgs(t, sdk, tc.Options.Release)...)
	cmd.Dir = tc.Bridge.PackageDir
	if err := tc.run(cmd, buildLog); err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrBridgeCompileFailed, t.Triple(SwiftTriple), err)
	}

	sdkLib := filepath.Join(tc.xcodePath(), "Toolchains", "XcodeDefault.xctoolchain", "usr", "lib", "swift", t.Platform.sdk())
	return tc.Bridge.linkArgs(sdkLib), nil
}

// cargoArgs builds the primary compiler argument vector. Link arguments can
// only be forwarded through `cargo rustc`.
func (tc *Toolchain) cargoArgs(t Target, linkArgs []string) []string {
	sub := "build"
	if len(linkArgs) > 0 {
		sub = "rustc"
	}
	args := []string{sub, "--target", t.Triple(CargoTriple)}
	if tc.Options.Release {
		args = append(args, "--release")
	}
	if tc.Options.Example != "" {
		args = append(args, "--example", tc.Options.Example)
	}
	if len(linkArgs) > 0 {
		args = append(args, "--")
		args = append(args, linkArgs...)
	}
	return args
}

// artifact is where cargo puts the binary for t.
func (tc *Toolchain) artifact(t Target) Artifact {
	profile := "debug"
	if tc.Options.Release {
		profile = "release"
	}
	dir := filepath.Join(tc.Layout.TargetDir, t.Triple(CargoTriple), profile)
	name := tc.ID
	if tc.Options.Example != "" {
		dir = filepath.Join(dir, "examples")
		name = tc.Options.Example
	}
	return Artifact{Path: filepath.Join(dir, name), Name: name}
}

// sdkPath asks xcrun for the SDK root of t's platform.
func (tc *Toolchain) sdkPath(t Target) (string, error) {
	out, err := tc.output(exec.Command("xcrun", "--sdk", t.Platform.sdk(), "--show-sdk-path"))
	if err != nil {
		return "", fmt.Errorf("failed to locate the %s SDK: %v", t.Platform.sdk(), err)
	}
	if out == "" {
		return "", fmt.Errorf("xcrun returned an empty %s SDK path", t.Platform.sdk())
	}
	return out, nil
}

// xcodePath returns the active developer directory, falling back to the
// default Xcode location.
func (tc *Toolchain) xcodePath() string {
	out, err := tc.output(exec.Command("xcode-select", "--print-path"))
	if err != nil || out == "" {
		Logger().Debug("xcode-select failed, using default", zap.Error(err))
		return defaultXcodePath
	}
	return out
}

// liveOutput is where tool output goes besides the build log.
func (tc *Toolchain) liveOutput() io.Writer {
	switch {
	case Quiet:
		return io.Discard
	case tc.Output != nil:
		return tc.Output
	}
	return os.Stdout
}

func (tc *Toolchain) run(cmd *exec.Cmd, buildLog io.Writer) error {
	out := tc.liveOutput()
	if buildLog != nil {
		cmd.Stdout = io.MultiWriter(out, buildLog)
		cmd.Stderr = io.MultiWriter(out, buildLog)
	} else {
		cmd.Stdout = out
		cmd.Stderr = out
	}
	return tc.Runner.Run(cmd)
}

func (tc *Toolchain) output(cmd *exec.Cmd) (string, error) {
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = io.Discard
	if err := tc.Runner.Run(cmd); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
