package ipa

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T, manifest, cliName string) *Context {
	t.Helper()
	root := writeProject(t, manifest)
	c, err := NewContext(root, cliName, false, filepath.Join(t.TempDir(), "ipa.conf"))
	require.NoError(t, err)
	c.Settings.Values["IPA_ARCHIVER"] = archiverInternal
	c.Settings.Values["IPA_DESKTOP_FORMAT"] = "zst"
	return c
}

func readZipFile(t *testing.T, archive, name string) string {
	t.Helper()
	r, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer r.Close()
	f, err := r.Open(name)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return string(data)
}

func TestBuildSingleIOSTarget(t *testing.T) {
	c := newTestContext(t, demoManifest, "")
	l := c.Project.Layout
	runner := toolchainFake(t, l)

	results, err := NewBuilder(c, runner, BuildOptions{Platform: ptr(IOS), Arch: ptr(Aarch64)}, io.Discard).Run()
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, Target{IOS, Aarch64}, r.Target)
	assert.Equal(t, filepath.Join(l.WorkDir, "Demoaarch64-apple-ios.ipa"), r.Archive)
	assert.Equal(t, r.Archive+checksumExt, r.Checksum)
	assert.FileExists(t, r.Checksum)
	assert.Equal(t, filepath.Join(l.LogDir(), "aarch64-apple-ios.log.xz"), r.Log)

	assert.Equal(t, []string{
		"Payload/",
		"Payload/Demo.aarch64-apple-ios.app/",
		"Payload/Demo.aarch64-apple-ios.app/Info.plist",
		"Payload/Demo.aarch64-apple-ios.app/demo",
	}, zipEntries(t, r.Archive))

	plist := readZipFile(t, r.Archive, "Payload/Demo.aarch64-apple-ios.app/Info.plist")
	assert.Contains(t, plist, "<key>CFBundleIdentifier</key>\n<string>com.demo</string>\n")
	assert.Contains(t, plist, "<key>CFBundleVersion</key>\n<string>1.0</string>\n")
	assert.Contains(t, plist, "<key>CFBundleName</key>\n<string>Demo</string>\n")
	assert.Contains(t, plist, "<key>CFBundleExecutable</key>\n<string>demo</string>\n")

	assert.NoDirExists(t, l.StageDir(Target{IOS, Aarch64}))
	assert.NoDirExists(t, l.BundleDir("Demo", Target{IOS, Aarch64}))
	assert.FileExists(t, l.PlistPath())

	lines, err := readBuildLog(r.Log)
	require.NoError(t, err)
	assert.Contains(t, lines, "   Compiling demo v1.0.0")
}

func TestBuildAllTargets(t *testing.T) {
	c := newTestContext(t, demoManifest, "")
	runner := toolchainFake(t, c.Project.Layout)

	results, err := NewBuilder(c, runner, BuildOptions{Release: true}, io.Discard).Run()
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, want := range Targets(nil, nil) {
		r := results[i]
		assert.Equal(t, want, r.Target)
		if want.Platform.Mobile() {
			assert.FileExists(t, r.Archive)
			assert.Empty(t, r.Bundle)
		} else {
			assert.Empty(t, r.Archive)
			assert.FileExists(t, filepath.Join(r.Bundle, "Contents", "MacOS", "demo"))
		}
	}

	for _, argv := range runner.argv() {
		assert.Contains(t, argv, "--release")
	}
}

func TestBuildDesktopArchive(t *testing.T) {
	c := newTestContext(t, demoManifest, "Desk")
	runner := toolchainFake(t, c.Project.Layout)

	opts := BuildOptions{Platform: ptr(MacOS), Arch: ptr(X86_64), ArchiveDesktop: true}
	results, err := NewBuilder(c, runner, opts, io.Discard).Run()
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, filepath.Join(c.Project.Layout.WorkDir, "Desk.x86_64-apple-darwin.app"), r.Bundle)
	assert.Equal(t, filepath.Join(c.Project.Layout.WorkDir, "Deskx86_64-apple-darwin.tar.zst"), r.Archive)
	assert.FileExists(t, r.Archive)
	assert.FileExists(t, r.Checksum)
}

func TestBuildPlistOverrides(t *testing.T) {
	c := newTestContext(t, demoManifest+`
[package.metadata.ipa.plist]
CFBundleIdentifier = "org.example.demo"
`, "")
	runner := toolchainFake(t, c.Project.Layout)

	results, err := NewBuilder(c, runner, BuildOptions{Platform: ptr(IOS), Arch: ptr(X86_64)}, io.Discard).Run()
	require.NoError(t, err)

	plist := readZipFile(t, results[0].Archive, "Payload/Demo.x86_64-apple-ios.app/Info.plist")
	assert.Contains(t, plist, "<string>org.example.demo</string>")
	assert.NotContains(t, plist, "com.demo")
}

func TestBuildExampleBinary(t *testing.T) {
	c := newTestContext(t, demoManifest, "")
	runner := toolchainFake(t, c.Project.Layout)

	opts := BuildOptions{Example: "hello", Platform: ptr(IOS), Arch: ptr(Aarch64)}
	results, err := NewBuilder(c, runner, opts, io.Discard).Run()
	require.NoError(t, err)

	assert.Contains(t, zipEntries(t, results[0].Archive), "Payload/Demo.aarch64-apple-ios.app/hello")
}

func TestBuildPrimaryCompileFailure(t *testing.T) {
	c := newTestContext(t, demoManifest, "")
	l := c.Project.Layout
	runner := toolchainFake(t, l, "cargo build")

	results, err := NewBuilder(c, runner, BuildOptions{Platform: ptr(IOS), Arch: ptr(Aarch64)}, io.Discard).Run()
	require.ErrorIs(t, err, ErrPrimaryCompileFailed)
	assert.Empty(t, results)

	tg := Target{IOS, Aarch64}
	assert.NoDirExists(t, l.BundleDir("Demo", tg))
	assert.NoFileExists(t, l.ArchivePath("Demo", tg))
	assert.FileExists(t, filepath.Join(l.LogDir(), "aarch64-apple-ios.log.xz"))
}

func TestBuildStopsAtFirstFailure(t *testing.T) {
	c := newTestContext(t, demoManifest, "")
	l := c.Project.Layout
	runner := toolchainFake(t, l)
	inner := runner.onRun
	builds := 0
	runner.onRun = func(cmd *exec.Cmd) error {
		if cmd.Args[0] == "cargo" && cmd.Args[1] == "build" {
			builds++
			if builds == 2 {
				return errToolFailed
			}
		}
		return inner(cmd)
	}

	results, err := NewBuilder(c, runner, BuildOptions{Arch: ptr(X86_64)}, io.Discard).Run()
	require.ErrorIs(t, err, ErrPrimaryCompileFailed)
	require.Len(t, results, 1)
	assert.Equal(t, Target{IOS, X86_64}, results[0].Target)
	assert.FileExists(t, results[0].Archive)
	assert.Equal(t, 2, builds)
}

func TestNewContextBridgeIncomplete(t *testing.T) {
	root := writeProject(t, demoManifest+"swift-library = \"swift/Bridge\"\n")
	_, err := NewContext(root, "", false, filepath.Join(t.TempDir(), "ipa.conf"))
	assert.ErrorIs(t, err, ErrBridgeConfigIncomplete)
}

func TestNewContextLoadsProjectEnv(t *testing.T) {
	root := writeProject(t, demoManifest)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("IPA_CONTEXT_PROBE=yes\n"), 0o644))
	require.NoError(t, os.Unsetenv("IPA_CONTEXT_PROBE"))
	t.Cleanup(func() { os.Unsetenv("IPA_CONTEXT_PROBE") })

	c, err := NewContext(root, "", false, filepath.Join(t.TempDir(), "ipa.conf"))
	require.NoError(t, err)
	assert.Equal(t, "yes", c.Settings.Get("IPA_CONTEXT_PROBE", ""))
	assert.Nil(t, c.Bridge)
}
