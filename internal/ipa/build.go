package ipa

import (
	"fmt"
	"io"
	"os"
)

// BuildOptions are the per-invocation build selections.
type BuildOptions struct {
	Example        string    // build this example instead of the package binary
	Release        bool      // compile in release mode
	Platform       *Platform // nil builds every platform
	Arch           *Arch     // nil builds every architecture
	ArchiveDesktop bool      // also pack macOS bundles into a tarball
}

// Result describes what one target produced.
type Result struct {
	Target   Target
	Bundle   string // .app directory left on disk (macOS)
	Archive  string // .ipa, or the desktop tarball
	Checksum string // BLAKE3 sidecar of Archive
	Log      string // compressed build log
}

// Files are the artifacts worth publishing.
func (r Result) Files() []string {
	var files []string
	if r.Archive != "" {
		files = append(files, r.Archive)
	}
	if r.Checksum != "" {
		files = append(files, r.Checksum)
	}
	return files
}

// Builder runs the per-target pipeline: compile, write Info.plist, assemble
// the bundle, package it.
type Builder struct {
	*Context
	Options BuildOptions

	toolchain *Toolchain
	packager  *Packager
}

// NewBuilder wires the toolchain and packager for c to runner. output
// receives live tool output (nil for stdout).
func NewBuilder(c *Context, runner commandRunner, opts BuildOptions, output io.Writer) *Builder {
	if c.Settings == nil {
		c.Settings = &Settings{Values: map[string]string{}}
	}

	return &Builder{
		Context: c,
		Options: opts,
		toolchain: &Toolchain{
			Runner:  runner,
			Layout:  c.Project.Layout,
			ID:      c.Project.Identity.ID,
			Bridge:  c.Bridge,
			Options: CompileOptions{Example: opts.Example, Release: opts.Release},
			Output:  output,
		},
		packager: &Packager{
			Runner:   runner,
			Archiver: c.Settings.Get("IPA_ARCHIVER", archiverAuto),
			Progress: !Quiet && isTerminal(),
		},
	}
}

// Run builds every selected target in order and stops at the first failure.
// Results of targets that completed before the failure are returned along
// with the error; their files stay on disk.
func (b *Builder) Run() ([]Result, error) {
	targets := Targets(b.Options.Platform, b.Options.Arch)
	results := make([]Result, 0, len(targets))
	for i, t := range targets {
		step("[%d/%d] Building %s for %s", i+1, len(targets), b.Project.Identity.Name, t)
		r, err := b.buildTarget(t)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}

func (b *Builder) buildTarget(t Target) (res Result, err error) {
	res.Target = t
	layout := b.Project.Layout
	name := b.Project.Identity.Name

	blog, err := openBuildLog(layout.LogDir(), t)
	if err != nil {
		return res, err
	}
	defer func() {
		logPath, cerr := blog.Close()
		if cerr != nil {
			warnf("%v", cerr)
			return
		}
		res.Log = logPath
	}()

	art, err := b.toolchain.Build(t, blog)
	if err != nil {
		return res, err
	}

	step("Generating Info.plist...")
	values := PlistValues(b.Project.Identity, art.Name, b.plistOverrides())
	if err := writePlist(layout.PlistPath(), values); err != nil {
		return res, fmt.Errorf("%w: %v", ErrManifestWrite, err)
	}

	step("Generating app...")
	bundle, err := AssembleBundle(layout.BundleDir(name, t), t, layout.PlistPath(), art)
	if err != nil {
		return res, err
	}

	if t.Platform.Mobile() {
		ipaPath := layout.ArchivePath(name, t)
		if err := b.packager.Package(bundle, layout.StageDir(t), ipaPath); err != nil {
			return res, err
		}
		res.Archive = ipaPath

		step("Cleaning up...")
		if err := os.RemoveAll(layout.StageDir(t)); err != nil {
			return res, fmt.Errorf("%w: failed to clean old build files: %v", ErrStaging, err)
		}
	} else {
		res.Bundle = bundle.Dir
		if b.Options.ArchiveDesktop {
			format := b.Settings.Get("IPA_DESKTOP_FORMAT", "zst")
			out := desktopArchivePath(layout, name, t, format)
			step("Compressing app into %s...", out)
			if err := createDesktopArchive(bundle.Dir, out, format); err != nil {
				return res, err
			}
			res.Archive = out
		}
	}

	if res.Archive != "" {
		sum, err := writeChecksum(res.Archive)
		if err != nil {
			return res, err
		}
		res.Checksum = sum
	}
	return res, nil
}
