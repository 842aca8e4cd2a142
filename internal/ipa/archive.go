package ipa

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const payloadDir = "Payload"

// Archiver selection values for IPA_ARCHIVER.
const (
	archiverAuto     = ""
	archiverSystem   = "system"
	archiverInternal = "internal"
)

// Packager turns an assembled iOS bundle into an .ipa.
type Packager struct {
	Runner   commandRunner
	Archiver string // "", "system" or "internal"
	Progress bool   // show a progress bar for the internal archiver
}

// Package moves b into <stageDir>/Payload and compresses the staging
// directory into ipaPath. The archive's top-level entry is Payload/.
func (p *Packager) Package(b *Bundle, stageDir, ipaPath string) error {
	// zip appends to an existing archive instead of replacing it.
	if err := os.Remove(ipaPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w %s: %v", ErrArchiveRemove, ipaPath, err)
	}

	payload := filepath.Join(stageDir, payloadDir)
	if err := resetDir(stageDir); err != nil {
		return fmt.Errorf("%w: %v", ErrStaging, err)
	}
	if err := os.Mkdir(payload, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrStaging, err)
	}

	moved := filepath.Join(payload, filepath.Base(b.Dir))
	if err := os.Rename(b.Dir, moved); err != nil {
		return fmt.Errorf("%w: %v", ErrBundleMove, err)
	}
	state := b.State
	*b = *newBundle(moved, b.Target, filepath.Base(b.BinaryPath))
	b.State = state

	step("Compressing app into an IPA...")
	var err error
	if p.useSystemZip() {
		err = p.zipSystem(stageDir, ipaPath)
	} else {
		err = zipInternal(stageDir, ipaPath, p.Progress)
	}
	if err != nil {
		return fmt.Errorf("%w %s: %v", ErrArchiveFailed, ipaPath, err)
	}
	return nil
}

func (p *Packager) useSystemZip() bool {
	switch p.Archiver {
	case archiverInternal:
		return false
	case archiverSystem:
		return true
	}
	_, err := exec.LookPath("zip")
	return err == nil
}

// zipSystem runs zip from inside stageDir so entries are recorded relative
// to it. The process working directory is left alone.
func (p *Packager) zipSystem(stageDir, ipaPath string) error {
	abs, err := filepath.Abs(ipaPath)
	if err != nil {
		return err
	}
	cmd := exec.Command("zip", "-r", "-q", abs, payloadDir)
	cmd.Dir = stageDir
	return p.Runner.Run(cmd)
}

// zipInternal writes the same archive as zipSystem with a pure-Go writer.
func zipInternal(stageDir, ipaPath string, progress bool) error {
	Logger().Debug("using internal zip writer", zap.String("archive", ipaPath))

	var total int64
	if progress {
		_ = filepath.WalkDir(filepath.Join(stageDir, payloadDir), func(_ string, d fs.DirEntry, err error) error {
			if err == nil && d.Type().IsRegular() {
				if info, err := d.Info(); err == nil {
					total += info.Size()
				}
			}
			return nil
		})
	}

	out, err := os.Create(ipaPath)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	var bar *progressbar.ProgressBar
	if progress {
		bar = progressbar.DefaultBytes(total, "compressing")
	}

	walkErr := filepath.Walk(filepath.Join(stageDir, payloadDir), func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(stageDir, path)
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
			_, err := zw.CreateHeader(hdr)
			return err
		}
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if bar != nil {
			_, err = io.Copy(io.MultiWriter(w, bar), f)
		} else {
			_, err = io.Copy(w, f)
		}
		return err
	})

	if bar != nil {
		_ = bar.Finish()
	}
	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if walkErr != nil {
		os.Remove(ipaPath)
	}
	return walkErr
}

// desktopArchivePath is <WorkDir>/<name><triple>.tar.<format>.
func desktopArchivePath(l Layout, name string, t Target, format string) string {
	return filepath.Join(l.WorkDir, name+t.Triple(CargoTriple)+".tar."+format)
}

// createDesktopArchive packs a .app directory into a tarball compressed
// with zstd ("zst") or parallel gzip ("gz"). The bundle directory is the
// archive's top-level entry.
func createDesktopArchive(bundleDir, outPath, format string) error {
	if err := os.Remove(outPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w %s: %v", ErrArchiveRemove, outPath, err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}

	var cw io.WriteCloser
	switch strings.ToLower(format) {
	case "zst", "zstd":
		cw, err = zstd.NewWriter(out)
	case "gz", "gzip":
		cw = pgzip.NewWriter(out)
	default:
		err = fmt.Errorf("unsupported desktop archive format %q", format)
	}
	if err != nil {
		out.Close()
		os.Remove(outPath)
		return fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}

	tw := tar.NewWriter(cw)
	parent := filepath.Dir(bundleDir)
	walkErr := filepath.Walk(bundleDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(parent, path)
		if err != nil {
			return err
		}

		var linkTarget string
		if info.Mode()&os.ModeSymlink != 0 {
			if linkTarget, err = os.Readlink(path); err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
		}
		hdr, err := tar.FileInfoHeader(info, linkTarget)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		if info.IsDir() {
			hdr.Name += "/"
		}
		hdr.Uid, hdr.Gid = 0, 0
		hdr.Uname, hdr.Gname = "root", "wheel"

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})

	for _, c := range []io.Closer{tw, cw, out} {
		if err := c.Close(); err != nil && walkErr == nil {
			walkErr = err
		}
	}
	if walkErr != nil {
		os.Remove(outPath)
		return fmt.Errorf("%w %s: %v", ErrArchiveFailed, outPath, walkErr)
	}
	return nil
}
