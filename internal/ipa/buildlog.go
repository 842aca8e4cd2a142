package ipa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ulikunitz/xz"
)

const logExt = ".log.xz"

// buildLog captures external tool output for one target. Close compresses
// it to <dir>/<triple>.log.xz.
type buildLog struct {
	path string
	f    *os.File
}

func openBuildLog(dir string, t Target) (*buildLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildLog, err)
	}
	path := filepath.Join(dir, t.Triple(CargoTriple)+".log")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildLog, err)
	}
	return &buildLog{path: path, f: f}, nil
}

func (l *buildLog) Write(p []byte) (int, error) {
	return l.f.Write(p)
}

// Close compresses the plain log with xz, removes it and returns the path
// of the compressed log.
func (l *buildLog) Close() (string, error) {
	if err := l.f.Close(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuildLog, err)
	}
	dest := strings.TrimSuffix(l.path, ".log") + logExt
	if err := compressXZ(l.path, dest); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuildLog, err)
	}
	if err := os.Remove(l.path); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBuildLog, err)
	}
	return dest, nil
}

// compressXZ compresses a file using XZ
func compressXZ(srcPath, destPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer src.Close()

	dest, err := os.Create(destPath)
	if err != nil {
		return err
	}

	xzWriter, err := xz.NewWriter(dest)
	if err != nil {
		dest.Close()
		return err
	}
	if _, err := io.Copy(xzWriter, src); err != nil {
		xzWriter.Close()
		dest.Close()
		return err
	}
	if err := xzWriter.Close(); err != nil {
		dest.Close()
		return err
	}
	return dest.Close()
}

// readBuildLog decompresses a log into lines.
func readBuildLog(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLogNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	xr, err := xz.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildLog, err)
	}

	var lines []string
	sc := bufio.NewScanner(xr)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBuildLog, err)
	}
	return lines, nil
}

// listBuildLogs returns the triples that have a compressed log in dir.
func listBuildLogs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var found []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), logExt) {
			found = append(found, strings.TrimSuffix(e.Name(), logExt))
		}
	}
	sort.Strings(found)
	return found, nil
}
