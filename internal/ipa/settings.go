package ipa

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const envPrefix = "IPA_"

// Settings holds user-level tool settings (archiver choice, publishing
// credentials). Project identity never lives here.
type Settings struct {
	Values map[string]string
}

// settingsPath is $XDG_CONFIG_HOME/ipa/ipa.conf.
func settingsPath() string {
	return filepath.Join(xdg.ConfigHome, toolName, toolName+".conf")
}

// LoadSettings reads a key=value settings file and applies IPA_* environment
// overrides. A missing file is not an error.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{Values: make(map[string]string)}

	file, err := os.Open(path)
	if err == nil {
		defer file.Close()
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			val := strings.TrimSpace(parts[1])
			val = strings.Trim(val, `"'`)
			s.Values[key] = val
		}
		if err := scanner.Err(); err != nil {
			return s, err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return s, err
	}

	mergeEnvOverrides(s)

	if s.Values["IPA_DESKTOP_FORMAT"] == "" {
		s.Values["IPA_DESKTOP_FORMAT"] = "zst"
	}
	return s, nil
}

// Merge IPA_* env overrides
func mergeEnvOverrides(s *Settings) {
	for _, env := range os.Environ() {
		if strings.HasPrefix(env, envPrefix) {
			parts := strings.SplitN(env, "=", 2)
			if len(parts) == 2 {
				s.Values[parts[0]] = parts[1]
			}
		}
	}
}

// loadProjectEnv loads <root>/.env into the process environment without
// overriding variables that are already set.
func loadProjectEnv(root string) error {
	path := filepath.Join(root, ".env")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	Logger().Debug("loading project env file", zap.String("path", path))
	return godotenv.Load(path)
}

// Get returns the value for key, or def when unset or empty.
func (s *Settings) Get(key, def string) string {
	if v := s.Values[key]; v != "" {
		return v
	}
	return def
}

// Bool reports whether key is set to "1" or "true".
func (s *Settings) Bool(key string) bool {
	switch strings.ToLower(s.Values[key]) {
	case "1", "true", "yes":
		return true
	}
	return false
}
