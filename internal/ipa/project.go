package ipa

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
)

const (
	manifestFile = "Cargo.toml"
	metadataKey  = "ipa" // [package.metadata.ipa]
)

// Identity is the resolved project identity. It does not change after
// LoadProject returns.
type Identity struct {
	ID      string // Cargo package name
	Name    string // human-facing bundle name
	Version string
}

// ToolConfig is the validated [package.metadata.ipa] table.
type ToolConfig struct {
	Name         string
	Plist        map[string]string
	SwiftBridges []string
	SwiftLibrary string
	ForceRebuild *bool
}

// Layout holds the directories derived from the project root.
type Layout struct {
	Root      string // directory containing Cargo.toml
	TargetDir string // <root>/target
	WorkDir   string // <root>/target/ipa
}

func newLayout(root string) Layout {
	targetDir := filepath.Join(root, "target")
	return Layout{
		Root:      root,
		TargetDir: targetDir,
		WorkDir:   filepath.Join(targetDir, toolName),
	}
}

// PlistPath is where the generated Info.plist is written before being
// copied into each bundle.
func (l Layout) PlistPath() string { return filepath.Join(l.WorkDir, "Info.plist") }

// LogDir holds the compressed per-target build logs.
func (l Layout) LogDir() string { return filepath.Join(l.WorkDir, "logs") }

// BundleDir is the .app directory for t.
func (l Layout) BundleDir(name string, t Target) string {
	return filepath.Join(l.WorkDir, fmt.Sprintf("%s.%s.app", name, t.Triple(CargoTriple)))
}

// StageDir is the parent of the Payload directory for t.
func (l Layout) StageDir(t Target) string {
	return filepath.Join(l.WorkDir, "stage-"+t.Triple(CargoTriple))
}

// ArchivePath is the final .ipa for t.
func (l Layout) ArchivePath(name string, t Target) string {
	return filepath.Join(l.WorkDir, name+t.Triple(CargoTriple)+".ipa")
}

// Project is everything resolved from Cargo.toml.
type Project struct {
	ManifestPath string
	Identity     Identity
	Config       *ToolConfig // nil when [package.metadata.ipa] is absent
	Layout       Layout
}

// FindManifest walks up from dir until it finds a Cargo.toml.
func FindManifest(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}
	for {
		candidate := filepath.Join(dir, manifestFile)
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w: no %s in any parent directory", ErrConfigNotFound, manifestFile)
		}
		dir = parent
	}
}

// LoadProject locates and parses Cargo.toml starting at dir, resolves the
// bundle name and creates the build directories.
func LoadProject(dir, cliName string) (*Project, error) {
	manifestPath, err := FindManifest(dir)
	if err != nil {
		return nil, err
	}
	Logger().Debug("found manifest", zap.String("path", manifestPath))

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}

	pkg, ok := raw["package"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing [package] table", ErrConfigInvalid)
	}
	id, ok := pkg["name"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: failed to get package name", ErrConfigInvalid)
	}
	ver, ok := pkg["version"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: failed to get package version", ErrConfigInvalid)
	}

	cfg, err := toolConfigFrom(pkg)
	if err != nil {
		return nil, err
	}

	cfgName := ""
	if cfg != nil {
		cfgName = cfg.Name
	}
	name, err := ResolveName(cliName, cfgName, id)
	if err != nil {
		return nil, err
	}

	layout := newLayout(filepath.Dir(manifestPath))
	for _, d := range []string{layout.TargetDir, layout.WorkDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrWorkDir, err)
		}
	}

	return &Project{
		ManifestPath: manifestPath,
		Identity:     Identity{ID: id, Name: name, Version: ver},
		Config:       cfg,
		Layout:       layout,
	}, nil
}

// ResolveName applies the precedence CLI argument > configured name >
// package identifier.
func ResolveName(cli, configured, id string) (string, error) {
	for _, n := range []string{cli, configured, id} {
		if n != "" {
			return n, nil
		}
	}
	return "", fmt.Errorf("%w: pass --name or set name in [package.metadata.%s]", ErrNameUnresolved, metadataKey)
}

// toolConfigFrom extracts [package.metadata.ipa]. A block that is present
// but not a table is reported and ignored.
func toolConfigFrom(pkg map[string]any) (*ToolConfig, error) {
	mdRaw, ok := pkg["metadata"]
	if !ok {
		return nil, nil
	}
	md, ok := mdRaw.(map[string]any)
	if !ok {
		warnf("Invalid [package.metadata] format detected. Ignoring %s configuration.", metadataKey)
		return nil, nil
	}
	tblRaw, ok := md[metadataKey]
	if !ok {
		return nil, nil
	}
	tbl, ok := tblRaw.(map[string]any)
	if !ok {
		warnf("Invalid `%s` configuration format detected. Defaulting to none.", metadataKey)
		return nil, nil
	}
	return parseToolConfig(tbl)
}

func parseToolConfig(tbl map[string]any) (*ToolConfig, error) {
	cfg := &ToolConfig{Plist: map[string]string{}}
	field := func(key string) string { return "package.metadata." + metadataKey + "." + key }

	for _, key := range slices.Sorted(maps.Keys(tbl)) {
		val := tbl[key]
		switch key {
		case "name":
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", ErrConfigInvalid, field(key))
			}
			cfg.Name = s
		case "swift-library":
			s, ok := val.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", ErrConfigInvalid, field(key))
			}
			cfg.SwiftLibrary = s
		case "swift-bridges":
			list, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a list of paths", ErrConfigInvalid, field(key))
			}
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s[%d] must be a string", ErrConfigInvalid, field(key), i)
				}
				cfg.SwiftBridges = append(cfg.SwiftBridges, s)
			}
		case "force-rebuild":
			b, ok := val.(bool)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a boolean", ErrConfigInvalid, field(key))
			}
			cfg.ForceRebuild = &b
		case "plist":
			overrides, ok := val.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a table", ErrConfigInvalid, field(key))
			}
			for k, v := range overrides {
				s, ok := v.(string)
				if !ok {
					return nil, fmt.Errorf("%w: %s.%s must be a string", ErrConfigInvalid, field(key), k)
				}
				cfg.Plist[k] = s
			}
		default:
			Logger().Debug("ignoring unknown configuration key", zap.String("key", field(key)))
		}
	}
	return cfg, nil
}
