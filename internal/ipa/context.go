package ipa

import (
	"go.uber.org/zap"
)

// Context is the per-invocation state: the resolved project, its optional
// Swift bridge and the user settings. Stages read it and never modify it.
type Context struct {
	Project  *Project
	Bridge   *Bridge
	Settings *Settings
}

// NewContext resolves everything a build needs before the first command
// runs. cliName is the --name flag (may be empty). Settings are read from
// settingsFile after the project's .env has been loaded.
func NewContext(dir, cliName string, release bool, settingsFile string) (*Context, error) {
	proj, err := LoadProject(dir, cliName)
	if err != nil {
		return nil, err
	}

	if err := loadProjectEnv(proj.Layout.Root); err != nil {
		warnf("failed to load %s/.env: %v", proj.Layout.Root, err)
	}

	settings, err := LoadSettings(settingsFile)
	if err != nil {
		return nil, err
	}

	bridge, err := ResolveBridge(proj.Layout.Root, proj.Config, release)
	if err != nil {
		return nil, err
	}

	Logger().Debug("resolved project",
		zap.String("id", proj.Identity.ID),
		zap.String("name", proj.Identity.Name),
		zap.String("version", proj.Identity.Version),
		zap.String("root", proj.Layout.Root),
		zap.Bool("bridge", bridge != nil),
	)

	return &Context{Project: proj, Bridge: bridge, Settings: settings}, nil
}

// plistOverrides returns the user's Info.plist entries, if any.
func (c *Context) plistOverrides() map[string]string {
	if c.Project.Config == nil {
		return nil
	}
	return c.Project.Config.Plist
}
