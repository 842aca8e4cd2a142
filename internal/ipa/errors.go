package ipa

import "errors"

// Every fatal condition wraps one of these, so the printed message names the
// stage that failed.
var (
	ErrConfigNotFound         = errors.New("failed to locate Cargo.toml")
	ErrConfigParse            = errors.New("failed to parse Cargo.toml")
	ErrConfigInvalid          = errors.New("invalid Cargo.toml detected")
	ErrNameUnresolved         = errors.New("failed to find the app name")
	ErrBridgeConfigIncomplete = errors.New("incomplete swift bridge configuration")
	ErrWorkDir                = errors.New("failed to create build directory")
	ErrInvalidPlatform        = errors.New("invalid platform")
	ErrInvalidArch            = errors.New("invalid architecture")

	ErrCleanFailed          = errors.New("cargo clean failed")
	ErrBindingsFailed       = errors.New("failed to generate swift bridge bindings")
	ErrBridgeCompileFailed  = errors.New("swift failed to compile the package")
	ErrPrimaryCompileFailed = errors.New("cargo failed to compile the binary")
	ErrManifestWrite        = errors.New("failed to write Info.plist")

	ErrBundleRemove    = errors.New("failed to remove existing bundle")
	ErrBundleDirCreate = errors.New("failed to create bundle directory")
	ErrManifestCopy    = errors.New("failed to copy Info.plist into bundle")
	ErrBinaryCopy      = errors.New("failed to copy the binary into bundle")
	ErrChmod           = errors.New("failed to make the binary executable")

	ErrArchiveRemove = errors.New("failed to remove stale archive")
	ErrStaging       = errors.New("failed to prepare staging directory")
	ErrBundleMove    = errors.New("failed to move bundle into staging directory")
	ErrArchiveFailed = errors.New("failed to create archive")

	ErrChecksum    = errors.New("failed to write checksum")
	ErrBuildLog    = errors.New("build log error")
	ErrLogNotFound = errors.New("no build log found")
	ErrPublish     = errors.New("publish failed")
)
