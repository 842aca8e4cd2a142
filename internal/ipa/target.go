package ipa

import (
	"fmt"
	"strings"
)

// Platform is an Apple operating system a bundle can be built for.
type Platform int

const (
	IOS Platform = iota
	MacOS
)

var allPlatforms = []Platform{IOS, MacOS}

func (p Platform) String() string {
	switch p {
	case IOS:
		return "ios"
	case MacOS:
		return "macos"
	}
	return fmt.Sprintf("platform(%d)", int(p))
}

// Mobile reports whether bundles for p are packed into an .ipa.
func (p Platform) Mobile() bool {
	return p == IOS
}

// sdk is the xcrun SDK name for p.
func (p Platform) sdk() string {
	if p == IOS {
		return "iphoneos"
	}
	return "macosx"
}

// ParsePlatform accepts ios, macos or darwin (case-insensitive).
func ParsePlatform(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ios":
		return IOS, nil
	case "macos", "darwin", "osx":
		return MacOS, nil
	}
	return 0, fmt.Errorf("%w: %q (expected ios or macos)", ErrInvalidPlatform, s)
}

// Arch is a CPU architecture.
type Arch int

const (
	X86_64 Arch = iota
	Aarch64
)

var allArchs = []Arch{X86_64, Aarch64}

func (a Arch) String() string {
	switch a {
	case X86_64:
		return "x86_64"
	case Aarch64:
		return "aarch64"
	}
	return fmt.Sprintf("arch(%d)", int(a))
}

// ParseArch accepts x86_64/amd64 and aarch64/arm64 (case-insensitive).
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x86_64", "amd64", "x64":
		return X86_64, nil
	case "aarch64", "arm64":
		return Aarch64, nil
	}
	return 0, fmt.Errorf("%w: %q (expected x86_64 or aarch64)", ErrInvalidArch, s)
}

// TripleKind selects which toolchain vocabulary a triple is rendered in.
type TripleKind int

const (
	CargoTriple TripleKind = iota // rustc/cargo
	SwiftTriple                   // swiftc
)

type tripleKey struct {
	platform Platform
	arch     Arch
	kind     TripleKind
}

// One table for both toolchains so the two vocabularies cannot drift apart.
var triples = map[tripleKey]string{
	{IOS, Aarch64, CargoTriple}:   "aarch64-apple-ios",
	{IOS, X86_64, CargoTriple}:    "x86_64-apple-ios",
	{MacOS, Aarch64, CargoTriple}: "aarch64-apple-darwin",
	{MacOS, X86_64, CargoTriple}:  "x86_64-apple-darwin",
	{IOS, Aarch64, SwiftTriple}:   "arm64-apple-ios14",
	{IOS, X86_64, SwiftTriple}:    "x86_64-apple-ios14",
	{MacOS, Aarch64, SwiftTriple}: "arm64-apple-macosx11",
	{MacOS, X86_64, SwiftTriple}:  "x86_64-apple-macosx11",
}

// Target is one platform/architecture pair of the build matrix.
type Target struct {
	Platform Platform
	Arch     Arch
}

// Triple returns the target triple in the given toolchain's vocabulary.
func (t Target) Triple(kind TripleKind) string {
	tr, ok := triples[tripleKey{t.Platform, t.Arch, kind}]
	if !ok {
		panic(fmt.Sprintf("no triple for %s/%s kind %d", t.Platform, t.Arch, kind))
	}
	return tr
}

func (t Target) String() string {
	return t.Triple(CargoTriple)
}

// Targets expands the optional platform and architecture selectors into the
// build matrix. A nil selector means every value of that axis. Architecture
// is the outer loop and platform the inner one.
func Targets(platform *Platform, arch *Arch) []Target {
	platforms := allPlatforms
	if platform != nil {
		platforms = []Platform{*platform}
	}
	archs := allArchs
	if arch != nil {
		archs = []Arch{*arch}
	}

	targets := make([]Target, 0, len(platforms)*len(archs))
	for _, a := range archs {
		for _, p := range platforms {
			targets = append(targets, Target{Platform: p, Arch: a})
		}
	}
	return targets
}
