package ipa

import (
	"maps"
	"os"
	"slices"
	"strings"
)

const plistOpening = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
`

const plistClosing = `</dict>
</plist>
`

const bundleIDPrefix = "com."

// PlistValues computes the mandatory Info.plist keys and merges the user
// overrides on top; an override replaces a computed key.
func PlistValues(id Identity, executable string, overrides map[string]string) map[string]string {
	values := map[string]string{
		"CFBundleExecutable":         executable,
		"CFBundleIdentifier":         bundleIDPrefix + id.ID,
		"CFBundleName":               id.Name,
		"CFBundleVersion":            id.Version,
		"CFBundleShortVersionString": id.Version,
	}
	maps.Copy(values, overrides)
	return values
}

// GeneratePlist renders values as an Info.plist of string entries, sorted by
// key. Values are written verbatim: markup characters are not escaped.
func GeneratePlist(values map[string]string) string {
	var b strings.Builder
	b.WriteString(plistOpening)
	for _, key := range slices.Sorted(maps.Keys(values)) {
		b.WriteString("<key>" + key + "</key>\n")
		b.WriteString("<string>" + values[key] + "</string>\n")
	}
	b.WriteString(plistClosing)
	return b.String()
}

func writePlist(path string, values map[string]string) error {
	return os.WriteFile(path, []byte(GeneratePlist(values)), 0o644)
}
