package ipa

import (
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var demoIdentity = Identity{ID: "demo", Name: "Demo", Version: "1.0"}

func TestPlistValuesMandatoryKeys(t *testing.T) {
	got := PlistValues(demoIdentity, "demo", nil)
	assert.Equal(t, map[string]string{
		"CFBundleExecutable":         "demo",
		"CFBundleIdentifier":         "com.demo",
		"CFBundleName":               "Demo",
		"CFBundleVersion":            "1.0",
		"CFBundleShortVersionString": "1.0",
	}, got)
}

func TestPlistValuesOverridesWin(t *testing.T) {
	got := PlistValues(demoIdentity, "demo", map[string]string{
		"CFBundleIdentifier":   "org.example.demo",
		"UIRequiresFullScreen": "true",
	})
	assert.Equal(t, "org.example.demo", got["CFBundleIdentifier"])
	assert.Equal(t, "true", got["UIRequiresFullScreen"])
	assert.Equal(t, "demo", got["CFBundleExecutable"])
	assert.Len(t, got, 6)
}

func TestGeneratePlist(t *testing.T) {
	got := GeneratePlist(map[string]string{"b": "2", "a": "1"})

	want := plistOpening +
		"<key>a</key>\n<string>1</string>\n" +
		"<key>b</key>\n<string>2</string>\n" +
		plistClosing
	assert.Equal(t, want, got)
	assert.True(t, strings.HasPrefix(got, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.True(t, strings.HasSuffix(got, "</dict>\n</plist>\n"))
}

func TestGeneratePlistDeterministic(t *testing.T) {
	values := PlistValues(demoIdentity, "demo", map[string]string{"X": "1", "Y": "2", "Z": "3"})
	first := GeneratePlist(values)
	for range 20 {
		assert.Equal(t, first, GeneratePlist(values))
	}
}

func TestGeneratePlistIsWellFormed(t *testing.T) {
	doc := GeneratePlist(PlistValues(demoIdentity, "demo", nil))
	assert.NoError(t, decodeAll(doc))
}

func TestGeneratePlistDoesNotEscape(t *testing.T) {
	doc := GeneratePlist(map[string]string{"Broken": "a<b"})
	assert.Contains(t, doc, "<string>a<b</string>")
	assert.Error(t, decodeAll(doc))
}

func TestWritePlist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Info.plist")
	values := PlistValues(demoIdentity, "demo", nil)
	require.NoError(t, writePlist(path, values))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, GeneratePlist(values), string(data))
}

// decodeAll runs the document through an XML tokenizer.
func decodeAll(doc string) error {
	d := xml.NewDecoder(strings.NewReader(doc))
	d.Strict = true
	for {
		_, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
