package ipa

import (
	"github.com/gookit/color"
)

const toolName = "ipa"

// Global state
var (
	version   = "dev"     // overridden at build time
	buildDate = "unknown" // overridden at build time
	Debug     bool
	Quiet     bool
)

// color helpers
var (
	colWarn    = color.Warn
	colError   = color.Error
	colSuccess = color.HEX("#1976D2")
	colArrow   = color.HEX("#FFEB3B")
	colNote    = color.Tag("notice")
)
