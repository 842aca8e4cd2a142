package ipa

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the package's debug logger.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the package's debug logger.
func SetLogger(l *zap.Logger) {
	logger = l
}

// configureLogger installs a development logger on stderr when debug output
// was requested, and a no-op logger otherwise.
func configureLogger() {
	if !Debug {
		SetLogger(zap.NewNop())
		return
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		warnf("failed to create debug logger: %v", err)
		return
	}
	SetLogger(l)
}
