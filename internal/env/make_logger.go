package env

import (
	zap "go.uber.org/zap"
)

// MakeLogger returns a JSON production logger, or a development logger
// at debug level when debug is set.
func MakeLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}

	logConfig := zap.NewProductionConfig()
	logConfig.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	logConfig.Encoding = "json"

	return logConfig.Build()
}
