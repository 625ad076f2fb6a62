// Package logging builds the zap loggers every component in this
// service logs through.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production logger for "production"/"staging" and a
// human-readable development logger otherwise.
func New(environment string) (*zap.Logger, error) {
	if environment == "production" || environment == "staging" {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		return cfg.Build()
	}
	return zap.NewDevelopment()
}

// Must panics if New fails; used at process startup where a logger is
// a hard prerequisite for everything else.
func Must(environment string) *zap.Logger {
	l, err := New(environment)
	if err != nil {
		panic(err)
	}
	return l
}
