// Package logger builds the zap logger shared by the service.
package logger

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a JSON production logger in gin release mode and a console
// development logger otherwise. verbose lowers the level to debug.
func New(ginMode string, verbose bool) (*zap.Logger, error) {
	var cfg zap.Config
	if strings.EqualFold(ginMode, gin.ReleaseMode) {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg.Level = zap.NewAtomicLevelAt(level)

	return cfg.Build()
}

// Must is New for process entrypoints.
func Must(ginMode string, verbose bool) *zap.Logger {
	l, err := New(ginMode, verbose)
	if err != nil {
		panic(err)
	}
	return l
}
