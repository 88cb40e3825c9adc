package logutils

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogSettings configures the process-wide logger.
type LogSettings struct {
	Enabled         bool   `json:"Enabled"`
	Level           string `json:"Level" validate:"omitempty,oneof=debug info warn error DEBUG INFO WARN ERROR"`
	File            string `json:"File"`
	MaxSize         int    `json:"MaxSize"`
	MaxBackups      int    `json:"MaxBackups"`
	CompressRotated bool   `json:"CompressRotated"`
	JSON            bool   `json:"JSON"`
}

var (
	zapLogger     *zap.Logger
	initZapLogger sync.Once
	loggerMu      sync.RWMutex
)

// ZapLogger returns the process-wide logger. Until a configuration is applied it
// writes info and above to stderr.
func ZapLogger() *zap.Logger {
	initZapLogger.Do(func() {
		loggerMu.Lock()
		if zapLogger == nil {
			zapLogger = newZapLogger(zapcore.AddSync(os.Stderr), zap.InfoLevel, false)
		}
		loggerMu.Unlock()
	})

	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return zapLogger
}

// OverrideRootLogWithConfig replaces the process-wide logger according to settings.
// A disabled configuration installs a no-op logger.
func OverrideRootLogWithConfig(settings LogSettings) error {
	logger := zap.NewNop()

	if settings.Enabled {
		level, err := zapcore.ParseLevel(strings.ToLower(settings.Level))
		if err != nil {
			return err
		}

		syncer := zapcore.AddSync(os.Stderr)
		if settings.File != "" {
			syncer = ZapSyncerWithRotation(FileOptions{
				Filename:   settings.File,
				MaxSize:    settings.MaxSize,
				MaxBackups: settings.MaxBackups,
				Compress:   settings.CompressRotated,
			})
		}
		logger = newZapLogger(syncer, level, settings.JSON)
	}

	// make sure a later ZapLogger() call does not overwrite us
	initZapLogger.Do(func() {})

	loggerMu.Lock()
	zapLogger = logger
	loggerMu.Unlock()
	return nil
}

func newZapLogger(syncer zapcore.WriteSyncer, level zapcore.Level, json bool) *zap.Logger {
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if json {
		encoder = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, syncer, zap.NewAtomicLevelAt(level))
	return zap.New(core, zap.AddCaller())
}
