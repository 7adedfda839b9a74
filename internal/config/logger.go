package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

// InitStageLogger replaces the global logger with one that tees to a
// per-stage log file at logs/{stage}_{YYYYMMDD_HHMMSS}.log. The file sink
// records DEBUG and above regardless of the console level, so the file holds
// the full trace while the console stays at the configured level.
func InitStageLogger(cfg LogConfig, logsDir, stage string) (func(), error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "config: create logs dir %s", logsDir)
	}

	name := fmt.Sprintf("%s_%s.log", stage, time.Now().Format("20060102_150405"))
	path := filepath.Join(logsDir, name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "config: open stage log %s", path)
	}

	consoleLevel, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		consoleLevel = zapcore.InfoLevel
	}

	var consoleEnc zapcore.Encoder
	if cfg.Format == "console" {
		consoleEnc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		consoleEnc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	fileEnc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	core := zapcore.NewTee(
		zapcore.NewCore(consoleEnc, zapcore.Lock(os.Stderr), consoleLevel),
		zapcore.NewCore(fileEnc, zapcore.AddSync(file), zapcore.DebugLevel),
	)

	logger := zap.New(core)
	restore := zap.ReplaceGlobals(logger)

	cleanup := func() {
		_ = logger.Sync()
		restore()
		_ = file.Close()
	}
	return cleanup, nil
}
