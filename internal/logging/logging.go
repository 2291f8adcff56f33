// Package logging builds the zap logger used by stores and the CLI.
package logging

import (
	"fmt"
	"io"

	"github.com/paveg/lazystore/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production logger from cfg: info level, or debug with
// VerboseLogging, encoded as cfg.LogEncoding.
func New(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.VerboseLogging {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	if cfg.LogEncoding != "" {
		zc.Encoding = cfg.LogEncoding
	}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// NewWriter builds a logger writing to w, used where output must be captured
func NewWriter(w io.Writer, cfg config.Config) *zap.Logger {
	level := zapcore.InfoLevel
	if cfg.VerboseLogging {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if cfg.LogEncoding == "console" {
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}
	return zap.New(zapcore.NewCore(enc, zapcore.AddSync(w), level))
}
