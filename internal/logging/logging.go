// Package logging configures the process-wide structured logger. The
// on-disk line format (`TIMESTAMP - LEVEL - SOURCE_LOCATION - MESSAGE`)
// matches what the original capture tool wrote via `env_logger`; the
// encoder below reproduces it on top of zap. Structured fields, when a
// line has any, follow the message as a JSON object after one more
// " - " separator.
package logging

import (
	"os"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls where and how verbosely the logger writes.
type Config struct {
	// FilePath is an optional append-mode log file. Empty means stderr only.
	FilePath string
	Debug    bool
}

// New builds the process logger and returns a flush function the caller
// should defer.
func New(cfg Config) (*zap.Logger, func(), error) {
	level := zapcore.InfoLevel
	if cfg.Debug {
		level = zapcore.DebugLevel
	}

	encoderCfg := zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		CallerKey:        "caller",
		MessageKey:       "msg",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " - ",
	}
	encoder := zapcore.NewConsoleEncoder(encoderCfg)

	writers := []zapcore.WriteSyncer{zapcore.AddSync(os.Stderr)}
	cleanup := func() {}

	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "open log file %s", cfg.FilePath)
		}

		// Guards FilePath against interleaved writes from a second process
		// started against the same log file (e.g. a supervised restart
		// racing the process being replaced).
		lock := flock.New(cfg.FilePath + ".lock")
		if err := lock.Lock(); err != nil {
			f.Close()
			return nil, nil, errors.Wrapf(err, "lock log file %s", cfg.FilePath)
		}

		writers = append(writers, zapcore.AddSync(f))
		cleanup = func() {
			f.Close()
			lock.Unlock()
		}
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), level)
	logger := zap.New(core, zap.AddCaller())

	return logger, cleanup, nil
}
