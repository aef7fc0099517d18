package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init 初始化全局 zerolog 日志。json=false 时输出人类可读的控制台格式。
func Init(level string, json bool) error {
	return InitWriter(os.Stderr, level, json)
}

// InitWriter 同 Init，但允许指定输出目标。
func InitWriter(w io.Writer, level string, json bool) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	// 时间戳统一使用 UTC
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	out := w
	if !json {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: "2006-01-02 15:04:05.000",
		}
	}
	log.Logger = zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Logger()
	return nil
}

// ParseLevel 解析日志级别，空串视为 info。
func ParseLevel(level string) (zerolog.Level, error) {
	s := strings.ToLower(strings.TrimSpace(level))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Errorf("logger: unknown level %q", level)
	}
	return lvl, nil
}

// WithComponent 返回带 component 字段的子 logger，用于区分不同模块的输出。
func WithComponent(name string) zerolog.Logger {
	return log.Logger.With().Str("component", name).Logger()
}
