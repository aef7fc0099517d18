package server

import "github.com/rs/zerolog"

type options struct {
	logger *zerolog.Logger
}

// Option 为 New 的可选参数
type Option func(*options)

// WithLogger 指定诊断日志输出；默认使用全局 zerolog logger（component=server）。
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}
