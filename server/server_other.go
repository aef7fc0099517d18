//go:build !linux

package server

import (
	"context"
	"net"
)

// Server 在非 Linux 平台上只是占位，New 总是返回 ErrPlatformNotSupported。
type Server struct{}

func New(cfg Config, opts ...Option) (*Server, error) {
	_ = cfg
	_ = opts
	return nil, ErrPlatformNotSupported
}

func (s *Server) Addr() net.Addr { return nil }

func (s *Server) ID() string { return "" }

func (s *Server) Stats() Stats { return Stats{} }

func (s *Server) Run(ctx context.Context) error {
	_ = ctx
	return ErrPlatformNotSupported
}

func (s *Server) Stop() error { return nil }

func (s *Server) Close() error { return nil }
