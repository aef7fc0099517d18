//go:build linux

package server

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/legamerdc/gecho/internal/logger"
	"github.com/legamerdc/gecho/internal/netutil"
	"github.com/legamerdc/gecho/poller"
)

type runState int

const (
	stateIdle runState = iota
	stateRunning
	stateClosed
)

// Server 为单线程 epoll 回显服务。
// 连接表、poller 注册与所有 socket IO 只在 Run 所在 goroutine 中进行；
// Stop/Close/Stats/Addr 可以从任意 goroutine 调用。
type Server struct {
	cfg  Config
	log  zerolog.Logger
	id   string
	addr *net.TCPAddr

	ln  *netutil.Socket
	lfd int
	pl  poller.Poller

	conns      *connTable
	events     []poller.Event
	rbuf       []byte
	nextConnID uint64
	lastSweep  time.Time
	sweepEvery time.Duration

	mu       sync.Mutex // 保护 state/torn，避免 Wake 与 poller 关闭并发
	state    runState
	torn     bool
	stopping atomic.Bool
	done     chan struct{}

	stats counters
}

// New 创建监听 socket 与 poller 并注册监听 fd。失败时已创建的资源全部释放。
func New(cfg Config, opts ...Option) (*Server, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.NewString()
	l := logger.WithComponent("server")
	if o.logger != nil {
		l = *o.logger
	}
	l = l.With().Str("instance", id).Logger()

	ln, addr, err := openListener(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	pl, err := poller.New(cfg.MaxEvents)
	if err != nil {
		_ = ln.Close()
		return nil, errors.Wrap(err, "server: create poller")
	}
	if err := pl.Register(ln.FD(), true, false); err != nil {
		_ = pl.Close()
		_ = ln.Close()
		return nil, errors.Wrap(err, "server: register listener")
	}

	sweep := cfg.IdleTimeout / 4
	if sweep < cfg.PollTimeout {
		sweep = cfg.PollTimeout
	}
	s := &Server{
		cfg:        cfg,
		log:        l,
		id:         id,
		addr:       addr,
		ln:         ln,
		lfd:        ln.FD(),
		pl:         pl,
		conns:      newConnTable(),
		events:     make([]poller.Event, cfg.MaxEvents),
		rbuf:       make([]byte, cfg.ReadBufferSize),
		sweepEvery: sweep,
		done:       make(chan struct{}),
	}
	s.log.Info().Str("addr", addr.String()).Int("fd", s.lfd).Msg("listening")
	return s, nil
}

// Addr 返回实际绑定的地址
func (s *Server) Addr() net.Addr { return s.addr }

// ID 返回该实例的唯一标识（日志中的 instance 字段）
func (s *Server) ID() string { return s.id }

// Stats 返回计数快照
func (s *Server) Stats() Stats { return s.stats.snapshot() }

// Run 进入事件循环，直到 Stop、ctx 取消（返回 nil）或出现致命错误（返回该错误）。
// 返回前关闭所有连接、监听 socket 与 poller；Server 不可重复 Run。
func (s *Server) Run(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case stateRunning:
		s.mu.Unlock()
		return ErrAlreadyRunning
	case stateClosed:
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.state = stateRunning
	s.mu.Unlock()

	defer close(s.done)
	defer func() {
		s.teardown()
		s.mu.Lock()
		s.state = stateClosed
		s.mu.Unlock()
	}()
	stop := context.AfterFunc(ctx, func() { _ = s.Stop() })
	defer stop()

	err := s.loop()
	if err != nil {
		s.log.Error().Err(err).Msg("event loop terminated")
		return err
	}
	s.log.Info().Msg("stopped")
	return nil
}

// Stop 请求事件循环退出，可从任意 goroutine 调用，可重复调用。
func (s *Server) Stop() error {
	s.stopping.Store(true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.torn {
		return nil
	}
	return s.pl.Wake()
}

// Close 释放全部资源。运行中则先 Stop 并等待 Run 返回。
func (s *Server) Close() error {
	s.mu.Lock()
	switch s.state {
	case stateRunning:
		s.mu.Unlock()
		err := s.Stop()
		<-s.done
		return err
	case stateIdle:
		s.state = stateClosed
		s.mu.Unlock()
		s.teardown()
		return nil
	}
	s.mu.Unlock()
	return nil
}

func (s *Server) loop() error {
	for !s.stopping.Load() {
		n, err := s.pl.Wait(s.events, s.cfg.PollTimeout)
		if err != nil {
			return errors.Wrap(err, "server: wait")
		}
		for i := 0; i < n; i++ {
			if err := s.dispatch(s.events[i]); err != nil {
				return err
			}
		}
		if s.cfg.IdleTimeout > 0 {
			s.sweepIdle(time.Now())
		}
	}
	return nil
}

func (s *Server) dispatch(ev poller.Event) error {
	if ev.Err {
		if ev.FD == s.lfd {
			return ErrListenerFault
		}
		c := s.conns.lookup(ev.FD)
		if c == nil {
			s.dropUnknown(ev.FD)
			return nil
		}
		s.closeConn(c, "error event")
		return nil
	}
	if ev.FD == s.lfd {
		return s.onAcceptable()
	}
	c := s.conns.lookup(ev.FD)
	if c == nil {
		s.dropUnknown(ev.FD)
		return nil
	}
	if ev.Writable {
		if err := s.onWritable(c); err != nil {
			return err
		}
	}
	if ev.Readable && c.state == connOpen {
		return s.onReadable(c)
	}
	return nil
}

// dropUnknown 处理不在连接表中的 fd：只注销，不关闭（fd 的所有权不在这里）。
func (s *Server) dropUnknown(fd int) {
	s.log.Warn().Int("fd", fd).Msg("event for descriptor not in connection table")
	_ = s.pl.Unregister(fd)
}

func (s *Server) sweepIdle(now time.Time) {
	if now.Sub(s.lastSweep) < s.sweepEvery {
		return
	}
	s.lastSweep = now
	for _, c := range s.conns.snapshot() {
		if now.Sub(c.lastActive) >= s.cfg.IdleTimeout {
			s.log.Warn().Int("fd", c.fd).Uint64("conn", c.id).Dur("idle", now.Sub(c.lastActive)).Msg("closing idle connection")
			s.closeConn(c, "idle timeout")
		}
	}
}

// teardown 关闭所有连接、监听 socket 与 poller，只执行一次。
func (s *Server) teardown() {
	s.mu.Lock()
	if s.torn {
		s.mu.Unlock()
		return
	}
	s.torn = true
	s.mu.Unlock()

	for _, c := range s.conns.snapshot() {
		s.closeConn(c, "shutdown")
	}
	_ = s.pl.Unregister(s.lfd)
	if err := s.ln.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close listener")
	}
	if err := s.pl.Close(); err != nil {
		s.log.Warn().Err(err).Msg("close poller")
	}
}
