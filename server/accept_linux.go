//go:build linux

package server

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/gecho/internal/netutil"
)

// onAcceptable 边缘触发：accept 到 EAGAIN 为止。
func (s *Server) onAcceptable() error {
	for {
		fd, sa, err := unix.Accept4(s.lfd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			switch {
			case netutil.IsWouldBlock(err):
				return nil
			case err == unix.EINTR, err == unix.ECONNABORTED:
				// 对端在 accept 前已放弃，不影响其他连接
				continue
			}
			return errors.Wrap(err, "server: accept")
		}
		if err := s.addConn(fd, sa); err != nil {
			return err
		}
	}
}

func (s *Server) addConn(fd int, sa unix.Sockaddr) error {
	sock := netutil.NewSocket(fd)
	s.tuneConn(fd)

	s.nextConnID++
	c := &connection{
		sock:       sock,
		fd:         fd,
		id:         s.nextConnID,
		state:      connOpen,
		lastActive: time.Now(),
	}
	if addr := netutil.TCPAddr(sa); addr != nil {
		c.peer = addr.String()
	}
	if !s.conns.add(c) {
		_ = sock.Close()
		return errors.Wrapf(ErrDuplicateDescriptor, "fd %d", fd)
	}
	if err := s.pl.Register(fd, true, false); err != nil {
		s.conns.remove(fd)
		_ = sock.Close()
		return errors.Wrapf(err, "server: register fd %d", fd)
	}
	s.stats.active.Add(1)
	s.stats.accepted.Add(1)
	s.log.Info().Int("fd", fd).Uint64("conn", c.id).Str("peer", c.peer).Msg("connection opened")
	return nil
}

// tuneConn 设置可选的 socket 参数，失败只记录不影响连接。
func (s *Server) tuneConn(fd int) {
	if s.cfg.NoDelay {
		if err := netutil.SetNoDelay(fd, true); err != nil {
			s.log.Debug().Err(err).Int("fd", fd).Msg("set TCP_NODELAY")
		}
	}
	if s.cfg.RecvBuffer > 0 {
		if err := netutil.SetRecvBuf(fd, s.cfg.RecvBuffer); err != nil {
			s.log.Debug().Err(err).Int("fd", fd).Msg("set SO_RCVBUF")
		}
	}
	if s.cfg.SendBuffer > 0 {
		if err := netutil.SetSendBuf(fd, s.cfg.SendBuffer); err != nil {
			s.log.Debug().Err(err).Int("fd", fd).Msg("set SO_SNDBUF")
		}
	}
}
