//go:build linux

package server

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/gecho/internal/netutil"
	"github.com/legamerdc/gecho/internal/ring"
)

type connState uint8

const (
	connOpen    connState = iota
	connClosing           // 对端已发送 EOF，仍有待回写字节
	connClosed
)

func (st connState) String() string {
	switch st {
	case connOpen:
		return "open"
	case connClosing:
		return "closing"
	default:
		return "closed"
	}
}

type connection struct {
	sock       *netutil.Socket
	fd         int
	id         uint64
	peer       string
	state      connState
	out        *ring.Buffer // 未写出的回显字节，首次短写时分配
	writeArmed bool         // 是否已注册 EPOLLOUT
	paused     bool         // out 已满，暂停读取
	lastActive time.Time
}

func (c *connection) pending() int {
	if c.out == nil {
		return 0
	}
	return c.out.Len()
}

// onReadable 边缘触发：读到 EAGAIN 为止，每次读到的字节原样回写。
func (s *Server) onReadable(c *connection) error {
	for c.state == connOpen {
		limit := len(s.rbuf)
		if c.pending() > 0 {
			// 已有积压时新数据只能排在队尾，读取量不超过剩余空间
			if free := c.out.Free(); free < limit {
				limit = free
			}
			if limit == 0 {
				if !c.paused {
					c.paused = true
					s.log.Debug().Int("fd", c.fd).Int("pending", c.pending()).Msg("pending buffer full, reading paused")
				}
				return nil
			}
		}

		n, err := unix.Read(c.fd, s.rbuf[:limit])
		if err != nil {
			switch {
			case netutil.IsWouldBlock(err):
				return nil
			case err == unix.EINTR:
				continue
			case netutil.IsPeerGone(err):
				s.closeConn(c, err.Error())
				return nil
			}
			return errors.Wrapf(err, "server: read fd %d", c.fd)
		}
		if n == 0 {
			// 对端关闭写方向；积压数据写完后再关闭
			if c.pending() > 0 {
				c.state = connClosing
				s.log.Debug().Int("fd", c.fd).Int("pending", c.pending()).Msg("peer closed, flushing pending bytes")
				return nil
			}
			s.closeConn(c, "peer closed")
			return nil
		}

		c.lastActive = time.Now()
		s.stats.bytesIn.Add(uint64(n))
		s.log.Debug().Int("fd", c.fd).Int("bytes", n).Msg("read")
		if err := s.echo(c, s.rbuf[:n]); err != nil {
			return err
		}
	}
	return nil
}

// echo 回写 p。无积压时直接写，短写的剩余部分进入 out 并注册可写事件。
func (s *Server) echo(c *connection, p []byte) error {
	if c.pending() > 0 {
		// 保持顺序：积压未清空前不能直接写
		if _, err := c.out.Write(p); err != nil {
			return errors.Wrapf(err, "server: queue fd %d", c.fd)
		}
		return nil
	}
	for len(p) > 0 {
		n, err := unix.Write(c.fd, p)
		if n > 0 {
			s.stats.bytesOut.Add(uint64(n))
			p = p[n:]
		}
		if err != nil {
			switch {
			case netutil.IsWouldBlock(err):
				return s.enqueue(c, p)
			case err == unix.EINTR:
				continue
			case netutil.IsPeerGone(err):
				s.closeConn(c, err.Error())
				return nil
			}
			return errors.Wrapf(err, "server: write fd %d", c.fd)
		}
		if n == 0 {
			return s.enqueue(c, p)
		}
	}
	return nil
}

func (s *Server) enqueue(c *connection, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	if c.out == nil {
		c.out = ring.New(s.cfg.MaxPending)
	}
	if _, err := c.out.Write(p); err != nil {
		return errors.Wrapf(err, "server: queue fd %d", c.fd)
	}
	if !c.writeArmed {
		if err := s.pl.Mod(c.fd, true, true); err != nil {
			return errors.Wrapf(err, "server: arm writable fd %d", c.fd)
		}
		c.writeArmed = true
		s.log.Debug().Int("fd", c.fd).Int("pending", c.pending()).Msg("short write, waiting for writable")
	}
	return nil
}

// onWritable 写出积压数据；清空后撤销可写关注，并补读暂停期间到达的数据。
func (s *Server) onWritable(c *connection) error {
	for c.pending() > 0 {
		n, err := unix.Write(c.fd, c.out.Contiguous())
		if n > 0 {
			c.out.Discard(n)
			c.lastActive = time.Now()
			s.stats.bytesOut.Add(uint64(n))
		}
		if err != nil {
			switch {
			case netutil.IsWouldBlock(err):
				return nil
			case err == unix.EINTR:
				continue
			case netutil.IsPeerGone(err):
				s.closeConn(c, err.Error())
				return nil
			}
			return errors.Wrapf(err, "server: write fd %d", c.fd)
		}
		if n == 0 {
			return nil
		}
	}

	if c.writeArmed {
		if err := s.pl.Mod(c.fd, true, false); err != nil {
			return errors.Wrapf(err, "server: disarm writable fd %d", c.fd)
		}
		c.writeArmed = false
	}
	if c.state == connClosing {
		s.closeConn(c, "peer closed")
		return nil
	}
	if c.paused {
		c.paused = false
		s.log.Debug().Int("fd", c.fd).Msg("pending buffer drained, reading resumed")
	}
	return s.onReadable(c)
}

// closeConn 依次从连接表删除、从 poller 注销、关闭 fd；重复调用无副作用。
func (s *Server) closeConn(c *connection, reason string) {
	if c.state == connClosed {
		return
	}
	c.state = connClosed
	s.conns.remove(c.fd)
	if err := s.pl.Unregister(c.fd); err != nil {
		s.log.Debug().Err(err).Int("fd", c.fd).Msg("unregister")
	}
	if err := c.sock.Close(); err != nil {
		s.log.Warn().Err(err).Int("fd", c.fd).Msg("close")
	}
	s.stats.active.Add(-1)
	s.stats.closed.Add(1)
	ev := s.log.Info().Int("fd", c.fd).Uint64("conn", c.id).Str("reason", reason)
	if dropped := c.pending(); dropped > 0 {
		ev = ev.Int("dropped", dropped)
	}
	ev.Msg("connection closed")
}
