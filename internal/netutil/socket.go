package netutil

import (
	"golang.org/x/sys/unix"
)

// Socket 持有一个文件描述符的所有权。
// Close 只会真正关闭一次，之后的调用返回 nil 且不再触碰该 fd 号（fd 号可能已被内核复用）。
// 非并发安全，调用方需保证在同一 goroutine 中使用。
type Socket struct {
	fd     int
	closed bool
}

// NewSocket 接管 fd 的所有权。
func NewSocket(fd int) *Socket { return &Socket{fd: fd} }

// FD 返回底层描述符；已关闭时返回 -1。
func (s *Socket) FD() int {
	if s.closed {
		return -1
	}
	return s.fd
}

func (s *Socket) Closed() bool { return s.closed }

func (s *Socket) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}

func SetNonblock(fd int, nonblock bool) error {
	return unix.SetNonblock(fd, nonblock)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func SetReusePort(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEPORT, boolInt(enable))
}

func SetReuseAddr(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, boolInt(enable))
}

func SetNoDelay(fd int, enable bool) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, boolInt(enable))
}

func SetRecvBuf(fd int, n int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, n)
}
func SetSendBuf(fd int, n int) error {
	return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, n)
}

// IsWouldBlock 判断是否为非阻塞 IO 的"暂无数据"。
func IsWouldBlock(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}

// IsPeerGone 判断错误是否只代表对端已断开（RST/写已关闭）。
func IsPeerGone(err error) bool {
	return err == unix.ECONNRESET || err == unix.EPIPE || err == unix.ETIMEDOUT
}
