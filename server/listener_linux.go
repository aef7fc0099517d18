//go:build linux

package server

import (
	"context"
	"net"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/legamerdc/gecho/internal/netutil"
)

// openListener 按 cfg 创建已绑定、已监听的非阻塞 socket，返回实际绑定地址。
// 任意一步失败都会关闭已创建的 fd。
func openListener(ctx context.Context, cfg Config) (*netutil.Socket, *net.TCPAddr, error) {
	ip, err := netutil.ResolveBind(ctx, cfg.Network, cfg.Host, cfg.Port)
	if err != nil {
		return nil, nil, errors.Wrap(err, "server: resolve")
	}
	sa, fam := netutil.Sockaddr(ip, cfg.Port)

	fd, err := unix.Socket(fam, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.IPPROTO_TCP)
	if err != nil {
		return nil, nil, errors.Wrap(err, "server: socket")
	}
	sock := netutil.NewSocket(fd)
	fail := func(err error, op string) (*netutil.Socket, *net.TCPAddr, error) {
		_ = sock.Close()
		return nil, nil, errors.Wrap(err, op)
	}

	if err := netutil.SetReuseAddr(fd, true); err != nil {
		return fail(err, "server: setsockopt(SO_REUSEADDR)")
	}
	if cfg.ReusePort {
		if err := netutil.SetReusePort(fd, true); err != nil {
			return fail(err, "server: setsockopt(SO_REUSEPORT)")
		}
	}
	if fam == unix.AF_INET6 && cfg.Network == "tcp6" {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1); err != nil {
			return fail(err, "server: setsockopt(IPV6_V6ONLY)")
		}
	}
	if err := unix.Bind(fd, sa); err != nil {
		return fail(err, "server: bind")
	}
	if err := netutil.SetNonblock(fd, true); err != nil {
		return fail(err, "server: set nonblock")
	}
	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		return fail(err, "server: listen")
	}

	// 端口为 0 时取回内核分配的端口
	bound, err := unix.Getsockname(fd)
	if err != nil {
		return fail(err, "server: getsockname")
	}
	addr := netutil.TCPAddr(bound)
	if addr == nil {
		return fail(unix.EAFNOSUPPORT, "server: getsockname")
	}
	return sock, addr, nil
}
