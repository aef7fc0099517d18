package netutil

import (
	"context"
	"net"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ResolveBind 解析本地绑定地址。host 为空时返回通配地址：
// "tcp6" 取 ::，其余取 0.0.0.0；否则取解析器返回的第一个与 network 匹配的地址。
func ResolveBind(ctx context.Context, network, host string, port int) (net.IP, error) {
	want6 := strings.HasSuffix(network, "6")
	want4 := strings.HasSuffix(network, "4")
	if host == "" {
		// 与 getaddrinfo(AI_PASSIVE) 的常见顺序一致：未指定 tcp6 时优先 IPv4 通配地址
		if want6 {
			return net.IPv6unspecified, nil
		}
		return net.IPv4zero, nil
	}
	if ip := net.ParseIP(host); ip != nil {
		if (want4 && ip.To4() == nil) || (want6 && ip.To4() != nil) {
			return nil, errors.Errorf("netutil: address %s does not match network %s", host, network)
		}
		return ip, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		is4 := a.IP.To4() != nil
		if (want4 && !is4) || (want6 && is4) {
			continue
		}
		return a.IP, nil
	}
	return nil, errors.Errorf("netutil: no %s address for %q", network, host)
}

// Sockaddr 将 IP+端口转换为 unix.Sockaddr，同时返回地址族。
func Sockaddr(ip net.IP, port int) (unix.Sockaddr, int) {
	if ip4 := ip.To4(); ip4 != nil {
		var sa4 unix.SockaddrInet4
		copy(sa4.Addr[:], ip4)
		sa4.Port = port
		return &sa4, unix.AF_INET
	}
	var sa6 unix.SockaddrInet6
	copy(sa6.Addr[:], ip.To16())
	sa6.Port = port
	return &sa6, unix.AF_INET6
}

// TCPAddr 将 unix.Sockaddr 转回 *net.TCPAddr，不认识的类型返回 nil。
func TCPAddr(sa unix.Sockaddr) *net.TCPAddr {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}
	case *unix.SockaddrInet6:
		return &net.TCPAddr{IP: net.IP(append([]byte(nil), a.Addr[:]...)), Port: a.Port}
	}
	return nil
}
