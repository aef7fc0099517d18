package client

import (
	"context"
	"io"
	"net"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Client 为阻塞式回显客户端。Write 与 Read 可以分别在两个 goroutine 中并发调用。
type Client struct {
	conn net.Conn
	mu   sync.Mutex // 串行化写
}

// Dial 连接回显服务端；timeout<=0 时只受 ctx 约束。
func Dial(ctx context.Context, network, address string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	nc, err := d.DialContext(ctx, network, address)
	if err != nil {
		return nil, errors.Wrapf(err, "client: dial %s", address)
	}
	return &Client{conn: nc}, nil
}

// Conn 返回底层连接
func (c *Client) Conn() net.Conn { return c.conn }

func (c *Client) LocalAddr() net.Addr { return c.conn.LocalAddr() }

// Write 完整写出 p
func (c *Client) Write(p []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(p) > 0 {
		n, err := c.conn.Write(p)
		if err != nil {
			return errors.Wrap(err, "client: write")
		}
		p = p[n:]
	}
	return nil
}

// ReadFull 读满 p
func (c *Client) ReadFull(p []byte) error {
	if _, err := io.ReadFull(c.conn, p); err != nil {
		return errors.Wrap(err, "client: read")
	}
	return nil
}

// Read 读取一次，返回读到的字节数
func (c *Client) Read(p []byte) (int, error) { return c.conn.Read(p) }

// Echo 发送 p 并等待收回同样长度的数据。
// 载荷较大时并发读写，避免双方 socket 缓冲都被占满后互相等待。
func (c *Client) Echo(p []byte, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			return nil, errors.Wrap(err, "client: set deadline")
		}
		defer c.conn.SetDeadline(time.Time{})
	}
	werr := make(chan error, 1)
	go func() { werr <- c.Write(p) }()

	got := make([]byte, len(p))
	rerr := c.ReadFull(got)
	if err := <-werr; err != nil {
		return nil, err
	}
	if rerr != nil {
		return nil, rerr
	}
	return got, nil
}

// CloseWrite 半关闭：通知服务端不再发送数据。
func (c *Client) CloseWrite() error {
	if tc, ok := c.conn.(interface{ CloseWrite() error }); ok {
		return tc.CloseWrite()
	}
	return c.conn.Close()
}

func (c *Client) Close() error { return c.conn.Close() }
