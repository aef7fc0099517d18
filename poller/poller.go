package poller

import (
	"errors"
	"time"
)

// FD 表示文件描述符。
type FD = int

// ErrPlatformNotSupported 当前平台没有可用的就绪通知机制。
var ErrPlatformNotSupported = errors.New("poller: platform not supported (requires Linux/epoll)")

// Event 为一次 Wait 返回的单个就绪事件。
// Err 对应 EPOLLERR/EPOLLHUP，出现时调用方不应再关心 Readable/Writable。
type Event struct {
	FD       FD
	Readable bool
	Writable bool
	Err      bool
}

// Poller 提供注册与就绪等待，全部注册均为边缘触发。
// 除 Wake 外，所有方法只允许在事件循环所在 goroutine 调用。
type Poller interface {
	Register(fd FD, readable, writable bool) error
	Mod(fd FD, readable, writable bool) error
	Unregister(fd FD) error
	// Wait 最多阻塞 timeout，返回写入 events 的事件数。
	// 超时或被信号打断时返回 0, nil。
	Wait(events []Event, timeout time.Duration) (int, error)
	Wake() error
	Close() error
}
