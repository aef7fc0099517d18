package server

import (
	"errors"

	"github.com/legamerdc/gecho/poller"
)

var (
	// ErrPlatformNotSupported 非 Linux 平台（需要 epoll）
	ErrPlatformNotSupported = poller.ErrPlatformNotSupported

	// ErrInvalidConfig 配置非法
	ErrInvalidConfig = errors.New("server: invalid config")

	// ErrServerClosed Run 在已关闭的 Server 上调用
	ErrServerClosed = errors.New("server: closed")

	// ErrAlreadyRunning Run 被重复调用
	ErrAlreadyRunning = errors.New("server: already running")

	// ErrListenerFault 监听 socket 上报了错误/挂断事件
	ErrListenerFault = errors.New("server: error event on listening socket")

	// ErrDuplicateDescriptor 新连接的 fd 已存在于连接表中
	ErrDuplicateDescriptor = errors.New("server: descriptor already in connection table")
)
