package server

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

const (
	// DefaultPort 为默认监听端口
	DefaultPort = 42483

	// EnvPort 设置后覆盖配置文件中的端口
	EnvPort = "GECHO_PORT"
)

// Config 为服务端配置，零值字段在 New 中会被替换为默认值。
type Config struct {
	Network        string        `ini:"network"`          // tcp / tcp4 / tcp6
	Host           string        `ini:"host"`             // 空串表示通配地址
	Port           int           `ini:"port"`             // 0 表示由内核分配
	Backlog        int           `ini:"backlog"`          // listen 队列长度
	MaxEvents      int           `ini:"max_events"`       // 单次 wait 取回的最大事件数
	PollTimeout    time.Duration `ini:"poll_timeout"`     // wait 超时
	ReadBufferSize int           `ini:"read_buffer_size"` // 单次 read 的最大字节数
	MaxPending     int           `ini:"max_pending"`      // 每连接待回写字节上限
	IdleTimeout    time.Duration `ini:"idle_timeout"`     // 0 表示不做空闲检测
	ReusePort      bool          `ini:"reuse_port"`
	NoDelay        bool          `ini:"no_delay"`
	RecvBuffer     int           `ini:"recv_buffer"` // 0 表示使用系统默认
	SendBuffer     int           `ini:"send_buffer"`
}

// DefaultConfig 提供一组可工作的默认值
func DefaultConfig() Config {
	return Config{
		Network:        "tcp",
		Port:           DefaultPort,
		Backlog:        128,
		MaxEvents:      128,
		PollTimeout:    10 * time.Millisecond,
		ReadBufferSize: 1024,
		MaxPending:     64 << 10, // 64 KiB
		ReusePort:      true,
		NoDelay:        true,
	}
}

// withDefaults 将未设置的数值字段替换为默认值；Port 与布尔字段保持原样。
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Network == "" {
		c.Network = d.Network
	}
	if c.Backlog == 0 {
		c.Backlog = d.Backlog
	}
	if c.MaxEvents == 0 {
		c.MaxEvents = d.MaxEvents
	}
	if c.PollTimeout == 0 {
		c.PollTimeout = d.PollTimeout
	}
	if c.ReadBufferSize == 0 {
		c.ReadBufferSize = d.ReadBufferSize
	}
	if c.MaxPending == 0 {
		c.MaxPending = d.MaxPending
	}
	return c
}

// Validate 校验配置
func (c Config) Validate() error {
	switch c.Network {
	case "tcp", "tcp4", "tcp6":
	default:
		return errors.Wrapf(ErrInvalidConfig, "network %q", c.Network)
	}
	if c.Port < 0 || c.Port > 65535 {
		return errors.Wrapf(ErrInvalidConfig, "port %d", c.Port)
	}
	if c.Backlog <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "backlog %d", c.Backlog)
	}
	if c.MaxEvents <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "max_events %d", c.MaxEvents)
	}
	// epoll_wait 以毫秒计，不足 1ms 会退化为非阻塞轮询
	if c.PollTimeout < time.Millisecond {
		return errors.Wrapf(ErrInvalidConfig, "poll_timeout %s below 1ms", c.PollTimeout)
	}
	if c.ReadBufferSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "read_buffer_size %d", c.ReadBufferSize)
	}
	if c.MaxPending < c.ReadBufferSize {
		return errors.Wrapf(ErrInvalidConfig, "max_pending %d smaller than read_buffer_size %d", c.MaxPending, c.ReadBufferSize)
	}
	if c.IdleTimeout < 0 {
		return errors.Wrapf(ErrInvalidConfig, "idle_timeout %s", c.IdleTimeout)
	}
	if c.RecvBuffer < 0 || c.SendBuffer < 0 {
		return errors.Wrapf(ErrInvalidConfig, "socket buffers %d/%d", c.RecvBuffer, c.SendBuffer)
	}
	return nil
}

// LoadConfigFile 从 ini 文件的 [server] 段加载配置，文件中缺省的键保持 cfg 原值。
// 环境变量 GECHO_PORT 非空时覆盖端口。
func LoadConfigFile(path string, cfg *Config) error {
	f, err := ini.Load(path)
	if err != nil {
		return errors.Wrapf(err, "server: load config %s", path)
	}
	if err := f.Section("server").MapTo(cfg); err != nil {
		return errors.Wrapf(err, "server: map config %s", path)
	}
	return overrideFromEnvInt(&cfg.Port, EnvPort)
}

func overrideFromEnvInt(target *int, envName string) error {
	v := os.Getenv(envName)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return errors.Wrapf(ErrInvalidConfig, "%s=%q", envName, v)
	}
	*target = n
	return nil
}
