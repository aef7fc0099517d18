package server

import "sync/atomic"

// Stats 为运行时计数快照
type Stats struct {
	Active   int64  // 当前连接表大小
	Accepted uint64 // 累计 accept 成功次数
	Closed   uint64 // 累计关闭的连接数
	BytesIn  uint64
	BytesOut uint64
}

// counters 由事件循环写入，任意 goroutine 读取
type counters struct {
	active   atomic.Int64
	accepted atomic.Uint64
	closed   atomic.Uint64
	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Active:   c.active.Load(),
		Accepted: c.accepted.Load(),
		Closed:   c.closed.Load(),
		BytesIn:  c.bytesIn.Load(),
		BytesOut: c.bytesOut.Load(),
	}
}
