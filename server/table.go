//go:build linux

package server

// connTable 为 fd -> 连接的集合：map 存下标，切片稠密存储，删除时与末尾交换。
// 只在事件循环 goroutine 中访问，不加锁。
type connTable struct {
	index  map[int]int
	states []*connection
}

func newConnTable() *connTable {
	return &connTable{index: make(map[int]int), states: make([]*connection, 0, 64)}
}

func (t *connTable) len() int { return len(t.states) }

func (t *connTable) lookup(fd int) *connection {
	if idx, ok := t.index[fd]; ok {
		return t.states[idx]
	}
	return nil
}

// add 插入连接；fd 已存在时返回 false 且不做修改。
func (t *connTable) add(c *connection) bool {
	if _, ok := t.index[c.fd]; ok {
		return false
	}
	t.index[c.fd] = len(t.states)
	t.states = append(t.states, c)
	return true
}

// remove 删除并返回 fd 对应的连接，不存在时返回 nil。
func (t *connTable) remove(fd int) *connection {
	idx, ok := t.index[fd]
	if !ok {
		return nil
	}
	c := t.states[idx]
	last := len(t.states) - 1
	t.states[idx] = t.states[last]
	t.states[last] = nil
	t.states = t.states[:last]
	if idx < len(t.states) {
		t.index[t.states[idx].fd] = idx
	}
	delete(t.index, fd)
	return c
}

// snapshot 返回当前连接的拷贝，遍历过程中可安全地 remove。
func (t *connTable) snapshot() []*connection {
	out := make([]*connection, len(t.states))
	copy(out, t.states)
	return out
}
