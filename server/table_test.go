//go:build linux

package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnTable(t *testing.T) {
	tb := newConnTable()
	a, b, c := &connection{fd: 10}, &connection{fd: 11}, &connection{fd: 12}
	require.True(t, tb.add(a))
	require.True(t, tb.add(b))
	require.True(t, tb.add(c))
	assert.Equal(t, 3, tb.len())

	// 同一 fd 不能出现两次
	assert.False(t, tb.add(&connection{fd: 11}))
	assert.Same(t, b, tb.lookup(11))

	// 删除中间元素后，末尾元素的下标需要更新
	assert.Same(t, a, tb.remove(10))
	assert.Nil(t, tb.lookup(10))
	assert.Same(t, c, tb.lookup(12))
	assert.Same(t, b, tb.lookup(11))
	assert.Equal(t, 2, tb.len())

	assert.Nil(t, tb.remove(10))

	snap := tb.snapshot()
	require.Len(t, snap, 2)
	for _, x := range snap {
		tb.remove(x.fd)
	}
	assert.Zero(t, tb.len())
	assert.Len(t, snap, 2)
}
