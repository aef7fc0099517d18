package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundsUpToPowerOfTwo(t *testing.T) {
	assert.Equal(t, 1024, New(1000).Cap())
	assert.Equal(t, 1024, New(1024).Cap())
	assert.Equal(t, 1, New(0).Cap())
}

func TestWriteRejectsOverflowAtomically(t *testing.T) {
	b := New(8)
	n, err := b.Write([]byte("abcdef"))
	require.NoError(t, err)
	require.Equal(t, 6, n)

	n, err = b.Write([]byte("xyz"))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Zero(t, n)
	assert.Equal(t, 6, b.Len())
	assert.Equal(t, 2, b.Free())
}

// drain 按 Contiguous 分段取出全部数据
func drain(b *Buffer) []byte {
	var out []byte
	for b.Len() > 0 {
		seg := b.Contiguous()
		out = append(out, seg...)
		b.Discard(len(seg))
	}
	return out
}

func TestWrapAround(t *testing.T) {
	b := New(8)
	_, err := b.Write([]byte("012345"))
	require.NoError(t, err)
	assert.Equal(t, 4, b.Discard(4))

	// 写入跨越尾部，且写起点靠近尾部
	_, err = b.Write([]byte("6789ab"))
	require.NoError(t, err)
	assert.Zero(t, b.Free())

	assert.Equal(t, []byte("4567"), b.Contiguous())
	b.Discard(len(b.Contiguous()))
	assert.Equal(t, []byte("89ab"), b.Contiguous())
	b.Discard(4)
	assert.Zero(t, b.Len())
	assert.Nil(t, b.Contiguous())
}

func TestWrapNearTail(t *testing.T) {
	b := New(8)
	_, err := b.Write([]byte("0123456"))
	require.NoError(t, err)
	b.Discard(6)

	// 写起点为 7，只有 1 字节在尾部，其余回绕到头部
	_, err = b.Write([]byte("abcdefg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("6abcdefg"), drain(b))
}

func TestPartialDrainKeepsOrder(t *testing.T) {
	b := New(64)
	var want, got []byte
	var next byte
	for round := 0; round < 500; round++ {
		n := 0
		if free := b.Free(); free > 0 {
			n = (round*7)%free + 1
		}
		chunk := make([]byte, n)
		for i := range chunk {
			chunk[i] = next
			next++
		}
		_, err := b.Write(chunk)
		require.NoError(t, err)
		want = append(want, chunk...)

		// 每轮只取走一部分，使写起点落在任意位置
		seg := b.Contiguous()
		take := len(seg) / 2
		if round%3 == 0 {
			take = len(seg)
		}
		got = append(got, seg[:take]...)
		b.Discard(take)
	}
	got = append(got, drain(b)...)
	assert.Equal(t, want, got)
}

func TestDiscardClamps(t *testing.T) {
	b := New(4)
	_, err := b.Write([]byte("ab"))
	require.NoError(t, err)
	assert.Equal(t, 2, b.Discard(10))
	assert.Zero(t, b.Len())
	assert.Equal(t, 4, b.Free())
}
