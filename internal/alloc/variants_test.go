package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolClass(t *testing.T) {
	tests := []struct {
		size      int
		align     int
		wantClass int
		wantOK    bool
	}{
		{1, 1, 0, true},
		{64, 64, 0, true},
		{65, 64, 1, true},
		{128, 8, 1, true},
		{4096, 64, 6, true},
		{1 << 30, 64, maxPoolShift - minPoolShift, true},
		{1<<30 + 1, 64, 0, false},
		{64, 128, 0, false},
	}
	for _, tt := range tests {
		class, ok := poolClass(Layout{Size: tt.size, Align: tt.align})
		assert.Equal(t, tt.wantOK, ok, "size=%d align=%d", tt.size, tt.align)
		if ok {
			assert.Equal(t, tt.wantClass, class, "size=%d align=%d", tt.size, tt.align)
		}
	}
}

func TestPoolReusesBlocks(t *testing.T) {
	p := NewPool()
	l, err := NewLayout(100, 64)
	require.NoError(t, err)

	block, err := p.Alloc(l)
	require.NoError(t, err)
	assert.Len(t, block, 100)
	assert.Equal(t, 128, cap(block), "pool blocks keep their size class capacity")

	// A block of the same class can come back; sync.Pool gives no guarantee, so only
	// the shape of whatever is returned is checked.
	p.Dealloc(block, l)
	again, err := p.Alloc(Layout{Size: 120, Align: 64})
	require.NoError(t, err)
	assert.Len(t, again, 120)
	assert.Equal(t, 128, cap(again))
}

func TestPoolIgnoresForeignBlocks(t *testing.T) {
	p := NewPool()
	l, err := NewLayout(100, 64)
	require.NoError(t, err)

	foreign, err := CPU{}.Alloc(l)
	require.NoError(t, err)

	// Capacity does not match the class: the block is dropped, not pooled.
	p.Dealloc(foreign, l)
	block, err := p.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, 128, cap(block))
}

func TestPoolLargeLayoutBypass(t *testing.T) {
	p := NewPool()
	l, err := NewLayout(256, 4096)
	require.NoError(t, err)

	block, err := p.Alloc(l)
	require.NoError(t, err)
	assert.Len(t, block, 256)
	assert.Zero(t, block.Addr()%4096)
	p.Dealloc(block, l)
}

func TestArenaExhaustionAndReset(t *testing.T) {
	a, err := NewArena(1024)
	require.NoError(t, err)
	assert.Equal(t, 1024, a.Capacity())

	l, err := NewLayout(512, 64)
	require.NoError(t, err)

	b1, err := a.Alloc(l)
	require.NoError(t, err)
	b2, err := a.Alloc(l)
	require.NoError(t, err)
	assert.NotEqual(t, b1.Addr(), b2.Addr())
	assert.Equal(t, 1024, a.Used())

	_, err = a.Alloc(Layout{Size: 1, Align: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBlock)

	a.Reset()
	assert.Equal(t, 0, a.Used())
	assert.Equal(t, 1024, a.Peak())

	b3, err := a.Alloc(l)
	require.NoError(t, err)
	assert.Equal(t, b1.Addr(), b3.Addr(), "reset rewinds the bump pointer")
}

func TestArenaAlignmentPadding(t *testing.T) {
	a, err := NewArena(4096)
	require.NoError(t, err)

	_, err = a.Alloc(Layout{Size: 3, Align: 1})
	require.NoError(t, err)

	block, err := a.Alloc(Layout{Size: 8, Align: 64})
	require.NoError(t, err)
	assert.Zero(t, block.Addr()%64)
	assert.Equal(t, 72, a.Used(), "second block starts at the next 64-byte boundary")
}

func TestNewArenaInvalid(t *testing.T) {
	_, err := NewArena(0)
	assert.ErrorIs(t, err, ErrInvalidLayout)
}

func TestTrackingStats(t *testing.T) {
	tr := NewTracking(CPU{})
	assert.Equal(t, Allocator(CPU{}), tr.Inner())

	l1, err := NewLayout(100, 64)
	require.NoError(t, err)
	l2, err := NewLayout(300, 64)
	require.NoError(t, err)

	b1, err := tr.Alloc(l1)
	require.NoError(t, err)
	b2, err := tr.Alloc(l2)
	require.NoError(t, err)

	s := tr.Stats()
	assert.Equal(t, int64(2), s.Allocs)
	assert.Equal(t, int64(2), s.LiveBlocks)
	assert.Equal(t, int64(400), s.LiveBytes)

	tr.Dealloc(b1, l1)
	tr.Dealloc(b2, l2)

	_, err = tr.Alloc(Layout{Size: 1, Align: 3})
	require.Error(t, err)

	s = tr.Stats()
	assert.Equal(t, int64(2), s.Deallocs)
	assert.Equal(t, int64(1), s.Failures)
	assert.Zero(t, s.LiveBlocks)
	assert.Zero(t, s.LiveBytes)
	assert.Equal(t, int64(400), s.PeakBytes)
}
