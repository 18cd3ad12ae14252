package stdfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemoryLayoutTwoPages(t *testing.T) {
	m, err := ParseMemoryLayout("/0x08001000/02*16K")
	require.NoError(t, err)

	pages := m.Pages()
	require.Len(t, pages, 2)
	assert.Equal(t, Page{Address: 0x08001000, Size: 16384}, pages[0])
	assert.Equal(t, Page{Address: 0x08005000, Size: 16384}, pages[1])
}

func TestParseMemoryLayoutThreePages(t *testing.T) {
	m := mustLayout(t)

	pages := m.Pages()
	require.Len(t, pages, 3)
	assert.Equal(t, Page{Address: 0x08010000, Size: 16384}, pages[0])
	assert.Equal(t, Page{Address: 0x08014000, Size: 16384}, pages[1])
	assert.Equal(t, Page{Address: 0x08018000, Size: 65536}, pages[2])
}

func TestParseMemoryLayoutInvalid(t *testing.T) {
	_, err := ParseMemoryLayout("garbage")
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindMemoryLayout, e.Kind)
}

func TestMemoryLayoutAddress(t *testing.T) {
	m := mustLayout(t)

	p, err := m.Address(0x08010100)
	require.NoError(t, err)
	assert.Equal(t, Page{Address: 0x08010000, Size: 16384}, p)

	p, err = m.Address(0x08018001)
	require.NoError(t, err)
	assert.Equal(t, Page{Address: 0x08018000, Size: 65536}, p)

	_, err = m.Address(0x08027FFF)
	require.NoError(t, err)

	_, err = m.Address(0x08028000)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindAddress, e.Kind)

	_, err = m.Address(0x08000000)
	require.Error(t, err)
}

func TestMemoryLayoutNumPages(t *testing.T) {
	m := mustLayout(t)

	cases := []struct {
		start, length uint32
		want          int
	}{
		{0x08010000, 0x4000, 1},
		{0x08010000, 0x4001, 2},
		{0x08010000, 0xFFFF, 3},
		{0x08014000, 0x8000, 2},
	}
	for _, c := range cases {
		n, err := m.NumPages(c.start, c.length)
		require.NoError(t, err)
		assert.Equal(t, c.want, n, "NumPages(0x%08X, 0x%X)", c.start, c.length)
	}
}

// TestErasePagesPageCountMatchesWalk documents a known discrepancy in
// NumPages: ErasePages counts pages from the caller's raw address, not
// from the page-aligned base it erases from. For a request that starts
// a few bytes before the end of a page, counting from the caller's
// address walks one extra page that counting from the realigned base
// would not have seen.
func TestErasePagesPageCountMatchesWalk(t *testing.T) {
	m := mustLayout(t)

	rawAddr := uint32(0x08010000 + 16374)
	n, err := m.NumPages(rawAddr, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	alignedAddr := uint32(0x08010000)
	n, err = m.NumPages(alignedAddr, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func mustLayout(t *testing.T) MemoryLayout {
	t.Helper()
	m, err := ParseMemoryLayout("/0x08010000/02*16K,01*64K")
	require.NoError(t, err)
	return m
}
