package stdfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatusOK(t *testing.T) {
	buf := []byte{0x00, 0x01, 0x02, 0x03, 0x02, 0x00}
	s, err := ParseStatus(buf)
	require.NoError(t, err)
	assert.True(t, s.OK())
	assert.Equal(t, DfuIdle, s.State)
	// poll_timeout is combined MSB-first: (b1<<16)|(b2<<8)|b3.
	assert.Equal(t, uint32(0x010203), s.PollTimeout)
}

func TestParseStatusError(t *testing.T) {
	buf := []byte{0x05, 0x00, 0x00, 0x00, 0x0A, 0x03}
	s, err := ParseStatus(buf)
	require.NoError(t, err)
	assert.False(t, s.OK())
	assert.Equal(t, DfuError, s.State)
}

func TestParseStatusWrongLength(t *testing.T) {
	_, err := ParseStatus([]byte{1, 2, 3})
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindInvalidControlResponse, e.Kind)
}
