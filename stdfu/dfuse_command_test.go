package stdfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDfuseCommandEncode(t *testing.T) {
	assert.Equal(t, []byte{0x21, 0x00, 0x00, 0x01, 0x08}, SetAddress(0x08010000).Encode())
	assert.Equal(t, []byte{0x41, 0x00, 0x40, 0x01, 0x08}, ErasePage(0x08014000).Encode())
	assert.Equal(t, []byte{0x41}, MassErase().Encode())
	assert.Equal(t, []byte{0x92}, ReadUnprotected().Encode())
}

func TestDecodeCommandByte(t *testing.T) {
	c, err := DecodeCommandByte(0x21)
	require.NoError(t, err)
	assert.Equal(t, SetAddress(0), c)

	c, err = DecodeCommandByte(0x41)
	require.NoError(t, err)
	assert.Equal(t, MassErase(), c)

	c, err = DecodeCommandByte(0x92)
	require.NoError(t, err)
	assert.Equal(t, ReadUnprotected(), c)

	_, err = DecodeCommandByte(0xFF)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindUnknownCommandByte, e.Kind)
}
