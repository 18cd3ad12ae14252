package stdfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDfuDescriptor(t *testing.T) {
	buf := []byte{0x09, 0x21, 0x0B, 0xFF, 0x00, 0x00, 0x04, 0x10, 0x01}
	d, err := ParseDfuDescriptor(buf)
	require.NoError(t, err)
	assert.Equal(t, byte(0x0B), d.Attributes)
	assert.Equal(t, uint16(0x00FF), d.DetachTimeout)
	assert.Equal(t, uint16(0x0400), d.TransferSize)
	assert.Equal(t, byte(0x01), d.DfuVersion)
}

func TestParseDfuDescriptorWrongLength(t *testing.T) {
	_, err := ParseDfuDescriptor([]byte{0x09, 0x21})
	require.Error(t, err)
}

func TestParseDfuDescriptorWrongType(t *testing.T) {
	buf := []byte{0x09, 0x04, 0x0B, 0xFF, 0x00, 0x00, 0x04, 0x10, 0x01}
	_, err := ParseDfuDescriptor(buf)
	require.Error(t, err)
}
