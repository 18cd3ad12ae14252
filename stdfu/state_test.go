package stdfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateFromByte(t *testing.T) {
	assert.Equal(t, DfuIdle, StateFromByte(2))
	assert.Equal(t, DfuError, StateFromByte(10))
	assert.Equal(t, Unknown, StateFromByte(200))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dfuIDLE", DfuIdle.String())
	assert.Equal(t, "dfuERROR", DfuError.String())
	assert.Contains(t, Unknown.String(), "unknown")
}

func TestStateByteRoundTrip(t *testing.T) {
	for b := byte(0); b < 11; b++ {
		s := StateFromByte(b)
		assert.Equal(t, b, s.Byte())
	}
}
