package stdfu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransactionExactMultiple(t *testing.T) {
	const xferMax = 1024
	tr := newTransaction(0x08010000, 3*xferMax, xferMax)

	wantTransactions := []uint16{2, 3, 4}
	wantAddresses := []uint32{0x08010000, 0x08010000 + xferMax, 0x08010000 + 2*xferMax}

	for i := 0; i < 3; i++ {
		assert.Equal(t, wantTransactions[i], tr.transaction)
		assert.Equal(t, wantAddresses[i], tr.address)
		assert.Equal(t, uint16(xferMax), tr.xfer)
		tr.advance()
	}
	assert.Equal(t, uint16(0), tr.xfer)
}

func TestTransactionRemainderChunk(t *testing.T) {
	const xferMax = 1024
	tr := newTransaction(0x08010000, xferMax+1, xferMax)

	assert.Equal(t, uint16(2), tr.transaction)
	assert.Equal(t, uint16(xferMax), tr.xfer)
	tr.advance()

	assert.Equal(t, uint16(3), tr.transaction)
	assert.Equal(t, uint16(1), tr.xfer)
	tr.advance()

	assert.Equal(t, uint16(0), tr.xfer)
}
