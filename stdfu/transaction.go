package stdfu

// transaction walks one logical download/upload job as a sequence of
// chunks bounded by the device's reported transfer size, advancing the
// DfuSe transaction counter (which starts at 2, since DfuSe reserves 0
// and 1 for command and status exchanges) as it goes.
//
// Usage: construct with newTransaction, then loop "for t.xfer > 0 { ...
// use t.transaction/t.address/t.xfer ...; t.advance() }".
type transaction struct {
	transaction uint16
	address     uint32
	pending     uint32
	xfer        uint16
	xferMax     uint16
}

func newTransaction(address uint32, pending uint32, xferMax uint16) *transaction {
	t := &transaction{
		transaction: 2,
		address:     address,
		pending:     pending,
		xfer:        xferMax,
		xferMax:     xferMax,
	}
	t.setXfer()
	return t
}

// setXfer computes the next chunk size from pending, capping at xferMax.
func (t *transaction) setXfer() {
	if t.pending >= uint32(t.xferMax) {
		t.xfer = t.xferMax
		t.pending -= uint32(t.xferMax)
	} else {
		t.xfer = uint16(t.pending)
		t.pending = 0
	}
}

// advance moves past the chunk just processed: the address steps by the
// chunk size just emitted, the transaction counter increments, and the
// next chunk size is computed (which may be 0 if pending is exhausted,
// the loop's termination signal).
func (t *transaction) advance() {
	t.address += uint32(t.xfer)
	t.transaction++
	t.setXfer()
}
