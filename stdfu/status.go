package stdfu

import "fmt"

// statusReplyLen is the fixed length of a GET_STATUS control-IN reply.
const statusReplyLen = 6

// Status is the immutable, decoded form of a 6-byte GET_STATUS reply.
type Status struct {
	// Status is bStatus: 0 means OK, nonzero is a device-reported error code.
	Status byte
	// PollTimeout is bwPollTimeout in milliseconds, the delay the device
	// asks the host to wait before the next GET_STATUS.
	PollTimeout uint32
	// State is the device's reported state.
	State State
	// StringIndex references a string descriptor describing the error, if any.
	StringIndex byte
}

// ParseStatus decodes a 6-byte GET_STATUS reply. It fails with
// KindInvalidControlResponse if buf is not exactly 6 bytes.
//
// The three poll-timeout bytes are combined MSB-first as
// (buf[1]<<16)|(buf[2]<<8)|buf[3], matching the wire layout this
// driver's protocol peers actually use, not the USB DFU spec's literal
// little-endian bwPollTimeout; see §4.2 for the rationale.
func ParseStatus(buf []byte) (Status, error) {
	if len(buf) != statusReplyLen {
		return Status{}, errInvalidControlResponse("status length was %d, want %d", len(buf), statusReplyLen)
	}
	return Status{
		Status:      buf[0],
		PollTimeout: uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]),
		State:       StateFromByte(buf[4]),
		StringIndex: buf[5],
	}, nil
}

// String renders the status for log lines and InvalidState/InvalidStatus
// error messages.
func (s Status) String() string {
	return fmt.Sprintf("status: %d, poll_timeout: %dms, state: %s, string_index: %d",
		s.Status, s.PollTimeout, s.State, s.StringIndex)
}

// OK reports whether the device-reported status byte indicates no error.
func (s Status) OK() bool { return s.Status == 0 }
