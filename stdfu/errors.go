// Package stdfu implements the host side of the USB DFU protocol and its
// STMicroelectronics DfuSe vendor extension: state tracking, transaction
// sequencing, memory layout parsing, and the erase/download/upload/verify
// command sequences that drive a device through its state machine.
package stdfu

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies one of the error conditions the engine can report.
// Every Kind maps to a process exit code via ExitCode.
type Kind int

const (
	// KindDeviceNotFound means enumeration produced no matching device.
	KindDeviceNotFound Kind = iota
	// KindArgument means a caller-supplied argument was invalid.
	KindArgument
	// KindInvalidControlResponse means a control-IN reply was not the
	// expected size or shape.
	KindInvalidControlResponse
	// KindInvalidState means the device never reached the required state.
	KindInvalidState
	// KindInvalidStatus means the state was correct but bStatus was nonzero.
	KindInvalidStatus
	// KindUSB means a low-level USB transfer failed.
	KindUSB
	// KindFileIO means a host-side file operation failed.
	KindFileIO
	// KindUnknownCommandByte means a DfuSe opcode byte was not recognized.
	KindUnknownCommandByte
	// KindAddress means the requested address has no owning page.
	KindAddress
	// KindVerify means a verify pass found a mismatching byte.
	KindVerify
	// KindMemoryLayout means the memory layout descriptor string failed to parse.
	KindMemoryLayout
)

// Error is the single error type returned from this package. It carries
// enough structure for callers to branch on Kind (e.g. to pick an exit
// code) while still composing with errors.Wrap/errors.Cause.
type Error struct {
	Kind    Kind
	Status  *Status
	Expect  interface{}
	Address uint32
	Byte    byte
	msg     string
	cause   error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDeviceNotFound:
		return fmt.Sprintf("device not found: %s", e.msg)
	case KindArgument:
		return fmt.Sprintf("argument: %s", e.msg)
	case KindInvalidControlResponse:
		return fmt.Sprintf("invalid control response: %s", e.msg)
	case KindInvalidState:
		return fmt.Sprintf("invalid state, got status:\n%s\nexpected state: %v", e.Status, e.Expect)
	case KindInvalidStatus:
		return fmt.Sprintf("invalid status, got status:\n%s\nexpected status: %v", e.Status, e.Expect)
	case KindUSB:
		if e.cause != nil {
			return fmt.Sprintf("USB %s failed: %s", e.msg, e.cause)
		}
		return fmt.Sprintf("USB %s failed", e.msg)
	case KindFileIO:
		return fmt.Sprintf("file I/O: %s", e.cause)
	case KindUnknownCommandByte:
		return fmt.Sprintf("unknown command byte: 0x%02X", e.Byte)
	case KindAddress:
		return fmt.Sprintf("address 0x%08X not supported", e.Address)
	case KindVerify:
		return fmt.Sprintf("verify failed at address 0x%08X", e.Address)
	case KindMemoryLayout:
		return fmt.Sprintf("could not parse memory layout from %q", e.msg)
	default:
		return e.msg
	}
}

// Unwrap lets errors.Is/errors.As see through to the underlying transfer
// or I/O failure, if any.
func (e *Error) Unwrap() error { return e.cause }

// ExitCode maps the error's Kind to the process exit code table.
func (e *Error) ExitCode() int {
	switch e.Kind {
	case KindDeviceNotFound:
		return 64
	case KindArgument:
		return 65
	case KindUSB:
		return 66
	case KindInvalidControlResponse:
		return 68
	case KindInvalidState:
		return 69
	case KindInvalidStatus:
		return 70
	case KindFileIO:
		return 71
	case KindUnknownCommandByte:
		return 72
	case KindAddress:
		return 73
	case KindVerify:
		return 74
	case KindMemoryLayout:
		return 75
	default:
		return 1
	}
}

func errDeviceNotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindDeviceNotFound, msg: fmt.Sprintf(format, args...)}
}

func errArgument(format string, args ...interface{}) error {
	return &Error{Kind: KindArgument, msg: fmt.Sprintf(format, args...)}
}

// NewDeviceNotFoundError lets collaborators outside this package (the
// usbdev adapter, the CLI) report a DeviceNotFound failure without
// reaching into unexported constructors.
func NewDeviceNotFoundError(format string, args ...interface{}) error {
	return errDeviceNotFound(format, args...)
}

// NewArgumentError lets collaborators outside this package report an
// Argument failure.
func NewArgumentError(format string, args ...interface{}) error {
	return errArgument(format, args...)
}

// NewUSBError lets collaborators outside this package wrap a low-level
// transfer failure as a USB Error.
func NewUSBError(context string, cause error) error {
	return errUSB(context, cause)
}

// NewFileIOError lets collaborators outside this package (the CLI,
// opening/stat-ing the caller's firmware file) report a FileIO failure.
func NewFileIOError(cause error) error {
	return errFileIO(cause)
}

func errInvalidControlResponse(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidControlResponse, msg: fmt.Sprintf(format, args...)}
}

func errInvalidState(s Status, expect State) error {
	return &Error{Kind: KindInvalidState, Status: &s, Expect: expect}
}

func errInvalidStatus(s Status, expect byte) error {
	return &Error{Kind: KindInvalidStatus, Status: &s, Expect: expect}
}

func errUSB(context string, cause error) error {
	return &Error{Kind: KindUSB, msg: context, cause: errors.Wrap(cause, context)}
}

func errFileIO(cause error) error {
	return &Error{Kind: KindFileIO, cause: errors.WithStack(cause)}
}

func errUnknownCommandByte(b byte) error {
	return &Error{Kind: KindUnknownCommandByte, Byte: b}
}

func errAddress(addr uint32) error {
	return &Error{Kind: KindAddress, Address: addr}
}

func errVerify(addr uint32) error {
	return &Error{Kind: KindVerify, Address: addr}
}

func errMemoryLayout(format string, args ...interface{}) error {
	return &Error{Kind: KindMemoryLayout, msg: fmt.Sprintf(format, args...)}
}

// IsEPIPE reports whether err represents a USB broken-pipe (stall)
// condition, the signal the protocol uses for both "expected stall on
// DNLOAD" and "transient status-read hiccup". Uses errors.Is rather
// than errors.Cause: the sentinel is typically reached through a chain
// of *Error.Unwrap and pkg/errors' own withMessage/withStack Unwrap,
// and Cause only follows a Cause() interface that *Error doesn't
// implement.
func IsEPIPE(err error) bool {
	return errors.Is(err, ErrEPIPE)
}

// ErrStall is returned by a ControlDevice implementation's Control method
// when the device stalls the endpoint. It is a sentinel so callers (and
// this package's retry logic) can detect it with errors.Is regardless of
// how the underlying USB library surfaces EPIPE.
var ErrStall = errors.New("usb: endpoint stalled")

// ErrEPIPE is an alias kept for the GET_STATUS retry path, which treats a
// stall on the status endpoint identically to ErrStall on DNLOAD.
var ErrEPIPE = ErrStall
