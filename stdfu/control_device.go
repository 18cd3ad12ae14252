package stdfu

// Direction is the transfer direction of a USB control request.
type Direction bool

// Control transfer directions, matching the bmRequestType direction bit.
const (
	DirOut Direction = false
	DirIn  Direction = true
)

// Request numbers used by the DFU/DfuSe class requests this driver
// issues. Index is always the claimed interface number; recipient is
// always Interface and type is always Class (§6).
const (
	ReqDetach    byte = 0
	ReqDnload    byte = 1
	ReqUpload    byte = 2
	ReqGetStatus byte = 3
	ReqClrStatus byte = 4
	ReqGetState  byte = 5
	ReqAbort     byte = 6
)

// dfuFunctionalDescriptorType is the descriptor type byte (0x21) of the
// DFU functional descriptor embedded in the configuration descriptor.
const dfuFunctionalDescriptorType = 0x21

// ControlDevice is the USB control-transfer primitive this engine is
// coded against: a class, interface-recipient control transfer with a
// direction, request code, value, and optional data phase, plus the
// handful of setup calls needed to claim an interface and read its
// descriptors. stdfu/usbdev implements this over google/gousb; tests
// implement it with an in-memory fake.
type ControlDevice interface {
	// Control issues one class, interface-recipient control transfer.
	// For DirOut, data is written to the device and the returned slice
	// is unused; for DirIn, len(data) bytes are requested and the
	// (possibly short) slice actually read is returned.
	Control(dir Direction, request byte, value uint16, data []byte) ([]byte, error)

	// InterfaceNumber returns the claimed interface's number, used as
	// wIndex on every control transfer.
	InterfaceNumber() int

	// FunctionalDescriptor returns the raw bytes of the interface's DFU
	// functional descriptor (type 0x21, 9 bytes) as advertised in the
	// active configuration.
	FunctionalDescriptor() ([]byte, error)

	// MemoryLayoutString returns the alt setting's string descriptor,
	// the source text for ParseMemoryLayout.
	MemoryLayoutString() (string, error)

	// Close releases the claimed interface. Errors are logged by the
	// caller, not propagated.
	Close() error
}
