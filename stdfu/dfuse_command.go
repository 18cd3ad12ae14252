package stdfu

import "fmt"

// commandKind discriminates the four DfuSe command payload shapes.
type commandKind int

const (
	cmdSetAddress commandKind = iota
	cmdErasePage
	cmdMassErase
	cmdReadUnprotected
)

// Opcodes for the DfuSe command payloads, sent as DNLOAD data with
// transaction 0.
const (
	opSetAddress      byte = 0x21
	opErasePageOrMass byte = 0x41
	opReadUnprotected byte = 0x92
)

// DfuseCommand is one of the four DfuSe command payloads: SetAddress,
// ErasePage, MassErase, or ReadUnprotected. Go has no tagged-union sum
// type, so this is rendered as a small value type with constructor
// functions standing in for the variants.
type DfuseCommand struct {
	kind    commandKind
	address uint32
}

// SetAddress builds the SetAddress(address) command.
func SetAddress(address uint32) DfuseCommand {
	return DfuseCommand{kind: cmdSetAddress, address: address}
}

// ErasePage builds the ErasePage(address) command.
func ErasePage(address uint32) DfuseCommand {
	return DfuseCommand{kind: cmdErasePage, address: address}
}

// MassErase builds the MassErase command.
func MassErase() DfuseCommand {
	return DfuseCommand{kind: cmdMassErase}
}

// ReadUnprotected builds the ReadUnprotected command.
func ReadUnprotected() DfuseCommand {
	return DfuseCommand{kind: cmdReadUnprotected}
}

// Encode serializes the command to its wire bytes: one opcode byte,
// followed by a little-endian uint32 address for SetAddress/ErasePage.
func (c DfuseCommand) Encode() []byte {
	switch c.kind {
	case cmdSetAddress:
		return encodeWithAddress(opSetAddress, c.address)
	case cmdErasePage:
		return encodeWithAddress(opErasePageOrMass, c.address)
	case cmdMassErase:
		return []byte{opErasePageOrMass}
	case cmdReadUnprotected:
		return []byte{opReadUnprotected}
	default:
		return nil
	}
}

func encodeWithAddress(opcode byte, address uint32) []byte {
	return []byte{
		opcode,
		byte(address),
		byte(address >> 8),
		byte(address >> 16),
		byte(address >> 24),
	}
}

// DecodeCommandByte maps a bare opcode byte to its DfuseCommand variant.
// SetAddress and ErasePage decode with a zeroed address, since the
// opcode alone carries no address. 0x41 decodes as MassErase, since
// ErasePage is not distinguishable from MassErase on opcode alone:
// both share byte 0x41 and only ErasePage's payload carries an address.
func DecodeCommandByte(b byte) (DfuseCommand, error) {
	switch b {
	case opSetAddress:
		return SetAddress(0), nil
	case opErasePageOrMass:
		return MassErase(), nil
	case opReadUnprotected:
		return ReadUnprotected(), nil
	default:
		return DfuseCommand{}, errUnknownCommandByte(b)
	}
}

// String renders a short human label, matching the texture of the wire
// protocol's other Display impls.
func (c DfuseCommand) String() string {
	switch c.kind {
	case cmdSetAddress:
		return "set address"
	case cmdErasePage, cmdMassErase:
		return "page/mass erase"
	case cmdReadUnprotected:
		return "read unprotected"
	default:
		return fmt.Sprintf("dfuse command(%d)", c.kind)
	}
}
