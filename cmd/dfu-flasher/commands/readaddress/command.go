// Package readaddress implements "dfu-flasher read-address".
package readaddress

import (
	"encoding/hex"
	"fmt"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command reads a single chunk directly into a buffer and dumps it, for
// quick interactive inspection without writing a file.
type Command struct {
	commands.DeviceFlags
	Address string `short:"s" long:"address" required:"true" description:"start_address:length"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "read a chunk of flash and print it as hex"
}

// LongDescription explains what this verb does, with no length limit.
func (cmd *Command) LongDescription() string { return "" }

// Execute runs the command.
func (cmd *Command) Execute(args []string) error {
	address, length, err := commands.ParseAddressAndLength(cmd.Address)
	if err != nil {
		return err
	}

	dfu, err := cmd.Open()
	if err != nil {
		return err
	}
	defer dfu.Close()

	buf := make([]byte, length)
	n, err := dfu.ReadFlashToSlice(address, buf)
	if err != nil {
		return err
	}
	fmt.Print(hex.Dump(buf[:n]))
	return nil
}
