// Package erase implements "dfu-flasher erase".
package erase

import (
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command erases the pages covering an address range.
type Command struct {
	commands.DeviceFlags
	Address string `short:"s" long:"address" required:"true" description:"start_address:length"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "erase the pages covering an address range"
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

	return dfu.ErasePages(address, length)
}
