// Package reset implements "dfu-flasher reset".
package reset

import (
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command resets the device into firmware at the given boot address.
type Command struct {
	commands.DeviceFlags
	Address string `short:"s" long:"address" default:"0x08000000" description:"boot vector address"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "reset the device into firmware at an address"
}

// LongDescription explains what this verb does, with no length limit.
func (cmd *Command) LongDescription() string { return "" }

// Execute runs the command.
func (cmd *Command) Execute(args []string) error {
	address, err := commands.ParseAddress(cmd.Address)
	if err != nil {
		return err
	}

	dfu, err := cmd.Open()
	if err != nil {
		return err
	}
	defer dfu.Close()

	return dfu.ResetSTM32(address)
}
