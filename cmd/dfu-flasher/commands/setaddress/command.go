// Package setaddress implements "dfu-flasher set-address".
package setaddress

import (
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command issues the DfuSe SetAddress command on its own, without a
// following erase or download.
type Command struct {
	commands.DeviceFlags
	Address string `short:"s" long:"address" default:"0x08000000" description:"address"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "set the device's current DfuSe address pointer"
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

	return dfu.SetAddress(address)
}
