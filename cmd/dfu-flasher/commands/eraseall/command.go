// Package eraseall implements "dfu-flasher erase-all".
package eraseall

import (
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command mass-erases the device's flash.
type Command struct {
	commands.DeviceFlags
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "erase the entire flash"
}

// LongDescription explains what this verb does, with no length limit.
func (cmd *Command) LongDescription() string { return "" }

// Execute runs the command.
func (cmd *Command) Execute(args []string) error {
	dfu, err := cmd.Open()
	if err != nil {
		return err
	}
	defer dfu.Close()

	return dfu.MassErase()
}
