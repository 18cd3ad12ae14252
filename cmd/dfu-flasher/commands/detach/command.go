// Package detach implements "dfu-flasher detach".
package detach

import (
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command issues a bare DETACH request.
type Command struct {
	commands.DeviceFlags
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "detach the device from DFU mode"
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

	return dfu.Detach()
}
