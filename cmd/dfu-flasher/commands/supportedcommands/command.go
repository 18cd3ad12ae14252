// Package supportedcommands implements "dfu-flasher supported-commands".
package supportedcommands

import (
	"fmt"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command lists the DfuSe commands the connected device implements.
type Command struct {
	commands.DeviceFlags
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "list the DfuSe commands the device supports"
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

	cmds, err := dfu.DfuseGetCommands()
	if err != nil {
		return err
	}
	fmt.Println("Supported commands:")
	for _, c := range cmds {
		fmt.Println(c)
	}
	return nil
}
