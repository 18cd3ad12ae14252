// Package memorylayout implements "dfu-flasher memory-layout".
package memorylayout

import (
	"fmt"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command prints the device's parsed flash page layout.
type Command struct {
	commands.DeviceFlags
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "print the device's flash memory layout"
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

	for _, p := range dfu.MemoryLayout().Pages() {
		fmt.Printf("Start: 0x%08X Size: %d bytes\n", p.Address, p.Size)
	}
	return nil
}
