// Package write implements "dfu-flasher write".
package write

import (
	"os"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command downloads a local file to flash starting at an address.
type Command struct {
	commands.DeviceFlags
	Address string `short:"s" long:"address" default:"0x08000000" description:"start address[:length]"`
	File    string `short:"f" long:"file" required:"true" description:"source file"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "write a local file to flash"
}

// LongDescription explains what this verb does, with no length limit.
func (cmd *Command) LongDescription() string { return "" }

// Execute runs the command.
func (cmd *Command) Execute(args []string) error {
	address, length, err := commands.ParseAddressAndLengthAsSome(cmd.Address)
	if err != nil {
		return err
	}

	f, err := os.Open(cmd.File)
	if err != nil {
		return commands.FileError(err)
	}
	defer f.Close()

	n, err := commands.LengthFromFile(f, length)
	if err != nil {
		return err
	}

	dfu, err := cmd.Open()
	if err != nil {
		return err
	}
	defer dfu.Close()

	return dfu.Download(f, address, n)
}
