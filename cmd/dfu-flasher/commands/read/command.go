// Package read implements "dfu-flasher read".
package read

import (
	"os"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command uploads a range of flash to a local file.
type Command struct {
	commands.DeviceFlags
	Address   string `short:"s" long:"address" required:"true" description:"start_address:length"`
	File      string `short:"f" long:"file" required:"true" description:"destination file"`
	Overwrite bool   `short:"F" long:"overwrite" description:"overwrite an existing destination file"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "read flash into a local file"
}

// LongDescription explains what this verb does, with no length limit.
func (cmd *Command) LongDescription() string { return "" }

// Execute runs the command.
func (cmd *Command) Execute(args []string) error {
	address, length, err := commands.ParseAddressAndLength(cmd.Address)
	if err != nil {
		return err
	}

	flags := os.O_WRONLY | os.O_CREATE
	if cmd.Overwrite {
		flags |= os.O_TRUNC
	} else {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(cmd.File, flags, 0644)
	if err != nil {
		return commands.FileError(err)
	}
	defer f.Close()

	dfu, err := cmd.Open()
	if err != nil {
		return err
	}
	defer dfu.Close()

	return dfu.Upload(f, address, length)
}
