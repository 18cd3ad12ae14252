// Package verify implements "dfu-flasher verify".
package verify

import (
	"fmt"
	"os"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
)

var _ commands.Command = (*Command)(nil)

// Command reads flash back and compares it against a local file.
type Command struct {
	commands.DeviceFlags
	Address string `short:"s" long:"address" default:"0x08000000" description:"start address[:length]"`
	File    string `short:"f" long:"file" required:"true" description:"file to compare against"`
}

// ShortDescription explains what this command does in one line.
func (cmd *Command) ShortDescription() string {
	return "verify flash contents against a local file"
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

	if err := dfu.Verify(f, address, n); err != nil {
		return err
	}
	fmt.Println("Verify done")
	return nil
}
