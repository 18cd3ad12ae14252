// dfu-flasher drives a USB device through the DFU/DfuSe protocol: listing
// its supported commands, erasing and (re)flashing its memory, verifying
// flash contents, and resetting it back into the freshly written firmware.
//
// Synopsis:
//
//	dfu-flasher supported-commands --dev 0483:df11
//	dfu-flasher erase-all --dev 0483:df11
//	dfu-flasher write --dev 0483:df11 -s 0x08000000 -f firmware.bin
//	dfu-flasher verify --dev 0483:df11 -s 0x08000000 -f firmware.bin
//	dfu-flasher reset --dev 0483:df11 -s 0x08000000
package main

import (
	"log"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/detach"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/erase"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/eraseall"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/memorylayout"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/read"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/readaddress"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/reset"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/setaddress"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/supportedcommands"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/verify"
	"github.com/dalefarnsworth-dmr/stdfu/cmd/dfu-flasher/commands/write"
)

var knownCommands = map[string]commands.Command{
	"supported-commands": &supportedcommands.Command{},
	"reset":              &reset.Command{},
	"erase-all":          &eraseall.Command{},
	"erase":              &erase.Command{},
	"read":               &read.Command{},
	"write":              &write.Command{},
	"verify":             &verify.Command{},
	"detach":             &detach.Command{},
	"set-address":        &setaddress.Command{},
	"memory-layout":      &memorylayout.Command{},
	"read-address":       &readaddress.Command{},
}

// exitCoder is implemented by stdfu.Error; checked on the returned error so the
// process exits with the protocol's own exit code table instead of the
// go-flags default.
type exitCoder interface {
	ExitCode() int
}

func main() {
	parser := flags.NewParser(nil, flags.Default)
	for name, cmd := range knownCommands {
		if _, err := parser.AddCommand(name, cmd.ShortDescription(), cmd.LongDescription(), cmd); err != nil {
			panic(err)
		}
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Print(err)
		if ec, ok := err.(exitCoder); ok {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
