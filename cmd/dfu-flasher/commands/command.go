// Package commands defines the verb interface the dfu-flasher CLI
// dispatches to, plus the device-selection flags and address/range
// parsing every verb shares.
package commands

import (
	"github.com/jessevdk/go-flags"
)

// Command is implemented by each verb package (reset, erase, write, ...).
type Command interface {
	flags.Commander

	// ShortDescription explains what this command does in one line.
	ShortDescription() string

	// LongDescription explains what this verb does, with no length limit.
	LongDescription() string
}
