package commands

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dalefarnsworth-dmr/stdfu"
	"github.com/dalefarnsworth-dmr/stdfu/usbdev"
	"github.com/google/gousb"
)

// DeviceFlags are the device-selection options shared by every verb.
// Exactly one of Dev or BusDevice must be given.
type DeviceFlags struct {
	Dev        string `short:"d" long:"dev" description:"select device by vendor:product in hex, e.g. 0483:df11"`
	BusDevice  string `short:"b" long:"bus-device" description:"select device by bus:address, e.g. 001:004"`
	Interface  int    `short:"i" long:"intf" default:"0" description:"DFU interface number"`
	AltSetting int    `short:"a" long:"alt" default:"0" description:"alt setting of the DFU interface, selects a memory segment"`
}

// Open resolves the flags to a selector, claims the device, and brings
// the engine up through Open. When neither Dev nor BusDevice is given it
// returns an Argument error listing every enumerable DFU device, mirroring
// the no-selector diagnostic this driver's CLI has always printed.
func (f *DeviceFlags) Open() (*stdfu.Dfu, error) {
	if f.Dev != "" && f.BusDevice != "" {
		return nil, stdfu.NewArgumentError("both --dev and --bus-device were given; specify exactly one")
	}

	var sel usbdev.Selector
	switch {
	case f.Dev != "":
		vid, pid, err := parseVIDPID(f.Dev)
		if err != nil {
			return nil, err
		}
		sel = usbdev.Selector{VID: vid, PID: pid, HaveVIDPID: true}
	case f.BusDevice != "":
		bus, addr, err := parseBusAddress(f.BusDevice)
		if err != nil {
			return nil, err
		}
		sel = usbdev.Selector{Bus: bus, Address: addr, HaveBusAddr: true}
	default:
		return nil, stdfu.NewArgumentError("%s", listDevicesMessage())
	}

	dev, err := usbdev.Open(sel, f.Interface, f.AltSetting)
	if err != nil {
		return nil, err
	}
	return stdfu.Open(dev)
}

func listDevicesMessage() string {
	var b strings.Builder
	b.WriteString("missing --dev or --bus-device; candidate DFU devices:\n")
	devs, err := usbdev.Devices()
	if err != nil || len(devs) == 0 {
		b.WriteString("  (none found)\n")
		return b.String()
	}
	for _, d := range devs {
		fmt.Fprintf(&b, "  --dev %04x:%04x  or  --bus-device %03d:%03d\n", d.Vendor, d.Product, d.Bus, d.Address)
	}
	return b.String()
}

func parseVIDPID(s string) (gousb.ID, gousb.ID, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, stdfu.NewArgumentError("expected vendor:product as hex, got %q", s)
	}
	vid, err := strconv.ParseUint(parts[0], 16, 16)
	if err != nil {
		return 0, 0, stdfu.NewArgumentError("invalid vendor id %q: %s", parts[0], err)
	}
	pid, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return 0, 0, stdfu.NewArgumentError("invalid product id %q: %s", parts[1], err)
	}
	return gousb.ID(vid), gousb.ID(pid), nil
}

func parseBusAddress(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, stdfu.NewArgumentError("expected bus:address, got %q", s)
	}
	bus, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, stdfu.NewArgumentError("invalid bus %q: %s", parts[0], err)
	}
	addr, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, stdfu.NewArgumentError("invalid address %q: %s", parts[1], err)
	}
	return bus, addr, nil
}

// parseInt parses a base-10 or "0x"-prefixed base-16 uint32, tolerating
// "_" digit-group separators (e.g. "0x0800_0000").
func parseInt(s string) (uint32, error) {
	s = strings.ReplaceAll(s, "_", "")
	if idx := strings.Index(s, "0x"); idx >= 0 {
		v, err := strconv.ParseUint(s[idx+2:], 16, 32)
		if err != nil {
			return 0, stdfu.NewArgumentError("invalid hex value %q: %s", s, err)
		}
		return uint32(v), nil
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, stdfu.NewArgumentError("invalid value %q: %s", s, err)
	}
	return uint32(v), nil
}

// ParseAddress parses a bare "0x08000000"-style address.
func ParseAddress(s string) (uint32, error) {
	return parseInt(s)
}

// ParseAddressAndLength parses "start[:length]", defaulting length to 0
// when omitted.
func ParseAddressAndLength(s string) (uint32, uint32, error) {
	addr, length, err := ParseAddressAndLengthAsSome(s)
	if err != nil {
		return 0, 0, err
	}
	if length == nil {
		return addr, 0, nil
	}
	return addr, *length, nil
}

// ParseAddressAndLengthAsSome parses "start[:length]", reporting a nil
// length when omitted so callers (write/verify) can tell "not given" from
// "given as zero" and fall back to a file's size.
func ParseAddressAndLengthAsSome(s string) (uint32, *uint32, error) {
	parts := strings.SplitN(s, ":", 2)
	addr, err := parseInt(parts[0])
	if err != nil {
		return 0, nil, err
	}
	if len(parts) < 2 {
		return addr, nil, nil
	}
	length, err := parseInt(parts[1])
	if err != nil {
		return 0, nil, err
	}
	return addr, &length, nil
}

// FileError wraps a host-side file operation failure as a FileIO Error.
func FileError(err error) error {
	return stdfu.NewFileIOError(err)
}

// LengthFromFile resolves an optional caller-requested length against an
// open file's actual size: if length is nil, the whole file is used (and
// must be non-empty); if given, the file must be at least that long.
func LengthFromFile(f *os.File, length *uint32) (uint32, error) {
	fi, err := f.Stat()
	if err != nil {
		return 0, stdfu.NewArgumentError("stat %s: %s", f.Name(), err)
	}
	fileLength := uint32(fi.Size())
	if length == nil {
		if fileLength == 0 {
			return 0, stdfu.NewArgumentError("file %s is empty", f.Name())
		}
		return fileLength, nil
	}
	if fileLength < *length {
		return 0, stdfu.NewArgumentError("file %s is %d bytes, but length is set to %d bytes", f.Name(), fileLength, *length)
	}
	return *length, nil
}
