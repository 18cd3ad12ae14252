// Package usbdev implements stdfu.ControlDevice over github.com/google/gousb,
// the library this driver's upstream md380 tooling already depends on for
// direct USB access. It owns device enumeration, interface claiming, and the
// control-transfer plumbing; stdfu itself never imports gousb directly.
package usbdev

import (
	"strings"

	"github.com/google/gousb"
	"github.com/pkg/errors"

	"github.com/dalefarnsworth-dmr/stdfu"
)

// bmRequestType bits for a class, interface-recipient control transfer in
// each direction.
const (
	requestTypeOut = uint8(gousb.ControlOut | gousb.ControlClass | gousb.ControlInterface)
	requestTypeIn  = uint8(gousb.ControlIn | gousb.ControlClass | gousb.ControlInterface)
)

// dfuInterfaceClass is the USB interface class code (0xFE) DFU/DfuSe
// devices advertise, application-specific with subclass 0x01.
const dfuInterfaceClass = 0xFE

// dfuFunctionalDescriptorType is the descriptor type byte (0x21) of the
// DFU functional descriptor, used as the high byte of GET_DESCRIPTOR's
// wValue.
const dfuFunctionalDescriptorType = 0x21

// Device adapts one claimed gousb interface to stdfu.ControlDevice.
type Device struct {
	ctx    *gousb.Context
	dev    *gousb.Device
	cfg    *gousb.Config
	intf   *gousb.Interface
	ifNum  int
	altNum int
}

// Selector names a single USB device, either by vendor:product or by
// bus:address. Exactly one of the two forms should be populated; Open
// reports an Argument error otherwise.
type Selector struct {
	VID, PID   gousb.ID
	HaveVIDPID bool

	Bus, Address int
	HaveBusAddr  bool
}

// Open finds the device matching sel, claims interface ifNum at altNum
// (the DfuSe alt setting identifying a memory segment), and returns a
// ControlDevice ready for stdfu.Open. The returned Device owns the gousb
// context and must be closed exactly once, by stdfu.Dfu.Close calling
// back into Device.Close.
func Open(sel Selector, ifNum, altNum int) (*Device, error) {
	ctx := gousb.NewContext()

	if !sel.HaveVIDPID && !sel.HaveBusAddr {
		ctx.Close()
		return nil, stdfu.NewArgumentError("no device selector given")
	}
	if sel.HaveVIDPID && sel.HaveBusAddr {
		ctx.Close()
		return nil, stdfu.NewArgumentError("both vendor:product and bus:address selectors given")
	}

	var found *gousb.Device
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if sel.HaveVIDPID {
			return desc.Vendor == sel.VID && desc.Product == sel.PID
		}
		return desc.Bus == sel.Bus && desc.Address == sel.Address
	})
	for _, d := range devs {
		if found == nil {
			found = d
		} else {
			d.Close()
		}
	}
	if err != nil {
		ctx.Close()
		return nil, wrapUSB("open device", err)
	}
	if found == nil {
		ctx.Close()
		return nil, deviceNotFoundError(sel)
	}

	if err := found.SetAutoDetach(true); err != nil {
		found.Close()
		ctx.Close()
		return nil, wrapUSB("set auto detach", err)
	}

	cfgNum, err := found.ActiveConfigNum()
	if err != nil {
		found.Close()
		ctx.Close()
		return nil, wrapUSB("read active config", err)
	}
	cfg, err := found.Config(cfgNum)
	if err != nil {
		found.Close()
		ctx.Close()
		return nil, wrapUSB("claim config", err)
	}
	intf, err := cfg.Interface(ifNum, altNum)
	if err != nil {
		cfg.Close()
		found.Close()
		ctx.Close()
		return nil, wrapUSB("claim interface", err)
	}

	return &Device{
		ctx:    ctx,
		dev:    found,
		cfg:    cfg,
		intf:   intf,
		ifNum:  ifNum,
		altNum: altNum,
	}, nil
}

// Control implements stdfu.ControlDevice.
func (d *Device) Control(dir stdfu.Direction, request byte, value uint16, data []byte) ([]byte, error) {
	rType := requestTypeOut
	if dir == stdfu.DirIn {
		rType = requestTypeIn
	}

	if dir == stdfu.DirOut {
		n, err := d.dev.Control(rType, request, value, uint16(d.ifNum), data)
		if err != nil {
			return nil, translateErr(err)
		}
		if n != len(data) {
			return nil, errors.Errorf("short control write: wrote %d of %d bytes", n, len(data))
		}
		return nil, nil
	}

	n, err := d.dev.Control(rType, request, value, uint16(d.ifNum), data)
	if err != nil {
		return nil, translateErr(err)
	}
	return data[:n], nil
}

// InterfaceNumber implements stdfu.ControlDevice.
func (d *Device) InterfaceNumber() int { return d.ifNum }

// FunctionalDescriptor implements stdfu.ControlDevice by requesting the
// DFU functional descriptor (type 0x21) from the claimed interface,
// which gousb does not parse on its own.
func (d *Device) FunctionalDescriptor() ([]byte, error) {
	// gousb does not expose raw descriptor bytes through its typed API,
	// so the functional descriptor is fetched directly with a standard
	// GET_DESCRIPTOR request against the interface.
	buf := make([]byte, stdfu.DfuDescriptorLen)
	n, err := d.dev.Control(
		uint8(gousb.ControlIn|gousb.ControlStandard|gousb.ControlInterface),
		0x06, // GET_DESCRIPTOR
		uint16(dfuFunctionalDescriptorType)<<8,
		uint16(d.ifNum),
		buf,
	)
	if err != nil {
		return nil, wrapUSB("read dfu functional descriptor", err)
	}
	return buf[:n], nil
}

// MemoryLayoutString implements stdfu.ControlDevice. DfuSe devices encode
// a segment's memory layout in its alt setting's iInterface string, so
// this walks the raw configuration descriptor to find that string index
// for (ifNum, altNum) and fetches it with a standard GET_DESCRIPTOR.
func (d *Device) MemoryLayoutString() (string, error) {
	cfgBuf := make([]byte, 4096)
	n, err := d.dev.Control(
		uint8(gousb.ControlIn|gousb.ControlStandard|gousb.ControlDevice),
		0x06, // GET_DESCRIPTOR
		uint16(descTypeConfiguration)<<8,
		0,
		cfgBuf,
	)
	if err != nil {
		return "", wrapUSB("read configuration descriptor", err)
	}

	strIndex, err := interfaceStringIndex(cfgBuf[:n], d.ifNum, d.altNum)
	if err != nil {
		return "", err
	}
	if strIndex == 0 {
		return "", nil
	}

	strBuf := make([]byte, 255)
	n, err = d.dev.Control(
		uint8(gousb.ControlIn|gousb.ControlStandard|gousb.ControlDevice),
		0x06, // GET_DESCRIPTOR
		uint16(descTypeString)<<8|uint16(strIndex),
		usEnglishLangID,
		strBuf,
	)
	if err != nil {
		return "", wrapUSB("read memory layout string", err)
	}
	return decodeUTF16LEStringDescriptor(strBuf[:n])
}

const (
	descTypeConfiguration = 0x02
	descTypeString        = 0x03
	usEnglishLangID       = 0x0409
)

// interfaceStringIndex walks a raw USB configuration descriptor (a
// sequence of bLength/bDescriptorType TLV records) looking for the
// interface descriptor matching ifNum/altNum, and returns its
// iInterface string index.
func interfaceStringIndex(cfg []byte, ifNum, altNum int) (byte, error) {
	const (
		descTypeInterface = 0x04
		interfaceDescLen  = 9
	)
	for off := 0; off+2 <= len(cfg); {
		bLength := int(cfg[off])
		if bLength == 0 || off+bLength > len(cfg) {
			break
		}
		bDescriptorType := cfg[off+1]
		if bDescriptorType == descTypeInterface && bLength >= interfaceDescLen {
			bInterfaceNumber := int(cfg[off+2])
			bAlternateSetting := int(cfg[off+3])
			if bInterfaceNumber == ifNum && bAlternateSetting == altNum {
				return cfg[off+8], nil
			}
		}
		off += bLength
	}
	return 0, wrapUSB("find interface descriptor", errors.Errorf("interface %d alt %d not found in configuration descriptor", ifNum, altNum))
}

// decodeUTF16LEStringDescriptor decodes a USB string descriptor
// (bLength, bDescriptorType=0x03, then UTF-16LE code units) to UTF-8.
func decodeUTF16LEStringDescriptor(buf []byte) (string, error) {
	if len(buf) < 2 {
		return "", nil
	}
	payload := buf[2:]
	units := make([]uint16, 0, len(payload)/2)
	for i := 0; i+1 < len(payload); i += 2 {
		units = append(units, uint16(payload[i])|uint16(payload[i+1])<<8)
	}
	runes := make([]rune, 0, len(units))
	for _, u := range units {
		runes = append(runes, rune(u))
	}
	return string(runes), nil
}

// Close implements stdfu.ControlDevice.
func (d *Device) Close() error {
	d.intf.Close()
	if err := d.cfg.Close(); err != nil {
		return wrapUSB("close config", err)
	}
	if err := d.dev.Close(); err != nil {
		return wrapUSB("close device", err)
	}
	d.ctx.Close()
	return nil
}

// Devices lists every DFU-class device (interface class 0xFE) currently
// enumerable, for the CLI's device-listing-on-ambiguous-selection path.
func Devices() ([]gousb.DeviceDesc, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()

	var out []gousb.DeviceDesc
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		for _, cfg := range desc.Configs {
			for _, intf := range cfg.Interfaces {
				for _, alt := range intf.AltSettings {
					if alt.Class == dfuInterfaceClass {
						out = append(out, *desc)
						return false
					}
				}
			}
		}
		return false
	})
	for _, d := range devs {
		d.Close()
	}
	if err != nil {
		return nil, wrapUSB("list devices", err)
	}
	return out, nil
}

// translateErr maps libusb's pipe-error (LIBUSB_ERROR_PIPE, a stall) to
// stdfu.ErrStall so the engine's retry logic can recognize it regardless
// of which USB backend is underneath. gousb surfaces this as a plain
// *TransferError with a message containing "pipe"; there is no typed
// sentinel to compare against.
func translateErr(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "pipe") {
		return stdfu.ErrStall
	}
	return err
}

func wrapUSB(context string, err error) error {
	return stdfu.NewUSBError(context, err)
}

func deviceNotFoundError(sel Selector) error {
	if sel.HaveVIDPID {
		return stdfu.NewDeviceNotFoundError("no device found with vendor:product %04x:%04x", sel.VID, sel.PID)
	}
	return stdfu.NewDeviceNotFoundError("no device found at bus %d address %d", sel.Bus, sel.Address)
}
