package stdfu

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is an in-memory stdfu.ControlDevice used to drive the engine
// through its command sequences without real hardware. It models a
// device that goes dfuDNBUSY for exactly one status read after any
// DNLOAD, then settles into the state the command implies.
type fakeDevice struct {
	descriptor  []byte
	layout      string
	settled     State
	busyPending bool
	lastAddress uint32
	flash       map[uint32]byte
	log         []string
	stallNext   bool
}

func newFakeDevice(transferSize uint16) *fakeDevice {
	return &fakeDevice{
		descriptor: []byte{0x09, 0x21, 0x0B, 0x00, 0x00, byte(transferSize), byte(transferSize >> 8), 0x10, 0x01},
		layout:     "@Internal Flash /0x08010000/01*16Kg",
		settled:    DfuIdle,
		flash:      make(map[uint32]byte),
	}
}

func (f *fakeDevice) Control(dir Direction, request byte, value uint16, data []byte) ([]byte, error) {
	switch request {
	case ReqGetStatus:
		s := f.settled
		if f.busyPending {
			s = DfuDownloadBusy
			f.busyPending = false
		}
		return []byte{0, 0, 0, 0, s.Byte(), 0}, nil
	case ReqAbort:
		f.log = append(f.log, "abort")
		f.settled = DfuIdle
		f.busyPending = false
		return nil, nil
	case ReqDnload:
		if f.stallNext {
			f.stallNext = false
			return nil, ErrStall
		}
		if value == 0 {
			opcode := data[0]
			switch {
			case opcode == 0x21 && len(data) == 5:
				addr := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24
				f.lastAddress = addr
				f.log = append(f.log, fmt.Sprintf("set-address 0x%08X", addr))
			case opcode == 0x41 && len(data) == 5:
				addr := uint32(data[1]) | uint32(data[2])<<8 | uint32(data[3])<<16 | uint32(data[4])<<24
				f.log = append(f.log, fmt.Sprintf("erase-page 0x%08X", addr))
			case opcode == 0x41:
				f.log = append(f.log, "mass-erase")
			default:
				f.log = append(f.log, fmt.Sprintf("command 0x%02X", opcode))
			}
		} else {
			for i, b := range data {
				f.flash[f.lastAddress+uint32(i)] = b
			}
			f.log = append(f.log, fmt.Sprintf("data transaction=%d addr=0x%08X len=%d", value, f.lastAddress, len(data)))
		}
		f.settled = DfuDownloadIdle
		f.busyPending = true
		return nil, nil
	case ReqUpload:
		buf := make([]byte, len(data))
		for i := range buf {
			buf[i] = f.flash[f.lastAddress+uint32(i)]
		}
		return buf, nil
	case ReqClrStatus:
		f.settled = DfuIdle
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected request %d", request)
}

func (f *fakeDevice) InterfaceNumber() int                 { return 0 }
func (f *fakeDevice) FunctionalDescriptor() ([]byte, error) { return f.descriptor, nil }
func (f *fakeDevice) MemoryLayoutString() (string, error)  { return f.layout, nil }
func (f *fakeDevice) Close() error                         { return nil }

func TestEngineDownloadSequencing(t *testing.T) {
	fake := newFakeDevice(1024)
	dfu, err := Open(fake)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xAB}, 3072)
	require.NoError(t, dfu.Download(bytes.NewReader(payload), 0x08010000, 3072))

	assert.Equal(t, []string{
		"erase-page 0x08010000",
		"abort",
		"set-address 0x08010000",
		"data transaction=2 addr=0x08010000 len=1024",
		"set-address 0x08010400",
		"data transaction=3 addr=0x08010400 len=1024",
		"set-address 0x08010800",
		"data transaction=4 addr=0x08010800 len=1024",
		"abort",
	}, fake.log)

	for i, want := range payload {
		got := fake.flash[0x08010000+uint32(i)]
		require.Equal(t, want, got, "byte %d", i)
	}
}

func TestEngineVerifyMismatch(t *testing.T) {
	fake := newFakeDevice(1024)
	dfu, err := Open(fake)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0xCD}, 1024)
	require.NoError(t, dfu.Download(bytes.NewReader(payload), 0x08010000, 1024))

	corrupt := make([]byte, 1024)
	copy(corrupt, payload)
	corrupt[17] = 0x00

	err = dfu.Verify(bytes.NewReader(corrupt), 0x08010000, 1024)
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindVerify, e.Kind)
	assert.Equal(t, uint32(0x08010011), e.Address)
}

func TestEngineVerifySuccess(t *testing.T) {
	fake := newFakeDevice(1024)
	dfu, err := Open(fake)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x55}, 512)
	require.NoError(t, dfu.Download(bytes.NewReader(payload), 0x08010000, 512))
	require.NoError(t, dfu.Verify(bytes.NewReader(payload), 0x08010000, 512))
}

func TestEngineResetMarksDetached(t *testing.T) {
	fake := newFakeDevice(1024)
	dfu, err := Open(fake)
	require.NoError(t, err)

	require.NoError(t, dfu.ResetSTM32(0x08010000))
	assert.True(t, dfu.detached)
}

// TestEngineStallRecoversOnDownload checks that a stalled DNLOAD doesn't
// wedge the engine: dfuseDownload swallows the stall by aborting the
// device back to dfuIDLE, so the first SetAddress surfaces an
// InvalidState error (the device never made it to dfuDNLOAD-IDLE) but a
// retried SetAddress against the now-idle device succeeds normally.
func TestEngineStallRecoversOnDownload(t *testing.T) {
	fake := newFakeDevice(1024)
	dfu, err := Open(fake)
	require.NoError(t, err)

	fake.stallNext = true
	require.Error(t, dfu.SetAddress(0x08010000))
	assert.Contains(t, fake.log, "abort")

	require.NoError(t, dfu.SetAddress(0x08010000))
}
