package stdfu

import (
	"io"
	"log"
	"os"
	"time"
)

// Option configures a Dfu engine at Open time.
type Option func(*Dfu)

// WithLogger overrides the engine's diagnostic logger, which otherwise
// defaults to log.New(os.Stderr, "", log.LstdFlags).
func WithLogger(l *log.Logger) Option {
	return func(d *Dfu) { d.logger = l }
}

// Dfu drives one claimed DFU/DfuSe interface through its state machine.
// It owns the interface exclusively for its lifetime: callers must not
// invoke its methods from more than one goroutine at a time, and must
// call Close when done.
type Dfu struct {
	dev        ControlDevice
	descriptor DfuDescriptor
	layout     MemoryLayout
	detached   bool
	logger     *log.Logger
}

// Open claims dev for DFU/DfuSe operation: it reads the DFU functional
// descriptor and the memory layout string, then runs
// abortToIdleClearOnce to force the device to dfuIDLE regardless of its
// prior state.
func Open(dev ControlDevice, opts ...Option) (*Dfu, error) {
	d := &Dfu{
		dev:    dev,
		logger: log.New(os.Stderr, "", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(d)
	}

	descBytes, err := dev.FunctionalDescriptor()
	if err != nil {
		return nil, err
	}
	desc, err := ParseDfuDescriptor(descBytes)
	if err != nil {
		return nil, err
	}
	d.descriptor = desc

	layoutStr, err := dev.MemoryLayoutString()
	if err != nil {
		return nil, err
	}
	layout, err := ParseMemoryLayout(layoutStr)
	if err != nil {
		return nil, err
	}
	d.layout = layout

	if err := d.abortToIdleClearOnce(); err != nil {
		return nil, err
	}
	return d, nil
}

// Close releases the engine's claimed interface. If the device has not
// been reset/detached, it first makes a best-effort attempt to leave the
// device in dfuIDLE. Errors during teardown are logged, never returned.
func (d *Dfu) Close() {
	if !d.detached {
		if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
			d.logger.Printf("dfu: device was not idle at close, aborting to idle")
			if err := d.AbortToIdle(); err != nil {
				d.logger.Printf("dfu: abort to idle failed at close: %s", err)
			}
		}
	}
	if err := d.dev.Close(); err != nil {
		d.logger.Printf("dfu: release interface failed: %s", err)
	}
}

// MemoryLayout returns the device's parsed flash layout.
func (d *Dfu) MemoryLayout() MemoryLayout { return d.layout }

// Descriptor returns the device's DFU functional descriptor.
func (d *Dfu) Descriptor() DfuDescriptor { return d.descriptor }

// getStatus issues GET_STATUS, retrying up to retries+1 times total. It
// only retries on two conditions: an EPIPE/stall (sleep 3s, retry) or an
// InvalidControlResponse (sleep 100ms, retry). Any other error, or
// success, returns immediately. The retry counter is decremented on the
// success path too; harmless since the loop exits on success regardless.
func (d *Dfu) getStatus(retries int) (Status, error) {
	var status Status
	var err error
	retries++
	for retries > 0 {
		retries--
		status, err = d.readStatus()
		if err == nil {
			break
		}
		if IsEPIPE(err) {
			d.logger.Printf("dfu: EPIPE on get status, retrying")
			time.Sleep(3000 * time.Millisecond)
			continue
		}
		if e, ok := err.(*Error); ok && e.Kind == KindInvalidControlResponse {
			d.logger.Printf("dfu: get status error %q, retrying (%d left)", err, retries)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		return status, err
	}
	return status, err
}

func (d *Dfu) readStatus() (Status, error) {
	buf, err := d.dev.Control(DirIn, ReqGetStatus, 0, make([]byte, statusReplyLen))
	if err != nil {
		return Status{}, errUSB("get status", err)
	}
	return ParseStatus(buf)
}

// ClearStatus issues CLR_STATUS, the idiom for leaving dfuERROR.
func (d *Dfu) ClearStatus() error {
	_, err := d.dev.Control(DirOut, ReqClrStatus, 0, nil)
	if err != nil {
		return errUSB("clear status", err)
	}
	return nil
}

// Detach issues the bare DETACH request.
func (d *Dfu) Detach() error {
	_, err := d.dev.Control(DirOut, ReqDetach, 0, nil)
	if err != nil {
		return errUSB("detach", err)
	}
	return nil
}

// statusWaitFor is the core synchronization primitive: it polls GET_STATUS
// (with its own internal retry budget of 10) until state reaches target
// or retries+1 reads have been made, sleeping 100ms between reads. It
// fails with InvalidState if target was never reached, or InvalidStatus
// if the state is right but Status.Status is nonzero.
func (d *Dfu) statusWaitFor(retries int, target State) (Status, error) {
	retries++
	s, err := d.getStatus(10)
	if err != nil {
		return s, err
	}
	for retries > 0 {
		if s.State == target {
			break
		}
		time.Sleep(100 * time.Millisecond)
		retries--
		s, err = d.getStatus(10)
		if err != nil {
			return s, err
		}
	}

	if s.State != target {
		return s, errInvalidState(s, target)
	}
	if !s.OK() {
		return s, errInvalidStatus(s, 0)
	}
	return s, nil
}

// SetAddress issues SetAddress(address) and waits for dfuDNLOAD-IDLE.
func (d *Dfu) SetAddress(address uint32) error {
	if err := d.dfuseDownload(SetAddress(address).Encode(), 0); err != nil {
		return err
	}
	_, err := d.statusWaitFor(0, DfuDownloadIdle)
	return err
}

// ResetSTM32 sets address as the boot vector and triggers the device to
// reset into the firmware at that address. After this call the engine is
// marked detached: the device physically disappears mid-reply, so no
// further status polling is attempted during Close.
func (d *Dfu) ResetSTM32(address uint32) error {
	if err := d.SetAddress(address); err != nil {
		return err
	}
	if err := d.dfuseDownload(nil, 2); err != nil {
		return err
	}
	if _, err := d.getStatus(0); err != nil {
		d.logger.Printf("dfu: get status after reset failed (expected): %s", err)
	}
	d.detached = true
	return nil
}

// DfuseGetCommands asks the device which DfuSe commands it implements.
func (d *Dfu) DfuseGetCommands() ([]DfuseCommand, error) {
	if err := d.AbortToIdle(); err != nil {
		return nil, err
	}
	cmds, err := d.dfuseUpload(0, 1024)
	if err != nil {
		return nil, err
	}
	if len(cmds) == 0 {
		return nil, errInvalidControlResponse("get commands returned no data")
	}
	if cmds[0] != 0 {
		return nil, errInvalidControlResponse("get commands: 0x%02X %X", cmds[0], cmds)
	}
	var out []DfuseCommand
	for _, b := range cmds[1:] {
		cmd, err := DecodeCommandByte(b)
		if err != nil {
			return nil, err
		}
		out = append(out, cmd)
	}
	return out, nil
}

// Verify reads address..address+length back from the device and compares
// it byte-for-byte against r. It fails with KindVerify at the address of
// the first mismatching byte.
func (d *Dfu) Verify(r io.Reader, address uint32, length uint32) error {
	if err := d.dfuseDownload(SetAddress(address).Encode(), 0); err != nil {
		return err
	}
	if _, err := d.statusWaitFor(0, DfuDownloadBusy); err != nil {
		return err
	}
	if err := d.AbortToIdle(); err != nil {
		return err
	}
	if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
		return err
	}

	t := newTransaction(address, length, d.descriptor.TransferSize)
	for t.xfer > 0 {
		chunkAddr := t.address
		got, err := d.dfuseUpload(t.transaction, t.xfer)
		if err != nil {
			return err
		}
		want := make([]byte, len(got))
		n, err := io.ReadFull(r, want)
		if err != nil && err != io.ErrUnexpectedEOF {
			return errFileIO(err)
		}
		for i := 0; i < n && i < len(got); i++ {
			if got[i] != want[i] {
				return errVerify(chunkAddr + uint32(i))
			}
		}
		if n != len(got) {
			return errVerify(chunkAddr + uint32(n))
		}
		t.advance()
	}
	return d.AbortToIdle()
}

// ErasePages erases every page covering [address, address+length). The
// start address is realigned down to the owning page's base before
// erasing (whole pages only; a sub-page offset in the caller's request
// is rounded down, not preserved). Note also that the page count is
// computed from the caller's address, not the realigned one: for
// requests that straddle the start of a page this can differ by one
// from a count taken after realignment (see DESIGN.md). The page size
// used to step the address is resolved once, from the first page, and
// reused for every iteration; on a layout whose pages vary in size
// partway through the erased range, later addresses are computed from
// the first page's size rather than each page's own (see DESIGN.md).
func (d *Dfu) ErasePages(address uint32, length uint32) error {
	if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
		return err
	}
	numPages, err := d.layout.NumPages(address, length)
	if err != nil {
		return err
	}
	page, err := d.layout.Address(address)
	if err != nil {
		return err
	}
	address = page.Address

	for numPages > 0 {
		if err := d.dfuseDownload(ErasePage(address).Encode(), 0); err != nil {
			return err
		}
		if _, err := d.statusWaitFor(0, DfuDownloadBusy); err != nil {
			return err
		}
		if _, err := d.statusWaitFor(100, DfuDownloadIdle); err != nil {
			return err
		}
		numPages--
		address += page.Size
	}
	return nil
}

// MassErase erases the entire flash.
func (d *Dfu) MassErase() error {
	if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
		return err
	}
	if err := d.dfuseDownload(MassErase().Encode(), 0); err != nil {
		return err
	}
	if _, err := d.statusWaitFor(0, DfuDownloadBusy); err != nil {
		return err
	}
	_, err := d.statusWaitFor(10, DfuDownloadIdle)
	return err
}

// Download erases [address, address+length) and writes length bytes read
// from r to the device starting at address, re-issuing SetAddress
// before every chunk as the DfuSe contract requires.
func (d *Dfu) Download(r io.Reader, address uint32, length uint32) error {
	if err := d.ErasePages(address, length); err != nil {
		return err
	}
	if err := d.AbortToIdle(); err != nil {
		return err
	}
	if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
		return err
	}

	transaction := uint16(2)
	remaining := length
	buf := make([]byte, d.descriptor.TransferSize)
	for remaining != 0 {
		var xfer uint16
		if remaining >= uint32(d.descriptor.TransferSize) {
			xfer = d.descriptor.TransferSize
			remaining -= uint32(d.descriptor.TransferSize)
		} else {
			xfer = uint16(remaining)
			remaining = 0
		}

		chunk := buf[:xfer]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return errFileIO(err)
		}

		if err := d.dfuseDownload(SetAddress(address).Encode(), 0); err != nil {
			return err
		}
		if _, err := d.statusWaitFor(100, DfuDownloadIdle); err != nil {
			return err
		}
		if err := d.dfuseDownload(chunk, transaction); err != nil {
			return err
		}
		if _, err := d.statusWaitFor(100, DfuDownloadBusy); err != nil {
			return err
		}
		if _, err := d.statusWaitFor(100, DfuDownloadIdle); err != nil {
			return err
		}

		address += uint32(xfer)
		transaction++
	}
	return d.AbortToIdle()
}

// Upload reads length bytes starting at address from the device and
// writes them to w.
func (d *Dfu) Upload(w io.Writer, address uint32, length uint32) error {
	if err := d.dfuseDownload(SetAddress(address).Encode(), 0); err != nil {
		return err
	}
	if _, err := d.statusWaitFor(0, DfuDownloadBusy); err != nil {
		return err
	}
	if err := d.AbortToIdle(); err != nil {
		return err
	}
	if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
		return err
	}

	t := newTransaction(address, length, d.descriptor.TransferSize)
	for t.xfer > 0 {
		got, err := d.dfuseUpload(t.transaction, t.xfer)
		if err != nil {
			return err
		}
		if _, err := w.Write(got); err != nil {
			return errFileIO(err)
		}
		t.advance()
	}
	return d.AbortToIdle()
}

// ReadFlashToSlice reads len(buf) bytes starting at address directly
// into buf, returning the number of bytes written. Unlike Upload, it
// writes straight into a caller-owned buffer instead of streaming to an
// io.Writer. buf must be no larger than the device's reported transfer
// size; callers wanting more than one chunk should use Upload instead.
func (d *Dfu) ReadFlashToSlice(address uint32, buf []byte) (int, error) {
	if len(buf) > int(d.descriptor.TransferSize) {
		return 0, errArgument("buffer of %d bytes exceeds transfer size %d", len(buf), d.descriptor.TransferSize)
	}

	if err := d.dfuseDownload(SetAddress(address).Encode(), 0); err != nil {
		return 0, err
	}
	if _, err := d.statusWaitFor(0, DfuDownloadBusy); err != nil {
		return 0, err
	}
	if err := d.AbortToIdle(); err != nil {
		return 0, err
	}
	if _, err := d.statusWaitFor(0, DfuIdle); err != nil {
		return 0, err
	}

	n := 0
	t := newTransaction(address, uint32(len(buf)), d.descriptor.TransferSize)
	for t.xfer > 0 {
		got, err := d.dfuseUpload(t.transaction, t.xfer)
		if err != nil {
			return n, err
		}
		n += copy(buf[n:], got)
		t.advance()
	}
	if err := d.AbortToIdle(); err != nil {
		return n, err
	}
	return n, nil
}

// abortToIdleClearOnce is the one-shot recovery run at Open: read
// status; if already idle, done. Otherwise ABORT and read again; if
// still not idle, CLR_STATUS and read once more. It returns regardless
// of the final state; persistent misbehavior is left for later
// operations to surface via their own state checks.
func (d *Dfu) abortToIdleClearOnce() error {
	s, err := d.getStatus(0)
	if err != nil {
		return err
	}
	if s.State == DfuIdle {
		return nil
	}

	if _, err := d.dev.Control(DirOut, ReqAbort, 0, nil); err != nil {
		return errUSB("abort to idle", err)
	}
	s, err = d.getStatus(0)
	if err != nil {
		return err
	}
	if s.State != DfuIdle {
		if err := d.ClearStatus(); err != nil {
			return err
		}
		if _, err := d.getStatus(0); err != nil {
			return err
		}
	}
	return nil
}

// AbortToIdle issues ABORT and requires the device to land in dfuIDLE.
// Unlike abortToIdleClearOnce, this is not a one-shot best-effort
// recovery: it fails with InvalidState if the device doesn't come back
// idle.
func (d *Dfu) AbortToIdle() error {
	if _, err := d.dev.Control(DirOut, ReqAbort, 0, nil); err != nil {
		return errUSB("abort to idle", err)
	}
	s, err := d.getStatus(0)
	if err != nil {
		return err
	}
	if s.State != DfuIdle {
		return errInvalidState(s, DfuIdle)
	}
	return nil
}

// dfuseDownload issues one DNLOAD with buf as the data phase. A stall is
// treated as a soft condition: log it, abort to idle, sleep 10ms, and
// return nil; the caller's subsequent status wait surfaces any real
// error. Any other transfer error propagates.
func (d *Dfu) dfuseDownload(buf []byte, transaction uint16) error {
	_, err := d.dev.Control(DirOut, ReqDnload, transaction, buf)
	if err == nil {
		return nil
	}
	if IsEPIPE(err) {
		d.logger.Printf("dfu: stalled on transaction %d", transaction)
		if err := d.AbortToIdle(); err != nil {
			return err
		}
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	return errUSB("dfuse download", err)
}

func (d *Dfu) dfuseUpload(transaction uint16, xfer uint16) ([]byte, error) {
	buf, err := d.dev.Control(DirIn, ReqUpload, transaction, make([]byte, xfer))
	if err != nil {
		return nil, errUSB("dfuse upload", err)
	}
	return buf, nil
}
