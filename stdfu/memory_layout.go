package stdfu

import (
	"strconv"
	"strings"
)

// Page is one erase unit of a device's flash: a fixed address and size.
// Pages never overlap.
type Page struct {
	Address uint32
	Size    uint32
}

// MemoryLayout is the ordered, immutable sequence of Pages parsed from a
// DfuSe alt-setting's string descriptor, e.g.:
//
//	@Internal Flash /0x08000000/02*016Kg,01*064Kg,07*128Kg
//
// The leading "@<label>" is ignored; for i<j, pages[i] always ends at or
// before pages[j] begins.
type MemoryLayout struct {
	pages []Page
}

// Pages returns the layout's pages in address order.
func (m MemoryLayout) Pages() []Page {
	out := make([]Page, len(m.pages))
	copy(out, m.pages)
	return out
}

// ParseMemoryLayout parses a DfuSe memory layout descriptor string.
//
// Grammar: the string, after stripping any "0x" prefixes, has the shape
// "<label>/<hex-address>/<region>(,<region>)*", where each region is
// "<count>*<size><unit>" with unit in {K, M} (first letter only;
// trailing letters such as the DfuSe "readable/writable/erasable" flag
// suffix are ignored).
func ParseMemoryLayout(s string) (MemoryLayout, error) {
	stripped := strings.ReplaceAll(s, "0x", "")
	fields := strings.Split(stripped, "/")
	if len(fields) < 2 {
		return MemoryLayout{}, errMemoryLayout(s)
	}

	address, err := strconv.ParseUint(fields[1], 16, 32)
	if err != nil {
		return MemoryLayout{}, errMemoryLayout(s)
	}

	if len(fields) < 3 || fields[2] == "" {
		return MemoryLayout{}, errMemoryLayout("missing pages in %s", s)
	}

	var pages []Page
	addr := uint32(address)
	for _, region := range strings.Split(fields[2], ",") {
		parts := strings.SplitN(region, "*", 2)
		if len(parts) != 2 {
			return MemoryLayout{}, errMemoryLayout(region)
		}
		count, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil {
			return MemoryLayout{}, errMemoryLayout(region)
		}

		valPrefix := parts[1]
		numEnd := len(valPrefix)
		for numEnd > 0 && !isDigit(valPrefix[numEnd-1]) {
			numEnd--
		}
		numStr := valPrefix[:numEnd]
		unitStr := valPrefix[numEnd:]

		size, err := strconv.ParseUint(numStr, 10, 32)
		if err != nil {
			return MemoryLayout{}, errMemoryLayout(numStr)
		}
		if unitStr == "" {
			return MemoryLayout{}, errMemoryLayout("invalid prefix %s", unitStr)
		}
		switch unitStr[0] {
		case 'K':
			size *= 1024
		case 'M':
			size *= 1024 * 1024
		default:
			return MemoryLayout{}, errMemoryLayout("invalid prefix %s", unitStr)
		}

		for i := uint64(0); i < count; i++ {
			pages = append(pages, Page{Address: addr, Size: uint32(size)})
			addr += uint32(size)
		}
	}

	return MemoryLayout{pages: pages}, nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Address returns the page that owns address a: the page p such that
// p.Address <= a < p.Address+p.Size. It fails with KindAddress if no
// page contains a.
func (m MemoryLayout) Address(a uint32) (Page, error) {
	for _, p := range m.pages {
		if a >= p.Address && a < p.Address+p.Size {
			return p, nil
		}
	}
	return Page{}, errAddress(a)
}

// NumPages walks the layout starting at start, counting pages until the
// accumulated address reaches or exceeds start+length. A request whose
// start address falls inside a page counts that whole page, so the
// result is >= ceil(length/firstPageSize) in the typical case. It fails
// with KindAddress if any page along the walk is unmapped.
func (m MemoryLayout) NumPages(start, length uint32) (int, error) {
	end := start + length
	addr := start
	count := 0
	for addr < end {
		p, err := m.Address(addr)
		if err != nil {
			return 0, err
		}
		addr = p.Address + p.Size
		count++
	}
	return count, nil
}
