package persist

import (
	"errors"
	"fmt"
)

var (
	ErrGeometry    = errors.New("persist: invalid flash geometry")
	ErrPageRange   = errors.New("persist: page out of range")
	ErrPageSize    = errors.New("persist: page buffer has wrong size")
	ErrStoreFull   = errors.New("persist: no free slot after reclaim")
	ErrShortRecord = errors.New("persist: short record")
)

// Flash is the raw storage backing a Store. Offsets and page numbers are
// relative to the start of the settings region, not the device.
//
// EraseRegion and ProgramPage leave flash unreadable for their duration;
// the Store calls them with interrupts disabled.
type Flash interface {
	// ReadAt reads len(p) bytes starting at off within the region.
	ReadAt(p []byte, off int64) (int, error)

	// EraseRegion sets every byte of the region to 0xFF.
	EraseRegion() error

	// ProgramPage writes one full page. Programming can only clear bits, so
	// bytes left at 0xFF in data do not change what is already stored.
	ProgramPage(page int, data []byte) error
}

// Geometry describes how the settings region is split into slots.
type Geometry struct {
	PageSize     int // bytes per program page
	RegionSize   int // bytes in the region; erased as a unit
	SlotsPerPage int
}

// DefaultGeometry matches the RP2040: 256 byte pages, one 4 KiB sector,
// four 64 byte slots per page.
var DefaultGeometry = Geometry{
	PageSize:     256,
	RegionSize:   4096,
	SlotsPerPage: 4,
}

// SlotSize returns the size of one slot in bytes.
func (g Geometry) SlotSize() int {
	return g.PageSize / g.SlotsPerPage
}

// PageCount returns the number of pages in the region.
func (g Geometry) PageCount() int {
	return g.RegionSize / g.PageSize
}

// SlotCount returns the number of slots in the region.
func (g Geometry) SlotCount() int {
	return g.PageCount() * g.SlotsPerPage
}

// Validate checks that a record fits in a slot and pages tile the region.
func (g Geometry) Validate() error {
	if g.PageSize <= 0 || g.SlotsPerPage <= 0 || g.RegionSize <= 0 {
		return ErrGeometry
	}
	if g.PageSize%g.SlotsPerPage != 0 || g.RegionSize%g.PageSize != 0 {
		return fmt.Errorf("%w: pages must tile the region and slots must tile a page", ErrGeometry)
	}
	if g.SlotSize() < MarkerSize+RecordSize {
		return fmt.Errorf("%w: slot of %d bytes cannot hold a %d byte record", ErrGeometry, g.SlotSize(), MarkerSize+RecordSize)
	}
	return nil
}

// MemFlash is a RAM-backed Flash with NOR semantics: erase sets bytes to
// 0xFF and programming ANDs new data into existing data. It counts erase
// and program operations so tests can check wear.
type MemFlash struct {
	geo  Geometry
	data []byte

	Erases   int
	Programs int
}

// NewMemFlash returns an erased MemFlash sized for geo.
func NewMemFlash(geo Geometry) *MemFlash {
	m := &MemFlash{geo: geo, data: make([]byte, geo.RegionSize)}
	for i := range m.data {
		m.data[i] = 0xFF
	}
	return m
}

// ReadAt implements Flash.
func (m *MemFlash) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.data)) {
		return 0, fmt.Errorf("persist: read of %d bytes at %d outside region", len(p), off)
	}
	return copy(p, m.data[off:]), nil
}

// EraseRegion implements Flash.
func (m *MemFlash) EraseRegion() error {
	for i := range m.data {
		m.data[i] = 0xFF
	}
	m.Erases++
	return nil
}

// ProgramPage implements Flash.
func (m *MemFlash) ProgramPage(page int, data []byte) error {
	if page < 0 || page >= m.geo.PageCount() {
		return ErrPageRange
	}
	if len(data) != m.geo.PageSize {
		return ErrPageSize
	}
	base := page * m.geo.PageSize
	for i, b := range data {
		m.data[base+i] &= b
	}
	m.Programs++
	return nil
}

// Bytes returns the raw region contents. The slice aliases internal state.
func (m *MemFlash) Bytes() []byte {
	return m.data
}
