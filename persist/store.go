// Package persist keeps the last saved animation record for each lamp in a
// region of raw flash.
//
// The region is split into equal slots, several per page. Each slot starts
// with a two byte marker: Marker for a valid record, 0xFFFF for an erased
// slot. Records are appended to the first empty slot, so scan order is write
// order and nothing valid follows an empty slot. The most recent record for a
// lamp wins. When every slot is used, the region is reclaimed: the newest
// record per lamp is kept in RAM, the region is erased, and the survivors are
// rewritten at the front.
//
// Any other marker value means the region cannot be trusted. Init erases it;
// Save reclaims the region when it meets one after boot, since Find stops
// scanning there.
package persist

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"hidlight/debug"
)

const (
	// Marker identifies a slot holding a valid record ("led").
	Marker uint16 = 0x01ED
	// MarkerSize is the number of bytes used by the marker.
	MarkerSize = 2
	// RecordDataSize is the size of the opaque animation parameters.
	RecordDataSize = 60
	// RecordSize is the encoded size of a Record.
	RecordSize = 2 + RecordDataSize

	markerErased uint16 = 0xFFFF
)

// Record is one saved animation command.
type Record struct {
	LampID uint8
	Type   uint8
	Data   [RecordDataSize]byte
}

// UnmarshalBinary decodes a record from its slot layout (without marker).
func (r *Record) UnmarshalBinary(b []byte) error {
	if len(b) < RecordSize {
		return ErrShortRecord
	}
	r.LampID = b[0]
	r.Type = b[1]
	copy(r.Data[:], b[2:RecordSize])
	return nil
}

func (r Record) put(b []byte) {
	b[0] = r.LampID
	b[1] = r.Type
	copy(b[2:], r.Data[:])
}

// Store is the slot log. It is not safe for concurrent use; all calls come
// from the foreground loop.
type Store struct {
	flash Flash
	geo   Geometry

	page []byte // page image, programmed as a unit
	slot []byte // scratch for reading one slot
}

// NewStore returns a Store over f. Call Init before use.
func NewStore(f Flash, geo Geometry) (*Store, error) {
	if err := geo.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		flash: f,
		geo:   geo,
		page:  make([]byte, geo.PageSize),
		slot:  make([]byte, geo.SlotSize()),
	}, nil
}

// Geometry returns the slot layout of the store.
func (s *Store) Geometry() Geometry {
	return s.geo
}

// Init erases the region if any slot has a marker that is neither Marker nor
// erased. It reports whether an erase happened.
func (s *Store) Init() (bool, error) {
	for i := 0; i < s.geo.SlotCount(); i++ {
		marker, err := s.readMarker(i)
		if err != nil {
			return false, err
		}
		if marker != Marker && marker != markerErased {
			debug.Println("persist: slot " + debug.Itoa(i) + " has marker " + debug.Hex16(marker) + ", erasing region")
			return true, s.Clear()
		}
	}
	return false, nil
}

// Clear erases the whole region.
func (s *Store) Clear() error {
	debug.Record(debug.EvtFlashErase, 0, 0, 0)
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.flash.EraseRegion()
}

// Find returns the most recent record for lamp.
func (s *Store) Find(lamp uint8) (Record, bool, error) {
	var (
		found Record
		ok    bool
	)
	err := s.scan(func(r Record) {
		if r.LampID == lamp {
			found, ok = r, true
		}
	})
	return found, ok, err
}

// Records returns every valid record in write order.
func (s *Store) Records() ([]Record, error) {
	var out []Record
	err := s.scan(func(r Record) {
		out = append(out, r)
	})
	return out, err
}

// Save appends r, reclaiming the region first if it is full or a corrupt
// slot comes before the first empty one.
func (s *Store) Save(r Record) error {
	target, err := s.nextFree()
	if err != nil {
		return err
	}
	if target < 0 {
		target, err = s.reclaim(r.LampID)
		if err != nil {
			return err
		}
	}
	if target >= s.geo.SlotCount() {
		return ErrStoreFull
	}

	page := target / s.geo.SlotsPerPage
	s.clearPage()
	s.putSlot(target%s.geo.SlotsPerPage, r)
	return s.programPage(page)
}

// reclaim keeps the newest record for every lamp except skip, erases the
// region and rewrites the survivors from slot 0. It returns the first free
// slot.
func (s *Store) reclaim(skip uint8) (int, error) {
	var keep []Record
	for i := 0; i < s.geo.SlotCount(); i++ {
		r, valid, err := s.readSlot(i)
		if err != nil {
			return 0, err
		}
		if !valid || r.LampID == skip {
			continue
		}
		replaced := false
		for k := range keep {
			if keep[k].LampID == r.LampID {
				keep[k] = r
				replaced = true
				break
			}
		}
		if !replaced {
			keep = append(keep, r)
		}
	}
	sort.Slice(keep, func(i, j int) bool { return keep[i].LampID < keep[j].LampID })

	debug.Println("persist: reclaiming region, " + debug.Itoa(len(keep)) + " records survive")
	debug.Record(debug.EvtReclaim, skip, uint32(len(keep)), 0)

	if err := s.Clear(); err != nil {
		return 0, err
	}

	per := s.geo.SlotsPerPage
	for page := 0; page*per < len(keep); page++ {
		s.clearPage()
		for i := 0; i < per && page*per+i < len(keep); i++ {
			s.putSlot(i, keep[page*per+i])
		}
		if err := s.programPage(page); err != nil {
			return 0, err
		}
	}
	return len(keep), nil
}

// scan calls fn for each valid record up to the first empty slot.
func (s *Store) scan(fn func(Record)) error {
	for i := 0; i < s.geo.SlotCount(); i++ {
		r, valid, err := s.readSlot(i)
		if err != nil {
			return err
		}
		if !valid {
			return nil
		}
		fn(r)
	}
	return nil
}

// nextFree returns the slot the next record goes in, or -1 if the region
// must be reclaimed first. That is the case when it is full, and when a
// corrupt marker precedes the first erased slot: a record written past it
// would never be reached by scan.
func (s *Store) nextFree() (int, error) {
	for i := 0; i < s.geo.SlotCount(); i++ {
		marker, err := s.readMarker(i)
		if err != nil {
			return 0, err
		}
		switch marker {
		case markerErased:
			return i, nil
		case Marker:
		default:
			debug.Println("persist: slot " + debug.Itoa(i) + " has marker " + debug.Hex16(marker) + ", reclaiming")
			return -1, nil
		}
	}
	return -1, nil
}

func (s *Store) slotOffset(slot int) int64 {
	return int64(slot * s.geo.SlotSize())
}

func (s *Store) readMarker(slot int) (uint16, error) {
	var b [MarkerSize]byte
	if _, err := s.flash.ReadAt(b[:], s.slotOffset(slot)); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// readSlot decodes slot. valid is false for erased and corrupt slots.
func (s *Store) readSlot(slot int) (r Record, valid bool, err error) {
	if _, err = s.flash.ReadAt(s.slot, s.slotOffset(slot)); err != nil {
		return r, false, err
	}
	if binary.LittleEndian.Uint16(s.slot) != Marker {
		return r, false, nil
	}
	err = r.UnmarshalBinary(s.slot[MarkerSize:])
	return r, err == nil, err
}

// clearPage resets the page image to the erased pattern, so programming it
// leaves slots that are not written untouched.
func (s *Store) clearPage() {
	for i := range s.page {
		s.page[i] = 0xFF
	}
}

// putSlot places r at slot index i within the page image.
func (s *Store) putSlot(i int, r Record) {
	b := s.page[i*s.geo.SlotSize():]
	binary.LittleEndian.PutUint16(b, Marker)
	r.put(b[MarkerSize:])
}

func (s *Store) programPage(page int) error {
	debug.Record(debug.EvtFlashWrite, 0, uint32(page), 0)
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.flash.ProgramPage(page, s.page)
}

// Dump writes a hex dump of the region to w.
func (s *Store) Dump(w io.Writer) error {
	d := hex.Dumper(w)
	defer d.Close()
	for slot := 0; slot < s.geo.SlotCount(); slot++ {
		if _, err := s.flash.ReadAt(s.slot, s.slotOffset(slot)); err != nil {
			return err
		}
		if _, err := d.Write(s.slot); err != nil {
			return fmt.Errorf("persist: dump slot %d: %w", slot, err)
		}
	}
	return nil
}
