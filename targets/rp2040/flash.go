//go:build rp2040

package main

import (
	"fmt"
	"machine"

	"hidlight/persist"
)

// flashRegion is the settings region at the end of machine.Flash, the part
// of the QSPI flash not used by the program image.
type flashRegion struct {
	geo  persist.Geometry
	base int64 // offset of the region within machine.Flash
}

func newFlashRegion(geo persist.Geometry) (*flashRegion, error) {
	block := machine.Flash.EraseBlockSize()
	if int64(geo.RegionSize)%block != 0 {
		return nil, fmt.Errorf("flash: region of %d bytes is not a multiple of the %d byte erase block", geo.RegionSize, block)
	}
	base := machine.Flash.Size() - int64(geo.RegionSize)
	if base < 0 {
		return nil, fmt.Errorf("flash: %d bytes free, region needs %d", machine.Flash.Size(), geo.RegionSize)
	}
	return &flashRegion{geo: geo, base: base}, nil
}

// ReadAt implements persist.Flash.
func (f *flashRegion) ReadAt(p []byte, off int64) (int, error) {
	return machine.Flash.ReadAt(p, f.base+off)
}

// EraseRegion implements persist.Flash.
func (f *flashRegion) EraseRegion() error {
	block := machine.Flash.EraseBlockSize()
	return machine.Flash.EraseBlocks(f.base/block, int64(f.geo.RegionSize)/block)
}

// ProgramPage implements persist.Flash.
func (f *flashRegion) ProgramPage(page int, data []byte) error {
	if page < 0 || page >= f.geo.PageCount() {
		return persist.ErrPageRange
	}
	if len(data) != f.geo.PageSize {
		return persist.ErrPageSize
	}
	_, err := machine.Flash.WriteAt(data, f.base+int64(page*f.geo.PageSize))
	return err
}
