//go:build rp2040

package main

import (
	"errors"
	"image/color"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"hidlight/core"
)

// WS2812 bit timing in PIO cycles: T1 high, T2 data, T3 low. Ten cycles per
// bit at 800 kbit/s puts the state machine at 8 MHz.
const (
	ws2812T1           = 2
	ws2812T2           = 5
	ws2812T3           = 3
	ws2812BitRate      = 800 * machine.KHz
	ws2812CyclesPerBit = ws2812T1 + ws2812T2 + ws2812T3

	ws2812PIOOrigin = 0 // absolute jump targets below assume offset 0
)

var errNoStateMachine = errors.New("pio: no free state machine")

// buildWS2812Program returns the pixel program. The data pin is driven by
// side-set; each OUT shifts one bit and the JMP stretches the high time for
// a 1 bit.
func buildWS2812Program() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 1}
	return []uint16{
		asm.Out(rp2pio.OutDestX, 1).Side(0).Delay(ws2812T3 - 1).Encode(),  // 0: bitloop
		asm.Jmp(3, rp2pio.JmpXZero).Side(1).Delay(ws2812T1 - 1).Encode(),  // 1: jmp !x do_zero
		asm.Jmp(0, rp2pio.JmpAlways).Side(1).Delay(ws2812T2 - 1).Encode(), // 2: do_one
		asm.Nop().Side(0).Delay(ws2812T2 - 1).Encode(),                    // 3: do_zero
	}
}

// ws2812Wrap returns the wrap target and wrap instruction for a program of n
// instructions loaded at offset. The state machine runs the last instruction
// and then jumps back to the first.
func ws2812Wrap(offset uint8, n int) (wrapTarget, wrap uint8) {
	return offset, offset + uint8(n) - 1
}

// PIOStripDriver is the StripDriver's PIO twin: pixels are clocked out by a
// state machine instead of a bit-banged loop, so interrupts do not disturb
// the timing.
type PIOStripDriver struct {
	sm     rp2pio.StateMachine
	pixels []color.RGBA
	dirty  bool
}

// NewPIOStripDriver claims a state machine on PIO0 and starts the pixel
// program on pin.
func NewPIOStripDriver(pin machine.Pin, count int) (*PIOStripDriver, error) {
	Pio := rp2pio.PIO0
	var sm rp2pio.StateMachine
	claimed := false
	for i := uint8(0); i < 4; i++ {
		sm = Pio.StateMachine(i)
		if sm.TryClaim() {
			claimed = true
			break
		}
	}
	if !claimed {
		return nil, errNoStateMachine
	}

	whole, frac, err := rp2pio.ClkDivFromFrequency(ws2812BitRate*ws2812CyclesPerBit, machine.CPUFrequency())
	if err != nil {
		return nil, err
	}
	program := buildWS2812Program()
	offset, err := Pio.AddProgram(program, ws2812PIOOrigin)
	if err != nil {
		return nil, err
	}

	pin.Configure(machine.PinConfig{Mode: Pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSidesetParams(1, false, false)
	cfg.SetSidesetPins(pin)
	cfg.SetWrap(ws2812Wrap(offset, len(program)))
	// 24 bits per pixel, MSB first, pulled automatically.
	cfg.SetOutShift(false, true, 24)
	cfg.SetFIFOJoin(rp2pio.FifoJoinTx)
	cfg.SetClkDivIntFrac(whole, frac)

	sm.Init(offset, cfg)
	sm.SetPindirsConsecutive(pin, 1, true)
	sm.SetEnabled(true)

	d := &PIOStripDriver{sm: sm, pixels: make([]color.RGBA, count), dirty: true}
	d.Flush()
	return d, nil
}

// SetLamp implements core.LampDriver.
func (d *PIOStripDriver) SetLamp(id uint8, v core.LampValue) {
	if int(id) >= len(d.pixels) {
		return
	}
	d.pixels[id] = pixelColor(v)
	d.dirty = true
}

// LampOff implements core.LampDriver.
func (d *PIOStripDriver) LampOff(id uint8) {
	d.SetLamp(id, core.LampOff())
}

// Flush implements core.LampFlusher.
func (d *PIOStripDriver) Flush() {
	if !d.dirty {
		return
	}
	for _, p := range d.pixels {
		grb := uint32(p.G)<<16 | uint32(p.R)<<8 | uint32(p.B)
		for d.sm.IsTxFIFOFull() {
		}
		d.sm.TxPut(grb << 8)
	}
	d.dirty = false
}
