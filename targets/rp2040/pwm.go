//go:build rp2040

package main

import (
	"machine"

	"hidlight/config"
	"hidlight/core"
)

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

type pwmOutput struct {
	pwm     pwmPeripheral
	channel uint8
}

func (o pwmOutput) set(level uint16) {
	// 16-bit level scaled to the slice's counter range.
	o.pwm.Set(o.channel, uint32(uint64(level)*uint64(o.pwm.Top())/0xFFFF))
}

// PWMLampDriver drives each lamp as three hardware PWM channels. The RP2040
// has 8 slices with 2 channels each; GPIO N sits on slice (N>>1)&7, channel
// N&1. Pins sharing a slice share its period.
type PWMLampDriver struct {
	lamps [][3]pwmOutput
}

// NewPWMLampDriver configures the red, green and blue pin of every lamp.
func NewPWMLampDriver(lamps []config.LampConfig, freqHz uint32) (*PWMLampDriver, error) {
	if freqHz == 0 {
		freqHz = 1000
	}
	period := uint64(1e9) / uint64(freqHz)

	d := &PWMLampDriver{lamps: make([][3]pwmOutput, len(lamps))}
	configured := make(map[uint8]bool)
	for i, lamp := range lamps {
		for c, name := range []string{lamp.Red, lamp.Green, lamp.Blue} {
			num, err := config.ParsePin(name)
			if err != nil {
				return nil, err
			}
			slice := (num >> 1) & 0x7
			pwm := pwmSlice(slice)
			if !configured[slice] {
				if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
					return nil, err
				}
				configured[slice] = true
			}
			channel, err := pwm.Channel(machine.Pin(num))
			if err != nil {
				return nil, err
			}
			d.lamps[i][c] = pwmOutput{pwm: pwm, channel: channel}
			pwm.Set(channel, 0)
		}
	}
	return d, nil
}

// SetLamp implements core.LampDriver.
func (d *PWMLampDriver) SetLamp(id uint8, v core.LampValue) {
	if int(id) >= len(d.lamps) {
		return
	}
	if !v.IsOn() {
		d.LampOff(id)
		return
	}
	out := d.lamps[id]
	out[0].set(v.R)
	out[1].set(v.G)
	out[2].set(v.B)
}

// LampOff implements core.LampDriver.
func (d *PWMLampDriver) LampOff(id uint8) {
	if int(id) >= len(d.lamps) {
		return
	}
	for _, o := range d.lamps[id] {
		o.set(0)
	}
}

// pwmSlice returns the PWM peripheral for a slice number.
func pwmSlice(slice uint8) pwmPeripheral {
	switch slice {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
