//go:build rp2040

package main

import (
	"device/rp"
	"machine"

	"hidlight/core"
)

const (
	adcRefMilliVolt = 3300
	tempSamples     = 8
)

// internalTempSensor reads the RP2040's on-die sensor on ADC channel 4.
type internalTempSensor struct{}

func newInternalTempSensor() internalTempSensor {
	machine.InitADC()
	return internalTempSensor{}
}

// ReadTemperature implements core.TemperatureSensor. Several conversions are
// averaged; a single one jitters by a few degrees.
func (internalTempSensor) ReadTemperature() int32 {
	var sum uint32
	for i := 0; i < tempSamples; i++ {
		sum += uint32(rawInternalTemp())
	}
	return core.TemperatureFromADC(uint16(sum/tempSamples), adcRefMilliVolt)
}

// rawInternalTemp returns one 12-bit conversion of the temperature sensor.
func rawInternalTemp() uint16 {
	if rp.ADC.CS.Get()&rp.ADC_CS_EN == 0 {
		machine.InitADC()
	}

	rp.ADC.CS.SetBits(rp.ADC_CS_TS_EN)

	const tempChannel = 4
	rp.ADC.CS.ReplaceBits(
		uint32(tempChannel)<<rp.ADC_CS_AINSEL_Pos,
		rp.ADC_CS_AINSEL_Msk,
		0,
	)

	rp.ADC.CS.SetBits(rp.ADC_CS_START_ONCE)
	for !rp.ADC.CS.HasBits(rp.ADC_CS_READY) {
	}
	return uint16(rp.ADC.RESULT.Get())
}
