package core

import "hidlight/protocol"

// TemperatureSensor reads the board temperature in hundredths of a degree
// Celsius.
type TemperatureSensor interface {
	ReadTemperature() int32
}

// Internal sensor constants from the RP2040 datasheet: 0.706 V at 27 C,
// falling 1.721 mV per degree.
const (
	tempSensorRefMV   = 706
	tempSensorSlopeUV = 1721
	tempSensorRefC    = 27
	adcMax            = 4096
)

// TemperatureFromADC converts an averaged 12-bit sample of the internal
// sensor to centidegrees. arefMV is the ADC reference voltage.
func TemperatureFromADC(raw uint16, arefMV uint32) int32 {
	// microvolts keep the integer math exact enough for 0.01 C
	uv := int64(raw) * int64(arefMV) * 1000 / adcMax
	delta := (uv - tempSensorRefMV*1000) * 100 / tempSensorSlopeUV
	return int32(tempSensorRefC*100 - delta)
}

// SetTemperatureSensor registers get_temperature, answered from s.
func (lc *LampCommands) SetTemperatureSensor(s TemperatureSensor) {
	lc.reg.Register(protocol.CmdGetTemperature, "get_temperature", "", func(data *[]byte) error {
		centi := s.ReadTemperature()
		lc.out.SendCommand(protocol.CmdTemperature, func(output protocol.OutputBuffer) {
			protocol.EncodeVLQInt(output, centi)
		})
		return nil
	})
	lc.reg.RegisterResponse(protocol.CmdTemperature, "temperature", "centi_c=%i")
}
