package core

import (
	"testing"

	"hidlight/protocol"
)

type fixedSensor int32

func (s fixedSensor) ReadTemperature() int32 { return int32(s) }

func TestTemperatureFromADC(t *testing.T) {
	tests := []struct {
		raw  uint16
		want int32
	}{
		// 0.706 V is 27 C by definition
		{876, 2700},
		{0, 43722},
		{4095, -147979},
	}
	for _, tt := range tests {
		got := TemperatureFromADC(tt.raw, 3300)
		if d := got - tt.want; d > 30 || d < -30 {
			t.Errorf("TemperatureFromADC(%d) = %d, want about %d", tt.raw, got, tt.want)
		}
	}
}

func TestGetTemperatureCommand(t *testing.T) {
	f := newCommandFixture(t, 1, nil)

	if err := f.call(protocol.CmdGetTemperature); err == nil {
		t.Error("Expected get_temperature to be unknown without a sensor")
	}

	f.lc.SetTemperatureSensor(fixedSensor(-1250))
	if err := f.call(protocol.CmdGetTemperature); err != nil {
		t.Fatalf("get_temperature failed: %v", err)
	}
	data := f.out.last(t, protocol.CmdTemperature)
	got, err := protocol.DecodeVLQInt(&data)
	if err != nil || got != -1250 {
		t.Errorf("Expected -1250, got %d (%v)", got, err)
	}
}
