//go:build rp2040

package main

import "testing"

// PIO opcodes live in bits 15:13 of an instruction.
const (
	pioOpJmp = 0b000
	pioOpOut = 0b011
	pioOpMov = 0b101
)

func TestWS2812WrapRunsWholeProgram(t *testing.T) {
	program := buildWS2812Program()
	if len(program) != 4 {
		t.Fatalf("Expected a 4 instruction program, got %d", len(program))
	}

	for _, offset := range []uint8{0, 8, 28} {
		target, wrap := ws2812Wrap(offset, len(program))
		if target != offset {
			t.Errorf("offset %d: wrap target %d, expected the first instruction", offset, target)
		}
		if wrap != offset+3 {
			t.Errorf("offset %d: wrap %d, expected the last instruction", offset, wrap)
		}
		if target > wrap {
			t.Errorf("offset %d: wrap target %d is past wrap %d", offset, target, wrap)
		}
	}

	// Execution wraps from the do_zero nop back to the bit shift, and the
	// bit test right after the shift is reachable.
	target, wrap := ws2812Wrap(0, len(program))
	if op := program[target] >> 13; op != pioOpOut {
		t.Errorf("Expected OUT at the wrap target, got opcode %03b", op)
	}
	if op := program[target+1] >> 13; op != pioOpJmp {
		t.Errorf("Expected the bit test JMP after the shift, got opcode %03b", op)
	}
	// nop assembles to mov y, y.
	if op := program[wrap] >> 13; op != pioOpMov {
		t.Errorf("Expected the nop at the wrap, got opcode %03b", op)
	}
}
