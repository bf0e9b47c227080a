package debug

import (
	"strings"
	"testing"
)

func TestPrintlnRespectsEnabled(t *testing.T) {
	var lines []string
	SetWriter(func(s string) { lines = append(lines, s) })
	defer SetWriter(nil)
	defer SetEnabled(false)

	SetEnabled(false)
	Println("hidden")
	if len(lines) != 0 {
		t.Fatalf("Expected no output while disabled, got %v", lines)
	}

	SetEnabled(true)
	Println("shown")
	if len(lines) != 1 || lines[0] != "shown" {
		t.Errorf("Expected [shown], got %v", lines)
	}
}

func TestEventRingKeepsNewest(t *testing.T) {
	Clear()
	defer Clear()

	now := uint32(0)
	SetClock(func() uint32 { now += 10; return now })
	defer SetClock(nil)

	for i := 0; i < ringSize+5; i++ {
		Record(EvtFrame, 1, uint32(i), 0)
	}

	events := Events()
	if len(events) != ringSize {
		t.Fatalf("Expected %d events, got %d", ringSize, len(events))
	}
	if events[0].Value1 != 5 {
		t.Errorf("Expected oldest event to be #5, got #%d", events[0].Value1)
	}
	if last := events[len(events)-1]; last.Value1 != ringSize+4 {
		t.Errorf("Expected newest event to be #%d, got #%d", ringSize+4, last.Value1)
	}
}

func TestDumpFormatsEvents(t *testing.T) {
	Clear()
	defer Clear()

	var out strings.Builder
	SetWriter(func(s string) { out.WriteString(s + "\n") })
	defer SetWriter(nil)

	Record(EvtReclaim, 0, 3, 0)
	Dump()

	if !strings.Contains(out.String(), "RECLAIM lamp=0 clock=0 v1=3 v2=0") {
		t.Errorf("Unexpected dump output:\n%s", out.String())
	}
}

func TestLineWriterSplitsLines(t *testing.T) {
	var lines []string
	SetWriter(func(s string) { lines = append(lines, s) })
	defer SetWriter(nil)

	w := LineWriter()
	w.Write([]byte("00000000  ed 01"))
	w.Write([]byte(" 00\n00000010  ff\n00000020"))

	want := []string{"00000000  ed 01 00", "00000010  ff"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Errorf("Expected %q, got %q", want, lines)
	}

	w.Write([]byte("\n"))
	if len(lines) != 3 || lines[2] != "00000020" {
		t.Errorf("Expected the held partial line once its newline arrived, got %q", lines)
	}
}

func TestNumberFormatting(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{Itoa(0), "0"},
		{Itoa(-42), "-42"},
		{Utoa(4294967295), "4294967295"},
		{Hex16(0x01ed), "0x01ed"},
		{Hex16(0xFFFF), "0xffff"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
