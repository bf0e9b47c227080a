package color

import "testing"

func absDiff(a, b uint16) uint16 {
	if a > b {
		return a - b
	}
	return b - a
}

func TestOklabRoundTripRGB8(t *testing.T) {
	step := 1
	if testing.Short() {
		step = 5
	}

	for r := 0; r < 256; r += step {
		for g := 0; g < 256; g += step {
			for b := 0; b < 256; b += step {
				in := RGB8{uint8(r), uint8(g), uint8(b)}
				out := FromOklab(ToOklab(in.Float())).RGB8()

				if absDiff(uint16(in.R), uint16(out.R)) > 1 ||
					absDiff(uint16(in.G), uint16(out.G)) > 1 ||
					absDiff(uint16(in.B), uint16(out.B)) > 1 {
					t.Fatalf("round trip of %v produced %v", in, out)
				}
			}
		}
	}
}

func TestOklabRoundTripRGB16(t *testing.T) {
	for r := 0; r < 65536; r += 4369 {
		for g := 0; g < 65536; g += 4369 {
			for b := 0; b < 65536; b += 4369 {
				in := RGB16{uint16(r), uint16(g), uint16(b)}
				out := FromOklab(ToOklab(in.Float())).RGB16()

				if absDiff(in.R, out.R) > 1 || absDiff(in.G, out.G) > 1 || absDiff(in.B, out.B) > 1 {
					t.Fatalf("round trip of %v produced %v", in, out)
				}
			}
		}
	}
}

func TestOklabReferenceValues(t *testing.T) {
	white := ToOklab(RGB{1, 1, 1})
	if white.L < 0.999 || white.L > 1.001 {
		t.Errorf("Expected white lightness ~1.0, got %f", white.L)
	}
	if white.A > 1e-3 || white.A < -1e-3 || white.B > 1e-3 || white.B < -1e-3 {
		t.Errorf("Expected white to be achromatic, got a=%f b=%f", white.A, white.B)
	}

	black := ToOklab(RGB{})
	if black != (Lab{}) {
		t.Errorf("Expected black to map to the origin, got %+v", black)
	}
}

func TestQuantizeRoundsAndClamps(t *testing.T) {
	tests := []struct {
		in   RGB
		want RGB8
	}{
		{RGB{0, 0, 0}, RGB8{0, 0, 0}},
		{RGB{1, 1, 1}, RGB8{255, 255, 255}},
		{RGB{-0.2, 1.3, 0.5}, RGB8{0, 255, 128}},
		// 0.998 * 255 = 254.49 rounds down, 0.999 * 255 = 254.745 rounds up
		{RGB{0.998, 0.999, 0.002}, RGB8{254, 255, 1}},
	}

	for _, tt := range tests {
		if got := tt.in.RGB8(); got != tt.want {
			t.Errorf("RGB8(%+v) = %+v, want %+v", tt.in, got, tt.want)
		}
	}

	if got := (RGB{2, -1, 1}).RGB16(); got != (RGB16{65535, 0, 65535}) {
		t.Errorf("Expected RGB16 to clamp, got %+v", got)
	}
}

func TestLabArithmetic(t *testing.T) {
	a := Lab{L: 0.5, A: 0.1, B: -0.1}
	b := Lab{L: 0.25, A: -0.1, B: 0.1}

	diff := a.Sub(b).Div(5)
	sum := b
	for i := 0; i < 5; i++ {
		sum = sum.Add(diff)
	}

	const eps = 1e-6
	if d := sum.L - a.L; d > eps || d < -eps {
		t.Errorf("Expected L %f after stepping, got %f", a.L, sum.L)
	}
	if d := sum.A - a.A; d > eps || d < -eps {
		t.Errorf("Expected a %f after stepping, got %f", a.A, sum.A)
	}
}
