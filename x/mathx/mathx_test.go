package mathx

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
		{11, 10, 0, 10}, // swapped bounds
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%d,%d,%d) = %d, want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
	if !Between(3, 5, 1) || Between(6, 1, 5) {
		t.Fatal("Between mismatch")
	}
}

func TestScale(t *testing.T) {
	cases := []struct {
		name string
		x    int
		lo   int
		hi   int
		want uint16
	}{
		{"min", 0, 0, 4095, 0},
		{"max", 4095, 0, 4095, 0x7FFF},
		{"mid", 2048, 0, 4095, 16387},
		{"below", -20, 0, 4095, 0},
		{"above", 5000, 0, 4095, 0x7FFF},
		{"inverted-min", 4095, 4095, 0, 0},
		{"inverted-max", 0, 4095, 0, 0x7FFF},
		{"degenerate", 7, 3, 3, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Scale(c.x, c.lo, c.hi, uint16(0), uint16(0x7FFF)); got != c.want {
				t.Fatalf("Scale(%d) = %d, want %d", c.x, got, c.want)
			}
		})
	}
}
