package common

import "testing"

func TestClamp(t *testing.T) {
	cases := []struct {
		v, lo, hi, want float64
	}{
		{5, 0, 10, 5},
		{-5, 0, 10, 0},
		{15, 0, 10, 10},
		{0, 0, 10, 0},
		{10, 0, 10, 10},
	}
	for _, c := range cases {
		if got := Clamp(c.v, c.lo, c.hi); got != c.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestSaturatingAddSigned(t *testing.T) {
	cases := []struct {
		base  uint8
		delta int16
		want  uint8
	}{
		{0, 127, 127},
		{0, -127, 0},
		{250, 127, 255},
		{10, -127, 0},
		{128, 127, 255},
		{200, -50, 150},
	}
	for _, c := range cases {
		if got := SaturatingAddSigned(c.base, c.delta); got != c.want {
			t.Errorf("SaturatingAddSigned(%v, %v) = %v, want %v", c.base, c.delta, got, c.want)
		}
	}
}
