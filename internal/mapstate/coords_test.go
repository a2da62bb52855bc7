package mapstate

import "testing"

func TestCoordinateRoundTrip(t *testing.T) {
	points := []struct{ x, y int }{
		{0, 0},
		{Width - 1, Height - 1},
		{Width / 2, Height / 2},
		{1, 1799},
		{3583, 0},
	}
	for _, p := range points {
		lat, long := pixelToLatLong(p.x, p.y)
		x, y := latLongToPixel(lat, long)
		if abs(x-p.x) > 1 || abs(y-p.y) > 1 {
			t.Errorf("round trip (%d,%d) -> (%v,%v) -> (%d,%d), drifted more than one pixel", p.x, p.y, lat, long, x, y)
		}
	}
}

func TestLatLongToPixelNorthIsSmallY(t *testing.T) {
	_, yNorth := latLongToPixel(89, 0)
	_, ySouth := latLongToPixel(-89, 0)
	if yNorth >= ySouth {
		t.Errorf("expected north latitude to map to a smaller pixel row than south, got yNorth=%d ySouth=%d", yNorth, ySouth)
	}
}

func TestLatLongToPixelClampsOutOfRange(t *testing.T) {
	x, y := latLongToPixel(1000, 1000)
	if x != Width-1 || y != 0 {
		t.Errorf("expected clamping to (Width-1, 0), got (%d, %d)", x, y)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
