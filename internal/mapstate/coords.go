package mapstate

import "github.com/5t0n3/spacepaint/common"

const (
	// Width is the number of columns in the map. Roughly one cell per 6
	// minutes of longitude (3600 columns), rounded down to a multiple of 256
	// for GPU alignment.
	Width = 3584

	// Height is the number of rows in the map. One cell per 6 minutes of
	// latitude across 180 degrees.
	Height = 180 * 10

	// BytesPerPixel is 4: one byte per channel, 4 channels (T, Wx, Wy, Z).
	BytesPerPixel = 4

	// SizeBytes is the size of the raw RGBA8 buffer backing a Map.
	SizeBytes = Width * Height * BytesPerPixel
)

// Channel indexes the four bytes of a pixel.
type Channel int

const (
	ChannelTemperature Channel = 0
	ChannelWindX       Channel = 1
	ChannelWindY       Channel = 2
	ChannelHaze        Channel = 3
)

// latLongToPixel maps a (lat, long) point in degrees to an integer pixel
// coordinate. Row 0 is the top of the map (north); column 0 is the
// antimeridian going west (long -180). Both axes are clamped into range so
// a point slightly outside [-90,90]x[-180,180] still lands on the map.
func latLongToPixel(lat, long float64) (x, y int) {
	lat = common.Clamp(lat, -90.0, 90.0)
	long = common.Clamp(long, -180.0, 180.0)

	fx := ((long + 180.0) / 360.0) * float64(Width)
	fy := ((90.0 - lat) / 180.0) * float64(Height)

	x = clampPixel(int(fx), Width)
	y = clampPixel(int(fy), Height)
	return x, y
}

// pixelToLatLong is the inverse of latLongToPixel, used to report back the
// actual (lat, long) bounds of a cropped viewport after it has been
// snapped to pixel boundaries.
func pixelToLatLong(x, y int) (lat, long float64) {
	lat = 90.0 - (float64(y)/float64(Height))*180.0
	long = (float64(x)/float64(Width))*360.0 - 180.0
	return lat, long
}

func clampPixel(v, max int) int {
	return common.ClampInt(v, 0, max-1)
}
