// package common contains common types that are used throughout the map
// engine. They are not interface-wrapped structs, just plain structs that
// express commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA pixel data for a texture binding pending GPU upload.
// This is primarily used by the GPU pipeline to stage pixel data for writing into an already created GPU texture.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels. The pipeline's Upload rejects staging data whose width does not match its textures.
	Width uint32
	// Height is the height of the texture in pixels. The pipeline's Upload rejects staging data whose height does not match its textures.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
}

// LatLong is a point on the globe in degrees. Lat is in [-90, 90], Long is in [-180, 180].
type LatLong struct {
	Lat  float64 `cbor:"lat"`
	Long float64 `cbor:"long"`
}

// Rect is a viewport or snapshot location expressed in (lat, long) degrees.
// Under a normal viewport TopLeft.Lat sits north of BottomRight.Lat and
// TopLeft.Long sits west of BottomRight.Long.
type Rect struct {
	TopLeft     LatLong `cbor:"top_left"`
	BottomRight LatLong `cbor:"bottom_right"`
}

// Clamp restricts v to the closed interval [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampInt restricts v to the closed interval [lo, hi].
func ClampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SaturatingAddSigned adds a signed delta to an unsigned byte, clamping the
// result to [0, 255] rather than wrapping or overflowing. Equivalent to
// Rust's u8::saturating_add_signed.
func SaturatingAddSigned(base uint8, delta int16) uint8 {
	sum := int16(base) + delta
	if sum < 0 {
		return 0
	}
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}
