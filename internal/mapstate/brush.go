package mapstate

import "math"

// drawDelta is the per-application magnitude added to or subtracted from a
// channel byte for every pixel a brush touches.
const drawDelta = 127

// gaussianKernel precomputes a width*width table of signed weights summing
// to approximately scale: each entry is exp(-(dx^2+dy^2)) normalized so the
// unweighted entries sum to 1, then scaled by scale and truncated (not
// rounded) to int8. Small entries routinely truncate to 0, which is
// expected: the falloff is meant to taper to nothing near the edge of the
// brush, not to preserve every fractional weight.
func gaussianKernel(width int, scale int8) []int8 {
	kernel := make([]int8, width*width)
	if width == 0 {
		return kernel
	}
	center := float64(width-1) / 2.0

	raw := make([]float64, width*width)
	var sum float64
	for y := 0; y < width; y++ {
		for x := 0; x < width; x++ {
			dx := float64(x) - center
			dy := float64(y) - center
			v := math.Exp(-(dx*dx + dy*dy))
			raw[y*width+x] = v
			sum += v
		}
	}

	for i, v := range raw {
		kernel[i] = int8((v / sum) * float64(scale))
	}
	return kernel
}

// rasterizeBrush calls visit(x, y, delta) for every pixel in a
// width-by-width square centered on (centerX, centerY). delta is the
// already-signed flatDelta for a flat brush (kernel == nil), or the
// corresponding precomputed, already-signed Gaussian weight otherwise.
func rasterizeBrush(centerX, centerY, width int, flatDelta int8, kernel []int8, visit func(x, y int, delta int8)) {
	if width <= 0 {
		return
	}
	half := width / 2

	for i := 0; i < width*width; i++ {
		xOffset := centerX + (i/width - half)
		yOffset := centerY + (i%width - half)

		delta := flatDelta
		if kernel != nil {
			delta = kernel[i]
		}
		visit(xOffset, yOffset, delta)
	}
}
