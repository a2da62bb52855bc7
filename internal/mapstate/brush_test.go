package mapstate

import "testing"

func TestGaussianKernelCenterIsStrongest(t *testing.T) {
	kernel := gaussianKernel(5, 127)
	center := kernel[2*5+2]
	for i, v := range kernel {
		if i == 2*5+2 {
			continue
		}
		if abs8(v) > abs8(center) {
			t.Errorf("kernel[%d] = %d has larger magnitude than center %d", i, v, center)
		}
	}
}

func TestGaussianKernelRespectsSign(t *testing.T) {
	positive := gaussianKernel(3, 100)
	negative := gaussianKernel(3, -100)
	for i := range positive {
		if positive[i] < 0 || negative[i] > 0 {
			if !(positive[i] == 0 && negative[i] == 0) {
				t.Errorf("index %d: expected positive/negative kernels to carry the requested sign, got %d / %d", i, positive[i], negative[i])
			}
		}
	}
}

func TestRasterizeBrushCoversSquare(t *testing.T) {
	visited := make(map[[2]int]bool)
	rasterizeBrush(10, 10, 4, int8(drawDelta), nil, func(x, y int, delta int8) {
		visited[[2]int{x, y}] = true
		if delta != drawDelta {
			t.Errorf("flat brush delta = %d, want %d", delta, drawDelta)
		}
	})
	if len(visited) != 16 {
		t.Errorf("visited %d cells, want 16", len(visited))
	}
}

func abs8(v int8) int8 {
	if v < 0 {
		return -v
	}
	return v
}
