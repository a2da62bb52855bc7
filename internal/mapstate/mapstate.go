// Package mapstate holds the CPU-side mirror of the simulated map: a flat
// RGBA8 byte buffer of Width*Height*4 bytes, with channels (temperature,
// wind-x, wind-y, haze) packed one per byte per pixel. A Map owns both that
// buffer and the gpu.Pipeline used to advance it, and owns everything that
// touches the buffer directly: loading/saving it as a PNG, painting brush
// strokes onto it, advancing it through the GPU, and rendering cropped
// previews of it. It does not know about sessions; the orchestrator ties a
// Map to the session registry under one lock.
package mapstate

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"time"

	"golang.org/x/image/draw"

	"github.com/5t0n3/spacepaint/common"
	"github.com/5t0n3/spacepaint/internal/gpu"
	"github.com/5t0n3/spacepaint/internal/protocol"
)

// previewTargetPixels is the approximate pixel budget for a cropped
// snapshot sent to a client; the actual width/height are chosen to match
// the aspect ratio of the requested viewport as closely as possible while
// staying near this budget.
const previewTargetPixels = 40 * 22

// Map is the CPU mirror of the simulated map state, plus the GPU pipeline
// that advances it.
type Map struct {
	buf      []byte
	pipeline gpu.Pipeline

	// gaussianBrush selects weighted (Gaussian falloff) brush strokes
	// instead of the default flat-delta stroke. Off by default: the wire
	// protocol has no per-stroke flag for this, so it is a deployment-wide
	// choice rather than something a client picks.
	gaussianBrush bool
}

// New returns a Map whose buffer is the zero value: every channel at 0. The
// returned Map has no pipeline attached; call SetPipeline before Tick.
func New() *Map {
	return &Map{buf: make([]byte, SizeBytes)}
}

// SetPipeline attaches the gpu.Pipeline Tick advances the map through.
func (m *Map) SetPipeline(p gpu.Pipeline) {
	m.pipeline = p
}

// SetGaussianBrush toggles whether ApplyModification uses a Gaussian
// falloff kernel (true) or a flat delta (false, the default) across the
// brush square.
func (m *Map) SetGaussianBrush(enabled bool) {
	m.gaussianBrush = enabled
}

// LoadFromPNG decodes an 8-bit RGBA PNG of exactly Width x Height into a
// new Map.
func LoadFromPNG(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &BadImage{Cause: err}
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, &BadImage{Cause: err}
	}

	rgba, ok := img.(*image.NRGBA)
	if !ok {
		// Accept image.RGBA too: png.Decode returns NRGBA for images
		// without premultiplied alpha, which is what our channel bytes
		// need, but guard against other color models explicitly.
		if asRGBA, isRGBA := img.(*image.RGBA); isRGBA {
			return fromRGBA(asRGBA)
		}
		return nil, &BadImage{Cause: fmt.Errorf("expected 8-bit RGBA, got %T", img)}
	}

	b := rgba.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		return nil, &BadImage{Cause: fmt.Errorf("expected %dx%d, got %dx%d", Width, Height, b.Dx(), b.Dy())}
	}

	m := New()
	if rgba.Stride == Width*4 {
		copy(m.buf, rgba.Pix)
	} else {
		for y := 0; y < Height; y++ {
			srcStart := y * rgba.Stride
			dstStart := y * Width * 4
			copy(m.buf[dstStart:dstStart+Width*4], rgba.Pix[srcStart:srcStart+Width*4])
		}
	}
	return m, nil
}

func fromRGBA(img *image.RGBA) (*Map, error) {
	b := img.Bounds()
	if b.Dx() != Width || b.Dy() != Height {
		return nil, &BadImage{Cause: fmt.Errorf("expected %dx%d, got %dx%d", Width, Height, b.Dx(), b.Dy())}
	}
	m := New()
	for y := 0; y < Height; y++ {
		srcStart := y * img.Stride
		dstStart := y * Width * 4
		copy(m.buf[dstStart:dstStart+Width*4], img.Pix[srcStart:srcStart+Width*4])
	}
	return m, nil
}

// SaveToPNG encodes the current buffer as an 8-bit RGBA PNG and writes it
// to path, replacing any existing file.
func (m *Map) SaveToPNG(path string) error {
	img := &image.NRGBA{
		Pix:    m.buf,
		Stride: Width * 4,
		Rect:   image.Rect(0, 0, Width, Height),
	}

	f, err := os.Create(path)
	if err != nil {
		return &BadImage{Cause: err}
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return &BadImage{Cause: err}
	}
	return nil
}

// Bytes returns the raw buffer, for handing to gpu.Pipeline.Upload.
func (m *Map) Bytes() []byte {
	return m.buf
}

// SetBytes replaces the buffer contents in place, for receiving a
// gpu.Pipeline.Download result. data must be exactly SizeBytes long.
func (m *Map) SetBytes(data []byte) error {
	if len(data) != SizeBytes {
		return fmt.Errorf("mapstate: expected %d bytes, got %d", SizeBytes, len(data))
	}
	copy(m.buf, data)
	return nil
}

// Tick re-uploads the CPU mirror to the GPU pipeline, steps it n times, then
// downloads the result back into the mirror. n <= 0 is a no-op. Tick uses a
// bounded context internally so a stalled GPU cannot hang its caller forever.
func (m *Map) Tick(n int) error {
	if n <= 0 {
		return nil
	}
	if m.pipeline == nil {
		return fmt.Errorf("mapstate: Tick called with no pipeline attached")
	}

	staging := common.TextureStagingData{Pixels: m.buf, Width: Width, Height: Height}
	if err := m.pipeline.Upload(staging); err != nil {
		return err
	}

	for i := 0; i < n; i++ {
		if err := m.pipeline.Step(); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	next := make([]byte, SizeBytes)
	if err := m.pipeline.Download(ctx, next); err != nil {
		return err
	}
	copy(m.buf, next)
	return nil
}

// ApplyModification rasterizes a client's draw request directly onto the
// buffer using saturating per-channel arithmetic. Wind modifications are
// accepted but are a no-op.
func (m *Map) ApplyModification(kind protocol.ModificationKind, points []common.LatLong, brushSizeDegrees float64) error {
	channel, sign, ok := kind.Channel()
	if !ok {
		return nil
	}

	brushWidthPx := int((brushSizeDegrees / 180.0) * Height)
	if brushWidthPx <= 0 {
		brushWidthPx = 1
	}

	flatDelta := int8(sign * drawDelta)

	var kernel []int8
	if m.gaussianBrush && brushWidthPx > 2 {
		kernel = gaussianKernel(brushWidthPx, flatDelta)
	}

	for _, point := range points {
		centerX, centerY := latLongToPixel(point.Lat, point.Long)

		rasterizeBrush(centerX, centerY, brushWidthPx, flatDelta, kernel, func(x, y int, delta int8) {
			if x < 0 || x >= Width || y < 0 || y >= Height {
				return
			}
			index := y*Width*BytesPerPixel + x*BytesPerPixel + channel
			m.buf[index] = common.SaturatingAddSigned(m.buf[index], int16(delta))
		})
	}
	return nil
}

// RenderCropped crops the buffer to the pixel rectangle covering section,
// resizes it to approximately previewTargetPixels while preserving aspect
// ratio, and PNG-encodes the result. It returns the encoded image and the
// (lat,long) rectangle the crop actually covers once snapped to pixel
// boundaries.
func (m *Map) RenderCropped(section common.Rect) ([]byte, common.Rect, error) {
	x0, y0 := latLongToPixel(section.TopLeft.Lat, section.TopLeft.Long)
	x1, y1 := latLongToPixel(section.BottomRight.Lat, section.BottomRight.Long)

	if x1 <= x0 {
		x1 = x0 + 1
	}
	if y1 <= y0 {
		y1 = y0 + 1
	}
	x1 = ClampMax(x1, Width)
	y1 = ClampMax(y1, Height)

	src := &image.NRGBA{
		Pix:    m.buf,
		Stride: Width * 4,
		Rect:   image.Rect(0, 0, Width, Height),
	}
	cropRect := image.Rect(x0, y0, x1, y1)

	lat0, long0 := pixelToLatLong(x0, y0)
	lat1, long1 := pixelToLatLong(x1, y1)
	coverage := common.Rect{
		TopLeft:     common.LatLong{Lat: lat0, Long: long0},
		BottomRight: common.LatLong{Lat: lat1, Long: long1},
	}

	w, h := previewDimensions(cropRect.Dx(), cropRect.Dy())

	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, cropRect, draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return nil, common.Rect{}, &BadImage{Cause: err}
	}
	return out.Bytes(), coverage, nil
}

// previewDimensions picks an output width/height near previewTargetPixels
// that preserves the aspect ratio of a cropWidth x cropHeight source
// region.
func previewDimensions(cropWidth, cropHeight int) (w, h int) {
	if cropWidth <= 0 || cropHeight <= 0 {
		return 22, 40
	}
	aspect := float64(cropWidth) / float64(cropHeight)

	fh := math.Sqrt(float64(previewTargetPixels) / aspect)
	fw := math.Sqrt(float64(previewTargetPixels) * aspect)

	w = int(fw + 0.5)
	h = int(fh + 0.5)
	if w == 0 || h == 0 {
		return 22, 40
	}
	return w, h
}

// ClampMax restricts v to the closed interval [1, max]. RenderCropped uses
// the result as an exclusive crop bound, so max itself is a valid result.
func ClampMax(v, max int) int {
	return common.ClampInt(v, 1, max)
}
