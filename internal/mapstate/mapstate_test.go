package mapstate

import (
	"bytes"
	"context"
	"image/png"
	"math"
	"testing"

	"github.com/5t0n3/spacepaint/common"
	"github.com/5t0n3/spacepaint/internal/protocol"
)

// fakePipeline records calls instead of touching a GPU, so Tick can be
// exercised without a device.
type fakePipeline struct {
	uploaded   []byte
	steps      int
	downloadFn func(dst []byte)
	err        error
}

func (f *fakePipeline) Upload(staging common.TextureStagingData) error {
	if f.err != nil {
		return f.err
	}
	f.uploaded = append([]byte(nil), staging.Pixels...)
	return nil
}

func (f *fakePipeline) Step() error {
	if f.err != nil {
		return f.err
	}
	f.steps++
	return nil
}

func (f *fakePipeline) Download(ctx context.Context, dst []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.downloadFn != nil {
		f.downloadFn(dst)
	}
	return nil
}

func (f *fakePipeline) Release() {}

func TestNewHasExactSize(t *testing.T) {
	m := New()
	if len(m.Bytes()) != SizeBytes {
		t.Fatalf("len(Bytes()) = %d, want %d", len(m.Bytes()), SizeBytes)
	}
}

func TestSetBytesRejectsWrongSize(t *testing.T) {
	m := New()
	if err := m.SetBytes(make([]byte, SizeBytes-1)); err == nil {
		t.Fatal("expected error for undersized buffer, got nil")
	}
}

// A Heat modification at (0,0) with a 1 degree brush on an all-zero
// channel-0 map sets the center pixel's temperature byte to exactly 127.
func TestApplyModificationHeatAtCenter(t *testing.T) {
	m := New()

	if err := m.ApplyModification(protocol.ModificationHeat, []common.LatLong{{Lat: 0, Long: 0}}, 1.0); err != nil {
		t.Fatalf("ApplyModification: %v", err)
	}

	cx, cy := latLongToPixel(0, 0)
	idx := cy*Width*BytesPerPixel + cx*BytesPerPixel
	if m.buf[idx] != 127 {
		t.Errorf("channel 0 at brush center = %d, want 127", m.buf[idx])
	}

	// A pixel well outside the brush radius must be untouched.
	farIdx := idx + 100*BytesPerPixel
	if m.buf[farIdx] != 0 {
		t.Errorf("channel 0 far from brush = %d, want 0", m.buf[farIdx])
	}
}

func TestApplyModificationOnlyTouchesSelectedChannel(t *testing.T) {
	m := New()
	for i := range m.buf {
		m.buf[i] = 100
	}

	if err := m.ApplyModification(protocol.ModificationHumidify, []common.LatLong{{Lat: 10, Long: 10}}, 2.0); err != nil {
		t.Fatalf("ApplyModification: %v", err)
	}

	for i, b := range m.buf {
		channel := i % BytesPerPixel
		if channel == int(ChannelHaze) {
			continue
		}
		if b != 100 {
			t.Fatalf("byte at index %d (channel %d) changed to %d, want untouched 100", i, channel, b)
		}
	}
}

func TestApplyModificationWindIsNoOp(t *testing.T) {
	m := New()
	before := make([]byte, len(m.buf))
	copy(before, m.buf)

	if err := m.ApplyModification(protocol.ModificationWind, []common.LatLong{{Lat: 0, Long: 0}}, 5.0); err != nil {
		t.Fatalf("ApplyModification: %v", err)
	}

	for i := range m.buf {
		if m.buf[i] != before[i] {
			t.Fatalf("Wind modification mutated byte %d", i)
		}
	}
}

func TestApplyModificationSaturates(t *testing.T) {
	m := New()
	for i := range m.buf {
		if i%BytesPerPixel == 0 {
			m.buf[i] = 250
		}
	}

	if err := m.ApplyModification(protocol.ModificationHeat, []common.LatLong{{Lat: 0, Long: 0}}, 1.0); err != nil {
		t.Fatalf("ApplyModification: %v", err)
	}

	cx, cy := latLongToPixel(0, 0)
	idx := cy*Width*BytesPerPixel + cx*BytesPerPixel
	if m.buf[idx] != 255 {
		t.Errorf("channel 0 at brush center = %d, want saturated 255", m.buf[idx])
	}
}

func TestTickNoPipelineErrors(t *testing.T) {
	m := New()
	if err := m.Tick(1); err == nil {
		t.Fatal("expected error ticking a Map with no pipeline attached")
	}
}

func TestTickZeroStepsIsNoOp(t *testing.T) {
	m := New()
	fp := &fakePipeline{}
	m.SetPipeline(fp)

	if err := m.Tick(0); err != nil {
		t.Fatalf("Tick(0): %v", err)
	}
	if fp.steps != 0 {
		t.Errorf("Step called %d times for Tick(0), want 0", fp.steps)
	}
}

func TestTickUploadsStepsAndDownloads(t *testing.T) {
	m := New()
	m.buf[0] = 42

	fp := &fakePipeline{
		downloadFn: func(dst []byte) {
			for i := range dst {
				dst[i] = 7
			}
		},
	}
	m.SetPipeline(fp)

	if err := m.Tick(3); err != nil {
		t.Fatalf("Tick(3): %v", err)
	}
	if fp.steps != 3 {
		t.Errorf("Step called %d times, want 3", fp.steps)
	}
	if len(fp.uploaded) != SizeBytes || fp.uploaded[0] != 42 {
		t.Errorf("Upload did not receive the pre-tick buffer contents")
	}
	for i, b := range m.buf {
		if b != 7 {
			t.Fatalf("byte %d after Tick = %d, want 7 (downloaded value)", i, b)
		}
	}
}

func TestTickPropagatesPipelineError(t *testing.T) {
	m := New()
	fp := &fakePipeline{err: context.DeadlineExceeded}
	m.SetPipeline(fp)

	if err := m.Tick(1); err == nil {
		t.Fatal("expected error when the pipeline fails")
	}
}

func TestRenderCroppedPreservesAspectRatio(t *testing.T) {
	m := New()
	section := common.Rect{
		TopLeft:     common.LatLong{Lat: 89, Long: -179},
		BottomRight: common.LatLong{Lat: -89, Long: 179},
	}

	data, _, err := m.RenderCropped(section)
	if err != nil {
		t.Fatalf("RenderCropped: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty PNG bytes")
	}

	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	// The section spans 358 degrees of longitude and 178 of latitude.
	wantAspect := 358.0 / 178.0
	gotAspect := float64(cfg.Width) / float64(cfg.Height)
	if math.Abs(gotAspect-wantAspect) > 0.15 {
		t.Errorf("preview is %dx%d (aspect %.2f), want aspect near %.2f", cfg.Width, cfg.Height, gotAspect, wantAspect)
	}
}
