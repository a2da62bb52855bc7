// Package gpu drives the ping-pong GPU render pipeline that advances the
// map's physical state one step at a time. It holds two RGBA8-unorm
// textures and flips which one is the render target on every Step, so the
// CPU side never has to allocate or manage GPU memory directly: it just
// uploads bytes, calls Step some number of times, and downloads bytes back.
//
// The fragment shader itself is an opaque pure function over (pixel,
// neighbors); this package does not know or care what it computes, only
// that it samples one RGBA8 texture and writes one RGBA8 texture of the
// same size.
package gpu

import (
	"context"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rs/zerolog"

	"github.com/5t0n3/spacepaint/common"
)

// DefaultSampler is the sampler configuration used when Config.Sampler is
// left at its zero value: nearest-neighbor filtering clamped to the
// texture edge. The map's channels are discrete quantities, not a
// photograph, so there is no reason to blend between texels.
var DefaultSampler = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeNearest,
	MinFilter:    wgpu.FilterModeNearest,
	MipmapFilter: wgpu.MipmapFilterModeNearest,
}

// Config configures a Pipeline's fixed geometry and shader.
type Config struct {
	Width, Height uint32

	// FragmentShader is the WGSL source for the fs_main entry point that
	// advances one pixel. If empty, an identity pass is used (useful for
	// tests and for bring-up before the real shader is wired in).
	FragmentShader string

	// Sampler configures the texture sampler shared by both ping-pong
	// bind groups. The zero value selects DefaultSampler.
	Sampler common.SamplerStagingData

	// ForceFallbackAdapter requests a software adapter instead of
	// whatever hardware adapter the host exposes. Mainly useful in CI.
	ForceFallbackAdapter bool

	Log zerolog.Logger
}

// Pipeline advances an RGBA8 byte buffer through the fixed fragment shader,
// one step per call to Step.
type Pipeline interface {
	// Upload writes CPU bytes into the texture that will be sampled by the
	// next Step. staging.Pixels must be Width*Height*4 bytes of tightly
	// packed RGBA8, and staging.Width/Height must match the pipeline.
	Upload(staging common.TextureStagingData) error

	// Step renders the fragment shader once, flipping which texture holds
	// the most recently advanced state.
	Step() error

	// Download reads the most recently advanced texture back into dst,
	// which must be Width*Height*4 bytes.
	Download(ctx context.Context, dst []byte) error

	// Release frees GPU resources. The Pipeline is unusable afterward.
	Release()
}

type pipeline struct {
	width, height uint32
	log           zerolog.Logger

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	renderPipeline *wgpu.RenderPipeline
	sampler        *wgpu.Sampler

	textureA, textureB *wgpu.Texture
	viewA, viewB       *wgpu.TextureView

	// bindGroupForSourceA/B sample textureA/textureB respectively; both are
	// built once at Init since the fixed pipeline only ever has two
	// possible bind-group configurations.
	bindGroupForSourceA *wgpu.BindGroup
	bindGroupForSourceB *wgpu.BindGroup

	readback *wgpu.Buffer

	// renderToB is true when textureB is the next render target (and
	// textureA therefore holds the most recently advanced state, and is
	// the source for the next Step). It starts true so the first Step
	// renders A -> B.
	renderToB bool
}

// Init acquires a GPU adapter/device and builds the fixed ping-pong render
// pipeline described by cfg.
func Init(cfg Config) (Pipeline, error) {
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, &InitError{Stage: "config", Cause: fmt.Errorf("width and height must be nonzero")}
	}

	fragSource := cfg.FragmentShader
	if fragSource == "" {
		fragSource = identityFragmentShader
	}

	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      wgpu.PowerPreferenceHighPerformance,
		ForceFallbackAdapter: cfg.ForceFallbackAdapter,
	})
	if err != nil {
		return nil, &InitError{Stage: "request adapter", Cause: err}
	}

	device, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "spacepaint device"})
	if err != nil {
		return nil, &InitError{Stage: "request device", Cause: err}
	}
	queue := device.GetQueue()

	vertexModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "map vertex shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fullscreenVertexShader},
	})
	if err != nil {
		return nil, &InitError{Stage: "vertex shader", Cause: err}
	}

	fragmentModule, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "map fragment shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: fragSource},
	})
	if err != nil {
		return nil, &InitError{Stage: "fragment shader", Cause: err}
	}

	bindGroupLayout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "map bind group layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return nil, &InitError{Stage: "bind group layout", Cause: err}
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "map pipeline layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bindGroupLayout},
	})
	if err != nil {
		return nil, &InitError{Stage: "pipeline layout", Cause: err}
	}

	renderPipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "map render pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vertexModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     fragmentModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    wgpu.TextureFormatRGBA8Unorm,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, &InitError{Stage: "render pipeline", Cause: err}
	}

	textureA, viewA, err := createMapTexture(device, cfg.Width, cfg.Height, "map texture a")
	if err != nil {
		return nil, &InitError{Stage: "texture a", Cause: err}
	}
	textureB, viewB, err := createMapTexture(device, cfg.Width, cfg.Height, "map texture b")
	if err != nil {
		return nil, &InitError{Stage: "texture b", Cause: err}
	}

	samplerCfg := cfg.Sampler
	if samplerCfg == (common.SamplerStagingData{}) {
		samplerCfg = DefaultSampler
	}
	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:        "map sampler",
		AddressModeU: samplerCfg.AddressModeU,
		AddressModeV: samplerCfg.AddressModeV,
		AddressModeW: samplerCfg.AddressModeW,
		MagFilter:    samplerCfg.MagFilter,
		MinFilter:    samplerCfg.MinFilter,
		MipmapFilter: samplerCfg.MipmapFilter,
	})
	if err != nil {
		return nil, &InitError{Stage: "sampler", Cause: err}
	}

	bindGroupForSourceA, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "map bind group (source a)",
		Layout: bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: viewA},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		return nil, &InitError{Stage: "bind group a", Cause: err}
	}

	bindGroupForSourceB, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "map bind group (source b)",
		Layout: bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: viewB},
			{Binding: 1, Sampler: sampler},
		},
	})
	if err != nil {
		return nil, &InitError{Stage: "bind group b", Cause: err}
	}

	readback, err := device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "map readback buffer",
		Size:  uint64(cfg.Width) * uint64(cfg.Height) * 4,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, &InitError{Stage: "readback buffer", Cause: err}
	}

	return &pipeline{
		width:               cfg.Width,
		height:              cfg.Height,
		log:                 cfg.Log,
		instance:            instance,
		adapter:             adapter,
		device:              device,
		queue:               queue,
		renderPipeline:      renderPipeline,
		sampler:             sampler,
		textureA:            textureA,
		textureB:            textureB,
		viewA:               viewA,
		viewB:               viewB,
		bindGroupForSourceA: bindGroupForSourceA,
		bindGroupForSourceB: bindGroupForSourceB,
		readback:            readback,
		renderToB:           true,
	}, nil
}

func createMapTexture(device *wgpu.Device, width, height uint32, label string) (*wgpu.Texture, *wgpu.TextureView, error) {
	texture, err := device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageCopySrc | wgpu.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, nil, err
	}
	view, err := texture.CreateView(nil)
	if err != nil {
		return nil, nil, err
	}
	return texture, view, nil
}

// sourceTexture returns the texture that currently holds the most recently
// advanced state. It is both the destination for Upload (the CPU mirror is
// always re-uploaded into the texture it was last downloaded from) and the
// source for Download.
func (p *pipeline) sourceTexture() *wgpu.Texture {
	if p.renderToB {
		return p.textureA
	}
	return p.textureB
}

func (p *pipeline) sourceBindGroup() *wgpu.BindGroup {
	if p.renderToB {
		return p.bindGroupForSourceA
	}
	return p.bindGroupForSourceB
}

func (p *pipeline) targetView() *wgpu.TextureView {
	if p.renderToB {
		return p.viewB
	}
	return p.viewA
}

func (p *pipeline) Upload(staging common.TextureStagingData) error {
	expected := int(p.width) * int(p.height) * 4
	if len(staging.Pixels) != expected || staging.Width != p.width || staging.Height != p.height {
		return &UploadError{Cause: fmt.Errorf("expected %dx%d (%d bytes), got %dx%d (%d bytes)",
			p.width, p.height, expected, staging.Width, staging.Height, len(staging.Pixels))}
	}

	p.queue.WriteTexture(
		&wgpu.ImageCopyTexture{Texture: p.sourceTexture(), MipLevel: 0, Origin: wgpu.Origin3D{}},
		staging.Pixels,
		&wgpu.TextureDataLayout{Offset: 0, BytesPerRow: p.width * 4, RowsPerImage: p.height},
		&wgpu.Extent3D{Width: p.width, Height: p.height, DepthOrArrayLayers: 1},
	)
	return nil
}

func (p *pipeline) Step() error {
	encoder, err := p.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "map step encoder"})
	if err != nil {
		return fmt.Errorf("gpu: create command encoder: %w", err)
	}

	pass, err := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "map step pass",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    p.targetView(),
				LoadOp:  wgpu.LoadOpClear,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("gpu: begin render pass: %w", err)
	}

	pass.SetPipeline(p.renderPipeline)
	pass.SetBindGroup(0, p.sourceBindGroup(), nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("gpu: finish command encoder: %w", err)
	}
	p.queue.Submit(commandBuffer)

	p.renderToB = !p.renderToB
	return nil
}

func (p *pipeline) Download(ctx context.Context, dst []byte) error {
	expected := int(p.width) * int(p.height) * 4
	if len(dst) != expected {
		return &DownloadError{Cause: fmt.Errorf("expected %d bytes, got %d", expected, len(dst))}
	}

	encoder, err := p.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: "map download encoder"})
	if err != nil {
		return &DownloadError{Cause: err}
	}

	encoder.CopyTextureToBuffer(
		&wgpu.ImageCopyTexture{Texture: p.sourceTexture(), MipLevel: 0, Origin: wgpu.Origin3D{}},
		&wgpu.ImageCopyBuffer{
			Buffer: p.readback,
			Layout: wgpu.TextureDataLayout{Offset: 0, BytesPerRow: p.width * 4, RowsPerImage: p.height},
		},
		&wgpu.Extent3D{Width: p.width, Height: p.height, DepthOrArrayLayers: 1},
	)

	commandBuffer, err := encoder.Finish(nil)
	if err != nil {
		return &DownloadError{Cause: err}
	}
	p.queue.Submit(commandBuffer)

	done := make(chan error, 1)
	p.readback.MapAsync(wgpu.MapModeRead, 0, uint64(expected), func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("map status %v", status)
			return
		}
		done <- nil
	})

	for {
		select {
		case <-ctx.Done():
			return &DownloadError{Cause: ctx.Err()}
		case err := <-done:
			if err != nil {
				return &DownloadError{Cause: err}
			}
			mapped := p.readback.GetMappedRange(0, uint64(expected))
			copy(dst, mapped)
			p.readback.Unmap()
			return nil
		default:
			p.device.Poll(false, nil)
		}
	}
}

func (p *pipeline) Release() {
	p.readback.Release()
	p.bindGroupForSourceA.Release()
	p.bindGroupForSourceB.Release()
	p.sampler.Release()
	p.viewA.Release()
	p.viewB.Release()
	p.textureA.Release()
	p.textureB.Release()
	p.renderPipeline.Release()
	p.queue.Release()
	p.device.Release()
	p.adapter.Release()
	p.instance.Release()
}
