package gpu

// fullscreenVertexShader draws one triangle that covers the whole viewport
// using the "big triangle" trick: no vertex buffer is bound, the three
// vertices are derived purely from the builtin vertex index.
const fullscreenVertexShader = `
struct VertexOutput {
    @builtin(position) position: vec4<f32>,
    @location(0) uv: vec2<f32>,
};

@vertex
fn vs_main(@builtin(vertex_index) vertex_index: u32) -> VertexOutput {
    var out: VertexOutput;
    let x = f32((vertex_index << 1u) & 2u) * 2.0 - 1.0;
    let y = f32(vertex_index & 2u) * 2.0 - 1.0;
    out.position = vec4<f32>(x, y, 0.0, 1.0);
    out.uv = vec2<f32>((x + 1.0) * 0.5, 1.0 - (y + 1.0) * 0.5);
    return out;
}
`

// identityFragmentShader is the default fragment stage: it just samples the
// source texture unchanged. The actual field-advancing shader is an opaque
// pure function over (pixel, neighbors) supplied by the caller via
// Config.FragmentShader; this identity pass only exists so the pipeline is
// useful (and testable, see the ping-pong identity property) with no shader
// configured.
const identityFragmentShader = `
@group(0) @binding(0) var source_texture: texture_2d<f32>;
@group(0) @binding(1) var source_sampler: sampler;

@fragment
fn fs_main(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(source_texture, source_sampler, uv);
}
`
