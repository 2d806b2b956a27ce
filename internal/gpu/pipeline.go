package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/quadframe/mesh"
	"github.com/gogpu/wgpu/hal"
)

// Pipeline is the single render pipeline used for every quad: triangle
// list, counter-clockwise front faces, back faces culled, no depth or
// stencil, one sample, and one color target written with replace blending.
type Pipeline struct {
	device hal.Device
	format gputypes.TextureFormat

	shader   hal.ShaderModule
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

// NewPipeline checks the embedded quad shader and builds the pipeline for
// the given color target format.
func NewPipeline(device hal.Device, format gputypes.TextureFormat) (*Pipeline, error) {
	if format == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("gpu: pipeline needs a defined color format")
	}
	if err := checkShader(quadShaderSource); err != nil {
		return nil, err
	}

	p := &Pipeline{device: device, format: format}
	if err := p.create(); err != nil {
		p.Destroy()
		return nil, err
	}
	slogger().Debug("gpu: quad pipeline created", "format", format)
	return p, nil
}

func (p *Pipeline) create() error {
	shader, err := p.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "quad_shader",
		Source: hal.ShaderSource{WGSL: quadShaderSource},
	})
	if err != nil {
		return fmt.Errorf("gpu: create quad shader module: %w", err)
	}
	p.shader = shader

	layout, err := p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "quad_pipeline_layout",
	})
	if err != nil {
		return fmt.Errorf("gpu: create quad pipeline layout: %w", err)
	}
	p.layout = layout

	pipeline, err := p.device.CreateRenderPipeline(pipelineDescriptor(layout, shader, p.format))
	if err != nil {
		return fmt.Errorf("gpu: create quad render pipeline: %w", err)
	}
	p.pipeline = pipeline
	return nil
}

// pipelineDescriptor returns the fixed descriptor of the quad pipeline.
func pipelineDescriptor(layout hal.PipelineLayout, shader hal.ShaderModule, format gputypes.TextureFormat) *hal.RenderPipelineDescriptor {
	blend := gputypes.BlendStateReplace()
	return &hal.RenderPipelineDescriptor{
		Label:  "quad_pipeline",
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     shader,
			EntryPoint: VertexEntryPoint,
			Buffers:    mesh.VertexLayout(),
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeBack,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     shader,
			EntryPoint: FragmentEntryPoint,
			Targets: []gputypes.ColorTargetState{{
				Format:    format,
				Blend:     &blend,
				WriteMask: gputypes.ColorWriteMaskAll,
			}},
		},
	}
}

// Format returns the color target format the pipeline was built for.
func (p *Pipeline) Format() gputypes.TextureFormat { return p.format }

// Destroy releases the pipeline objects in reverse creation order.
func (p *Pipeline) Destroy() {
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.layout != nil {
		p.device.DestroyPipelineLayout(p.layout)
		p.layout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}
