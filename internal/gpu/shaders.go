package gpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Entry points of the quad shader.
const (
	VertexEntryPoint   = "vs_main"
	FragmentEntryPoint = "fs_main"
)

//go:embed shaders/quad.wgsl
var quadShaderSource string

// checkShader parses and lowers WGSL source with naga and verifies that
// it declares VertexEntryPoint as a vertex stage and FragmentEntryPoint as
// a fragment stage. IR validation findings are logged, not returned.
func checkShader(source string) error {
	ast, err := naga.Parse(source)
	if err != nil {
		return fmt.Errorf("gpu: parse shader: %w", err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return fmt.Errorf("gpu: lower shader: %w", err)
	}

	stages := make(map[string]ir.ShaderStage, len(module.EntryPoints))
	for _, ep := range module.EntryPoints {
		stages[ep.Name] = ep.Stage
	}
	for _, want := range []struct {
		name  string
		stage ir.ShaderStage
	}{
		{VertexEntryPoint, ir.StageVertex},
		{FragmentEntryPoint, ir.StageFragment},
	} {
		stage, ok := stages[want.name]
		if !ok || stage != want.stage {
			return fmt.Errorf("%w: %s", ErrShaderEntryPoint, want.name)
		}
	}

	findings, err := naga.Validate(module)
	if err != nil {
		slogger().Warn("gpu: shader validation did not run", "err", err)
		return nil
	}
	for i := range findings {
		slogger().Warn("gpu: shader validation", "finding", findings[i].Error())
	}
	return nil
}
