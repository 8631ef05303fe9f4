package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torsion/internal/ir"
	"torsion/internal/onnx"
)

const containerModel = `
class __torch__.toy.Net {
  method forward = @__torch__.toy.Net.forward
}

class __torch__.torch.nn.modules.container.ModuleList {
}

class __torch__.toy.Layer {
  method forward = @__torch__.toy.Layer.forward
}

extern func @__torch__.torch.nn.functional.interpolate

func @__torch__.toy.Layer.forward(%self : __torch__.toy.Layer, %x : Tensor) {
  %y : Tensor = aten::relu(%x)
  return (%y)
}

func @__torch__.toy.Net.forward(%self : __torch__.toy.Net, %x : Tensor) {
  %layers : __torch__.torch.nn.modules.container.ModuleList = prim::GetAttr[name="layers"](%self)
  %sub : __torch__.toy.Layer = prim::GetAttr[name="3"](%layers)
  %h : Tensor = prim::CallMethod[name="forward"](%sub, %x)
  %f : Function<@__torch__.torch.nn.functional.interpolate> = prim::Constant()
  %out : Tensor = prim::CallFunction(%f, %h)
  return (%out)
}
`

func TestSubstitutionOnParsedModel(t *testing.T) {
	module, err := ParseSource("model.tir", containerModel)
	require.NoError(t, err)

	entry, err := module.Entry("__torch__.toy.Net.forward")
	require.NoError(t, err)
	g, ok := entry.GraphBody()
	require.True(t, ok)

	onnx.FunctionCallSubstitution(g)

	var ops []string
	for n := g.Block().First(); n != nil; n = n.Next() {
		ops = append(ops, n.Op())
	}
	assert.Equal(t, []string{
		ir.OpGetAttr,
		ir.OpGetAttr,
		"aten::relu",
		"aten::__interpolate",
	}, ops)

	printed := ir.Print(g)
	assert.Contains(t, printed, "aten::__interpolate")
	assert.Contains(t, printed, "scope: toy.Net::/toy.Layer::layers.3")
	assert.NotContains(t, printed, "prim::CallMethod")
	assert.NotContains(t, printed, "prim::CallFunction")
}

func TestParsedModelScopesSurviveRoundTrip(t *testing.T) {
	module, err := ParseSource("model.tir", containerModel)
	require.NoError(t, err)

	entry, _ := module.Entry("__torch__.toy.Net.forward")
	g, _ := entry.GraphBody()
	onnx.FunctionCallSubstitution(g)

	for n := g.Block().First(); n != nil; n = n.Next() {
		if n.Op() == "aten::relu" {
			assert.Equal(t, "toy.Net::/toy.Layer::layers.3", n.Scope().Path())
		}
		if n.Op() == ir.OpGetAttr {
			assert.Equal(t, "toy.Net::", n.Scope().Path())
		}
	}
	assert.True(t, g.CurrentScope().IsBlank())
}
