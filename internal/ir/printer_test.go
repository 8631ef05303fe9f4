package ir

import (
	"strings"
	"testing"
)

func TestPrintLinearGraph(t *testing.T) {
	g, _, _ := buildLinearGraph()

	out := Print(g)
	if !strings.Contains(out, "graph(%x : Tensor) {") {
		t.Errorf("header missing from output:\n%s", out)
	}
	if !strings.Contains(out, "aten::relu(%x)") {
		t.Errorf("relu line missing from output:\n%s", out)
	}
	if !strings.Contains(out, "return (") {
		t.Errorf("return line missing from output:\n%s", out)
	}

	reluLine := strings.Index(out, "aten::relu")
	negLine := strings.Index(out, "aten::neg")
	if reluLine > negLine {
		t.Error("nodes should print in block order")
	}
}

func TestPrintAttrsAndScope(t *testing.T) {
	g := NewGraph()
	self := g.AddInput("self", NewClassType(QualifiedNameFromString("__torch__.toy.Net")))

	n := g.Block().Append(g.CreateNode(OpGetAttr, []*Value{self}, 1))
	n.SetAttr(AttrName, "weight")
	n.Output(0).SetType(&TensorType{})
	n.Output(0).SetName("w")
	n.SetScope(RootScope().Push("toy.Net::"))
	g.RegisterOutput(n.Output(0))

	out := Print(g)
	if !strings.Contains(out, `prim::GetAttr[name="weight"](%self), scope: toy.Net::`) {
		t.Errorf("attribute or scope rendering wrong:\n%s", out)
	}
	if !strings.Contains(out, "%w : Tensor = ") {
		t.Errorf("typed output rendering wrong:\n%s", out)
	}
}

func TestPrintNestedBlocks(t *testing.T) {
	g := NewGraph()
	x := g.AddInput("x", &TensorType{})
	cond := g.Block().Append(g.CreateNode(OpConstant, nil, 1))
	cond.Output(0).SetType(&BoolType{})
	cond.Output(0).SetName("c")

	ifNode := g.Block().Append(g.CreateNode("prim::If", []*Value{cond.Output(0)}, 1))
	then := ifNode.AddBlock()
	inner := then.Append(g.CreateNode("aten::relu", []*Value{x}, 1))
	then.RegisterOutput(inner.Output(0))
	g.RegisterOutput(ifNode.Output(0))

	out := Print(g)
	if !strings.Contains(out, "prim::If(%c) {") {
		t.Errorf("nested block header missing:\n%s", out)
	}
	if !strings.Contains(out, "block(") {
		t.Errorf("nested block rendering missing:\n%s", out)
	}
}

func TestTidyTypeStrings(t *testing.T) {
	cases := map[Type]string{
		&TensorType{}: "Tensor",
		&IntType{}:    "int",
		&FloatType{}:  "float",
		&BoolType{}:   "bool",
		&NoneType{}:   "None",
	}
	for typ, want := range cases {
		if typ.String() != want {
			t.Errorf("%T should render as %q, got %q", typ, want, typ.String())
		}
	}
}

func TestQualifiedName(t *testing.T) {
	q := QualifiedNameFromString("__torch__.toy.Net")
	if len(q.Atoms()) != 3 {
		t.Fatalf("expected 3 atoms, got %d", len(q.Atoms()))
	}
	if q.String() != "__torch__.toy.Net" {
		t.Errorf("round-trip failed: %q", q.String())
	}
	if QualifiedNameFromString("") != nil {
		t.Error("empty string should produce a nil qualified name")
	}
}
