package ir

import (
	"testing"
)

// helper builds a callee graph computing relu(neg(x)).
func buildCallee() *Graph {
	g := NewGraph()
	x := g.AddInput("x", &TensorType{})
	neg := g.Block().Append(g.CreateNode("aten::neg", []*Value{x}, 1))
	neg.Output(0).SetType(&TensorType{})
	relu := g.Block().Append(g.CreateNode("aten::relu", []*Value{neg.Output(0)}, 1))
	relu.Output(0).SetType(&TensorType{})
	g.RegisterOutput(relu.Output(0))
	return g
}

func buildCaller(callee *Graph) (*Graph, *Node) {
	g := NewGraph()
	x := g.AddInput("x", &TensorType{})
	call := g.Block().Append(g.CreateNode(OpCallFunc, []*Value{x}, 1))
	call.Output(0).SetType(&TensorType{})
	use := g.Block().Append(g.CreateNode("aten::abs", []*Value{call.Output(0)}, 1))
	use.Output(0).SetType(&TensorType{})
	g.RegisterOutput(use.Output(0))
	return g, call
}

func TestInlineCallSplicesBody(t *testing.T) {
	callee := buildCallee()
	caller, call := buildCaller(callee)

	outs := InlineCall(call, callee)
	if len(outs) != 1 {
		t.Fatalf("expected 1 replacement value, got %d", len(outs))
	}

	nodes := caller.Block().Nodes()
	if len(nodes) != 3 {
		t.Fatalf("expected neg, relu, abs after inlining, got %d nodes", len(nodes))
	}
	if nodes[0].Op() != "aten::neg" || nodes[1].Op() != "aten::relu" || nodes[2].Op() != "aten::abs" {
		t.Errorf("unexpected node order: %s, %s, %s", nodes[0].Op(), nodes[1].Op(), nodes[2].Op())
	}
	if nodes[2].Input(0) != outs[0] {
		t.Error("the consumer should read the inlined return value")
	}
	if call.OwningBlock() != nil {
		t.Error("the call node should be removed from the block")
	}
	// The callee body itself must be untouched.
	if callee.Block().Len() != 2 {
		t.Error("inlining must clone the callee body, not move it")
	}
}

func TestInlineTwiceIsIndependent(t *testing.T) {
	callee := buildCallee()

	g := NewGraph()
	x := g.AddInput("x", &TensorType{})
	call1 := g.Block().Append(g.CreateNode(OpCallFunc, []*Value{x}, 1))
	call2 := g.Block().Append(g.CreateNode(OpCallFunc, []*Value{call1.Output(0)}, 1))
	g.RegisterOutput(call2.Output(0))

	out1 := InlineCall(call1, callee)
	out2 := InlineCall(call2, callee)
	if out1[0] == out2[0] {
		t.Error("each inline must produce fresh values")
	}
	if g.Block().Len() != 4 {
		t.Errorf("expected 4 nodes after inlining both calls, got %d", g.Block().Len())
	}
}

func TestInlineRemapsNestedBlocks(t *testing.T) {
	callee := NewGraph()
	x := callee.AddInput("x", &TensorType{})
	cond := callee.Block().Append(callee.CreateNode(OpConstant, nil, 1))
	cond.Output(0).SetType(&BoolType{})
	ifNode := callee.Block().Append(callee.CreateNode("prim::If", []*Value{cond.Output(0)}, 1))
	ifNode.Output(0).SetType(&TensorType{})
	thenBlock := ifNode.AddBlock()
	inner := thenBlock.Append(callee.CreateNode("aten::relu", []*Value{x}, 1))
	thenBlock.RegisterOutput(inner.Output(0))
	callee.RegisterOutput(ifNode.Output(0))

	caller, call := buildCaller(callee)
	InlineCall(call, callee)

	var cloned *Node
	for n := caller.Block().First(); n != nil; n = n.Next() {
		if n.Op() == "prim::If" {
			cloned = n
		}
	}
	if cloned == nil {
		t.Fatal("the If node should be cloned into the caller")
	}
	if len(cloned.Blocks()) != 1 {
		t.Fatalf("expected 1 nested block, got %d", len(cloned.Blocks()))
	}
	nested := cloned.Blocks()[0]
	if nested.Len() != 1 || nested.First().Op() != "aten::relu" {
		t.Error("nested block body should be cloned")
	}
	if nested.First().Input(0) != caller.Inputs()[0] {
		t.Error("nested block inputs should be remapped to the call arguments")
	}
}

func TestInlineArityMismatchPanics(t *testing.T) {
	callee := buildCallee()
	g := NewGraph()
	x := g.AddInput("x", &TensorType{})
	call := g.Block().Append(g.CreateNode(OpCallFunc, []*Value{x, x}, 1))

	defer func() {
		if recover() == nil {
			t.Error("InlineCall should panic on argument count mismatch")
		}
	}()
	InlineCall(call, callee)
}

func TestInlinePreservesScopes(t *testing.T) {
	callee := buildCallee()
	scoped := callee.CurrentScope().Push("Net::").Push("A::a")
	for n := callee.Block().First(); n != nil; n = n.Next() {
		n.SetScope(scoped)
	}

	caller, call := buildCaller(callee)
	InlineCall(call, callee)

	for n := caller.Block().First(); n != nil; n = n.Next() {
		if n.Op() == "aten::abs" {
			continue
		}
		if n.Scope().Path() != "Net::/A::a" {
			t.Errorf("inlined node %s lost its scope, got %q", n.Op(), n.Scope().Path())
		}
	}
}
