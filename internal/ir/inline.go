package ir

// Call inlining: splice a callee graph's body into a caller at a call site.
// The callee is cloned, never moved, so a function body can be inlined at
// any number of call sites.

// InlineCall inlines the callee graph at the call node. The call's inputs
// substitute for the callee's graph inputs, the callee's body is cloned in
// order immediately before the call, every use of the call's outputs is
// redirected to the cloned return values, and the call node is destroyed.
// Returns the values that replaced the call's outputs.
//
// The call's input count must match the callee's input count, and the call's
// output count must match the callee's return count.
func InlineCall(call *Node, callee *Graph) []*Value {
	g := call.Graph()
	assertf(call.OwningBlock() != nil, "inline %s: call node is not in a block", call.op)
	assertf(call.NumInputs() == len(callee.Inputs()),
		"inline %s: %d arguments for %d parameters", call.op, call.NumInputs(), len(callee.Inputs()))
	assertf(call.NumOutputs() == len(callee.Outputs()),
		"inline %s: %d outputs for %d returns", call.op, call.NumOutputs(), len(callee.Outputs()))

	env := make(map[*Value]*Value, len(callee.Inputs()))
	for i, in := range callee.Inputs() {
		env[in] = call.Input(i)
	}
	for src := callee.Block().First(); src != nil; src = src.Next() {
		clone := cloneNode(g, src, env)
		clone.InsertBefore(call)
	}

	outs := make([]*Value, 0, len(callee.Outputs()))
	for _, ret := range callee.Outputs() {
		outs = append(outs, remap(env, ret))
	}
	for i, out := range outs {
		call.Output(i).ReplaceAllUsesWith(out)
	}
	call.RemoveAllInputs()
	call.Destroy()
	return outs
}

// cloneNode copies src into graph g, remapping inputs through env and
// recording src's outputs in env. Attributes, scope, output types, and
// nested blocks are carried over.
func cloneNode(g *Graph, src *Node, env map[*Value]*Value) *Node {
	inputs := make([]*Value, len(src.inputs))
	for i, in := range src.inputs {
		inputs[i] = remap(env, in)
	}
	clone := g.CreateNode(src.op, inputs, len(src.outputs))
	for i, out := range src.outputs {
		c := clone.outputs[i]
		c.typ = out.typ
		c.name = out.name
		env[out] = c
	}
	for k, v := range src.attrs {
		clone.SetAttr(k, v)
	}
	clone.scope = src.scope
	for _, sb := range src.blocks {
		cloneBlockInto(clone.AddBlock(), sb, env)
	}
	return clone
}

func cloneBlockInto(dst *Block, src *Block, env map[*Value]*Value) {
	for _, in := range src.Inputs() {
		env[in] = dst.AddInput(in.name, in.typ)
	}
	for n := src.First(); n != nil; n = n.Next() {
		dst.Append(cloneNode(dst.graph, n, env))
	}
	for _, out := range src.Outputs() {
		dst.RegisterOutput(remap(env, out))
	}
}

func remap(env map[*Value]*Value, v *Value) *Value {
	mapped, ok := env[v]
	assertf(ok, "inline: value %%%s has no mapping at the call site", v.Name())
	return mapped
}
