package ir

import (
	"fmt"
)

// Mutable graph IR in the TorchScript style: a Graph owns a tree of Blocks,
// each Block an ordered list of Nodes, each Node producing SSA Values with
// explicit use lists. The graph is transformed in place by compiler passes;
// it is never copied wholesale.

// Well-known operator names used by the frontend and the export passes.
const (
	OpConstant   = "prim::Constant"
	OpGetAttr    = "prim::GetAttr"
	OpCallMethod = "prim::CallMethod"
	OpCallFunc   = "prim::CallFunction"
	OpParam      = "prim::Param"
	OpReturn     = "prim::Return"
)

// AttrName is the attribute key carrying a node's variable or method name.
const AttrName = "name"

// Kind is the closed set of node categories the substitution driver
// dispatches on. Anything that is not a call site is generic.
type Kind int

const (
	KindGeneric Kind = iota
	KindCallFunction
	KindCallMethod
)

// Scope is one frame of the hierarchical naming stack. Frames are immutable;
// pushing returns a child frame, so concurrent readers of an old frame are
// never invalidated.
type Scope struct {
	parent *Scope
	name   string
}

var rootScope = &Scope{}

// RootScope returns the shared blank scope.
func RootScope() *Scope { return rootScope }

// IsBlank reports whether the scope carries no frames.
func (s *Scope) IsBlank() bool { return s == nil || (s.parent == nil && s.name == "") }

// Push returns a child frame named name.
func (s *Scope) Push(name string) *Scope {
	if s == nil {
		s = rootScope
	}
	return &Scope{parent: s, name: name}
}

// Parent returns the enclosing frame, or nil for the root.
func (s *Scope) Parent() *Scope { return s.parent }

// Name returns this frame's label.
func (s *Scope) Name() string { return s.name }

// Path renders the frame chain root-first, joined with "/".
func (s *Scope) Path() string {
	if s.IsBlank() {
		return ""
	}
	if s.parent.IsBlank() {
		return s.name
	}
	return s.parent.Path() + "/" + s.name
}

// Graph is the unit of transformation. It owns its top-level block and an
// ambient current scope that passes stamp onto the nodes they visit.
type Graph struct {
	block  *Block
	scope  *Scope
	nextID int
}

func NewGraph() *Graph {
	g := &Graph{scope: rootScope}
	g.block = newBlock(g, nil)
	return g
}

// Block returns the graph's top-level block.
func (g *Graph) Block() *Block { return g.block }

// Inputs returns the top-level block's input values.
func (g *Graph) Inputs() []*Value { return g.block.Inputs() }

// AddInput appends a graph input with the given debug name and type.
func (g *Graph) AddInput(name string, typ Type) *Value {
	return g.block.AddInput(name, typ)
}

// Outputs returns the graph's registered return values.
func (g *Graph) Outputs() []*Value { return g.block.Outputs() }

// RegisterOutput appends v to the graph's return values.
func (g *Graph) RegisterOutput(v *Value) { g.block.RegisterOutput(v) }

// CurrentScope returns the ambient scope.
func (g *Graph) CurrentScope() *Scope { return g.scope }

// PushScope pushes a frame named name onto the ambient scope and returns a
// restore closure. Callers defer it so the previous scope is reinstated on
// every exit path, one level per exit.
func (g *Graph) PushScope(name string) func() {
	return g.SetCurrentScope(g.scope.Push(name))
}

// SetCurrentScope replaces the ambient scope and returns a restore closure
// reinstating the previous one.
func (g *Graph) SetCurrentScope(s *Scope) func() {
	prev := g.scope
	g.scope = s
	return func() { g.scope = prev }
}

// CreateNode allocates a node with the given operator, inputs, and number of
// outputs. The node is not attached to any block; use InsertAfter,
// InsertBefore, or Block.Append to place it.
func (g *Graph) CreateNode(op string, inputs []*Value, numOutputs int) *Node {
	n := &Node{graph: g, op: op, id: g.nextID}
	g.nextID++
	for _, in := range inputs {
		n.AddInput(in)
	}
	for i := 0; i < numOutputs; i++ {
		n.addOutput()
	}
	return n
}

// Block is an ordered sequence of nodes. Ordering is insertion order and is
// semantically meaningful: definitions precede uses. Block inputs are owned
// by a hidden param node so that every value has a producer.
type Block struct {
	graph *Graph
	owner *Node // nil for a graph's top-level block
	param *Node
	ret   *Node
	head  *Node
	tail  *Node
}

func newBlock(g *Graph, owner *Node) *Block {
	b := &Block{graph: g, owner: owner}
	b.param = &Node{graph: g, op: OpParam, id: g.nextID}
	g.nextID++
	b.ret = &Node{graph: g, op: OpReturn, id: g.nextID}
	g.nextID++
	return b
}

// Graph returns the owning graph.
func (b *Block) Graph() *Graph { return b.graph }

// Owner returns the node owning this nested block, or nil for the top block.
func (b *Block) Owner() *Node { return b.owner }

// ParamNode returns the hidden node producing the block's inputs.
func (b *Block) ParamNode() *Node { return b.param }

// Inputs returns the block's input values.
func (b *Block) Inputs() []*Value { return b.param.outputs }

// AddInput appends a block input with the given debug name and type.
func (b *Block) AddInput(name string, typ Type) *Value {
	v := b.param.addOutput()
	v.name = name
	v.typ = typ
	return v
}

// ReturnNode returns the hidden node consuming the block's return values.
func (b *Block) ReturnNode() *Node { return b.ret }

// Outputs returns the block's return values.
func (b *Block) Outputs() []*Value { return b.ret.inputs }

// RegisterOutput appends v to the block's return values.
func (b *Block) RegisterOutput(v *Value) {
	b.ret.AddInput(v)
}

// First returns the first node, or nil for an empty block. Iterate with
// Node.Next; capture the next node before mutating the current one.
func (b *Block) First() *Node { return b.head }

// Last returns the final node, or nil for an empty block.
func (b *Block) Last() *Node { return b.tail }

// Len counts the nodes currently in the block.
func (b *Block) Len() int {
	n := 0
	for cur := b.head; cur != nil; cur = cur.next {
		n++
	}
	return n
}

// Nodes returns the block's nodes as a slice, in order. The slice is a
// snapshot; mutation during iteration does not affect it.
func (b *Block) Nodes() []*Node {
	var out []*Node
	for cur := b.head; cur != nil; cur = cur.next {
		out = append(out, cur)
	}
	return out
}

// Append places n at the end of the block.
func (b *Block) Append(n *Node) *Node {
	assertf(n.block == nil, "node %s is already placed", n.op)
	n.block = b
	n.prev = b.tail
	if b.tail != nil {
		b.tail.next = n
	} else {
		b.head = n
	}
	b.tail = n
	return n
}

func (b *Block) remove(n *Node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		b.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		b.tail = n.prev
	}
	n.prev, n.next, n.block = nil, nil, nil
}

// Use records one consumer of a value: the using node and the input index.
type Use struct {
	User  *Node
	Index int
}

// Value is an SSA definition: produced by exactly one node (block inputs by
// the block's param node), consumed by zero or more nodes.
type Value struct {
	node   *Node
	offset int
	typ    Type
	name   string
	uses   []Use
}

// Node returns the producing node.
func (v *Value) Node() *Node { return v.node }

// Offset returns the value's index among its producer's outputs.
func (v *Value) Offset() int { return v.offset }

// Type returns the static type, which may be nil before typing.
func (v *Value) Type() Type { return v.typ }

func (v *Value) SetType(t Type) { v.typ = t }

// Name returns the debug name, or a positional placeholder.
func (v *Value) Name() string {
	if v.name != "" {
		return v.name
	}
	if v.offset == 0 {
		return fmt.Sprintf("%d", v.node.id)
	}
	return fmt.Sprintf("%d_%d", v.node.id, v.offset)
}

func (v *Value) SetName(name string) { v.name = name }

// HasName reports whether an explicit debug name was assigned.
func (v *Value) HasName() bool { return v.name != "" }

// Uses returns the current consumers. The slice is shared; do not mutate.
func (v *Value) Uses() []Use { return v.uses }

// HasUses reports whether any node consumes this value.
func (v *Value) HasUses() bool { return len(v.uses) > 0 }

// ReplaceAllUsesWith rewires every consumer of v to read from other.
func (v *Value) ReplaceAllUsesWith(other *Value) {
	if v == other {
		return
	}
	for _, u := range v.uses {
		u.User.inputs[u.Index] = other
		other.uses = append(other.uses, u)
	}
	v.uses = nil
}

func (v *Value) removeUse(user *Node, index int) {
	for i, u := range v.uses {
		if u.User == user && u.Index == index {
			v.uses = append(v.uses[:i], v.uses[i+1:]...)
			return
		}
	}
	assertf(false, "use of %%%s by %s at input %d not recorded", v.Name(), user.op, index)
}

// Node is one instruction: an operator applied to input values, producing
// output values, optionally owning nested blocks for structured control flow
// and carrying string attributes plus a source-scope annotation.
type Node struct {
	graph   *Graph
	block   *Block
	op      string
	inputs  []*Value
	outputs []*Value
	blocks  []*Block
	attrs   map[string]string
	scope   *Scope
	prev    *Node
	next    *Node
	id      int
}

// Op returns the operator name, e.g. "aten::matmul".
func (n *Node) Op() string { return n.op }

// Kind classifies the node for call-substitution dispatch.
func (n *Node) Kind() Kind {
	switch n.op {
	case OpCallFunc:
		return KindCallFunction
	case OpCallMethod:
		return KindCallMethod
	default:
		return KindGeneric
	}
}

// Graph returns the owning graph.
func (n *Node) Graph() *Graph { return n.graph }

// OwningBlock returns the block the node is placed in, or nil if detached.
func (n *Node) OwningBlock() *Block { return n.block }

// Next returns the following node in the block, or nil.
func (n *Node) Next() *Node { return n.next }

// Prev returns the preceding node in the block, or nil.
func (n *Node) Prev() *Node { return n.prev }

// Inputs returns the input values. The slice is shared; do not mutate.
func (n *Node) Inputs() []*Value { return n.inputs }

// Input returns the i-th input value.
func (n *Node) Input(i int) *Value {
	assertf(i >= 0 && i < len(n.inputs), "%s: input index %d out of range (have %d)", n.op, i, len(n.inputs))
	return n.inputs[i]
}

// NumInputs returns the input count.
func (n *Node) NumInputs() int { return len(n.inputs) }

// Outputs returns the output values. The slice is shared; do not mutate.
func (n *Node) Outputs() []*Value { return n.outputs }

// Output returns the i-th output value.
func (n *Node) Output(i int) *Value {
	assertf(i >= 0 && i < len(n.outputs), "%s: output index %d out of range (have %d)", n.op, i, len(n.outputs))
	return n.outputs[i]
}

// NumOutputs returns the output count.
func (n *Node) NumOutputs() int { return len(n.outputs) }

// AddInput appends v as a new input and records the use.
func (n *Node) AddInput(v *Value) {
	v.uses = append(v.uses, Use{User: n, Index: len(n.inputs)})
	n.inputs = append(n.inputs, v)
}

// RemoveInput drops the i-th input, unrecording its use and shifting the
// use indices of the inputs after it.
func (n *Node) RemoveInput(i int) {
	assertf(i >= 0 && i < len(n.inputs), "%s: cannot remove input %d (have %d)", n.op, i, len(n.inputs))
	n.inputs[i].removeUse(n, i)
	for j := i + 1; j < len(n.inputs); j++ {
		n.inputs[j].removeUse(n, j)
	}
	rest := append([]*Value(nil), n.inputs[i+1:]...)
	n.inputs = n.inputs[:i]
	for _, v := range rest {
		n.AddInput(v)
	}
}

// RemoveAllInputs detaches every input, unrecording the uses.
func (n *Node) RemoveAllInputs() {
	for i, v := range n.inputs {
		v.removeUse(n, i)
	}
	n.inputs = nil
}

func (n *Node) addOutput() *Value {
	v := &Value{node: n, offset: len(n.outputs)}
	n.outputs = append(n.outputs, v)
	return v
}

// HasUses reports whether any of the node's outputs is consumed.
func (n *Node) HasUses() bool {
	for _, out := range n.outputs {
		if out.HasUses() {
			return true
		}
	}
	return false
}

// ReplaceAllUsesWith redirects every use of n's outputs to the corresponding
// outputs of other. Output arities must match.
func (n *Node) ReplaceAllUsesWith(other *Node) {
	assertf(len(n.outputs) == len(other.outputs),
		"%s -> %s: output arity mismatch (%d vs %d)", n.op, other.op, len(n.outputs), len(other.outputs))
	for i, out := range n.outputs {
		out.ReplaceAllUsesWith(other.outputs[i])
	}
}

// InsertAfter places n immediately after anchor, which must be placed.
func (n *Node) InsertAfter(anchor *Node) {
	assertf(n.block == nil, "node %s is already placed", n.op)
	assertf(anchor.block != nil, "anchor %s is not in a block", anchor.op)
	n.block = anchor.block
	n.prev = anchor
	n.next = anchor.next
	if anchor.next != nil {
		anchor.next.prev = n
	} else {
		anchor.block.tail = n
	}
	anchor.next = n
}

// InsertBefore places n immediately before anchor, which must be placed.
func (n *Node) InsertBefore(anchor *Node) {
	assertf(n.block == nil, "node %s is already placed", n.op)
	assertf(anchor.block != nil, "anchor %s is not in a block", anchor.op)
	n.block = anchor.block
	n.next = anchor
	n.prev = anchor.prev
	if anchor.prev != nil {
		anchor.prev.next = n
	} else {
		anchor.block.head = n
	}
	anchor.prev = n
}

// Destroy removes the node from its block and detaches its inputs. It is a
// contract violation to destroy a node whose outputs still have uses; all
// uses must be rewired first.
func (n *Node) Destroy() {
	assertf(!n.HasUses(), "cannot destroy %s: outputs still have uses", n.op)
	n.RemoveAllInputs()
	for _, b := range n.blocks {
		b.destroyNodes()
	}
	n.blocks = nil
	if n.block != nil {
		n.block.remove(n)
	}
}

func (b *Block) destroyNodes() {
	for cur := b.head; cur != nil; {
		next := cur.next
		cur.RemoveAllInputs()
		for _, nested := range cur.blocks {
			nested.destroyNodes()
		}
		b.remove(cur)
		cur = next
	}
}

// Blocks returns the nested blocks (loop bodies, branch arms).
func (n *Node) Blocks() []*Block { return n.blocks }

// AddBlock appends a fresh nested block owned by this node.
func (n *Node) AddBlock() *Block {
	b := newBlock(n.graph, n)
	n.blocks = append(n.blocks, b)
	return b
}

// Attr looks up a string attribute.
func (n *Node) Attr(name string) (string, bool) {
	val, ok := n.attrs[name]
	return val, ok
}

// SetAttr sets a string attribute.
func (n *Node) SetAttr(name, value string) {
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
}

// Attrs returns the attribute map, which may be nil.
func (n *Node) Attrs() map[string]string { return n.attrs }

// Scope returns the source-scope annotation, blank if never stamped.
func (n *Node) Scope() *Scope {
	if n.scope == nil {
		return rootScope
	}
	return n.scope
}

// SetScope stamps the source-scope annotation, overwriting any previous one.
func (n *Node) SetScope(s *Scope) { n.scope = s }

// CopyMetadata copies the non-structural annotations (scope, attributes)
// from another node onto n.
func (n *Node) CopyMetadata(from *Node) {
	n.scope = from.scope
	for k, v := range from.attrs {
		n.SetAttr(k, v)
	}
}

func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		panic("ir: " + fmt.Sprintf(format, args...))
	}
}
