package ir

import (
	"fmt"
	"strings"
)

// Static types carried by IR values. The type system mirrors what a
// TorchScript-style frontend produces: tensors, a few scalar kinds,
// user-defined class types with named methods, and function references.

type Type interface {
	String() string
}

type TensorType struct{}

type IntType struct{}

type FloatType struct{}

type BoolType struct{}

type NoneType struct{}

func (t *TensorType) String() string { return "Tensor" }
func (t *IntType) String() string    { return "int" }
func (t *FloatType) String() string  { return "float" }
func (t *BoolType) String() string   { return "bool" }
func (t *NoneType) String() string   { return "None" }

// QualifiedName is a dotted path of atoms identifying a class or function,
// e.g. ["__torch__", "toy", "Net"].
type QualifiedName []string

func QualifiedNameFromString(s string) QualifiedName {
	if s == "" {
		return nil
	}
	return QualifiedName(strings.Split(s, "."))
}

func (q QualifiedName) String() string {
	return strings.Join(q, ".")
}

// Atoms returns the individual name segments in order.
func (q QualifiedName) Atoms() []string {
	return q
}

// ClassType is a user-defined type with an ordered set of named methods.
// The qualified name may be absent for synthetic classes.
type ClassType struct {
	name    QualifiedName
	methods map[string]*Function
	order   []string
}

func NewClassType(name QualifiedName) *ClassType {
	return &ClassType{
		name:    name,
		methods: make(map[string]*Function),
	}
}

func (c *ClassType) String() string {
	if c.name == nil {
		return "<anonymous class>"
	}
	return c.name.String()
}

// Name returns the qualified name, or nil if the class is anonymous.
func (c *ClassType) Name() QualifiedName {
	return c.name
}

// AddMethod registers fn under name, replacing any previous binding.
func (c *ClassType) AddMethod(name string, fn *Function) {
	if _, exists := c.methods[name]; !exists {
		c.order = append(c.order, name)
	}
	c.methods[name] = fn
}

// Method looks up a method by name.
func (c *ClassType) Method(name string) (*Function, bool) {
	fn, ok := c.methods[name]
	return fn, ok
}

// MethodNames returns the method names in registration order.
func (c *ClassType) MethodNames() []string {
	return c.order
}

// FunctionType is the type of a value holding a reference to a function,
// produced by a prim::Constant node at call sites.
type FunctionType struct {
	fn *Function
}

func NewFunctionType(fn *Function) *FunctionType {
	return &FunctionType{fn: fn}
}

func (t *FunctionType) String() string {
	return fmt.Sprintf("Function<@%s>", t.fn.QualName())
}

func (t *FunctionType) Function() *Function {
	return t.fn
}

// NamedType is implemented by types that carry a qualified name.
type NamedType interface {
	Type
	Name() QualifiedName
}

var _ NamedType = (*ClassType)(nil)

// Function is a callable with a qualified name and, unless it is an
// opaque/native operator, an inspectable body graph.
type Function struct {
	qualName QualifiedName
	graph    *Graph
}

// NewFunction creates a function with a body graph. Pass nil for an
// opaque function whose body cannot be inspected.
func NewFunction(qualName QualifiedName, graph *Graph) *Function {
	return &Function{qualName: qualName, graph: graph}
}

// Name returns the final atom of the qualified name.
func (f *Function) Name() string {
	if len(f.qualName) == 0 {
		return ""
	}
	return f.qualName[len(f.qualName)-1]
}

func (f *Function) QualName() QualifiedName {
	return f.qualName
}

// GraphBody returns the function's body graph. The second result is false
// for opaque functions, which have no inspectable body.
func (f *Function) GraphBody() (*Graph, bool) {
	if f.graph == nil {
		return nil, false
	}
	return f.graph, true
}
