package parser

import (
	"fmt"
	"strings"

	"torsion/internal/ir"
)

// Module is the resolved result of parsing one file: declared class types
// and every function, keyed by qualified name.
type Module struct {
	Classes   map[string]*ir.ClassType
	Functions map[string]*ir.Function
}

// Entry returns the named entry function, or the single function with a
// body when name is empty.
func (m *Module) Entry(name string) (*ir.Function, error) {
	if name != "" {
		fn, ok := m.Functions[name]
		if !ok {
			return nil, fmt.Errorf("no function named %s", name)
		}
		return fn, nil
	}
	var entry *ir.Function
	for _, fn := range m.Functions {
		if _, hasBody := fn.GraphBody(); !hasBody {
			continue
		}
		if entry != nil {
			return nil, fmt.Errorf("multiple functions defined; pass an entry name")
		}
		entry = fn
	}
	if entry == nil {
		return nil, fmt.Errorf("no function with a body defined")
	}
	return entry, nil
}

// BuildModule resolves a parsed file into IR. Declarations are registered
// first so bodies can refer to classes, methods, and functions in any order.
func BuildModule(file *File) (*Module, error) {
	m := &Module{
		Classes:   make(map[string]*ir.ClassType),
		Functions: make(map[string]*ir.Function),
	}

	var funcDecls []*FuncDecl
	for _, d := range file.Decls {
		switch {
		case d.Class != nil:
			name := d.Class.Name.String()
			if _, dup := m.Classes[name]; dup {
				return nil, fmt.Errorf("duplicate class %s", name)
			}
			m.Classes[name] = ir.NewClassType(ir.QualifiedNameFromString(name))
		case d.Extern != nil:
			qn := funcName(d.Extern.Name)
			if _, dup := m.Functions[qn]; dup {
				return nil, fmt.Errorf("duplicate function @%s", qn)
			}
			m.Functions[qn] = ir.NewFunction(ir.QualifiedNameFromString(qn), nil)
		case d.Func != nil:
			qn := funcName(d.Func.Name)
			if _, dup := m.Functions[qn]; dup {
				return nil, fmt.Errorf("duplicate function @%s", qn)
			}
			m.Functions[qn] = ir.NewFunction(ir.QualifiedNameFromString(qn), ir.NewGraph())
			funcDecls = append(funcDecls, d.Func)
		}
	}

	for _, d := range file.Decls {
		if d.Class == nil {
			continue
		}
		classType := m.Classes[d.Class.Name.String()]
		for _, meth := range d.Class.Methods {
			fn, ok := m.Functions[funcName(meth.Ref)]
			if !ok {
				return nil, fmt.Errorf("class %s: method %s refers to undefined function %s",
					d.Class.Name, meth.Name, meth.Ref)
			}
			classType.AddMethod(meth.Name, fn)
		}
	}

	for _, fd := range funcDecls {
		fn := m.Functions[funcName(fd.Name)]
		body, _ := fn.GraphBody()
		if err := m.buildGraph(body, fd); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Module) buildGraph(g *ir.Graph, fd *FuncDecl) error {
	env := make(map[string]*ir.Value)

	define := func(name string, v *ir.Value, pos fmt.Stringer) error {
		if _, dup := env[name]; dup {
			return fmt.Errorf("%s: redefinition of %%%s", pos, name)
		}
		env[name] = v
		return nil
	}

	for _, p := range fd.Params {
		typ, err := m.resolveType(p.Type)
		if err != nil {
			return fmt.Errorf("%s: %w", fd.Pos, err)
		}
		name := valueName(p.Name)
		if err := define(name, g.AddInput(name, typ), fd.Pos); err != nil {
			return err
		}
	}

	for _, st := range fd.Stmts {
		args := make([]*ir.Value, len(st.Args))
		for i, a := range st.Args {
			v, ok := env[valueName(a)]
			if !ok {
				return fmt.Errorf("%s: use of undefined value %s", st.Pos, a)
			}
			args[i] = v
		}
		node := g.Block().Append(g.CreateNode(st.Op, args, len(st.Outputs)))
		for _, attr := range st.Attrs {
			node.SetAttr(attr.Name, unquote(attr.Value))
		}
		for i, od := range st.Outputs {
			typ, err := m.resolveType(od.Type)
			if err != nil {
				return fmt.Errorf("%s: %w", st.Pos, err)
			}
			out := node.Output(i)
			out.SetType(typ)
			out.SetName(valueName(od.Name))
			if err := define(valueName(od.Name), out, st.Pos); err != nil {
				return err
			}
		}
	}

	for _, r := range fd.Ret.Values {
		v, ok := env[valueName(r)]
		if !ok {
			return fmt.Errorf("%s: return of undefined value %s", fd.Pos, r)
		}
		g.RegisterOutput(v)
	}
	return nil
}

func (m *Module) resolveType(t *TypeRef) (ir.Type, error) {
	if t.Function != nil {
		fn, ok := m.Functions[funcName(*t.Function)]
		if !ok {
			return nil, fmt.Errorf("reference to undefined function %s", *t.Function)
		}
		return ir.NewFunctionType(fn), nil
	}
	name := t.Named.String()
	switch name {
	case "Tensor":
		return &ir.TensorType{}, nil
	case "int":
		return &ir.IntType{}, nil
	case "float":
		return &ir.FloatType{}, nil
	case "bool":
		return &ir.BoolType{}, nil
	case "None":
		return &ir.NoneType{}, nil
	}
	if classType, ok := m.Classes[name]; ok {
		return classType, nil
	}
	// Classes referenced only as a value type (containers come in this way)
	// are created on first use.
	classType := ir.NewClassType(ir.QualifiedNameFromString(name))
	m.Classes[name] = classType
	return classType, nil
}

func funcName(ref string) string  { return strings.TrimPrefix(ref, "@") }
func valueName(ref string) string { return strings.TrimPrefix(ref, "%") }

func unquote(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, `"`), `"`)
}
