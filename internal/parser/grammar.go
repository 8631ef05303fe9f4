package parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Grammar for the textual graph format. A file declares classes with their
// methods, extern (opaque) functions, and functions with body graphs:
//
//	class __torch__.toy.Net {
//	  method forward = @__torch__.toy.Net.forward
//	}
//
//	extern func @__torch__.toy.relu
//
//	func @__torch__.toy.Net.forward(%self : __torch__.toy.Net, %x : Tensor) {
//	  %w : Tensor = prim::GetAttr[name="weight"](%self)
//	  %y : Tensor = aten::matmul(%x, %w)
//	  return (%y)
//	}

type File struct {
	Decls []*Decl `parser:"@@*"`
}

type Decl struct {
	Class  *ClassDecl  `parser:"  @@"`
	Extern *ExternDecl `parser:"| @@"`
	Func   *FuncDecl   `parser:"| @@"`
}

type ClassDecl struct {
	Name    *DottedName   `parser:"\"class\" @@ \"{\""`
	Methods []*MethodDecl `parser:"@@* \"}\""`
}

type MethodDecl struct {
	Name string `parser:"\"method\" @Ident \"=\""`
	Ref  string `parser:"@FuncRef"`
}

type ExternDecl struct {
	Name string `parser:"\"extern\" \"func\" @FuncRef"`
}

type FuncDecl struct {
	Pos    lexer.Position
	Name   string      `parser:"\"func\" @FuncRef \"(\""`
	Params []*Param    `parser:"[ @@ { \",\" @@ } ] \")\" \"{\""`
	Stmts  []*Stmt     `parser:"@@*"`
	Ret    *ReturnStmt `parser:"@@ \"}\""`
}

type Param struct {
	Name string   `parser:"@ValueRef \":\""`
	Type *TypeRef `parser:"@@"`
}

type Stmt struct {
	Pos     lexer.Position
	Outputs []*OutputDef `parser:"[ @@ { \",\" @@ } \"=\" ]"`
	Op      string       `parser:"@OpName"`
	Attrs   []*AttrDef   `parser:"[ \"[\" @@ { \",\" @@ } \"]\" ]"`
	Args    []string     `parser:"\"(\" [ @ValueRef { \",\" @ValueRef } ] \")\""`
}

type OutputDef struct {
	Name string   `parser:"@ValueRef \":\""`
	Type *TypeRef `parser:"@@"`
}

type AttrDef struct {
	Name  string `parser:"@Ident \"=\""`
	Value string `parser:"@String"`
}

type ReturnStmt struct {
	Values []string `parser:"\"return\" \"(\" [ @ValueRef { \",\" @ValueRef } ] \")\""`
}

type TypeRef struct {
	Function *string     `parser:"  \"Function\" \"<\" @FuncRef \">\""`
	Named    *DottedName `parser:"| @@"`
}

type DottedName struct {
	Parts []string `parser:"@Ident { \".\" @Ident }"`
}

func (d *DottedName) String() string {
	out := ""
	for i, p := range d.Parts {
		if i > 0 {
			out += "."
		}
		out += p
	}
	return out
}
