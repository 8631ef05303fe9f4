package onnx

import (
	"strings"

	"github.com/tliron/commonlog"

	"torsion/internal/ir"
)

// Function call substitution for ONNX export. The exporter depends on a
// number of deprecated high-level operators that the frontend compiles down
// to ordinary function calls. To keep the exporter working, calls to those
// functions are replaced with the operator symbol it still recognizes, and
// every other statically resolvable call is inlined. Along the way each
// visited node is stamped with a hierarchical scope tracing it back to the
// class and variable that produced it.

var log = commonlog.GetLogger("torsion.onnx")

const (
	topModuleVariableName = ""

	internalNamespaceAtom = "__torch__"
	mangleAtomMarker      = "__torch_mangle"

	moduleListTypeName = "__torch__.torch.nn.modules.container.ModuleList"

	functionalLibMarker = "torch.nn.functional"
	interpolateMarker   = "interpolate"
	interpolateTargetOp = "aten::__interpolate"
)

// TidyClassName strips internal bookkeeping atoms from a qualified class
// name. A nil name yields the "UNKNOWN_CLASS" placeholder.
func TidyClassName(name ir.QualifiedName) string {
	if name == nil {
		return "UNKNOWN_CLASS"
	}
	out := ""
	for _, atom := range name.Atoms() {
		if atom == internalNamespaceAtom || strings.Contains(atom, mangleAtomMarker) {
			continue
		}
		if out != "" {
			out += "."
		}
		out += atom
	}
	return out
}

// callVariableName recovers the source variable name of the object a call
// node invokes. When the receiver was indexed out of a ModuleList container
// the producer's name attribute only carries the index, so the walk prepends
// each enclosing container's name until the chain leaves container territory.
func callVariableName(call *ir.Node) string {
	k := call.Kind()
	assertContract(k == ir.KindCallFunction || k == ir.KindCallMethod,
		"variable resolution on non-call node "+call.Op())
	moduleNode := call.Input(0).Node()

	moduleName, ok := moduleNode.Attr(ir.AttrName)
	if !ok {
		return ""
	}
	if moduleNode.NumInputs() == 0 {
		return moduleName
	}
	parent := moduleNode.Input(0)
	for parent != nil {
		classType, isClass := parent.Type().(*ir.ClassType)
		if !isClass || classType.Name().String() != moduleListTypeName {
			break
		}
		parentNode := parent.Node()
		parentName, _ := parentNode.Attr(ir.AttrName)
		moduleName = parentName + "." + moduleName
		if parentNode.NumInputs() > 0 {
			parent = parentNode.Input(0)
		} else {
			parent = nil
		}
	}
	return moduleName
}

// pushCallScope pushes a frame for the call onto the graph's ambient scope.
// The returned closure restores the previous scope; callers defer it so the
// restore runs on every exit path.
func pushCallScope(g *ir.Graph, call *ir.Node) func() {
	k := call.Kind()
	assertContract(k == ir.KindCallFunction || k == ir.KindCallMethod,
		"scope push on non-call node "+call.Op())
	named, ok := call.Input(0).Type().(ir.NamedType)
	assertContract(ok, "call receiver of "+call.Op()+" has no named type")
	scopeName := CreateFullScopeName(TidyClassName(named.Name()), callVariableName(call))
	return g.PushScope(scopeName)
}

// dropFunctionInput detaches the function-reference input of a call node and
// destroys its producer once nothing else uses it.
func dropFunctionInput(call *ir.Node) {
	producer := call.Input(0).Node()
	call.RemoveInput(0)
	if !producer.HasUses() {
		producer.Destroy()
	}
}

func substituteCalls(block *ir.Block) {
	g := block.Graph()
	for cur, next := block.First(), (*ir.Node)(nil); cur != nil; cur = next {
		// The current node may be destroyed below; pick up its successor first.
		next = cur.Next()
		switch cur.Kind() {
		case ir.KindCallFunction:
			fnConstant := cur.Input(0).Node()
			assertContract(fnConstant.Op() == ir.OpConstant,
				"callee of "+ir.OpCallFunc+" is not produced by a constant")
			fnType, ok := fnConstant.Output(0).Type().(*ir.FunctionType)
			assertContract(ok, "callee constant does not carry a function type")
			fn := fnType.Function()
			qualName := fn.QualName().String()

			if strings.Contains(qualName, functionalLibMarker) &&
				strings.Contains(qualName, interpolateMarker) {
				dropFunctionInput(cur)
				replacement := g.CreateNode(interpolateTargetOp, cur.Inputs(), cur.NumOutputs())
				for i := 0; i < cur.NumOutputs(); i++ {
					replacement.Output(i).SetType(cur.Output(i).Type())
				}
				replacement.InsertAfter(cur)
				replacement.CopyMetadata(cur)
				cur.ReplaceAllUsesWith(replacement)
				cur.RemoveAllInputs()
				cur.Destroy()
				log.Debugf("substituted call to '%s' with %s", fn.Name(), interpolateTargetOp)
			} else {
				dropFunctionInput(cur)
				body, ok := fn.GraphBody()
				assertContract(ok, "function "+qualName+" has no inspectable body")
				substituteCalls(body.Block())
				ir.InlineCall(cur, body)
				log.Debugf("inlined call to function '%s'", qualName)
			}
		case ir.KindCallMethod:
			methodName, ok := cur.Attr(ir.AttrName)
			assertContract(ok, ir.OpCallMethod+" node has no method name attribute")
			classType, ok := cur.Input(0).Type().(*ir.ClassType)
			if !ok {
				// Receiver is not a class; leave the call untouched.
				break
			}
			fn, ok := classType.Method(methodName)
			assertContract(ok, "class "+classType.String()+" has no method '"+methodName+"'")
			inlineMethodCall(g, cur, fn)
		case ir.KindGeneric:
			if !g.CurrentScope().IsBlank() {
				cur.SetScope(g.CurrentScope())
			}
			for _, nested := range cur.Blocks() {
				substituteCalls(nested)
			}
		}
	}
}

// inlineMethodCall expands one method call under a freshly pushed scope
// frame. An opaque method (no inspectable body) is left as-is; the scope
// frame is still restored on the way out.
func inlineMethodCall(g *ir.Graph, call *ir.Node, fn *ir.Function) {
	defer pushCallScope(g, call)()
	body, ok := fn.GraphBody()
	if !ok {
		return
	}
	defer body.SetCurrentScope(g.CurrentScope())()
	substituteCalls(body.Block())
	ir.InlineCall(call, body)
	log.Debugf("inlined call to method '%s'", fn.Name())
}

// topLevelScope seeds the ambient scope with a root frame derived from the
// graph's first input when that input is a module object. The returned
// closure restores the prior scope.
func topLevelScope(g *ir.Graph) func() {
	if len(g.Inputs()) == 0 {
		return func() {}
	}
	if classType, ok := g.Inputs()[0].Type().(*ir.ClassType); ok {
		scopeName := CreateFullScopeName(TidyClassName(classType.Name()), topModuleVariableName)
		return g.PushScope(scopeName)
	}
	return func() {}
}

// FunctionCallSubstitution rewrites every statically resolvable call in the
// graph, in place: deprecated torch.nn.functional.interpolate calls become
// aten::__interpolate nodes, all other resolvable calls are inlined
// bottom-up, and remaining nodes are stamped with their scope hierarchy.
func FunctionCallSubstitution(g *ir.Graph) {
	log.Debugf("before function call substitution:\n%s", g)
	defer topLevelScope(g)()
	substituteCalls(g.Block())
	log.Debugf("after function call substitution:\n%s", g)
}

// assertContract panics on a malformed graph. Such graphs signal an upstream
// bug; the pass makes no attempt to recover.
func assertContract(cond bool, msg string) {
	if !cond {
		panic("onnx: " + msg)
	}
}
