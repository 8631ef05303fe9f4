package onnx

import (
	"strings"

	"torsion/internal/ir"
)

// Scope-name conventions for ONNX export. A scope frame's label combines the
// originating class name and the receiver's variable name; the exporter
// splits the label back apart when emitting provenance metadata.

const scopeNameSeparator = "::"

// CreateFullScopeName builds one frame label from a tidied class name and a
// resolved variable name.
func CreateFullScopeName(className, variableName string) string {
	return className + scopeNameSeparator + variableName
}

// ScopeClassName extracts the class part of a frame label.
func ScopeClassName(label string) string {
	if i := strings.Index(label, scopeNameSeparator); i >= 0 {
		return label[:i]
	}
	return label
}

// ScopeVariableName extracts the variable part of a frame label, empty for
// the top module frame.
func ScopeVariableName(label string) string {
	if i := strings.Index(label, scopeNameSeparator); i >= 0 {
		return label[i+len(scopeNameSeparator):]
	}
	return ""
}

// VariableNameFromScope joins the variable parts of every frame in a scope
// chain, root-first, producing the dotted path of the receiver hierarchy.
func VariableNameFromScope(s *ir.Scope) string {
	var parts []string
	for ; !s.IsBlank(); s = s.Parent() {
		if v := ScopeVariableName(s.Name()); v != "" {
			parts = append(parts, v)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
