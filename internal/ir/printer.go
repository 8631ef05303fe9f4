package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Textual rendering of graphs, used for debug dumps and test expectations.
// The output mirrors the format the parser accepts, with "scope:" trailers
// showing source-scope annotations.

// Print renders the graph body.
func Print(g *Graph) string {
	var sb strings.Builder
	sb.WriteString("graph(")
	writeValueList(&sb, g.Inputs(), true)
	sb.WriteString(") {\n")
	writeBlockBody(&sb, g.Block(), "  ")
	sb.WriteString("}\n")
	return sb.String()
}

func (g *Graph) String() string { return Print(g) }

func writeBlockBody(sb *strings.Builder, b *Block, indent string) {
	for n := b.First(); n != nil; n = n.Next() {
		writeNode(sb, n, indent)
	}
	sb.WriteString(indent)
	sb.WriteString("return (")
	writeValueList(sb, b.Outputs(), false)
	sb.WriteString(")\n")
}

func writeNode(sb *strings.Builder, n *Node, indent string) {
	sb.WriteString(indent)
	if len(n.Outputs()) > 0 {
		writeValueList(sb, n.Outputs(), true)
		sb.WriteString(" = ")
	}
	sb.WriteString(n.Op())
	writeAttrs(sb, n)
	sb.WriteString("(")
	writeValueList(sb, n.Inputs(), false)
	sb.WriteString(")")
	if !n.Scope().IsBlank() {
		fmt.Fprintf(sb, ", scope: %s", n.Scope().Path())
	}
	if len(n.Blocks()) == 0 {
		sb.WriteString("\n")
		return
	}
	sb.WriteString(" {\n")
	for _, nested := range n.Blocks() {
		sb.WriteString(indent + "  block(")
		writeValueList(sb, nested.Inputs(), true)
		sb.WriteString(") {\n")
		writeBlockBody(sb, nested, indent+"    ")
		sb.WriteString(indent + "  }\n")
	}
	sb.WriteString(indent + "}\n")
}

func writeAttrs(sb *strings.Builder, n *Node) {
	attrs := n.Attrs()
	if len(attrs) == 0 {
		return
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	sb.WriteString("[")
	for i, k := range keys {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(sb, "%s=%q", k, attrs[k])
	}
	sb.WriteString("]")
}

func writeValueList(sb *strings.Builder, vals []*Value, typed bool) {
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("%" + v.Name())
		if typed && v.Type() != nil {
			sb.WriteString(" : " + v.Type().String())
		}
	}
}
