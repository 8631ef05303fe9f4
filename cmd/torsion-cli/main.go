// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"

	"torsion/internal/ir"
	"torsion/internal/onnx"
	"torsion/internal/parser"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: torsion-cli <file.tir> [entry-qualname]")
		os.Exit(1)
	}

	if os.Getenv("TORSION_LOG") == "debug" {
		commonlog.Configure(1, nil)
	}

	startTime := time.Now()
	path := os.Args[1]
	entryName := ""
	if len(os.Args) > 2 {
		entryName = os.Args[2]
	}

	source, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read file: %v\n", err)
		os.Exit(1)
	}

	module, err := parser.ParseSource(path, string(source))
	if err != nil {
		parser.ReportError(string(source), err)
		color.Red("Compilation failed after %s", formatDuration(time.Since(startTime)))
		os.Exit(1)
	}

	entry, err := module.Entry(entryName)
	if err != nil {
		color.Red("error: %v", err)
		os.Exit(1)
	}
	graph, ok := entry.GraphBody()
	if !ok {
		color.Red("error: entry function @%s has no body", entry.QualName())
		os.Exit(1)
	}

	onnx.FunctionCallSubstitution(graph)

	fmt.Print(ir.Print(graph))
	color.Green("Successfully processed %s in %s", path, formatDuration(time.Since(startTime)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
