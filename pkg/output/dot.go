package output

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/l3aro/go-find-imports/pkg/graph"
)

var dotQuoter = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`)

// Quote escapes a label for a double-quoted Graphviz string.
func Quote(s string) string {
	return dotQuoter.Replace(s)
}

// WriteDot renders g as a Graphviz digraph. Analyzed modules are boxes
// named modN; every other module is drawn dotted and named extmodN.
// Attributes are emitted verbatim at the top of the graph.
func WriteDot(w io.Writer, g *graph.Graph, attributes []string) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph ModuleDependencies {")
	for _, attr := range attributes {
		fmt.Fprintf(bw, "  %s\n", attr)
	}
	fmt.Fprintln(bw, "  node[shape=box];")

	names := make(map[string]string, g.Len())
	var external []graph.ModuleNode
	units := 0
	for _, n := range g.StableOrder() {
		if !n.Unit {
			external = append(external, n)
			continue
		}
		names[n.Identity] = fmt.Sprintf("mod%d", units)
		fmt.Fprintf(bw, "  %s[label=\"%s\"];\n", names[n.Identity], Quote(n.Label))
		units++
	}

	fmt.Fprintln(bw, "  node[style=dotted];")
	for i, n := range external {
		names[n.Identity] = fmt.Sprintf("extmod%d", i)
		fmt.Fprintf(bw, "  %s[label=\"%s\"];\n", names[n.Identity], Quote(n.Label))
	}

	for _, e := range g.Edges() {
		fmt.Fprintf(bw, "  %s -> %s;\n", names[e.From], names[e.To])
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
