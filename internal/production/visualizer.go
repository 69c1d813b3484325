// Package production provides integrations around a running scheduler:
// table visualization, boundary traces and channel fan-out of port writes.
package production

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/comalice/synchsm"
)

// DefaultVisualizer renders tables as Graphviz DOT or JSON.
type DefaultVisualizer struct{}

// ExportDOT generates Graphviz DOT source for the table. States listed in
// active are highlighted.
func (v *DefaultVisualizer) ExportDOT(t *synchsm.Table, active ...synchsm.StateID) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "digraph %q {\n", t.Name)
	buf.WriteString(`  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	hl := make(map[synchsm.StateID]bool, len(active))
	for _, id := range active {
		hl[id] = true
	}

	for i, s := range t.States {
		id := synchsm.StateID(i)
		name := t.StateName(id)
		attrs := ""
		if id == synchsm.Start {
			attrs += " shape=ellipse"
		}
		if hl[id] {
			attrs += " style=filled fillcolor=lightgreen"
		}
		fmt.Fprintf(&buf, "  %q [label=\"%s\\n0x%02X\"%s];\n", name, name, s.Output, attrs)
	}

	for _, e := range collectEdges(t) {
		if e.Label == "" {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Label)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// ExportJSON serializes the table to JSON.
func (v *DefaultVisualizer) ExportJSON(t *synchsm.Table) ([]byte, error) {
	return json.MarshalIndent(t, "", "  ")
}

// Edge represents a transition edge.
type Edge struct {
	From  string
	To    string
	Label string
}

// collectEdges lists rules in evaluation order followed by the default
// transition of each state.
func collectEdges(t *synchsm.Table) []Edge {
	var edges []Edge
	for i, s := range t.States {
		from := t.StateName(synchsm.StateID(i))
		for _, r := range s.Rules {
			edges = append(edges, Edge{
				From:  from,
				To:    t.StateName(r.Next),
				Label: fmt.Sprintf("in&0x%02X==0x%02X", r.Mask, r.Match),
			})
		}
		def := Edge{From: from, To: t.StateName(s.Next)}
		if len(s.Rules) > 0 {
			def.Label = "else"
		}
		edges = append(edges, def)
	}
	return edges
}
