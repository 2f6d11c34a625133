package lineage

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// RenderedNode is the transport form of one lineage node. Children keep
// their traversal order.
type RenderedNode struct {
	DT          string            `json:"dt"`
	ServiceUsed string            `json:"serviceUsed,omitempty"`
	Constraint  map[string]string `json:"constraint,omitempty"`
	Children    []*RenderedNode   `json:"children,omitempty"`
}

// Render converts the arena tree into a nested structure suited for
// serialization and display.
func Render(tree *Tree) *RenderedNode {
	if tree == nil || len(tree.Nodes) == 0 {
		return nil
	}
	return renderNode(tree, tree.Root)
}

func renderNode(tree *Tree, idx int) *RenderedNode {
	node := tree.Nodes[idx]
	out := &RenderedNode{
		DT:          node.DT.String(),
		ServiceUsed: node.ServiceUsed,
		Constraint:  node.Constraint,
	}
	for _, childIdx := range node.Children {
		out.Children = append(out.Children, renderNode(tree, childIdx))
	}
	return out
}

// WriteText pretty-prints the lineage, one node per line, indented by
// depth.
func WriteText(w io.Writer, tree *Tree) error {
	rendered := Render(tree)
	if rendered == nil {
		return nil
	}
	return writeTextNode(w, rendered, 0)
}

func writeTextNode(w io.Writer, node *RenderedNode, depth int) error {
	indent := strings.Repeat("  ", depth)
	line := indent + node.DT
	if node.ServiceUsed != "" {
		line += " service=" + node.ServiceUsed
	}
	if len(node.Constraint) > 0 {
		keys := make([]string, 0, len(node.Constraint))
		for k := range node.Constraint {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line += fmt.Sprintf(" %s=%s", k, node.Constraint[k])
		}
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := writeTextNode(w, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}
