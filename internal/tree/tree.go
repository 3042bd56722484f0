// Package tree holds the discovery tree: this machine at the root, any
// discovered neighbors below it, and the report lines of every sweep.
package tree

import (
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// ErrUnknownNode is returned for a NodeID that is not part of the tree.
var ErrUnknownNode = errors.New("tree: unknown node")

// Tree is an arena of ScanEntity nodes. Node 0 is the root. It is not safe
// for concurrent use.
type Tree struct {
	nodes []models.ScanEntity
}

// New creates a tree whose root is this machine, described by hardware.
func New(hardware string) *Tree {
	return &Tree{
		nodes: []models.ScanEntity{{
			Technique: models.TechniqueThisMachine,
			Hardware:  hardware,
			Parent:    models.NoParent,
		}},
	}
}

// Root returns the root node ID.
func (t *Tree) Root() models.NodeID { return 0 }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of the node with the given ID. Its slices do not
// alias the tree.
func (t *Tree) Node(id models.NodeID) (models.ScanEntity, bool) {
	if !t.valid(id) {
		return models.ScanEntity{}, false
	}
	n := t.nodes[id]
	n.ReportLines = slices.Clone(n.ReportLines)
	n.Children = slices.Clone(n.Children)
	return n, true
}

// Parent returns the parent of id. ok is false for the root.
func (t *Tree) Parent(id models.NodeID) (parent models.NodeID, ok bool) {
	if !t.valid(id) || t.nodes[id].Parent == models.NoParent {
		return models.NoParent, false
	}
	return t.nodes[id].Parent, true
}

// AddChild appends a node discovered by technique under parent.
func (t *Tree) AddChild(parent models.NodeID, technique models.DiscoveryTechnique, hardware string) (models.NodeID, error) {
	if !t.valid(parent) {
		return models.NoParent, fmt.Errorf("add child to %d: %w", parent, ErrUnknownNode)
	}
	id := models.NodeID(len(t.nodes))
	t.nodes = append(t.nodes, models.ScanEntity{
		Technique: technique,
		Hardware:  hardware,
		Parent:    parent,
	})
	t.nodes[parent].Children = append(t.nodes[parent].Children, id)
	return id, nil
}

// AppendLine adds a report line to node id.
func (t *Tree) AppendLine(id models.NodeID, line string) error {
	if !t.valid(id) {
		return fmt.Errorf("append line to %d: %w", id, ErrUnknownNode)
	}
	t.nodes[id].ReportLines = append(t.nodes[id].ReportLines, line)
	return nil
}

// Render writes the tree in pre-order. Each node prints one line,
// "<prefix> <technique> <hardware>", then one "<prefix>  <text>" line per
// report line. Children are rendered with prefix + ">".
func (t *Tree) Render(w io.Writer, prefix string) error {
	return t.render(w, t.Root(), prefix)
}

func (t *Tree) render(w io.Writer, id models.NodeID, prefix string) error {
	n := &t.nodes[id]
	if _, err := fmt.Fprintf(w, "%s %s %s\n", prefix, n.Technique.Label(), n.Hardware); err != nil {
		return err
	}
	for _, line := range n.ReportLines {
		if _, err := fmt.Fprintf(w, "%s  %s\n", prefix, line); err != nil {
			return err
		}
	}
	childPrefix := prefix + ">"
	for _, c := range n.Children {
		if err := t.render(w, c, childPrefix); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) valid(id models.NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes)
}
