package tree

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

func TestNew_Root(t *testing.T) {
	tr := New("Acme Board 1.0")

	root, ok := tr.Node(tr.Root())
	if !ok {
		t.Fatal("Node(Root()) ok = false")
	}
	if root.Technique != models.TechniqueThisMachine {
		t.Errorf("Technique = %q, want %q", root.Technique, models.TechniqueThisMachine)
	}
	if root.Hardware != "Acme Board 1.0" {
		t.Errorf("Hardware = %q, want %q", root.Hardware, "Acme Board 1.0")
	}
	if root.Parent != models.NoParent {
		t.Errorf("Parent = %d, want %d", root.Parent, models.NoParent)
	}

	if _, hasParent := tr.Parent(tr.Root()); hasParent {
		t.Error("Parent(Root()) ok = true, want false")
	}
}

func TestRender_RootOnly(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
	}{
		{"no lines", nil},
		{"one line", []string{"10.0.0.0/30 with 2 hosts, 0 are online: []"}},
		{"three lines", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New("hw")
			for _, l := range tt.lines {
				if err := tr.AppendLine(tr.Root(), l); err != nil {
					t.Fatalf("AppendLine() error = %v", err)
				}
			}

			var buf bytes.Buffer
			if err := tr.Render(&buf, "#"); err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			out := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
			if len(out) != 1+len(tt.lines) {
				t.Fatalf("Render() wrote %d lines, want %d:\n%s", len(out), 1+len(tt.lines), buf.String())
			}
			if out[0] != "# ThisMachine hw" {
				t.Errorf("node line = %q, want %q", out[0], "# ThisMachine hw")
			}
			for i, l := range tt.lines {
				if want := "#  " + l; out[i+1] != want {
					t.Errorf("line %d = %q, want %q", i+1, out[i+1], want)
				}
			}
		})
	}
}

func TestRender_Children(t *testing.T) {
	tr := New("host")
	mustAppend(t, tr, tr.Root(), "root line")
	a := mustAddChild(t, tr, tr.Root(), models.TechniqueMDNS, "printer")
	mustAppend(t, tr, a, "child line")
	mustAddChild(t, tr, a, models.TechniqueICMP, "grandchild")
	mustAddChild(t, tr, tr.Root(), models.TechniqueTCP, "second")

	var buf bytes.Buffer
	if err := tr.Render(&buf, ""); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	want := strings.Join([]string{
		" ThisMachine host",
		"  root line",
		"> mDNS printer",
		">  child line",
		">> ICMP_Ping grandchild",
		"> TCPPortScan second",
	}, "\n") + "\n"
	if got := buf.String(); got != want {
		t.Errorf("Render() =\n%s\nwant\n%s", got, want)
	}
}

func mustAppend(t *testing.T, tr *Tree, id models.NodeID, line string) {
	t.Helper()
	if err := tr.AppendLine(id, line); err != nil {
		t.Fatalf("AppendLine(%d) error = %v", id, err)
	}
}

func mustAddChild(t *testing.T, tr *Tree, parent models.NodeID, tech models.DiscoveryTechnique, hw string) models.NodeID {
	t.Helper()
	id, err := tr.AddChild(parent, tech, hw)
	if err != nil {
		t.Fatalf("AddChild(%d) error = %v", parent, err)
	}
	return id
}

func TestAddChild_ParentLink(t *testing.T) {
	tr := New("hw")
	c := mustAddChild(t, tr, tr.Root(), models.TechniqueMDNS, "x")

	p, ok := tr.Parent(c)
	if !ok || p != tr.Root() {
		t.Errorf("Parent(%d) = %d, %v, want %d, true", c, p, ok, tr.Root())
	}

	root, _ := tr.Node(tr.Root())
	if len(root.Children) != 1 || root.Children[0] != c {
		t.Errorf("Children = %v, want [%d]", root.Children, c)
	}
	if got := tr.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
}

func TestUnknownNode(t *testing.T) {
	tr := New("hw")

	if _, err := tr.AddChild(7, models.TechniqueMDNS, "x"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("AddChild(7) error = %v, want ErrUnknownNode", err)
	}
	if err := tr.AppendLine(-1, "x"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("AppendLine(-1) error = %v, want ErrUnknownNode", err)
	}
	if _, ok := tr.Node(3); ok {
		t.Error("Node(3) ok = true, want false")
	}
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestRender_WriteError(t *testing.T) {
	tr := New("hw")
	if err := tr.Render(failWriter{}, ""); err == nil {
		t.Error("Render() to a failing writer returned nil error")
	}
}

func TestNode_DoesNotAliasTree(t *testing.T) {
	tr := New("hw")
	if err := tr.AppendLine(tr.Root(), "first"); err != nil {
		t.Fatalf("AppendLine() error = %v", err)
	}
	if _, err := tr.AddChild(tr.Root(), models.TechniqueMDNS, "printer"); err != nil {
		t.Fatalf("AddChild() error = %v", err)
	}

	n, _ := tr.Node(tr.Root())
	n.ReportLines[0] = "changed"
	n.Children[0] = 42

	again, _ := tr.Node(tr.Root())
	if again.ReportLines[0] != "first" {
		t.Errorf("ReportLines[0] = %q, want %q", again.ReportLines[0], "first")
	}
	if again.Children[0] != 1 {
		t.Errorf("Children[0] = %d, want 1", again.Children[0])
	}
}
