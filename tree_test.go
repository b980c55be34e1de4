package otl_test

import (
	"strings"
	"testing"

	"github.com/otl-lang/otl"
)

func TestTree_NodeAt(t *testing.T) {
	t.Parallel()

	src := `type A { name = "x"; other = 1 }`

	tree, err := otl.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	tests := []struct {
		at   string
		kind otl.Kind
		text string
	}{
		{"type", otl.KindTypeDeclaration, src},
		{"A {", otl.KindIdentifier, "A"},
		{"name", otl.KindIdentifier, "name"},
		{`"x"`, otl.KindString, `"x"`},
		{"1 }", otl.KindNumber, "1"},
	}

	for _, tt := range tests {
		n := tree.NodeAt(strings.Index(src, tt.at))
		if n == nil {
			t.Fatalf("NodeAt(%q) = nil", tt.at)
		}

		if n.Kind != tt.kind || tree.Text(n) != tt.text {
			t.Errorf("NodeAt(%q) = %s %q, want %s %q", tt.at, n.Kind, tree.Text(n), tt.kind, tt.text)
		}
	}

	if n := tree.NodeAt(len(src) + 5); n != nil {
		t.Errorf("NodeAt(out of range) = %s, want nil", n.Kind)
	}
}

func TestNode_Navigation(t *testing.T) {
	t.Parallel()

	tree, err := otl.Parse([]byte("type A { a = 1; b = 2 }"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}

	body := tree.Root.Child(otl.KindTypeDeclaration).Child(otl.KindTypeBody)
	first := body.FirstChild()
	last := body.LastChild()

	if first.NextSibling().Kind != otl.KindDelimiter {
		t.Errorf("NextSibling() = %s, want Delimiter", first.NextSibling().Kind)
	}

	if last.PrevSibling().Kind != otl.KindDelimiter {
		t.Errorf("PrevSibling() = %s, want Delimiter", last.PrevSibling().Kind)
	}

	if first.PrevSibling() != nil || last.NextSibling() != nil {
		t.Error("expected no siblings past the ends")
	}

	if first.Parent != body {
		t.Error("Parent is not the body")
	}

	if got := len(body.ChildrenOf(otl.KindAssignment)); got != 2 {
		t.Errorf("ChildrenOf(Assignment) = %d, want 2", got)
	}

	visited := 0

	tree.Root.Walk(func(n *otl.Node) bool {
		visited++

		return n.Kind != otl.KindAssignment
	})

	if visited != 5 {
		t.Errorf("Walk visited %d nodes, want 5", visited)
	}
}
