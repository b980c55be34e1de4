package typing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otl-lang/otl/typing"
)

func typeWith(name string, fields ...string) *typing.Type {
	t := typing.NewType(name)
	for _, f := range fields {
		t.AddField(typing.NewField(f, &typing.StringType{}, name+"."+f))
	}

	return t
}

func TestInherit_MergesFields(t *testing.T) {
	t.Parallel()

	a := typeWith("A", "x", "y")
	b := typeWith("B", "y", "z")

	b.AddParent(a)

	require.ElementsMatch(t, []string{"x", "y", "z"}, b.FieldNames())
	assert.Equal(t, "A.x", b.Fields["x"].Default)
	assert.Equal(t, "B.y", b.Fields["y"].Default, "own field replaces the parent's")

	assert.Same(t, b, b.Fields["x"].Owner, "inherited fields are rebound")
	assert.Same(t, a, a.Fields["x"].Owner, "parent fields keep their owner")
	assert.Len(t, a.Fields, 2, "parent is not modified")
}

func TestInherit_LaterParentWins(t *testing.T) {
	t.Parallel()

	p1 := typeWith("P1", "shared")
	p2 := typeWith("P2", "shared")
	c := typeWith("C")

	c.AddParent(p1)
	c.AddParent(p2)

	assert.Equal(t, "P2.shared", c.Fields["shared"].Default)
}

func TestInherit_Scalars(t *testing.T) {
	t.Parallel()

	parent := typing.NewType("Parent")
	parent.IsAbstract = true
	parent.Folder = "parents"
	parent.Glob = "parents/**"
	parent.Icon = "star"
	parent.Prefix = &typing.Prefix{Template: "{YY}"}
	parent.Display = typing.Display{Title: "P", Category: "cat"}
	parent.Style = typing.Style{CSS: "a{}", ShowPrefix: typing.ShowPrefixNever}
	parent.Hooks[typing.HookOnCreate] = &typing.Hook{}
	parent.Actions["act"] = &typing.Action{ID: "act", Name: "parent"}
	parent.Methods["m"] = &typing.Method{Name: "m"}

	child := typing.NewType("Child")
	child.Icon = "moon"
	child.Display = typing.Display{Title: "C"}
	child.Actions["act"] = &typing.Action{ID: "act", Name: "child"}

	child.AddParent(parent)

	assert.False(t, child.IsAbstract)
	assert.Empty(t, child.Folder)
	assert.Empty(t, child.Glob)
	assert.Empty(t, child.ParentNames)
	assert.Equal(t, "moon", child.Icon)
	assert.Equal(t, "{YY}", child.Prefix.Template)
	assert.Equal(t, typing.Display{Title: "C", Category: "cat"}, child.Display)
	assert.Equal(t, typing.ShowPrefixNever, child.Style.EffectiveShowPrefix())
	assert.Equal(t, "a{}", child.Style.CSS)
	assert.True(t, child.Hooks.Has(typing.HookOnCreate))
	assert.Equal(t, "child", child.Actions["act"].Name)
	assert.Contains(t, child.Methods, "m")
}

func TestAncestors(t *testing.T) {
	t.Parallel()

	a := typeWith("A")
	b := typeWith("B")
	b.AddParent(a)

	c := typeWith("C")
	c.AddParent(b)

	other := typeWith("Other")

	assert.True(t, a.IsAncestorOf(c))
	assert.True(t, c.IsDescendantOf(a))
	assert.True(t, b.IsAncestorOf(c))
	assert.False(t, c.IsAncestorOf(a))
	assert.False(t, other.IsAncestorOf(c))
	assert.False(t, c.IsDescendantOf(nil))
	assert.Same(t, a, c.Ancestor("A"))
	assert.Nil(t, c.Ancestor("Other"))
	assert.Equal(t, []string{"A", "B"}, c.Ancestors())
}

func TestAlias(t *testing.T) {
	t.Parallel()

	a := typeWith("A", "x")
	alias := a.Alias("Base")

	assert.Equal(t, "Base", alias.Name)
	assert.Equal(t, "A", a.Name)
	assert.Same(t, alias, alias.Fields["x"].Owner)
	assert.Same(t, a, a.Fields["x"].Owner)
}

func TestOrdered(t *testing.T) {
	t.Parallel()

	base := typeWith("Z")
	mid := typeWith("M")
	leaf := typeWith("A")
	other := typeWith("B")

	mid.AddParent(base)
	leaf.AddParent(mid)

	got := typing.Ordered(map[string]*typing.Type{"A": leaf, "B": other, "M": mid, "Z": base})

	names := make([]string, 0, len(got))
	for _, ty := range got {
		names = append(names, ty.Name)
	}

	assert.Equal(t, []string{"Z", "M", "A", "B"}, names)
}
