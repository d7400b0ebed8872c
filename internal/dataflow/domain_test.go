package dataflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type name string

func (n name) Key() string { return string(n) }

func set(items ...string) *SetDomain[name] {
	s := NewSetDomain[name]()
	for _, i := range items {
		s.Insert(name(i))
	}
	return s
}

func TestJoinResultCombine(t *testing.T) {
	assert.Equal(t, Unchanged, Unchanged.Combine(Unchanged))
	assert.Equal(t, Changed, Unchanged.Combine(Changed))
	assert.Equal(t, Changed, Changed.Combine(Unchanged))
	assert.Equal(t, Changed, CombineAll(Unchanged, Changed, Unchanged))
	assert.Equal(t, Unchanged, CombineAll())
	assert.Equal(t, "changed", Changed.String())
}

func TestSetDomainInsert(t *testing.T) {
	var s SetDomain[name]
	assert.True(t, s.IsEmpty(), "zero value is usable")
	assert.True(t, s.Insert("a"))
	assert.False(t, s.Insert("a"))
	assert.True(t, s.Contains("a"))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, Changed, s.Extend("b", "a"))
	assert.Equal(t, Unchanged, s.Extend("b"))
}

func TestSetDomainItemsSorted(t *testing.T) {
	assert.Equal(t, []name{"a", "b", "c"}, set("c", "a", "b").Items())
}

func TestSetDomainJoinLaws(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		s := set("a", "b")
		assert.Equal(t, Unchanged, s.Join(s.Clone()))
		assert.True(t, s.Equal(set("a", "b")))
	})

	t.Run("commutative", func(t *testing.T) {
		ab := set("a")
		ab.Join(set("b"))
		ba := set("b")
		ba.Join(set("a"))
		assert.True(t, ab.Equal(ba))
	})

	t.Run("associative", func(t *testing.T) {
		left := set("a")
		left.Join(set("b"))
		left.Join(set("c"))

		bc := set("b")
		bc.Join(set("c"))
		right := set("a")
		right.Join(bc)

		assert.True(t, left.Equal(right))
	})

	t.Run("changed iff something was added", func(t *testing.T) {
		s := set("a")
		assert.Equal(t, Changed, s.Join(set("a", "b")))
		assert.Equal(t, Unchanged, s.Join(set("b")))
		assert.Equal(t, Unchanged, s.Join(set()))
	})

	t.Run("join is an upper bound", func(t *testing.T) {
		x, y := set("a"), set("b", "c")
		j := x.Clone()
		j.Join(y)
		assert.True(t, x.IsSubset(j))
		assert.True(t, y.IsSubset(j))
	})
}

func TestSetDomainCloneIsIndependent(t *testing.T) {
	s := set("a")
	c := s.Clone()
	c.Insert("b")
	assert.False(t, s.Contains("b"))
}
