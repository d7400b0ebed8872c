package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConditionPlacement(t *testing.T) {
	tests := []struct {
		tag                        ConditionTag
		decl, impl, strukt, module bool
	}{
		{Requires, true, false, false, false},
		{Ensures, true, false, false, false},
		{AbortsIf, true, false, false, false},
		{Modifies, true, false, false, false},
		{Update, true, false, false, false},
		{LetPost, true, true, false, false},
		{Assert, false, true, false, false},
		{Assume, false, true, false, false},
		{Decreases, false, true, false, false},
		{LoopInvariant, false, true, false, false},
		{StructInvariant, false, false, true, false},
		{GlobalInvariant, false, false, false, true},
		{GlobalInvariantUpdate, false, false, false, true},
		{Axiom, false, false, false, true},
		{SchemaInvariant, false, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.tag.Name(), func(t *testing.T) {
			k := Kind(tt.tag)
			assert.Equal(t, tt.decl, k.AllowedOnFunDecl(), "fun decl")
			assert.Equal(t, tt.impl, k.AllowedOnFunImpl(), "fun impl")
			assert.Equal(t, tt.strukt, k.AllowedOnStruct(), "struct")
			assert.Equal(t, tt.module, k.AllowedOnModule(), "module")
		})
	}
}

func TestConditionKindAllowsOld(t *testing.T) {
	assert.True(t, Kind(Ensures).AllowsOld())
	assert.True(t, Kind(GlobalInvariantUpdate).AllowsOld())
	assert.False(t, Kind(Requires).AllowsOld())
	assert.False(t, Kind(GlobalInvariant).AllowsOld())
}

func TestConditionKindString(t *testing.T) {
	pool := NewSymbolPool()
	params := []Symbol{pool.Make("T"), pool.Make("U")}

	assert.Equal(t, "aborts_if", Kind(AbortsIf).String())
	assert.Equal(t, "invariant", Kind(LoopInvariant).String())
	assert.Equal(t, "invariant<#0, #1>", ConditionKind{Tag: GlobalInvariant, TypeParams: params}.String())
	assert.Equal(t, "invariant<#0> update", ConditionKind{Tag: GlobalInvariantUpdate, TypeParams: params[:1]}.String())
	assert.Equal(t, "axiom", Kind(Axiom).String())
}

func TestParseConditionTag(t *testing.T) {
	tag, ok := ParseConditionTag("aborts_if")
	assert.True(t, ok)
	assert.Equal(t, AbortsIf, tag)

	_, ok = ParseConditionTag("bogus")
	assert.False(t, ok)
}

func TestQuantKind(t *testing.T) {
	assert.True(t, Choose.IsChoice())
	assert.True(t, ChooseMin.IsChoice())
	assert.False(t, Forall.IsChoice())

	q, ok := ParseQuantKind("choose_min")
	assert.True(t, ok)
	assert.Equal(t, ChooseMin, q)
	assert.Equal(t, "choose min", q.String())
}

func TestSpecFilters(t *testing.T) {
	pool := NewSymbolPool()
	x := pool.Make("x")
	spec := &Spec{Conditions: []Condition{
		{Kind: Kind(Requires)},
		{Kind: Kind(Ensures)},
		{Kind: ConditionKind{Tag: LetPost, Name: x}},
		{Kind: Kind(Ensures)},
	}}

	assert.True(t, spec.HasConditions())
	assert.Len(t, spec.FilterKind(Kind(Ensures)), 2)
	assert.True(t, spec.AnyKind(ConditionKind{Tag: LetPost, Name: x}))
	assert.False(t, spec.AnyKind(Kind(LetPost)), "payload is part of the kind")
	assert.False(t, spec.AnyKind(Kind(Modifies)))

	var empty *Spec
	assert.False(t, empty.HasConditions())
	assert.Empty(t, empty.FilterKind(Kind(Ensures)))
}

func TestConditionAllExps(t *testing.T) {
	env := newTestEnv()
	a, b := env.num(1), env.num(2)
	c := Condition{Kind: Kind(Update), Exp: a, AdditionalExps: []Exp{b}}

	assert.Equal(t, []Exp{a, b}, c.AllExps())
	assert.Equal(t, "update 2 = 1;", DisplayCondition(env, &c))
}
