package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInternSharesIdenticalTrees(t *testing.T) {
	env := newTestEnv()
	id := env.node(NumType)

	a := env.arena.Value(id, Number(7))
	b := env.arena.Value(id, Number(7))
	c := env.arena.Value(id, Number(8))

	assert.Equal(t, a, b, "identical nodes must share a handle")
	assert.NotEqual(t, a, c)
	assert.Equal(t, 2, env.arena.Len())
	assert.Len(t, a.Hash(), 64, "SHA-256 hex is 64 characters")
}

func TestInternNodeIDIsPartOfIdentity(t *testing.T) {
	env := newTestEnv()
	a := env.arena.Value(env.node(NumType), Number(1))
	b := env.arena.Value(env.node(NumType), Number(1))

	assert.NotEqual(t, a, b, "same value at different nodes are different expressions")
}

func TestInternCopiesArgs(t *testing.T) {
	env := newTestEnv()
	x, y := env.num(1), env.num(2)
	args := []Exp{x, y}
	call := env.arena.Call(env.node(NumType), Op(OpAdd), args...)

	args[0] = y
	assert.Equal(t, x, call.CallArgs()[0], "interned node must not alias the caller's slice")
}

func TestEqualAcrossArenas(t *testing.T) {
	env := newTestEnv()
	id := env.node(NumType)
	other := NewArena()

	a := env.arena.Call(id, Op(OpNot), env.arena.Value(1, BoolValue(true)))
	b := other.Call(id, Op(OpNot), other.Value(1, BoolValue(true)))
	c := other.Call(id, Op(OpNot), other.Value(1, BoolValue(false)))

	assert.NotEqual(t, a, b, "handles from different arenas differ")
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.True(t, Equal(Exp{}, Exp{}))
	assert.False(t, Equal(a, Exp{}))
}

func TestImportForeignChildren(t *testing.T) {
	env := newTestEnv()
	other := NewArena()
	foreign := other.Value(3, Number(3))

	call := env.arena.Call(env.node(BoolType), Op(OpNot), foreign)
	assert.Equal(t, env.arena, call.CallArgs()[0].Arena())
	assert.True(t, Equal(foreign, call.CallArgs()[0]))
}

func TestCallArgsPanicsOnNonCall(t *testing.T) {
	env := newTestEnv()
	assert.PanicsWithError(t,
		"invariant violation: call_args on non-call expression ir.ValueExp (WRONG_VARIANT)",
		func() { env.num(1).CallArgs() })
}

func TestNodeIDOfAbsentExpression(t *testing.T) {
	assert.PanicsWithError(t,
		"invariant violation: node_id on the absent expression (WRONG_VARIANT)",
		func() { Exp{}.NodeID() })
}

func TestVisitPrePostOrder(t *testing.T) {
	env := newTestEnv()
	a := env.arena

	// forall x: 10 {x} where true: if x {3} else {4}
	x := env.local("x", NumType)
	domain := env.num(10)
	trigger := env.local("x", NumType)
	where := a.Value(env.node(BoolType), BoolValue(true))
	body := a.IfElse(env.node(NumType), x, env.num(3), env.num(4))
	q := a.Quant(env.node(BoolType), Forall,
		[]QuantRange{{Decl: env.decl("x", NumType, Exp{}), Domain: domain}},
		[][]Exp{{trigger}}, where, body)

	var events []string
	q.VisitPrePost(func(post bool, e Exp) {
		tag := "pre"
		if post {
			tag = "post"
		}
		events = append(events, tag+":"+kindOf(e))
	})

	assert.Equal(t, []string{
		"pre:quant",
		"pre:value", "post:value", // domain
		"pre:local", "post:local", // trigger
		"pre:value", "post:value", // where
		"pre:if",
		"pre:local", "post:local",
		"pre:value", "post:value",
		"pre:value", "post:value",
		"post:if",
		"post:quant",
	}, events)
}

func TestVisitBlockBindingsBeforeBody(t *testing.T) {
	env := newTestEnv()
	one := env.num(1)
	two := env.num(2)
	body := env.local("y", NumType)
	block := env.arena.Block(env.node(NumType), []LocalVarDecl{
		env.decl("x", NumType, one),
		env.decl("y", NumType, two),
	}, body)

	var post []NodeID
	block.Visit(func(e Exp) { post = append(post, e.NodeID()) })
	assert.Equal(t, []NodeID{one.NodeID(), two.NodeID(), body.NodeID(), block.NodeID()}, post)
	assert.Equal(t, post, block.NodeIDs())
}

func TestAny(t *testing.T) {
	env := newTestEnv()
	e := env.arena.Call(env.node(NumType), Op(OpAdd), env.num(1), env.num(2))

	assert.True(t, e.Any(func(x Exp) bool {
		v, ok := x.Data().(ValueExp)
		return ok && v.Value.String() == "2"
	}))
	assert.False(t, e.Any(func(x Exp) bool {
		_, ok := x.Data().(Temporary)
		return ok
	}))
}

func TestFreeVars(t *testing.T) {
	t.Run("unbound variable is free", func(t *testing.T) {
		env := newTestEnv()
		e := env.arena.Call(env.node(NumType), Op(OpAdd), env.local("x", NumType), env.local("y", U64Type))

		vars := e.FreeVars(env)
		require.Len(t, vars, 2)
		assert.Equal(t, "x", env.pool.String(vars[0].Name))
		assert.Equal(t, NumType, vars[0].Type)
		assert.Equal(t, "y", env.pool.String(vars[1].Name))
		assert.Equal(t, U64Type, vars[1].Type)
	})

	t.Run("duplicates are reported once", func(t *testing.T) {
		env := newTestEnv()
		e := env.arena.Call(env.node(NumType), Op(OpAdd), env.local("x", NumType), env.local("x", NumType))
		assert.Len(t, e.FreeVars(env), 1)
	})

	t.Run("lambda binds its params", func(t *testing.T) {
		env := newTestEnv()
		body := env.arena.Call(env.node(NumType), Op(OpAdd), env.local("x", NumType), env.local("z", NumType))
		lam := env.arena.Lambda(env.node(NumType), []LocalVarDecl{env.decl("x", NumType, Exp{})}, body)

		vars := lam.FreeVars(env)
		require.Len(t, vars, 1)
		assert.Equal(t, "z", env.pool.String(vars[0].Name))
	})

	t.Run("nested binders of the same name", func(t *testing.T) {
		env := newTestEnv()
		inner := env.arena.Quant(env.node(BoolType), Forall,
			[]QuantRange{{Decl: env.decl("x", U64Type, Exp{}), Domain: env.num(1)}},
			nil, Exp{}, env.local("x", U64Type))
		// After leaving the inner binder x is still bound by the outer one.
		body := env.arena.Call(env.node(BoolType), Op(OpAnd), inner, env.local("x", NumType))
		outer := env.arena.Quant(env.node(BoolType), Forall,
			[]QuantRange{{Decl: env.decl("x", NumType, Exp{}), Domain: env.num(2)}},
			nil, Exp{}, body)

		assert.Empty(t, outer.FreeVars(env))
	})

	t.Run("used only inside the inner binder", func(t *testing.T) {
		env := newTestEnv()
		inner := env.arena.Quant(env.node(BoolType), Exists,
			[]QuantRange{{Decl: env.decl("x", U64Type, Exp{}), Domain: env.num(1)}},
			nil, Exp{}, env.local("x", U64Type))
		body := env.arena.Call(env.node(BoolType), Op(OpAnd), inner, env.local("y", BoolType))
		outer := env.arena.Quant(env.node(BoolType), Forall,
			[]QuantRange{{Decl: env.decl("x", NumType, Exp{}), Domain: env.num(2)}},
			nil, Exp{}, body)

		vars := outer.FreeVars(env)
		require.Len(t, vars, 1)
		assert.Equal(t, "y", env.pool.String(vars[0].Name))
		assert.Empty(t, inner.FreeVars(env))
	})

	t.Run("variable after binder scope is free", func(t *testing.T) {
		env := newTestEnv()
		block := env.arena.Block(env.node(NumType),
			[]LocalVarDecl{env.decl("x", NumType, env.num(1))}, env.local("x", NumType))
		e := env.arena.Call(env.node(NumType), Op(OpAdd), block, env.local("x", U8Type))

		vars := e.FreeVars(env)
		require.Len(t, vars, 1)
		assert.Equal(t, U8Type, vars[0].Type)
	})
}

func TestTemporaries(t *testing.T) {
	env := newTestEnv()
	ref := ReferenceType{Mutable: true, Inner: U64Type}
	e := env.arena.Call(env.node(NumType), Op(OpAdd),
		env.arena.Temp(env.node(ref), 3),
		env.arena.Temp(env.node(U64Type), 1),
		env.arena.Temp(env.node(ref), 3))

	temps := e.Temporaries(env)
	require.Len(t, temps, 2)
	assert.Equal(t, TypedTemp{Index: 3, Type: ref}, temps[0])
	assert.Equal(t, TypedTemp{Index: 1, Type: U64Type}, temps[1])
}

func TestUsedMemory(t *testing.T) {
	env := newTestEnv()
	r := env.structType(1, "R")
	s := env.structType(2, "S", TypeParameter(0))
	pre := MemoryLabel(9)

	env.specFuns[4] = []QualifiedInstID[StructID]{s.QualifiedInstID()}
	call := env.arena.Call(env.instNode(BoolType, U64Type), FunctionOp(0, 4, []MemoryLabel{pre}))

	e := env.arena.Call(env.node(BoolType), Op(OpAnd),
		env.exists(r, nil), env.global(r, nil), call, env.exists(r, Label(pre)))

	uses := e.UsedMemory(env)
	require.Len(t, uses, 3)
	assert.Equal(t, r.QualifiedInstID().Key(), uses[0].Memory.Key())
	assert.Nil(t, uses[0].Label)
	assert.Equal(t, r.QualifiedInstID().Key(), uses[1].Memory.Key())
	require.NotNil(t, uses[1].Label)
	assert.Equal(t, pre, *uses[1].Label)

	sU64 := QualifiedInstID[StructID]{Module: 0, ID: 2, Inst: []Type{U64Type}}
	assert.Equal(t, sU64.Key(), uses[2].Memory.Key(), "callee memory is instantiated at the call")
	require.NotNil(t, uses[2].Label)
}

func TestUsedMemoryRequiresInstantiation(t *testing.T) {
	env := newTestEnv()
	e := env.arena.Call(env.node(BoolType), ExistsOp(nil))
	assert.Panics(t, func() { e.UsedMemory(env) })
}

func TestIsPure(t *testing.T) {
	env := newTestEnv()
	r := env.structType(1, "R")
	env.specFuns[1] = nil
	env.specFuns[2] = []QualifiedInstID[StructID]{r.QualifiedInstID()}

	tests := []struct {
		name string
		exp  Exp
		pure bool
	}{
		{"constant", env.num(1), true},
		{"immutable temp", env.arena.Temp(env.node(ReferenceType{Inner: U64Type}), 0), true},
		{"mutable temp", env.arena.Temp(env.node(ReferenceType{Mutable: true, Inner: U64Type}), 0), false},
		{"exists", env.exists(r, nil), false},
		{"global", env.global(r, nil), false},
		{"pure spec fun", env.arena.Call(env.node(NumType), FunctionOp(0, 1, nil)), true},
		{"memory spec fun", env.arena.Call(env.node(NumType), FunctionOp(0, 2, nil)), false},
		{"nested impurity", env.arena.Call(env.node(BoolType), Op(OpNot), env.exists(r, nil)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.pure, tt.exp.IsPure(env))
		})
	}
}

func TestUsesMemory(t *testing.T) {
	env := newTestEnv()
	r := env.structType(1, "R")
	pure := func(ModuleID, SpecFunID) bool { return true }

	assert.True(t, env.num(1).UsesMemory(pure), "no calls")
	assert.False(t, env.exists(r, nil).UsesMemory(pure))
	assert.True(t, env.arena.Call(env.node(NumType), Op(OpAdd), env.num(1), env.num(2)).UsesMemory(pure))
}

func TestModuleUsage(t *testing.T) {
	env := newTestEnv()
	e := env.arena.Call(env.node(NumType), Op(OpAdd),
		env.arena.Call(env.node(NumType), FunctionOp(3, 0, nil)),
		env.arena.Call(env.node(NumType), PackOp(5, 0)),
		env.arena.Call(env.node(NumType), Op(OpLen)))

	usage := map[ModuleID]bool{}
	e.ModuleUsage(usage)
	assert.Equal(t, map[ModuleID]bool{3: true, 5: true}, usage)
}

func TestExtractGhostMemAccess(t *testing.T) {
	env := newTestEnv()
	ghost := env.structType(1, "Ghost$Counter")
	plain := env.structType(2, "Counter")

	access, ok := env.arena.Call(env.node(U64Type), SelectOp(0, 1, 0), env.global(ghost, nil)).
		ExtractGhostMemAccess(env)
	require.True(t, ok)
	assert.Equal(t, ghost.QualifiedInstID().Key(), access.Memory.Key())
	assert.Equal(t, FieldID(0), access.Field)
	_, isValue := access.Address.Data().(ValueExp)
	assert.True(t, isValue)

	_, ok = env.arena.Call(env.node(U64Type), SelectOp(0, 2, 0), env.global(plain, nil)).
		ExtractGhostMemAccess(env)
	assert.False(t, ok, "non-ghost struct")

	_, ok = env.arena.Call(env.node(U64Type), SelectOp(0, 1, 0), env.global(ghost, Label(1))).
		ExtractGhostMemAccess(env)
	assert.False(t, ok, "labelled access")

	_, ok = env.num(1).ExtractGhostMemAccess(env)
	assert.False(t, ok)
}

func TestRequireValid(t *testing.T) {
	env := newTestEnv()
	bad := env.arena.Call(env.node(NumType), Op(OpNot), env.arena.Invalid(env.node(BoolType)))

	assert.NotPanics(t, func() { env.num(1).RequireValid() })
	assert.Panics(t, func() { bad.RequireValid() })
}

func TestDisplay(t *testing.T) {
	env := newTestEnv()
	a := env.arena
	r := env.structType(1, "R")

	x := env.local("x", NumType)
	q := a.Quant(env.node(BoolType), Forall,
		[]QuantRange{{Decl: env.decl("x", NumType, Exp{}), Domain: env.num(5)}},
		nil, Exp{}, a.Call(env.node(BoolType), Op(OpGt), x, env.num(0)))
	assert.Equal(t, "forall x: 5: gt(x, 0)", q.Display(env))

	ite := a.IfElse(env.node(NumType), a.Value(env.node(BoolType), BoolValue(true)), env.num(1), env.num(2))
	assert.Equal(t, "(if true {1} else {2})", ite.Display(env))

	assert.Equal(t, "exists<struct(0.1)>(0xffffffffffffffffffffffffffffffff)", env.exists(r, nil).Display(env))
	assert.Equal(t, "*invalid*", a.Invalid(env.node(BoolType)).Display(env))

	block := a.Block(env.node(NumType), []LocalVarDecl{env.decl("y", NumType, env.num(1))}, a.Temp(env.node(NumType), 2))
	assert.Equal(t, "{let y = 1; $t2}", block.Display(env))
}

// kindOf names the variant of e for ordering tests.
func kindOf(e Exp) string {
	switch e.Data().(type) {
	case Quant:
		return "quant"
	case ValueExp:
		return "value"
	case LocalVar:
		return "local"
	case IfElse:
		return "if"
	case Call:
		return "call"
	}
	return "other"
}
