package bytecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/specflow/internal/ir"
)

func TestCFGEmpty(t *testing.T) {
	cfg := NewCFG(nil)
	_, ok := cfg.EntryBlock()
	assert.False(t, ok)
	assert.Zero(t, cfg.Len())
	assert.Empty(t, cfg.ExitBlocks())
}

func TestCFGStraightLine(t *testing.T) {
	cfg := NewCFG([]Bytecode{Nop{}, Assign{Dest: 1, Src: 0}, Ret{}})

	require.Equal(t, 1, cfg.Len())
	assert.Equal(t, Block{ID: 0, Lower: 0, Upper: 2}, cfg.Block(0))
	assert.Equal(t, []ir.CodeOffset{0, 1, 2}, cfg.Instructions(0))
	assert.Equal(t, []BlockID{0}, cfg.ExitBlocks())
}

func TestCFGBranchAndLoop(t *testing.T) {
	//  0: branch L1 else L2
	//  1: label L1
	//  2: nop
	//  3: jump L1          (loop back)
	//  4: label L2
	//  5: ret
	code := []Bytecode{
		Branch{Then: 1, Else: 2, Cond: 0},
		Label{Label: 1},
		Nop{},
		Jump{Target: 1},
		Label{Label: 2},
		Ret{},
	}
	cfg := NewCFG(code)

	require.Equal(t, 3, cfg.Len())
	assert.Equal(t, []BlockID{1, 2}, cfg.Successors(0))
	assert.Equal(t, []BlockID{1}, cfg.Successors(1))
	assert.Empty(t, cfg.Successors(2))
	assert.Equal(t, []BlockID{0, 1}, cfg.Predecessors(1))
	assert.Equal(t, []BlockID{2}, cfg.ExitBlocks())
	assert.Equal(t, []ir.CodeOffset{1, 2, 3}, cfg.Instructions(1))
}

func TestCFGFallthroughIntoLabel(t *testing.T) {
	code := []Bytecode{Nop{}, Label{Label: 7}, Abort{Src: 0}}
	cfg := NewCFG(code)

	require.Equal(t, 2, cfg.Len())
	assert.Equal(t, []BlockID{1}, cfg.Successors(0))
	assert.Equal(t, []BlockID{1}, cfg.ExitBlocks())
}

func TestCallees(t *testing.T) {
	f := FunctionCall(OpFunction, 0, 1, nil)
	g := FunctionCall(OpOpaqueCallBegin, 1, 0, []ir.Type{ir.U64Type})
	code := []Bytecode{
		Call{Oper: f},
		Call{Oper: MemoryOp(OpExists, 0, 0, nil)},
		Call{Oper: g},
		Call{Oper: FunctionCall(OpOpaqueCallEnd, 1, 0, nil)},
		Call{Oper: f},
	}

	assert.Equal(t, []ir.QualifiedID[ir.FunID]{ir.Qualify[ir.FunID](0, 1), ir.Qualify[ir.FunID](1, 0)}, Callees(code))
}

func TestInstructionStrings(t *testing.T) {
	assert.Equal(t, "$t2 := call 0::1<u64>($t0, $t1)",
		Call{Dests: []ir.TempIndex{2}, Oper: FunctionCall(OpFunction, 0, 1, []ir.Type{ir.U64Type}), Srcs: []ir.TempIndex{0, 1}}.String())
	assert.Equal(t, "move_to<0::3>($t0)", Call{Oper: MemoryOp(OpMoveTo, 0, 3, nil), Srcs: []ir.TempIndex{0}}.String())
	assert.Equal(t, "write_back[local($t4)]()", Call{Oper: WriteBack(BorrowNode{Kind: LocalRoot, Temp: 4})}.String())
	assert.Equal(t, "if ($t0) goto L1 else goto L2", Branch{Then: 1, Else: 2}.String())
	assert.Equal(t, "return", Ret{}.String())
}

func TestParseOpKind(t *testing.T) {
	k, ok := ParseOpKind("borrow_global")
	require.True(t, ok)
	assert.Equal(t, OpBorrowGlobal, k)
	_, ok = ParseOpKind("teleport")
	assert.False(t, ok)
}
