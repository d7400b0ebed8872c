package bytecode

import (
	"github.com/roach88/specflow/internal/ir"
)

// BlockID indexes a basic block in a CFG.
type BlockID int

// Block is a maximal straight-line run of instructions, Lower and Upper
// inclusive.
type Block struct {
	ID    BlockID
	Lower ir.CodeOffset
	Upper ir.CodeOffset
}

// CFG is the control flow graph of a function body. Blocks are numbered in
// code order; block 0 is the entry.
type CFG struct {
	blocks []Block
	succs  [][]BlockID
	preds  [][]BlockID
}

// NewCFG splits code into basic blocks. A block starts at offset 0, at
// every Label, and after every Branch, Jump, Ret or Abort.
func NewCFG(code []Bytecode) *CFG {
	cfg := &CFG{}
	if len(code) == 0 {
		return cfg
	}

	leaders := make([]bool, len(code))
	leaders[0] = true
	for i, instr := range code {
		if _, ok := instr.(Label); ok {
			leaders[i] = true
		}
		if IsBranching(instr) && i+1 < len(code) {
			leaders[i+1] = true
		}
	}

	blockAt := make([]BlockID, len(code))
	for i := range code {
		if leaders[i] {
			cfg.blocks = append(cfg.blocks, Block{ID: BlockID(len(cfg.blocks)), Lower: ir.CodeOffset(i)})
		}
		id := BlockID(len(cfg.blocks) - 1)
		cfg.blocks[id].Upper = ir.CodeOffset(i)
		blockAt[i] = id
	}

	labelBlock := make(map[LabelID]BlockID)
	for i, instr := range code {
		if l, ok := instr.(Label); ok {
			labelBlock[l.Label] = blockAt[i]
		}
	}

	cfg.succs = make([][]BlockID, len(cfg.blocks))
	cfg.preds = make([][]BlockID, len(cfg.blocks))
	for _, b := range cfg.blocks {
		var targets []BlockID
		switch last := code[b.Upper].(type) {
		case Branch:
			targets = append(targets, labelBlock[last.Then])
			if last.Else != last.Then {
				targets = append(targets, labelBlock[last.Else])
			}
		case Jump:
			targets = append(targets, labelBlock[last.Target])
		case Ret, Abort:
		default:
			if int(b.Upper)+1 < len(code) {
				targets = append(targets, b.ID+1)
			}
		}
		for _, t := range targets {
			cfg.addEdge(b.ID, t)
		}
	}
	return cfg
}

func (c *CFG) addEdge(from, to BlockID) {
	c.succs[from] = append(c.succs[from], to)
	c.preds[to] = append(c.preds[to], from)
}

// Blocks returns all blocks in code order.
func (c *CFG) Blocks() []Block { return c.blocks }

// Len returns the number of blocks.
func (c *CFG) Len() int { return len(c.blocks) }

// Block returns the block with the given id.
func (c *CFG) Block(id BlockID) Block { return c.blocks[id] }

// EntryBlock returns the entry block. ok is false for empty code.
func (c *CFG) EntryBlock() (BlockID, bool) {
	return 0, len(c.blocks) > 0
}

// ExitBlocks returns the blocks without successors.
func (c *CFG) ExitBlocks() []BlockID {
	var exits []BlockID
	for _, b := range c.blocks {
		if len(c.succs[b.ID]) == 0 {
			exits = append(exits, b.ID)
		}
	}
	return exits
}

// Successors returns the blocks control may flow to from id.
func (c *CFG) Successors(id BlockID) []BlockID { return c.succs[id] }

// Predecessors returns the blocks control may flow from into id.
func (c *CFG) Predecessors(id BlockID) []BlockID { return c.preds[id] }

// Instructions returns the offsets of the block's instructions in order.
func (c *CFG) Instructions(id BlockID) []ir.CodeOffset {
	b := c.blocks[id]
	offsets := make([]ir.CodeOffset, 0, int(b.Upper-b.Lower)+1)
	for off := b.Lower; ; off++ {
		offsets = append(offsets, off)
		if off == b.Upper {
			break
		}
	}
	return offsets
}
