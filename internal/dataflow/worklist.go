package dataflow

import "github.com/roach88/specflow/internal/bytecode"

// worklist is a FIFO queue of blocks that holds each block at most once.
// It is only used from the goroutine running Analyze.
type worklist struct {
	blocks []bytecode.BlockID
	queued map[bytecode.BlockID]bool
}

func newWorklist() *worklist {
	return &worklist{queued: make(map[bytecode.BlockID]bool)}
}

// push enqueues id unless it is already waiting.
func (w *worklist) push(id bytecode.BlockID) {
	if w.queued[id] {
		return
	}
	w.queued[id] = true
	w.blocks = append(w.blocks, id)
}

// pop removes the front block. ok is false when the list is empty.
func (w *worklist) pop() (bytecode.BlockID, bool) {
	if len(w.blocks) == 0 {
		return 0, false
	}
	id := w.blocks[0]
	w.blocks = w.blocks[1:]
	delete(w.queued, id)
	return id, true
}
