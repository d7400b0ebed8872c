package model

import (
	"sync/atomic"

	"github.com/roach88/specflow/internal/ir"
)

// NodeClock hands out expression node ids.
//
// Ids are strictly increasing, so a node allocated later always has a
// larger id and loading the same program twice yields the same ids.
// NodeClock is safe for concurrent use.
type NodeClock struct {
	seq atomic.Uint32
}

// NewNodeClock creates a clock whose first id is 1. Id 0 is never handed out
// and can mark "no node".
func NewNodeClock() *NodeClock {
	return &NodeClock{}
}

// NewNodeClockAt creates a clock that continues after start.
func NewNodeClockAt(start ir.NodeID) *NodeClock {
	c := &NodeClock{}
	c.seq.Store(uint32(start))
	return c
}

// Next returns a fresh id.
func (c *NodeClock) Next() ir.NodeID {
	return ir.NodeID(c.seq.Add(1))
}

// Current returns the last id handed out.
func (c *NodeClock) Current() ir.NodeID {
	return ir.NodeID(c.seq.Load())
}
