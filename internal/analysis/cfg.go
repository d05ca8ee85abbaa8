// Package analysis computes the control-flow and dataflow facts the
// verifier and transform passes need: CFG, dominators, natural-loop
// info, and liveness. Nothing here is stored on il types themselves —
// every fact is recomputed from each Instr's terminator data, never
// cached as a pointer graph, so results never depend on allocation
// order (spec §3.7.7, §9).
package analysis

import "github.com/viper-lang/viper/internal/il"

// CFG is a function's control-flow graph, indexed by block index (not
// label) for speed. Successors/Predecessors are in RPO-independent,
// but deterministic, order: successors follow Instr.Succs order;
// predecessors are listed in the order their owning blocks appear in
// Function.Blocks.
type CFG struct {
	fn         *il.Function
	succ       [][]int // block index -> successor block indices
	pred       [][]int
	rpo        []int // block indices in reverse postorder
	rpoPos     []int // block index -> position within rpo
	reachable  []bool
}

// BuildCFG computes the CFG for fn.
func BuildCFG(fn *il.Function) *CFG {
	n := len(fn.Blocks)
	c := &CFG{fn: fn, succ: make([][]int, n), pred: make([][]int, n)}
	for i := range fn.Blocks {
		term := fn.Blocks[i].Terminator()
		if term == nil {
			continue
		}
		for _, label := range term.Succs {
			if j := fn.BlockIndex(label); j >= 0 {
				c.succ[i] = append(c.succ[i], j)
				c.pred[j] = append(c.pred[j], i)
			}
		}
	}
	c.computeRPO()
	return c
}

func (c *CFG) computeRPO() {
	n := len(c.fn.Blocks)
	visited := make([]bool, n)
	var post []int
	var visit func(int)
	visit = func(b int) {
		if visited[b] {
			return
		}
		visited[b] = true
		for _, s := range c.succ[b] {
			visit(s)
		}
		post = append(post, b)
	}
	if n > 0 {
		visit(0)
	}
	c.reachable = append([]bool(nil), visited...)

	// Blocks unreachable from entry still get an RPO position (after the
	// reachable set, in declaration order) so every index has one; the
	// verifier treats unreachability as a separate, explicit check.
	for i := 0; i < n; i++ {
		if !visited[i] {
			visit(i)
		}
	}
	c.rpo = make([]int, len(post))
	for i, b := range post {
		c.rpo[len(post)-1-i] = b
	}
	c.rpoPos = make([]int, n)
	for pos, b := range c.rpo {
		c.rpoPos[b] = pos
	}
}

// Successors returns the successor block indices of block i, in
// terminator order.
func (c *CFG) Successors(i int) []int { return c.succ[i] }

// Predecessors returns the predecessor block indices of block i, in
// Blocks declaration order.
func (c *CFG) Predecessors(i int) []int { return c.pred[i] }

// RPO returns block indices in reverse postorder from the entry block.
func (c *CFG) RPO() []int { return c.rpo }

// RPOPosition returns i's position within RPO(); used to compare two
// blocks' relative order without rebuilding the slice.
func (c *CFG) RPOPosition(i int) int { return c.rpoPos[i] }

// Reachable reports whether block i is reachable from the entry block.
func (c *CFG) Reachable(i int) bool { return c.reachable[i] }

// NumBlocks returns the number of blocks in the function this CFG was
// built for.
func (c *CFG) NumBlocks() int { return len(c.fn.Blocks) }
