package analysis

// Dominators holds each block's immediate dominator, computed with the
// Cooper-Harvey-Kennedy iterative algorithm over reverse postorder.
// idom[entry] == entry (the conventional fixed point for the root).
type Dominators struct {
	cfg  *CFG
	idom []int // block index -> immediate dominator block index, -1 if unreachable
}

// BuildDominators computes the dominator tree for fn via its CFG.
func BuildDominators(cfg *CFG) *Dominators {
	n := cfg.NumBlocks()
	d := &Dominators{cfg: cfg, idom: make([]int, n)}
	for i := range d.idom {
		d.idom[i] = -1
	}
	if n == 0 {
		return d
	}
	entry := 0
	d.idom[entry] = entry

	changed := true
	for changed {
		changed = false
		for _, b := range cfg.RPO() {
			if b == entry {
				continue
			}
			preds := cfg.Predecessors(b)
			newIdom := -1
			for _, p := range preds {
				if d.idom[p] == -1 {
					continue
				}
				if newIdom == -1 {
					newIdom = p
					continue
				}
				newIdom = d.intersect(newIdom, p)
			}
			if newIdom != -1 && newIdom != d.idom[b] {
				d.idom[b] = newIdom
				changed = true
			}
		}
	}
	return d
}

func (d *Dominators) intersect(a, b int) int {
	for a != b {
		for d.cfg.RPOPosition(a) > d.cfg.RPOPosition(b) {
			a = d.idom[a]
		}
		for d.cfg.RPOPosition(b) > d.cfg.RPOPosition(a) {
			b = d.idom[b]
		}
	}
	return a
}

// IDom returns block b's immediate dominator block index, or -1 if b
// is unreachable from the entry block.
func (d *Dominators) IDom(b int) int { return d.idom[b] }

// Dominates reports whether block a dominates block b (every path from
// the entry to b passes through a). A block dominates itself.
func (d *Dominators) Dominates(a, b int) bool {
	if d.idom[b] == -1 {
		return false
	}
	for cur := b; ; {
		if cur == a {
			return true
		}
		if cur == d.idom[cur] {
			return cur == a
		}
		cur = d.idom[cur]
	}
}

// StrictlyDominates reports whether a dominates b and a != b.
func (d *Dominators) StrictlyDominates(a, b int) bool {
	return a != b && d.Dominates(a, b)
}
