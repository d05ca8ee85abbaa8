package basiclower

import "fmt"

// BlockNamer hands out deterministic block labels for the synthetic
// control-flow structures statement lowering introduces (IF arms, FOR/
// WHILE headers and bodies, short-circuit joins). One BlockNamer is
// scoped to a single procedure: a per-procedure counter keyed by hint,
// so two IF statements in the same procedure both requesting "if_then"
// get "if_then.0" and "if_then.1" (spec §4.9.2).
type BlockNamer struct {
	counts map[string]int
}

// NewBlockNamer returns an empty namer.
func NewBlockNamer() *BlockNamer {
	return &BlockNamer{counts: map[string]int{}}
}

// Label returns the next unique label for hint.
func (n *BlockNamer) Label(hint string) string {
	c := n.counts[hint]
	n.counts[hint] = c + 1
	return fmt.Sprintf("%s.%d", hint, c)
}
