package analysis

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/il"
)

// diamond builds entry -> {then, els} -> join, a classic diamond CFG.
func diamond() *il.Function {
	return &il.Function{
		Name:  "diamond",
		RetTy: il.TI64,
		Blocks: []il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{
				{Op: il.OpCBr, Args: []il.Value{il.ConstInt(1, il.TI1)}, Succs: []string{"then", "els"}, BrArgs: [][]il.Value{nil, nil}},
			}},
			{Label: "then", Instrs: []il.Instr{{Op: il.OpBr, Succs: []string{"join"}, BrArgs: [][]il.Value{nil}}}},
			{Label: "els", Instrs: []il.Instr{{Op: il.OpBr, Succs: []string{"join"}, BrArgs: [][]il.Value{nil}}}},
			{Label: "join", Instrs: []il.Instr{{Op: il.OpRet, Args: []il.Value{il.ConstInt(0, il.TI64)}}}},
		},
	}
}

// loopFn builds entry -> header -> {body -> header, exit}.
func loopFn() *il.Function {
	return &il.Function{
		Name:  "loopFn",
		RetTy: il.TI64,
		Blocks: []il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpBr, Succs: []string{"header"}, BrArgs: [][]il.Value{nil}}}},
			{Label: "header", Instrs: []il.Instr{
				{Op: il.OpCBr, Args: []il.Value{il.ConstInt(1, il.TI1)}, Succs: []string{"body", "exit"}, BrArgs: [][]il.Value{nil, nil}},
			}},
			{Label: "body", Instrs: []il.Instr{{Op: il.OpBr, Succs: []string{"header"}, BrArgs: [][]il.Value{nil}}}},
			{Label: "exit", Instrs: []il.Instr{{Op: il.OpRet, Args: []il.Value{il.ConstInt(0, il.TI64)}}}},
		},
	}
}

func TestCFGDiamond(t *testing.T) {
	fn := diamond()
	cfg := BuildCFG(fn)
	require.Equal(t, []int{1, 2}, cfg.Successors(0))
	require.ElementsMatch(t, []int{1, 2}, cfg.Predecessors(3))
	require.True(t, cfg.Reachable(3))
	require.Less(t, cfg.RPOPosition(0), cfg.RPOPosition(3))
}

func TestDominatorsDiamond(t *testing.T) {
	fn := diamond()
	cfg := BuildCFG(fn)
	dom := BuildDominators(cfg)
	require.Equal(t, 0, dom.IDom(1))
	require.Equal(t, 0, dom.IDom(2))
	require.Equal(t, 0, dom.IDom(3), "join's idom is entry, not then or els")
	require.True(t, dom.Dominates(0, 3))
	require.False(t, dom.StrictlyDominates(1, 3))
}

func TestLoopInfoDetectsBackEdge(t *testing.T) {
	fn := loopFn()
	cfg := BuildCFG(fn)
	dom := BuildDominators(cfg)
	li := BuildLoopInfo(cfg, dom)

	headers := li.Headers()
	require.Equal(t, []int{1}, headers, "header block is index 1 (\"header\")")

	loop, ok := li.Loop(1)
	require.True(t, ok)
	require.True(t, loop.Blocks[1])
	require.True(t, loop.Blocks[2], "body is inside the loop")
	require.False(t, loop.Blocks[3], "exit is outside the loop")
	require.Equal(t, []int{1}, loop.Exits, "header is the block with an edge leaving the loop")
}

func TestLivenessAcrossBlockParam(t *testing.T) {
	fn := &il.Function{
		Name:  "withParam",
		RetTy: il.TI64,
		Blocks: []il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{
				{Op: il.OpAdd, HasResult: true, ResultID: 0, ResultTy: il.TI64, Args: []il.Value{il.ConstInt(1, il.TI64), il.ConstInt(2, il.TI64)}},
				{Op: il.OpBr, Succs: []string{"join"}, BrArgs: [][]il.Value{{il.Temp(0, il.TI64)}}},
			}},
			{Label: "join", Params: []il.Param{{Name: "p", Ty: il.TI64, ID: 1}}, Instrs: []il.Instr{
				{Op: il.OpRet, Args: []il.Value{il.Temp(1, il.TI64)}},
			}},
		},
	}
	cfg := BuildCFG(fn)
	lv := BuildLiveness(fn, cfg)
	require.True(t, lv.LiveOut(0, 0), "t0 must be live out of entry: it feeds the branch argument")
	require.True(t, lv.LiveIn(1, 1), "join's own parameter is live at its block start")
}
