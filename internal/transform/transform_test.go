package transform

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/iltext"
	"github.com/viper-lang/viper/internal/passmgr"
	"github.com/viper-lang/viper/internal/verify"
)

func mustParse(t *testing.T, src string) *il.Module {
	t.Helper()
	m, d := iltext.ParseModule(src, 1)
	require.Nil(t, d, "parse error: %v", d)
	return m
}

func requireVerified(t *testing.T, m *il.Module) {
	t.Helper()
	require.Empty(t, verify.Module(m))
}

func blockByLabel(t *testing.T, fn *il.Function, label string) *il.BasicBlock {
	t.Helper()
	blk, ok := fn.BlockByLabel(label)
	require.True(t, ok, "no block labeled %q", label)
	return blk
}

func TestConstFoldReplacesArithmeticWithItsResult(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f() -> i64 {
  entry:
    %t0 = add 2, 3
    ret %t0
}
`)
	fn := &m.Functions[0]
	changed := ConstFoldPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	entry := blockByLabel(t, fn, "entry")
	require.Len(t, entry.Instrs, 1)
	ret := entry.Instrs[0]
	require.Equal(t, il.OpRet, ret.Op)
	require.Equal(t, il.ConstInt(5, il.TI64), ret.Args[0])
}

func TestDCERemovesUnobservedStore(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f() -> i64 {
  entry:
    %t0 = alloca 8
    store i64 %t0, 5
    ret 0
}
`)
	fn := &m.Functions[0]
	changed := DCEPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	entry := blockByLabel(t, fn, "entry")
	require.Len(t, entry.Instrs, 1)
	require.Equal(t, il.OpRet, entry.Instrs[0].Op)
}

func TestMem2RegPromotesStraightLineAlloca(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f() -> i64 {
  entry:
    %t0 = alloca 8
    store i64 %t0, 7
    %t1 = load i64 %t0
    ret %t1
}
`)
	fn := &m.Functions[0]
	changed := Mem2RegPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	entry := blockByLabel(t, fn, "entry")
	require.Len(t, entry.Instrs, 1, "alloca/store/load should all be gone")
	require.Equal(t, il.ConstInt(7, il.TI64), entry.Instrs[0].Args[0])
}

func TestMem2RegMergesDivergentValuesAtJoinWithABlockParam(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f(%t0: i1) -> i64 {
  entry:
    %t1 = alloca 8
    cbr %t0, then, els
  then:
    store i64 %t1, 1
    br join
  els:
    store i64 %t1, 2
    br join
  join:
    %t2 = load i64 %t1
    ret %t2
}
`)
	fn := &m.Functions[0]
	changed := Mem2RegPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	join := blockByLabel(t, fn, "join")
	require.Len(t, join.Params, 1, "a merge of two distinct incoming values needs one block parameter")
	require.Len(t, join.Instrs, 1)
	require.Equal(t, il.OpRet, join.Instrs[0].Op)
	require.Equal(t, join.Params[0].ID, join.Instrs[0].Args[0].ID)

	for _, label := range []string{"then", "els"} {
		blk := blockByLabel(t, fn, label)
		term := blk.Terminator()
		require.Len(t, term.BrArgs[0], 1, "%s must now forward a value for join's new parameter", label)
	}
}

func TestSCCPPrunesTheUntakenArmOfAConstantBranch(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f() -> i64 {
  entry:
    cbr 1, then, els
  then:
    ret 10
  els:
    ret 20
}
`)
	fn := &m.Functions[0]
	changed := SCCPPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	require.Len(t, fn.Blocks, 2, "els is never executable and should be pruned")
	_, hasEls := fn.BlockByLabel("els")
	require.False(t, hasEls)

	entry := blockByLabel(t, fn, "entry")
	term := entry.Terminator()
	require.Equal(t, il.OpBr, term.Op, "the cbr should fold to an unconditional branch to then")
}

func TestPeepholeFoldsAdditiveIdentity(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f(%t0: i64) -> i64 {
  entry:
    %t1 = add %t0, 0
    ret %t1
}
`)
	fn := &m.Functions[0]
	paramID := fn.Blocks[0].Params[0].ID

	changed := PeepholePass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	entry := blockByLabel(t, fn, "entry")
	require.Len(t, entry.Instrs, 1)
	require.Equal(t, paramID, entry.Instrs[0].Args[0].ID)
}

func TestSimplifyCFGMergesAForwardingChainIntoTheEntryBlock(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f() -> i64 {
  entry:
    br mid
  mid:
    br done
  done:
    ret 1
}
`)
	fn := &m.Functions[0]
	changed := SimplifyCFGPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	require.Len(t, fn.Blocks, 1)
	require.Equal(t, "entry", fn.Blocks[0].Label)
	require.Equal(t, il.OpRet, fn.Blocks[0].Instrs[len(fn.Blocks[0].Instrs)-1].Op)
}

func TestSimplifyCFGDropsAnUnreachableBlock(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f() -> i64 {
  entry:
    ret 1
  dead:
    ret 2
}
`)
	fn := &m.Functions[0]
	changed := SimplifyCFGPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	require.Len(t, fn.Blocks, 1)
	_, hasDead := fn.BlockByLabel("dead")
	require.False(t, hasDead)
}

func TestLoopSimplifyInsertsAPreheaderForMultipleOutsideEntries(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f(%t0: i1) -> i64 {
  entry:
    cbr %t0, a, b
  a:
    br head(1)
  b:
    br head(2)
  head(%t1: i64):
    br head(%t1)
}
`)
	fn := &m.Functions[0]
	changed := LoopSimplifyPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	for _, label := range []string{"a", "b"} {
		blk := blockByLabel(t, fn, label)
		require.NotEqual(t, "head", blk.Terminator().Succs[0], "%s must no longer branch straight into head", label)
	}

	preheader := blockByLabel(t, fn, "a").Terminator().Succs[0]
	pblk := blockByLabel(t, fn, preheader)
	require.Equal(t, []string{"head"}, pblk.Terminator().Succs)
}

func TestLoopSimplifyInsertsALatchForMultipleBackEdges(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f(%t0: i1) -> i64 {
  entry:
    br head(0)
  head(%t1: i64):
    cbr %t0, l1, l2
  l1:
    br head(%t1)
  l2:
    br head(%t1)
}
`)
	fn := &m.Functions[0]
	changed := LoopSimplifyPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	for _, label := range []string{"l1", "l2"} {
		blk := blockByLabel(t, fn, label)
		require.NotEqual(t, "head", blk.Terminator().Succs[0], "%s must no longer branch straight back into head", label)
	}

	latch := blockByLabel(t, fn, "l1").Terminator().Succs[0]
	lblk := blockByLabel(t, fn, latch)
	require.Equal(t, []string{"head"}, lblk.Terminator().Succs)
}

func TestLICMHoistsAConstantComputationOutOfTheLoopBody(t *testing.T) {
	m := mustParse(t, `il 0.1
func @f(%t0: i64) -> i64 {
  entry:
    br head(0)
  head(%t1: i64):
    %c = icmp_lt %t1, %t0
    cbr %c, body, exit
  body:
    %tinv = add 2, 3
    %t2 = add %t1, %tinv
    br head(%t2)
  exit:
    ret %t1
}
`)
	fn := &m.Functions[0]
	changed := LICMPass{}.RunFunction(fn, passmgr.NewAnalysisCache(), 0)
	require.True(t, changed)
	requireVerified(t, m)

	entry := blockByLabel(t, fn, "entry")
	found := false
	for _, instr := range entry.Instrs {
		if instr.Op == il.OpAdd && len(instr.Args) == 2 && instr.Args[0] == il.ConstInt(2, il.TI64) {
			found = true
		}
	}
	require.True(t, found, "the all-constant add should have been hoisted into the preheader")

	body := blockByLabel(t, fn, "body")
	for _, instr := range body.Instrs {
		require.False(t, instr.Op == il.OpAdd && len(instr.Args) == 2 && instr.Args[0] == il.ConstInt(2, il.TI64), "the hoisted instruction must no longer remain in the loop body")
	}
}
