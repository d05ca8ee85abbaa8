package passmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/il"
)

// countingPass is a minimal FunctionPass stand-in: it reports "changed"
// exactly once per function (on its first visit), letting tests drive
// both Run and RunFixpoint without depending on the real transforms.
type countingPass struct {
	visited   map[int]bool
	preserves []AnalysisKind
}

func newCountingPass(preserves ...AnalysisKind) *countingPass {
	return &countingPass{visited: map[int]bool{}, preserves: preserves}
}

func (p *countingPass) Name() string            { return "counting" }
func (p *countingPass) Description() string     { return "marks each function changed once" }
func (p *countingPass) Preserves() []AnalysisKind { return p.preserves }
func (p *countingPass) RunFunction(fn *il.Function, cache *AnalysisCache, fi int) bool {
	if p.visited[fi] {
		return false
	}
	p.visited[fi] = true
	return true
}

// alwaysChangesPass never converges; used to exercise the fixpoint
// iteration bound.
type alwaysChangesPass struct{}

func (alwaysChangesPass) Name() string              { return "neverending" }
func (alwaysChangesPass) Description() string       { return "always reports a change" }
func (alwaysChangesPass) Preserves() []AnalysisKind { return nil }
func (alwaysChangesPass) RunFunction(fn *il.Function, cache *AnalysisCache, fi int) bool {
	return true
}

func oneBlockFn(name string) il.Function {
	return il.Function{
		Name:  name,
		RetTy: il.TI64,
		Blocks: []il.BasicBlock{
			{Label: "entry", Instrs: []il.Instr{{Op: il.OpRet, Args: []il.Value{il.ConstInt(0, il.TI64)}}}},
		},
	}
}

func TestPipelineRunVisitsEveryFunctionOnce(t *testing.T) {
	m := &il.Module{Functions: []il.Function{oneBlockFn("a"), oneBlockFn("b")}}
	pass := newCountingPass(AnalysisCFG)
	pipe := NewPipelineFromPasses(pass)

	report, diags := pipe.Run(m, nil, Options{})
	require.Empty(t, diags)
	require.True(t, report.Changed)
	require.Len(t, report.Steps, 2)

	report2, diags2 := pipe.Run(m, nil, Options{})
	require.Empty(t, diags2)
	require.False(t, report2.Changed, "second run should see every function already visited")
}

func TestAnalysisCacheInvalidatesUnpreservedKinds(t *testing.T) {
	fn := oneBlockFn("f")
	cache := NewAnalysisCache()
	cfg := cache.CFG(0, &fn)
	require.Same(t, cfg, cache.CFG(0, &fn), "second call should hit the cache")

	cache.Invalidate(0, []AnalysisKind{AnalysisDominators})
	require.NotSame(t, cfg, cache.CFG(0, &fn), "CFG was not in the preserved set, so it should be recomputed")
}

func TestRunFixpointExceedsBoundRaisesINT001(t *testing.T) {
	m := &il.Module{Functions: []il.Function{oneBlockFn("a")}}
	pipe := NewPipelineFromPasses(alwaysChangesPass{})

	_, diags := pipe.RunFixpoint(m, Options{MaxFixpointIterations: 8})
	require.Len(t, diags, 1)
	require.Equal(t, "INT001", diags[0].Code)
}

func TestRunFixpointConvergesWithoutDiagnostic(t *testing.T) {
	m := &il.Module{Functions: []il.Function{oneBlockFn("a"), oneBlockFn("b")}}
	pipe := NewPipelineFromPasses(newCountingPass())

	report, diags := pipe.RunFixpoint(m, Options{MaxFixpointIterations: 16})
	require.Empty(t, diags)
	require.True(t, report.Changed)
}

func TestVerifyAfterEachPassCatchesBrokenModule(t *testing.T) {
	m := &il.Module{Functions: []il.Function{oneBlockFn("a")}}
	breaking := brokenPass{}
	pipe := NewPipelineFromPasses(breaking)

	_, diags := pipe.Run(m, nil, Options{VerifyAfterEachPass: true})
	require.NotEmpty(t, diags)
	require.Equal(t, "INT002", diags[0].Code)
}

// brokenPass corrupts the module's only function so the verifier
// rejects it, to exercise the VerifyAfterEachPass hook.
type brokenPass struct{}

func (brokenPass) Name() string              { return "broken" }
func (brokenPass) Description() string       { return "introduces a dangling branch target" }
func (brokenPass) Preserves() []AnalysisKind { return nil }
func (brokenPass) RunFunction(fn *il.Function, cache *AnalysisCache, fi int) bool {
	fn.Blocks[0].Instrs[0] = il.Instr{Op: il.OpBr, Succs: []string{"nowhere"}, BrArgs: [][]il.Value{nil}}
	return true
}

func TestRegisterAndLookup(t *testing.T) {
	p := newCountingPass()
	p.Name() // no-op, just exercising the method set
	Register(registrationProbe{})
	got, ok := Lookup("registration-probe")
	require.True(t, ok)
	require.Equal(t, "registration-probe", got.Name())
	require.Contains(t, Registered(), "registration-probe")
}

type registrationProbe struct{}

func (registrationProbe) Name() string              { return "registration-probe" }
func (registrationProbe) Description() string       { return "test-only registry probe" }
func (registrationProbe) Preserves() []AnalysisKind { return nil }
func (registrationProbe) RunModule(m *il.Module, cache *AnalysisCache) bool { return false }
