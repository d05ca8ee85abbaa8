package passmgr

import (
	"fmt"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/logging"
	"github.com/viper-lang/viper/internal/verify"
)

// maxFixpointIterations is the default per-function iteration bound
// for a fixpoint run (spec §5, SPEC_FULL.md §E): SCCP and the
// SimplifyCFG suite are expected to converge well under this; exceeding
// it is an internal-invariant failure, never a silent truncation.
const maxFixpointIterations = 1024

// Options configures a Pipeline run.
type Options struct {
	// VerifyAfterEachPass re-verifies the whole module after every
	// pass step and aborts the run on the first violation (spec §4.7's
	// "optionally verifies after each pass (debug builds)").
	VerifyAfterEachPass bool
	// MaxFixpointIterations bounds RunFixpoint; zero means
	// maxFixpointIterations.
	MaxFixpointIterations int
}

func (o Options) iterationBound() int {
	if o.MaxFixpointIterations > 0 {
		return o.MaxFixpointIterations
	}
	return maxFixpointIterations
}

// StepRecord logs one pass application for diagnostics and tests.
type StepRecord struct {
	Pass     string
	Function string // empty for a module-scope pass
	Changed  bool
}

// Report summarizes a pipeline run.
type Report struct {
	Changed bool
	Steps   []StepRecord
}

// Pipeline is an ordered, resolved sequence of passes.
type Pipeline struct {
	steps []Pass
}

// NewPipeline resolves each name against the registry, in order.
func NewPipeline(names ...string) (*Pipeline, error) {
	steps := make([]Pass, 0, len(names))
	for _, name := range names {
		p, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("passmgr: unregistered pass %q", name)
		}
		steps = append(steps, p)
	}
	return &Pipeline{steps: steps}, nil
}

// NewPipelineFromPasses builds a pipeline directly from Pass values,
// bypassing the registry (used by tests and by callers composing
// one-off ad hoc pipelines).
func NewPipelineFromPasses(passes ...Pass) *Pipeline {
	return &Pipeline{steps: append([]Pass(nil), passes...)}
}

// Run applies every step once, in order, over m. A FunctionPass runs
// over each function in Module.Functions order; a ModulePass runs
// once. Returns on the first verify failure if opts.VerifyAfterEachPass
// is set.
func (p *Pipeline) Run(m *il.Module, cache *AnalysisCache, opts Options) (*Report, []*diag.Diag) {
	if cache == nil {
		cache = NewAnalysisCache()
	}
	report := &Report{}

	for _, step := range p.steps {
		switch pass := step.(type) {
		case FunctionPass:
			for fi := range m.Functions {
				changed := pass.RunFunction(&m.Functions[fi], cache, fi)
				logging.Debugf("pass:"+pass.Name(), "%s: changed=%v", m.Functions[fi].Name, changed)
				report.Steps = append(report.Steps, StepRecord{Pass: pass.Name(), Function: m.Functions[fi].Name, Changed: changed})
				if changed {
					report.Changed = true
					cache.Invalidate(fi, pass.Preserves())
				}
			}
		case ModulePass:
			changed := pass.RunModule(m, cache)
			logging.Debugf("pass:"+pass.Name(), "module: changed=%v", changed)
			report.Steps = append(report.Steps, StepRecord{Pass: pass.Name(), Changed: changed})
			if changed {
				report.Changed = true
				cache.InvalidateAll(pass.Preserves())
			}
		default:
			panic(fmt.Sprintf("passmgr: pass %q implements neither FunctionPass nor ModulePass", step.Name()))
		}

		if opts.VerifyAfterEachPass {
			if diags := verify.Module(m); len(diags) > 0 {
				return report, append([]*diag.Diag{
					diag.Newf(diag.INT002, diag.SourceLoc{}, "pass %q produced a module the verifier rejects", step.Name()),
				}, diags...)
			}
		}
	}
	return report, nil
}

// RunFixpoint repeats the full pipeline over m until a sweep makes no
// change, or the iteration bound is exceeded (spec §4.7, §5). Exceeding
// the bound raises INT001 rather than silently truncating.
func (p *Pipeline) RunFixpoint(m *il.Module, opts Options) (*Report, []*diag.Diag) {
	cache := NewAnalysisCache()
	combined := &Report{}
	bound := opts.iterationBound()

	for iter := 0; iter < bound; iter++ {
		r, diags := p.Run(m, cache, opts)
		combined.Steps = append(combined.Steps, r.Steps...)
		if len(diags) > 0 {
			return combined, diags
		}
		if !r.Changed {
			return combined, nil
		}
		combined.Changed = true
	}
	return combined, []*diag.Diag{
		diag.Newf(diag.INT001, diag.SourceLoc{}, "fixpoint pipeline exceeded %d iterations", bound),
	}
}
