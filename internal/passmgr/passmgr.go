// Package passmgr is the pass manager (spec §4.7): named pass
// registration at module or function scope, a pipeline builder, a
// Run(Module) entry point, and an analysis cache keyed by
// (function-id, analysis-kind) that passes consult instead of
// recomputing CFG/Dominators/LoopInfo/Liveness themselves.
//
// The teacher has no equivalent package — its pipeline.go is a fixed
// staged sequence (parse -> elaborate -> eval), not a registry of
// interchangeable named passes. The Pass/Pipeline shape here is
// instead grounded on the corpus's own OptimizationPass/
// OptimizationPipeline pattern (kanso's internal/ir/optimizations.go:
// a Name/Description/Apply-returns-changed interface driving an
// ordered pipeline), adapted to carry the spec's analysis-preservation
// bookkeeping the kanso version doesn't need.
package passmgr

import (
	"fmt"
	"sort"

	"github.com/viper-lang/viper/internal/il"
)

// AnalysisKind names one of the cached analyses a pass may declare it
// preserves.
type AnalysisKind int

const (
	AnalysisCFG AnalysisKind = iota
	AnalysisDominators
	AnalysisLoopInfo
	AnalysisLiveness
)

func (k AnalysisKind) String() string {
	switch k {
	case AnalysisCFG:
		return "cfg"
	case AnalysisDominators:
		return "dominators"
	case AnalysisLoopInfo:
		return "loopinfo"
	case AnalysisLiveness:
		return "liveness"
	default:
		return "unknown"
	}
}

// Pass is the common surface every registered pass implements.
type Pass interface {
	Name() string
	Description() string
	// Preserves lists the analyses this pass's transformation leaves
	// valid. Anything not listed is invalidated (for the functions it
	// touched) when the pass reports a change (spec §4.7 step 2).
	Preserves() []AnalysisKind
}

// FunctionPass runs once per function in declaration order. changed
// reports whether it mutated fn.
type FunctionPass interface {
	Pass
	RunFunction(fn *il.Function, cache *AnalysisCache, fnIndex int) bool
}

// ModulePass runs once over the whole module.
type ModulePass interface {
	Pass
	RunModule(m *il.Module, cache *AnalysisCache) bool
}

// registry is the set of passes known by name, populated by each
// transform's init() (mirrors the teacher's op-table/registry style:
// a package-level map, never mutated after program start except by
// registration calls that panic on collision).
var registry = map[string]Pass{}

// Register adds a pass under its own Name(). Panics on a duplicate
// name: that is a programming error in the transform package, not a
// condition a caller can recover from.
func Register(p Pass) {
	name := p.Name()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("passmgr: duplicate pass registration for %q", name))
	}
	registry[name] = p
}

// Lookup resolves a registered pass by name.
func Lookup(name string) (Pass, bool) {
	p, ok := registry[name]
	return p, ok
}

// Registered returns every registered pass name, sorted.
func Registered() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
