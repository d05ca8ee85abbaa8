package passmgr

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
)

// AnalysisCache holds the lazily-computed analyses for every function
// in a module, keyed by the function's index within Module.Functions.
// It is owned by a single Pipeline run and discarded at the end (spec
// §5 "the analysis cache is owned by the pass manager for the
// duration of a pipeline run and is released at the end").
type AnalysisCache struct {
	cfg        map[int]*analysis.CFG
	dominators map[int]*analysis.Dominators
	loopInfo   map[int]*analysis.LoopInfo
	liveness   map[int]*analysis.Liveness
}

// NewAnalysisCache returns an empty cache.
func NewAnalysisCache() *AnalysisCache {
	return &AnalysisCache{
		cfg:        map[int]*analysis.CFG{},
		dominators: map[int]*analysis.Dominators{},
		loopInfo:   map[int]*analysis.LoopInfo{},
		liveness:   map[int]*analysis.Liveness{},
	}
}

// CFG returns the cached CFG for function fi, computing it from fn if
// absent.
func (c *AnalysisCache) CFG(fi int, fn *il.Function) *analysis.CFG {
	if v, ok := c.cfg[fi]; ok {
		return v
	}
	v := analysis.BuildCFG(fn)
	c.cfg[fi] = v
	return v
}

// Dominators returns the cached dominator tree for function fi.
func (c *AnalysisCache) Dominators(fi int, fn *il.Function) *analysis.Dominators {
	if v, ok := c.dominators[fi]; ok {
		return v
	}
	v := analysis.BuildDominators(c.CFG(fi, fn))
	c.dominators[fi] = v
	return v
}

// LoopInfo returns the cached loop info for function fi.
func (c *AnalysisCache) LoopInfo(fi int, fn *il.Function) *analysis.LoopInfo {
	if v, ok := c.loopInfo[fi]; ok {
		return v
	}
	v := analysis.BuildLoopInfo(c.CFG(fi, fn), c.Dominators(fi, fn))
	c.loopInfo[fi] = v
	return v
}

// Liveness returns the cached liveness result for function fi.
func (c *AnalysisCache) Liveness(fi int, fn *il.Function) *analysis.Liveness {
	if v, ok := c.liveness[fi]; ok {
		return v
	}
	v := analysis.BuildLiveness(fn, c.CFG(fi, fn))
	c.liveness[fi] = v
	return v
}

// Invalidate drops every cached analysis for function fi except those
// named in keep. Called after a FunctionPass reports a change (spec
// §4.7 step 2: "analyses not in the preserved set are invalidated").
func (c *AnalysisCache) Invalidate(fi int, keep []AnalysisKind) {
	kept := map[AnalysisKind]bool{}
	for _, k := range keep {
		kept[k] = true
	}
	if !kept[AnalysisCFG] {
		delete(c.cfg, fi)
	}
	if !kept[AnalysisDominators] {
		delete(c.dominators, fi)
	}
	if !kept[AnalysisLoopInfo] {
		delete(c.loopInfo, fi)
	}
	if !kept[AnalysisLiveness] {
		delete(c.liveness, fi)
	}
}

// InvalidateAll drops every cached analysis for every function except
// the kinds named in keep. Called after a ModulePass reports a change,
// since a module-scope rewrite may touch any function.
func (c *AnalysisCache) InvalidateAll(keep []AnalysisKind) {
	kept := map[AnalysisKind]bool{}
	for _, k := range keep {
		kept[k] = true
	}
	if !kept[AnalysisCFG] {
		c.cfg = map[int]*analysis.CFG{}
	}
	if !kept[AnalysisDominators] {
		c.dominators = map[int]*analysis.Dominators{}
	}
	if !kept[AnalysisLoopInfo] {
		c.loopInfo = map[int]*analysis.LoopInfo{}
	}
	if !kept[AnalysisLiveness] {
		c.liveness = map[int]*analysis.Liveness{}
	}
}
