package transform

import (
	"github.com/viper-lang/viper/internal/analysis"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/passmgr"
)

func init() {
	passmgr.Register(Mem2RegPass{})
}

// Mem2RegPass promotes scalar stack slots (integer, float, and boolean
// allocas only) to SSA values using block parameters in place of phi
// nodes, the sealed-block construction of spec §4.8.3. A load is
// replaced by whatever value currently reaches it; a store updates
// that current value and is erased; a join point whose predecessors
// disagree gets a fresh block parameter, wired at every predecessor's
// branch-argument vector, dropped again if every predecessor turns out
// to agree after all.
type Mem2RegPass struct{}

func (Mem2RegPass) Name() string        { return "mem2reg" }
func (Mem2RegPass) Description() string { return "promotes scalar stack allocas to SSA block parameters" }
func (Mem2RegPass) Preserves() []passmgr.AnalysisKind {
	return []passmgr.AnalysisKind{passmgr.AnalysisCFG, passmgr.AnalysisDominators}
}

func (Mem2RegPass) RunFunction(fn *il.Function, cache *passmgr.AnalysisCache, fi int) bool {
	promotable := findPromotableAllocas(fn)
	if len(promotable) == 0 {
		return false
	}

	cfg := cache.CFG(fi, fn)
	s := &mem2regState{
		fn:           fn,
		cfg:          cfg,
		promotable:   promotable,
		currentValue: map[string]map[uint32]il.Value{},
		placeholder:  map[string]map[uint32]il.Value{},
		replace:      map[uint32]il.Value{},
		nextID:       nextFreeID(fn),
	}

	var pendingSeal []string
	for _, idx := range cfg.RPO() {
		label := fn.Blocks[idx].Label
		if s.visitBlock(label) {
			pendingSeal = append(pendingSeal, label)
		}
	}
	for _, label := range pendingSeal {
		s.sealBlock(label)
	}

	if len(s.replace) == 0 && !s.changedAny {
		return false
	}

	resolved := map[uint32]il.Value{}
	for id := range s.replace {
		resolved[id] = s.resolveReplacement(id, map[uint32]bool{})
	}
	for bi := range fn.Blocks {
		blk := &fn.Blocks[bi]
		for ii := range blk.Instrs {
			for from, to := range resolved {
				blk.Instrs[ii].ReplaceUses(from, to)
			}
		}
	}
	return true
}

// findPromotableAllocas returns, for every alloca whose result is used
// solely as the pointer operand of load/store instructions (never
// passed to a call, returned, or used as a branch argument), the
// scalar value type it is promoted at. Allocas used for any other
// purpose, or whose load/store types disagree, or whose value type is
// not an integer, float, or i1, are left untouched.
func findPromotableAllocas(fn *il.Function) map[uint32]il.Type {
	candidate := map[uint32]il.Type{}
	disqualified := map[uint32]bool{}

	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			instr := &fn.Blocks[bi].Instrs[ii]
			if instr.Op == il.OpAlloca && instr.HasResult {
				if _, seen := candidate[instr.ResultID]; !seen {
					candidate[instr.ResultID] = il.Type{}
				}
			}
		}
	}
	if len(candidate) == 0 {
		return nil
	}

	markEscape := func(id uint32) { disqualified[id] = true }
	recordAccess := func(id uint32, ty il.Type) {
		if !ty.IsInteger() && !ty.IsFloat() {
			markEscape(id)
			return
		}
		cur, ok := candidate[id]
		if ok && cur != (il.Type{}) && cur != ty {
			markEscape(id)
			return
		}
		candidate[id] = ty
	}

	for bi := range fn.Blocks {
		for ii := range fn.Blocks[bi].Instrs {
			instr := &fn.Blocks[bi].Instrs[ii]
			switch instr.Op {
			case il.OpAlloca:
				continue
			case il.OpLoad:
				if instr.Args[0].Kind == il.VTemp {
					if _, ok := candidate[instr.Args[0].ID]; ok {
						recordAccess(instr.Args[0].ID, instr.ResultTy)
					}
				}
			case il.OpStore:
				if instr.Args[0].Kind == il.VTemp {
					if _, ok := candidate[instr.Args[0].ID]; ok {
						recordAccess(instr.Args[0].ID, instr.Args[1].Ty)
					}
				}
				if instr.Args[1].Kind == il.VTemp {
					if _, ok := candidate[instr.Args[1].ID]; ok {
						markEscape(instr.Args[1].ID) // stored-as-a-value, not addressed-through
					}
				}
			default:
				instr.Uses(func(v il.Value) {
					if _, ok := candidate[v.ID]; ok {
						markEscape(v.ID)
					}
				})
			}
		}
	}

	out := map[uint32]il.Type{}
	for id, ty := range candidate {
		if disqualified[id] || ty == (il.Type{}) {
			continue
		}
		out[id] = ty
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// nextFreeID returns one past the highest SSA id already in use in fn,
// so freshly minted block parameters never collide with an existing
// temp or parameter.
func nextFreeID(fn *il.Function) uint32 {
	var max uint32
	seen := false
	bump := func(id uint32) {
		if !seen || id > max {
			max, seen = id, true
		}
	}
	for bi := range fn.Blocks {
		for _, p := range fn.Blocks[bi].Params {
			bump(p.ID)
		}
		for ii := range fn.Blocks[bi].Instrs {
			instr := &fn.Blocks[bi].Instrs[ii]
			if instr.HasResult {
				bump(instr.ResultID)
			}
		}
	}
	if !seen {
		return 0
	}
	return max + 1
}

type mem2regState struct {
	fn           *il.Function
	cfg          *analysis.CFG
	promotable   map[uint32]il.Type
	currentValue map[string]map[uint32]il.Value
	placeholder  map[string]map[uint32]il.Value // block label -> alloca id -> its still-tentative param value
	replace      map[uint32]il.Value            // placeholder param id -> final value, once dropped
	nextID       uint32
	changedAny   bool
}

// preds returns the labels of label's predecessor blocks, translating
// through the index-keyed CFG at the boundary.
func (s *mem2regState) preds(label string) []string {
	idxs := s.cfg.Predecessors(s.fn.BlockIndex(label))
	if len(idxs) == 0 {
		return nil
	}
	out := make([]string, len(idxs))
	for i, idx := range idxs {
		out[i] = s.fn.Blocks[idx].Label
	}
	return out
}

// rpoPos returns label's position in reverse postorder, translating
// through the index-keyed CFG at the boundary.
func (s *mem2regState) rpoPos(label string) int {
	return s.cfg.RPOPosition(s.fn.BlockIndex(label))
}

func (s *mem2regState) cur(label string) map[uint32]il.Value {
	m := s.currentValue[label]
	if m == nil {
		m = map[uint32]il.Value{}
		s.currentValue[label] = m
	}
	return m
}

func (s *mem2regState) freshID() uint32 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *mem2regState) zeroValue(id uint32) il.Value {
	ty := s.promotable[id]
	if ty.IsFloat() {
		return il.ConstFloat(0)
	}
	return il.ConstInt(0, ty)
}

func (s *mem2regState) newParam(label string, id uint32) il.Value {
	blk, _ := s.fn.BlockByLabel(label)
	pid := s.freshID()
	p := il.Param{Name: "m2r", Ty: s.promotable[id], ID: pid}
	blk.Params = append(blk.Params, p)
	return p.Value()
}

// visitBlock rewrites one block's loads and stores against the locally
// threaded current-value map, minting a block parameter for any
// join/loop-header read whose incoming value is not yet resolvable.
// Reports whether the block was visited while still unsealed (a
// predecessor has not yet been processed in RPO order), meaning its
// placeholders need sealBlock's treatment once the whole function has
// been walked.
func (s *mem2regState) visitBlock(label string) bool {
	blk, _ := s.fn.BlockByLabel(label)
	cur := s.cur(label)
	preds := s.preds(label)

	sealedAtVisit := true
	here := s.rpoPos(label)
	for _, p := range preds {
		if s.rpoPos(p) >= here {
			sealedAtVisit = false
			break
		}
	}

	readAlloca := func(id uint32) il.Value {
		if v, ok := cur[id]; ok {
			return v
		}
		var v il.Value
		if sealedAtVisit {
			v = s.resolveIncoming(label, id)
		} else {
			v = s.newParam(label, id)
			ph := s.placeholder[label]
			if ph == nil {
				ph = map[uint32]il.Value{}
				s.placeholder[label] = ph
			}
			ph[id] = v
		}
		cur[id] = v
		return v
	}

	kept := blk.Instrs[:0]
	for _, instr := range blk.Instrs {
		switch instr.Op {
		case il.OpLoad:
			if instr.Args[0].Kind == il.VTemp {
				if ty, ok := s.promotable[instr.Args[0].ID]; ok && ty == instr.ResultTy {
					v := readAlloca(instr.Args[0].ID)
					s.replace[instr.ResultID] = v
					s.changedAny = true
					continue
				}
			}
		case il.OpStore:
			if instr.Args[0].Kind == il.VTemp {
				if _, ok := s.promotable[instr.Args[0].ID]; ok {
					cur[instr.Args[0].ID] = instr.Args[1]
					s.changedAny = true
					continue
				}
			}
		case il.OpAlloca:
			if instr.HasResult {
				if _, ok := s.promotable[instr.ResultID]; ok {
					s.changedAny = true
					continue
				}
			}
		}
		kept = append(kept, instr)
	}
	blk.Instrs = kept

	return !sealedAtVisit
}

// resolveIncoming returns the value alloca id holds on entry to label,
// computing it from predecessors (already processed, since this is
// only called for a sealed block or during the post-walk finalize
// pass). A fresh block parameter is installed before recursing into
// predecessors so a cyclic reference (a loop header reachable from
// itself) resolves to that parameter instead of looping forever.
func (s *mem2regState) resolveIncoming(label string, id uint32) il.Value {
	if v, ok := s.cur(label)[id]; ok {
		return v
	}
	preds := s.preds(label)
	switch {
	case len(preds) == 0:
		v := s.zeroValue(id)
		s.cur(label)[id] = v
		return v
	case len(preds) == 1 && preds[0] != label:
		v := s.resolveIncoming(preds[0], id)
		s.cur(label)[id] = v
		return v
	default:
		param := s.newParam(label, id)
		s.cur(label)[id] = param
		vals := make([]il.Value, len(preds))
		same := true
		selfReferential := false
		for i, p := range preds {
			vals[i] = s.resolveIncoming(p, id)
			if vals[i] == param {
				selfReferential = true
			}
			if i > 0 && vals[i] != vals[0] {
				same = false
			}
		}
		if same && !selfReferential {
			s.dropParam(label, param)
			s.replace[param.ID] = vals[0]
			s.cur(label)[id] = vals[0]
			return vals[0]
		}
		for i, p := range preds {
			s.appendBrArg(p, label, vals[i])
		}
		return param
	}
}

// sealBlock finalizes a block that was visited while unsealed: every
// placeholder parameter it minted is now resolvable, since every other
// block in the function has been walked at least once.
func (s *mem2regState) sealBlock(label string) {
	for id, param := range s.placeholder[label] {
		preds := s.preds(label)
		vals := make([]il.Value, len(preds))
		same := true
		selfReferential := false
		for i, p := range preds {
			vals[i] = s.resolveIncoming(p, id)
			if vals[i] == param {
				selfReferential = true
			}
			if i > 0 && vals[i] != vals[0] {
				same = false
			}
		}
		if same && !selfReferential {
			s.dropParam(label, param)
			s.replace[param.ID] = vals[0]
			continue
		}
		for i, p := range preds {
			s.appendBrArg(p, label, vals[i])
		}
	}
}

// dropParam removes a placeholder parameter from its owning block. Any
// branch-argument slot already supplied for it across predecessors is
// removed too, keeping BrArgs aligned with Params; uses of the
// parameter's value are rewritten via the replace map applied once the
// whole pass finishes.
func (s *mem2regState) dropParam(label string, param il.Value) {
	blk, _ := s.fn.BlockByLabel(label)
	idx := -1
	for i, p := range blk.Params {
		if p.ID == param.ID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	blk.Params = append(blk.Params[:idx], blk.Params[idx+1:]...)

	for bi := range s.fn.Blocks {
		term := s.fn.Blocks[bi].Terminator()
		if term == nil {
			continue
		}
		for si, succ := range term.Succs {
			if succ != label {
				continue
			}
			args := term.BrArgs[si]
			if idx < len(args) {
				term.BrArgs[si] = append(args[:idx], args[idx+1:]...)
			}
		}
	}
}

// appendBrArg supplies value as the branch argument src sends to dst
// for the alloca's merged parameter, appending to whichever successor
// slot in src's terminator targets dst (src may branch to dst more
// than once only via distinct cbr arms, each tracked independently).
func (s *mem2regState) appendBrArg(src, dst string, value il.Value) {
	blk, _ := s.fn.BlockByLabel(src)
	term := blk.Terminator()
	if term == nil {
		return
	}
	for si, succ := range term.Succs {
		if succ == dst {
			term.BrArgs[si] = append(term.BrArgs[si], value)
		}
	}
}

// resolveReplacement follows a chain of replacements to its end (a
// dropped placeholder may itself have been replaced by another
// placeholder that was later also dropped), guarding against cycles.
func (s *mem2regState) resolveReplacement(id uint32, seen map[uint32]bool) il.Value {
	v := s.replace[id]
	if v.Kind != il.VTemp || seen[v.ID] {
		return v
	}
	seen[v.ID] = true
	if _, chained := s.replace[v.ID]; chained {
		return s.resolveReplacement(v.ID, seen)
	}
	return v
}
