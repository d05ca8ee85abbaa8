// Package ilrt is the runtime signature registry (spec §4.2, §6.2): a
// canonical, read-only-after-init table mapping runtime helper names to
// IL signatures, built once and shared across the verifier and the
// BASIC lowering pipeline so spellings agree everywhere.
//
// The registration style mirrors the teacher's effects.Registry: a
// package-level map populated by each facility file's init(), keyed
// this time by helper name rather than (effect, op) pair since the
// runtime ABI has a single flat namespace of extern names.
package ilrt

import (
	"fmt"
	"sort"

	"github.com/viper-lang/viper/internal/il"
)

// Signature is a runtime helper's C-ABI shape: return type plus
// ordered parameter types.
type Signature struct {
	Ret    il.Type
	Params []il.Type
}

// String renders the compact spelling used in spec §4.2/§6.2, e.g.
// "i64(str,i64)".
func (s Signature) String() string {
	out := s.Ret.String() + "("
	for i, p := range s.Params {
		if i > 0 {
			out += ","
		}
		out += p.String()
	}
	return out + ")"
}

// Equal reports whether two signatures match component-wise, used by
// the verifier's runtime-ABI cross-check (spec §4.5.1 step 1).
func (s Signature) Equal(o Signature) bool {
	if s.Ret != o.Ret || len(s.Params) != len(o.Params) {
		return false
	}
	for i := range s.Params {
		if s.Params[i] != o.Params[i] {
			return false
		}
	}
	return true
}

// entry is one registry row.
type entry struct {
	Sig      Signature
	Facility string // "arrays", "math", "strings", "fileio", "terminal", "rng", "trap"
	Effect   il.EffectClass
}

// registry holds every helper, pre-created empty so RegisterHelper can
// run safely from each facility file's init().
var registry = map[string]entry{}

// RegisterHelper parses a compact signature spelling and adds `name` to
// the registry under the given facility and effect class. Panics on a
// malformed spelling or a duplicate name: both are programming errors
// in the registry's own facility files, never user input.
func RegisterHelper(name, spelling, facility string, effect il.EffectClass) {
	sig, err := ParseSignature(spelling)
	if err != nil {
		panic(fmt.Sprintf("ilrt: bad signature for %s: %v", name, err))
	}
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("ilrt: duplicate helper registration for %s", name))
	}
	registry[name] = entry{Sig: sig, Facility: facility, Effect: effect}
}

// Lookup returns the signature registered for name, and whether it is
// registered at all (spec §4.2's lookup(name) -> Option<Signature>).
func Lookup(name string) (Signature, bool) {
	e, ok := registry[name]
	if !ok {
		return Signature{}, false
	}
	return e.Sig, true
}

// EffectOf returns the effect classification for a registered helper.
// Unregistered names are never called by lowering or the verifier's
// ABI check, so callers should only invoke this after confirming
// registration via Lookup.
func EffectOf(name string) (il.EffectClass, bool) {
	e, ok := registry[name]
	if !ok {
		return 0, false
	}
	return e.Effect, true
}

// FacilityOf returns the facility tag for a registered helper.
func FacilityOf(name string) (string, bool) {
	e, ok := registry[name]
	if !ok {
		return "", false
	}
	return e.Facility, true
}

// All returns every registered helper name in sorted order, for
// deterministic iteration (spec §5 ordering guarantees, §9 determinism).
func All() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsPure reports whether a registered helper is side-effect-free,
// per SPEC_FULL.md §E's resolution of spec §9's open question.
func IsPure(name string) bool {
	e, ok := registry[name]
	return ok && e.Effect == il.EffectPure
}
