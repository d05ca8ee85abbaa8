package verify

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/iltext"
)

func mustParse(t *testing.T, src string) *il.Module {
	t.Helper()
	m, d := iltext.ParseModule(src, 1)
	require.Nil(t, d, "parse error: %v", d)
	return m
}

func codesOf(diags []*diag.Diag) []string {
	codes := make([]string, len(diags))
	for i, d := range diags {
		codes[i] = d.Code
	}
	return codes
}

func TestVerifyAcceptsWellFormedModule(t *testing.T) {
	m := mustParse(t, `il 0.1
extern @rt_print_i64(i64) -> void

func @main() -> i64 {
  entry:
    %t0 = alloca 8
    store i64 %t0, 2
    %t1 = load i64 %t0
    call @rt_print_i64(%t1)
    ret %t1
}
`)
	require.Empty(t, Module(m))
}

func TestVerifyDetectsUndefinedSuccessor(t *testing.T) {
	m := mustParse(t, `il 0.1
func @choose(%t0: i1) -> i64 {
  entry:
    cbr %t0, then, els
  then:
    ret 1
  els:
    ret 2
}
`)
	// The bad reference is introduced directly on the already-parsed
	// IR, so only the verifier's own label check can catch it.
	m.Functions[0].Blocks[0].Instrs[0].Succs[1] = "missing"
	require.Contains(t, codesOf(Module(m)), "STR007")
}

func TestVerifyDetectsBranchArityMismatch(t *testing.T) {
	m := mustParse(t, `il 0.1
func @choose(%t0: i1) -> i64 {
  entry:
    cbr %t0, then, els
  then:
    br join(1)
  els:
    br join(2)
  join(%t1: i64):
    ret %t1
}
`)
	fn := &m.Functions[0]
	for bi := range fn.Blocks {
		if fn.Blocks[bi].Label == "then" {
			fn.Blocks[bi].Instrs[0].BrArgs[0] = nil
		}
	}
	require.Contains(t, codesOf(Module(m)), "STR003")
}

func TestVerifyDetectsCallArityMismatch(t *testing.T) {
	m := mustParse(t, `il 0.1
extern @rt_print_i64(i64) -> void

func @main() -> i64 {
  entry:
    call @rt_print_i64(1)
    ret 0
}
`)
	m.Functions[0].Blocks[0].Instrs[0].Args = nil
	require.Contains(t, codesOf(Module(m)), "STR005")
}

func TestVerifyDetectsUnresolvedCallee(t *testing.T) {
	m := mustParse(t, `il 0.1
extern @rt_print_i64(i64) -> void

func @main() -> i64 {
  entry:
    call @rt_print_i64(1)
    ret 0
}
`)
	m.Functions[0].Blocks[0].Instrs[0].Callee = "rt_does_not_exist"
	require.Contains(t, codesOf(Module(m)), "STR011")
}

func TestVerifyDetectsDuplicateFunctionName(t *testing.T) {
	a := mustParse(t, `il 0.1
func @dup() -> i64 {
  entry:
    ret 0
}
`)
	b := mustParse(t, `il 0.1
func @dup() -> i64 {
  entry:
    ret 1
}
`)
	a.Functions = append(a.Functions, b.Functions[0])
	require.Contains(t, codesOf(Module(a)), "STR001")
}

func TestVerifyDetectsABIMismatch(t *testing.T) {
	m := mustParse(t, `il 0.1
extern @rt_print_i64(str) -> void

func @main() -> i64 {
  entry:
    ret 0
}
`)
	require.Contains(t, codesOf(Module(m)), "ABI001")
}

func TestVerifyDetectsUseNotDominated(t *testing.T) {
	m := mustParse(t, `il 0.1
func @choose(%t0: i1) -> i64 {
  entry:
    cbr %t0, then, els
  then:
    %t1 = add 1, 1
    br join()
  els:
    br join()
  join():
    ret %t1
}
`)
	require.Contains(t, codesOf(Module(m)), "STR009")
}
