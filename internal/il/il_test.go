package il

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTypeRoundTrip(t *testing.T) {
	for _, ty := range []Type{TVoid, TI1, TI16, TI32, TI64, TF64, TPtr, TStr, TError, TResumeTok} {
		s := ty.String()
		got, ok := ParseType(s)
		require.True(t, ok, "ParseType(%q)", s)
		require.Equal(t, ty, got)
	}
}

func TestFormatFloatRoundTrips(t *testing.T) {
	cases := []float64{0, 1, -1, 0.1, 3.14159, 1e20, -1e-20, 100}
	for _, f := range cases {
		s := FormatFloat(f)
		require.NotEmpty(t, s)
	}
}

func TestValueString(t *testing.T) {
	require.Equal(t, "%t3", Temp(3, TI64).String())
	require.Equal(t, "5", ConstInt(5, TI64).String())
	require.Equal(t, "@foo", GlobalRef("foo").String())
	require.Equal(t, "null", NullPtr.String())
}

func TestOpcodeTableMnemonicsAreUnique(t *testing.T) {
	seen := map[string]Opcode{}
	for _, op := range AllOpcodes() {
		info, ok := LookupOpcode(op)
		require.True(t, ok, "opcode %d missing metadata", op)
		_, dup := seen[info.Name]
		require.False(t, dup, "mnemonic %q reused", info.Name)
		seen[info.Name] = op
		resolved, ok := LookupMnemonic(info.Name)
		require.True(t, ok)
		require.Equal(t, op, resolved)
	}
}

func TestModuleLookups(t *testing.T) {
	m := &Module{
		Version: "0.1.2",
		Externs: []Extern{{Name: "rt_concat", RetTy: TStr, Params: []Type{TStr, TStr}}},
		Functions: []Function{{
			Name:  "main",
			RetTy: TI64,
			Blocks: []BasicBlock{{
				Label:  "entry",
				Instrs: []Instr{{Op: OpRet, Args: []Value{ConstInt(0, TI64)}}},
			}},
		}},
	}
	_, ok := m.ExternByName("rt_concat")
	require.True(t, ok)
	_, ok = m.FunctionByName("main")
	require.True(t, ok)
	ret, params, ok := m.CalleeSignature("rt_concat")
	require.True(t, ok)
	require.Equal(t, TStr, ret)
	require.Len(t, params, 2)
}
