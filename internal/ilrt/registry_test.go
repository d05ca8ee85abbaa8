package ilrt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/viper-lang/viper/internal/il"
)

func TestParseSignatureRoundTrip(t *testing.T) {
	sig, err := ParseSignature("i64(str,i64)")
	require.NoError(t, err)
	require.Equal(t, il.TI64, sig.Ret)
	require.Equal(t, []il.Type{il.TStr, il.TI64}, sig.Params)
	require.Equal(t, "i64(str,i64)", sig.String())
}

func TestParseSignatureNoParams(t *testing.T) {
	sig, err := ParseSignature("str()")
	require.NoError(t, err)
	require.Empty(t, sig.Params)
	require.Equal(t, "str()", sig.String())
}

func TestParseSignatureMalformed(t *testing.T) {
	_, err := ParseSignature("i64 str,i64)")
	require.Error(t, err)
	_, err = ParseSignature("bogus(str)")
	require.Error(t, err)
}

func TestRegistryLookup(t *testing.T) {
	sig, ok := Lookup("rt_concat")
	require.True(t, ok)
	require.Equal(t, il.TStr, sig.Ret)
	require.True(t, IsPure("rt_concat"))
	require.False(t, IsPure("rt_print_str"))

	_, ok = Lookup("rt_does_not_exist")
	require.False(t, ok)
}

func TestAllIsSortedAndNonEmpty(t *testing.T) {
	names := All()
	require.NotEmpty(t, names)
	for i := 1; i < len(names); i++ {
		require.Less(t, names[i-1], names[i])
	}
}
