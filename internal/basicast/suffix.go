package basicast

import "github.com/viper-lang/viper/internal/il"

// TypeSuffix derives a name's IL type from its trailing sigil per
// spec §4.9.1: `$` -> str, `#` -> f64, no sigil -> i64. Lowering and
// scan share this so a variable's slot type and every reference to it
// agree without a separate symbol table entry for type alone.
func TypeSuffix(name string) il.Type {
	if name == "" {
		return il.TI64
	}
	switch name[len(name)-1] {
	case '$':
		return il.TStr
	case '#':
		return il.TF64
	default:
		return il.TI64
	}
}
