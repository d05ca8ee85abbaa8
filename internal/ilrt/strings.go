package ilrt

import "github.com/viper-lang/viper/internal/il"

func init() {
	RegisterHelper("rt_str_alloc", "str(i64)", "strings", il.EffectMem)
	RegisterHelper("rt_str_retain", "str(str)", "strings", il.EffectMem)
	RegisterHelper("rt_str_release", "void(str)", "strings", il.EffectMem)
	RegisterHelper("rt_concat", "str(str,str)", "strings", il.EffectPure)
	RegisterHelper("rt_str_eq", "i1(str,str)", "strings", il.EffectPure)
	RegisterHelper("rt_str_cmp", "i64(str,str)", "strings", il.EffectPure)
	RegisterHelper("rt_str_len", "i64(str)", "strings", il.EffectPure)
	RegisterHelper("rt_str_substr", "str(str,i64,i64)", "strings", il.EffectPure)
	RegisterHelper("rt_str_upper", "str(str)", "strings", il.EffectPure)
	RegisterHelper("rt_str_lower", "str(str)", "strings", il.EffectPure)

	RegisterHelper("rt_parse_int", "i64(str)", "strings", il.EffectPure)
	RegisterHelper("rt_parse_float", "f64(str)", "strings", il.EffectPure)
	RegisterHelper("rt_fmt_int", "str(i64)", "strings", il.EffectPure)
	RegisterHelper("rt_fmt_float", "str(f64)", "strings", il.EffectPure)
}
