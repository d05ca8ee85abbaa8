package ilrt

import "github.com/viper-lang/viper/internal/il"

func init() {
	RegisterHelper("rt_abs_i64", "i64(i64)", "math", il.EffectPure)
	RegisterHelper("rt_abs_f64", "f64(f64)", "math", il.EffectPure)
	RegisterHelper("rt_floor", "f64(f64)", "math", il.EffectPure)
	RegisterHelper("rt_ceil", "f64(f64)", "math", il.EffectPure)
	RegisterHelper("rt_sqrt", "f64(f64)", "math", il.EffectTrap) // domain-checked: negative input traps
	RegisterHelper("rt_pow_i64", "i64(i64,i64)", "math", il.EffectPure)
	RegisterHelper("rt_pow_f64", "f64(f64,f64)", "math", il.EffectPure)
	RegisterHelper("rt_sin", "f64(f64)", "math", il.EffectPure)
	RegisterHelper("rt_cos", "f64(f64)", "math", il.EffectPure)
	RegisterHelper("rt_atan", "f64(f64)", "math", il.EffectPure)
	RegisterHelper("rt_log", "f64(f64)", "math", il.EffectTrap) // domain-checked: non-positive input traps
	RegisterHelper("rt_exp", "f64(f64)", "math", il.EffectPure)
}
