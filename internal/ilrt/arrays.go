package ilrt

import "github.com/viper-lang/viper/internal/il"

func init() {
	RegisterHelper("rt_arr_alloc_i64", "ptr(i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_alloc_f64", "ptr(i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_alloc_str", "ptr(i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_len", "i64(ptr)", "arrays", il.EffectPure)
	RegisterHelper("rt_arr_get_i64", "i64(ptr,i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_get_f64", "f64(ptr,i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_get_str", "str(ptr,i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_set_i64", "void(ptr,i64,i64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_set_f64", "void(ptr,i64,f64)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_set_str", "void(ptr,i64,str)", "arrays", il.EffectMem)
	RegisterHelper("rt_arr_bounds_check", "void(ptr,i64)", "arrays", il.EffectTrap)
}
