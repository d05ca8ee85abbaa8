package ilrt

import "github.com/viper-lang/viper/internal/il"

func init() {
	RegisterHelper("rt_file_open", "ptr(str,i64)", "fileio", il.EffectIO)
	RegisterHelper("rt_file_close", "void(ptr)", "fileio", il.EffectIO)
	RegisterHelper("rt_file_read_line", "str(ptr)", "fileio", il.EffectIO)
	RegisterHelper("rt_file_write", "void(ptr,str)", "fileio", il.EffectIO)
	RegisterHelper("rt_file_eof", "i1(ptr)", "fileio", il.EffectIO)

	RegisterHelper("rt_print_str", "void(str)", "terminal", il.EffectIO)
	RegisterHelper("rt_print_i64", "void(i64)", "terminal", il.EffectIO)
	RegisterHelper("rt_print_f64", "void(f64)", "terminal", il.EffectIO)
	RegisterHelper("rt_input_line", "str()", "terminal", il.EffectIO)

	RegisterHelper("rt_rng_seed", "void(i64)", "rng", il.EffectIO)
	RegisterHelper("rt_rng_next", "f64()", "rng", il.EffectIO)

	RegisterHelper("rt_trap", "void(str)", "trap", il.EffectTrap)
}
