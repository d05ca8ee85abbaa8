package iltext

import (
	"fmt"
	"sort"
	"strings"

	"github.com/viper-lang/viper/internal/il"
)

// PrintOptions controls Print's serialization (spec §6.3's canonicalize
// option). The zero value prints every value under whatever ID the
// module already carries.
type PrintOptions struct {
	// Canonicalize renumbers each function's non-parameter temporaries
	// to a dense sequence assigned in declaration order before
	// printing, closing any gaps an optimizer pass left behind. Named
	// block parameters are unaffected either way — they always print
	// under their declared name, never a synthesized id.
	Canonicalize bool
}

// Print renders m in canonical form (externs sorted lexicographically
// by name; globals, functions, blocks, and instructions in declaration
// order; temporaries densely renumbered). Two modules that are
// structurally equal always print identically; two modules that print
// identically are always structurally equal. Equivalent to
// PrintWithOptions(m, PrintOptions{Canonicalize: true}).
func Print(m *il.Module) string {
	return PrintWithOptions(m, PrintOptions{Canonicalize: true})
}

// PrintWithOptions is Print with explicit PrintOptions. With
// Canonicalize off, temporaries print under their raw in-memory IDs,
// which may contain gaps a pass's deletions left behind — useful for
// inspecting a module exactly as the pipeline produced it, at the cost
// of losing the "identical modules print identically" guarantee across
// runs that happened to delete a different number of values.
func PrintWithOptions(m *il.Module, opts PrintOptions) string {
	var b strings.Builder
	fmt.Fprintf(&b, "il %s\n", m.Version)

	externs := append([]il.Extern(nil), m.Externs...)
	sort.Slice(externs, func(i, j int) bool { return externs[i].Name < externs[j].Name })
	for _, e := range externs {
		printExtern(&b, e)
	}
	for _, g := range m.Globals {
		printGlobal(&b, g)
	}
	for _, f := range m.Functions {
		if opts.Canonicalize {
			f = canonicalizeFunction(f)
		}
		printFunction(&b, f)
	}
	return b.String()
}

// paramNames maps every block parameter's ID to its declared name
// (spec §3.4: a block parameter is itself a Value, so every use of it
// elsewhere in the function must print the same spelling its
// declaration does, not a synthesized %tN — otherwise parse(serialize(M))
// would reassign it a fresh, different name and break the P1 round-trip
// guarantee). Instruction results have no declared name of their own
// and are deliberately left out of this table, so they keep printing
// via their plain %tN form.
func paramNames(f il.Function) map[uint32]string {
	names := map[uint32]string{}
	for _, blk := range f.Blocks {
		for _, p := range blk.Params {
			names[p.ID] = p.Name
		}
	}
	return names
}

// printValue renders v the way it must appear at a use site: a named
// block parameter prints via its declared name, everything else
// (instruction results, constants, globals) via its own String form.
func printValue(v il.Value, names map[uint32]string) string {
	if v.Kind == il.VTemp {
		if name, ok := names[v.ID]; ok {
			return "%" + name
		}
	}
	return v.String()
}

func printExtern(b *strings.Builder, e il.Extern) {
	params := make([]string, len(e.Params))
	for i, t := range e.Params {
		params[i] = t.String()
	}
	fmt.Fprintf(b, "extern @%s(%s) -> %s\n", e.Name, strings.Join(params, ", "), e.RetTy.String())
}

func printGlobal(b *strings.Builder, g il.Global) {
	if g.HasInit {
		fmt.Fprintf(b, "global @%s: %s = %s\n", g.Name, g.Ty.String(), g.Init)
	} else {
		fmt.Fprintf(b, "global @%s: %s\n", g.Name, g.Ty.String())
	}
}

func printFunction(b *strings.Builder, f il.Function) {
	params := make([]string, len(f.Params))
	for i, p := range f.Params {
		params[i] = fmt.Sprintf("%%%s: %s", p.Name, p.Ty.String())
	}
	fmt.Fprintf(b, "func @%s(%s) -> %s {\n", f.Name, strings.Join(params, ", "), f.RetTy.String())
	names := paramNames(f)
	for _, blk := range f.Blocks {
		printBlock(b, blk, names)
	}
	b.WriteString("}\n")
}

func printBlock(b *strings.Builder, blk il.BasicBlock, names map[uint32]string) {
	if len(blk.Params) > 0 {
		params := make([]string, len(blk.Params))
		for i, p := range blk.Params {
			params[i] = fmt.Sprintf("%%%s: %s", p.Name, p.Ty.String())
		}
		fmt.Fprintf(b, "  %s(%s):\n", blk.Label, strings.Join(params, ", "))
	} else {
		fmt.Fprintf(b, "  %s:\n", blk.Label)
	}

	active := il.SourceLoc{}
	haveActive := false
	for _, instr := range blk.Instrs {
		if instr.Loc.Valid() && (!haveActive || instr.Loc != active) {
			fmt.Fprintf(b, "    .loc %d %d %d\n", instr.Loc.FileID, instr.Loc.Line, instr.Loc.Col)
			active = instr.Loc
			haveActive = true
		}
		b.WriteString("    ")
		printInstr(b, instr, names)
		b.WriteByte('\n')
	}
}

func printInstr(b *strings.Builder, i il.Instr, names map[uint32]string) {
	if i.HasResult {
		fmt.Fprintf(b, "%s = ", il.Temp(i.ResultID, i.ResultTy).String())
	}
	mnemonic := i.Op.Mnemonic()

	switch i.Op {
	case il.OpRet:
		if len(i.Args) == 1 {
			fmt.Fprintf(b, "ret %s", printValue(i.Args[0], names))
		} else {
			b.WriteString("ret")
		}
	case il.OpTrap:
		b.WriteString("trap")
	case il.OpBr:
		fmt.Fprintf(b, "br %s", formatTarget(i.Succs[0], i.BrArgs[0], names))
	case il.OpCBr:
		fmt.Fprintf(b, "cbr %s, %s, %s", printValue(i.Args[0], names), formatTarget(i.Succs[0], i.BrArgs[0], names), formatTarget(i.Succs[1], i.BrArgs[1], names))
	case il.OpAlloca:
		fmt.Fprintf(b, "alloca %s", printValue(i.Args[0], names))
	case il.OpLoad:
		fmt.Fprintf(b, "load %s %s", i.ResultTy.String(), printValue(i.Args[0], names))
	case il.OpStore:
		fmt.Fprintf(b, "store %s %s, %s", valueStoreType(i), printValue(i.Args[0], names), printValue(i.Args[1], names))
	case il.OpSIToFP, il.OpFPToSI, il.OpTrunc, il.OpSExt:
		fmt.Fprintf(b, "%s %s %s", mnemonic, i.ResultTy.String(), printValue(i.Args[0], names))
	case il.OpCall:
		args := make([]string, len(i.Args))
		for idx, a := range i.Args {
			args[idx] = printValue(a, names)
		}
		fmt.Fprintf(b, "call @%s(%s)", i.Callee, strings.Join(args, ", "))
	default:
		args := make([]string, len(i.Args))
		for idx, a := range i.Args {
			args[idx] = printValue(a, names)
		}
		fmt.Fprintf(b, "%s %s", mnemonic, strings.Join(args, ", "))
	}
}

// valueStoreType reports the declared type that follows "store" in the
// text form — the stored value's static type, since the pointer operand
// itself is opaque.
func valueStoreType(i il.Instr) string {
	if len(i.Args) == 2 {
		return i.Args[1].Type().String()
	}
	return "?"
}

func formatTarget(label string, args []il.Value, names map[uint32]string) string {
	if len(args) == 0 {
		return label
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = printValue(a, names)
	}
	return fmt.Sprintf("%s(%s)", label, strings.Join(parts, ", "))
}
