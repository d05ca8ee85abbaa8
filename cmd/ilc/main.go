// Command ilc is a smoke-test driver over the IL toolchain: parse a
// file, verify it, optionally run the configured optimization
// pipeline, and print the result. It is not the production compiler
// driver — there is no BASIC frontend wired in here, no build
// artifacts, no target codegen — just enough surface to exercise
// iltext, verify, passmgr, and config by hand against a real file.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fatih/color"

	"github.com/viper-lang/viper/internal/config"
	"github.com/viper-lang/viper/internal/ilrepl"
	"github.com/viper-lang/viper/internal/iltext"
	"github.com/viper-lang/viper/internal/logging"
	"github.com/viper-lang/viper/internal/verify"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag  = flag.Bool("version", false, "print version information")
		helpFlag     = flag.Bool("help", false, "show help")
		optLevel     = flag.String("opt", string(config.O1), "optimization level (O0 or O1)")
		verifyEach   = flag.Bool("verify-after-each-pass", false, "re-verify the module after every pass")
		canonicalize = flag.Bool("canonicalize", true, "renumber temporaries densely on print")
		debug        = flag.Bool("debug", false, "enable debug-level logging")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("ilc %s\n", bold("dev"))
		return
	}
	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	if *debug {
		logging.SetLevel(logging.Debug)
	}

	switch command := flag.Arg(0); command {
	case "repl":
		ilrepl.New().Start(os.Stdin, os.Stdout)
	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\nUsage: ilc check <file.il>\n", red("error"))
			os.Exit(1)
		}
		checkFile(flag.Arg(1), *canonicalize)
	case "opt":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing file argument\nUsage: ilc opt <file.il>\n", red("error"))
			os.Exit(1)
		}
		optFile(flag.Arg(1), config.OptLevel(*optLevel), *verifyEach, *canonicalize)
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", red("error"), command)
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(bold("ilc - IL toolchain smoke driver"))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ilc <command> [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  check <file.il>   parse and verify a module")
	fmt.Println("  opt <file.il>     parse, verify, run the pass pipeline, and print the result")
	fmt.Println("  repl              start the interactive IL shell")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  --opt O0|O1                  pass pipeline for the opt command (default O1)")
	fmt.Println("  --verify-after-each-pass     re-verify after every pass in the pipeline")
	fmt.Println("  --canonicalize               renumber temporaries densely on print (default true)")
	fmt.Println("  --debug                      enable debug-level logging")
	fmt.Println("  --version                    print version information")
	fmt.Println("  --help                       show this help message")
}

func parseAndVerify(path string, canonicalize bool) (text string, ok bool) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		return "", false
	}

	mod, d := iltext.ParseModule(string(src), 1)
	if d != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("parse error"), d.Error())
		return "", false
	}

	if diags := verify.Module(mod); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s\n", red(d.Error()))
		}
		return "", false
	}

	return iltext.PrintWithOptions(mod, iltext.PrintOptions{Canonicalize: canonicalize}), true
}

func checkFile(path string, canonicalize bool) {
	if _, ok := parseAndVerify(path, canonicalize); !ok {
		os.Exit(1)
	}
	fmt.Println(green("ok: module verifies"))
}

func optFile(path string, level config.OptLevel, verifyEach, canonicalize bool) {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}

	mod, d := iltext.ParseModule(string(src), 1)
	if d != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", red("parse error"), d.Error())
		os.Exit(1)
	}
	if diags := verify.Module(mod); len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s\n", red(d.Error()))
		}
		os.Exit(1)
	}

	opts := config.New(config.WithOptLevel(level), config.WithVerifyAfterEachPass(verifyEach), config.WithCanonicalize(canonicalize))
	pipeline, err := opts.Pipeline()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", red("error"), err)
		os.Exit(1)
	}

	report, diags := pipeline.RunFixpoint(mod, opts.PipelineOptions())
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "%s\n", red(d.Error()))
		}
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "%s: changed=%v, %d step(s)\n", green("done"), report.Changed, len(report.Steps))
	fmt.Print(iltext.PrintWithOptions(mod, iltext.PrintOptions{Canonicalize: opts.Canonicalize}))
}
