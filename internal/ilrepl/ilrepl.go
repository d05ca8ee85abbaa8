// Package ilrepl is an interactive shell for the textual IL: paste a
// module, then drive parse/verify/pass commands against it. It has no
// counterpart in the spec itself (SPEC_FULL.md §D.3 scopes it as a
// developer convenience, not the CLI driver the spec's Non-goals
// exclude) — it exists so the parser, verifier, and pass pipeline can
// be exercised by hand without a full compiler frontend.
//
// Grounded on the teacher's own internal/repl: liner for line editing
// and history, fatih/color for status coloring, and a ":command"
// prefix convention distinguishing shell commands from module input.
package ilrepl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/viper-lang/viper/internal/config"
	"github.com/viper-lang/viper/internal/diag"
	"github.com/viper-lang/viper/internal/il"
	"github.com/viper-lang/viper/internal/iltext"
	"github.com/viper-lang/viper/internal/passmgr"
	"github.com/viper-lang/viper/internal/verify"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

const historyFileName = ".ilrepl_history"

// REPL holds the one module currently loaded into the session, plus
// whatever pass pipeline the user has configured with :opt.
type REPL struct {
	mod     *il.Module
	opts    config.Options
	history []string
}

// New returns a REPL with no module loaded and the default (O1) pass
// configuration.
func New() *REPL {
	return &REPL{opts: config.New()}
}

// Start runs the read-eval-print loop until in hits EOF or the user
// types :quit. Module text is entered a line at a time and terminated
// by a blank line; everything else beginning with ":" is a command.
func (r *REPL) Start(in io.Reader, out io.Writer) {
	line := liner.NewLiner()
	defer line.Close()
	line.SetMultiLineMode(true)

	historyFile := filepath.Join(os.TempDir(), historyFileName)
	if f, err := os.Open(historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}

	line.SetCompleter(func(input string) (c []string) {
		if !strings.HasPrefix(input, ":") {
			return nil
		}
		for _, cmd := range []string{":help", ":quit", ":load", ":verify", ":print", ":opt", ":passes", ":run", ":reset"} {
			if strings.HasPrefix(cmd, input) {
				c = append(c, cmd)
			}
		}
		return
	})

	fmt.Fprintf(out, "%s\n", bold("il-repl"))
	fmt.Fprintln(out, dim("Type :help for commands, :quit to exit. Enter IL text with :load, a blank line ends it."))

	for {
		input, err := line.Prompt(r.prompt())
		if err == io.EOF {
			fmt.Fprintln(out, green("\nGoodbye!"))
			break
		}
		if err != nil {
			fmt.Fprintf(out, "%s: %v\n", red("error"), err)
			continue
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		r.history = append(r.history, input)

		if strings.HasPrefix(input, ":") {
			if input == ":quit" || input == ":q" || input == ":exit" {
				fmt.Fprintln(out, green("Goodbye!"))
				break
			}
			if input == ":load" {
				r.cmdLoad(readUntilBlank(line), out)
				continue
			}
			r.HandleCommand(input, out)
			continue
		}

		fmt.Fprintf(out, "%s: unrecognized input (did you mean :load?)\n", yellow("warning"))
	}

	if f, err := os.Create(historyFile); err == nil {
		_, _ = line.WriteHistory(f)
		f.Close()
	}
}

func (r *REPL) prompt() string {
	if r.mod == nil {
		return "il> "
	}
	return fmt.Sprintf("il[%s]> ", r.opts.OptLevel)
}

// HandleCommand dispatches every ":"-command except ":load" and
// ":quit", which Start handles itself since they need the liner
// session (continued-line reading, and loop exit) rather than a
// single input line. Exported, like the teacher's own HandleCommand,
// so tests can drive the REPL without a real terminal.
func (r *REPL) HandleCommand(input string, out io.Writer) {
	fields := strings.Fields(input)
	cmd := fields[0]

	switch cmd {
	case ":help":
		r.printHelp(out)
	case ":verify":
		r.cmdVerify(out)
	case ":print":
		r.cmdPrint(out)
	case ":opt":
		r.cmdOpt(fields[1:], out)
	case ":passes":
		r.cmdPasses(out)
	case ":run":
		r.cmdRun(out)
	case ":reset":
		r.mod = nil
		fmt.Fprintln(out, dim("module cleared"))
	default:
		fmt.Fprintf(out, "%s: unknown command %q (:help for a list)\n", red("error"), cmd)
	}
}

// readUntilBlank collects lines from an interactive liner session
// until a blank one, for :load's multi-line module text.
func readUntilBlank(line *liner.State) string {
	var b strings.Builder
	for {
		text, err := line.Prompt("... ")
		if err == io.EOF || strings.TrimSpace(text) == "" {
			break
		}
		b.WriteString(text)
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *REPL) printHelp(out io.Writer) {
	fmt.Fprintln(out, cyan(":load")+"           read IL text until a blank line, then parse it")
	fmt.Fprintln(out, cyan(":verify")+"         run the verifier over the loaded module")
	fmt.Fprintln(out, cyan(":print")+"          print the loaded module in canonical textual form")
	fmt.Fprintln(out, cyan(":opt")+" [O0|O1]    show or set the optimization level")
	fmt.Fprintln(out, cyan(":passes")+"         list every registered pass")
	fmt.Fprintln(out, cyan(":run")+"            run the configured pass pipeline to a fixpoint")
	fmt.Fprintln(out, cyan(":reset")+"          discard the loaded module")
	fmt.Fprintln(out, cyan(":quit")+"           exit")
}

// cmdLoad parses src as IL text and, on success, makes it the session's
// loaded module. Exported parsing logic lives here rather than in
// Start so tests can exercise :load without a liner session.
func (r *REPL) cmdLoad(src string, out io.Writer) {
	mod, d := iltext.ParseModule(src, 1)
	if d != nil {
		fmt.Fprintf(out, "%s: %s\n", red("parse error"), d.Error())
		return
	}
	r.mod = mod
	fmt.Fprintf(out, "%s: %d function(s), %d extern(s)\n", green("loaded"), len(mod.Functions), len(mod.Externs))
}

func (r *REPL) cmdVerify(out io.Writer) {
	if !r.requireModule(out) {
		return
	}
	diags := verify.Module(r.mod)
	if len(diags) == 0 {
		fmt.Fprintln(out, green("ok: module verifies"))
		return
	}
	for _, d := range diags {
		fmt.Fprintf(out, "%s\n", formatDiag(d))
	}
}

func (r *REPL) cmdPrint(out io.Writer) {
	if !r.requireModule(out) {
		return
	}
	fmt.Fprint(out, iltext.PrintWithOptions(r.mod, iltext.PrintOptions{Canonicalize: r.opts.Canonicalize}))
}

func (r *REPL) cmdOpt(args []string, out io.Writer) {
	if len(args) == 0 {
		fmt.Fprintf(out, "current level: %s\n", r.opts.OptLevel)
		return
	}
	switch config.OptLevel(args[0]) {
	case config.O0:
		r.opts = config.New(config.WithOptLevel(config.O0))
	case config.O1:
		r.opts = config.New(config.WithOptLevel(config.O1))
	default:
		fmt.Fprintf(out, "%s: unknown level %q (want O0 or O1)\n", red("error"), args[0])
		return
	}
	fmt.Fprintf(out, "level set to %s\n", r.opts.OptLevel)
}

func (r *REPL) cmdPasses(out io.Writer) {
	names := passmgr.Registered()
	sort.Strings(names)
	for _, n := range names {
		p, _ := passmgr.Lookup(n)
		fmt.Fprintf(out, "%-14s %s\n", cyan(n), p.Description())
	}
}

func (r *REPL) cmdRun(out io.Writer) {
	if !r.requireModule(out) {
		return
	}
	pipeline, err := r.opts.Pipeline()
	if err != nil {
		fmt.Fprintf(out, "%s: %v\n", red("error"), err)
		return
	}
	report, diags := pipeline.RunFixpoint(r.mod, r.opts.PipelineOptions())
	if len(diags) > 0 {
		for _, d := range diags {
			fmt.Fprintf(out, "%s\n", formatDiag(d))
		}
		return
	}
	fmt.Fprintf(out, "%s: changed=%v, %d step(s)\n", green("done"), report.Changed, len(report.Steps))
}

func (r *REPL) requireModule(out io.Writer) bool {
	if r.mod != nil {
		return true
	}
	fmt.Fprintf(out, "%s: no module loaded (:load first)\n", yellow("warning"))
	return false
}

func formatDiag(d *diag.Diag) string {
	switch d.Severity {
	case diag.Error:
		return red(d.Error())
	case diag.Warning:
		return yellow(d.Error())
	default:
		return dim(d.Error())
	}
}
