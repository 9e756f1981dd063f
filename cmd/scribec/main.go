// Command scribec is the CLI front end for the Scribe compiler core:
// it resolves the positional source path, runs the full
// lex/parse/type-assign/value-assign/simplify/cleanup pipeline via an
// Orchestrator, and prints diagnostics or dump output depending on
// the flags given (spec.md §6).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	scribec "github.com/scribe-lang/scribec"
)

// options mirrors the teacher's cmd/langlang/main.go args struct: one
// field per flag, validated as a whole before being acted on rather
// than checked ad hoc at each call site.
type options struct {
	Path string `validate:"required"`

	Version bool
	Tokens  bool
	AST     bool
	SST     bool
	IR      bool
	NoFile  bool
	OptLvl  int `validate:"gte=0,lte=3"`
	Std     string
	LLIR    bool
	Verbose bool
	Trace   bool
}

func readArgs() *options {
	o := &options{}

	flag.BoolVar(&o.Version, "v", false, "print version and exit")
	flag.BoolVar(&o.Version, "version", false, "print version and exit")

	flag.BoolVar(&o.Tokens, "t", false, "dump lexer output")
	flag.BoolVar(&o.Tokens, "tokens", false, "dump lexer output")

	flag.BoolVar(&o.AST, "a", false, "dump parse tree")
	flag.BoolVar(&o.AST, "ast", false, "dump parse tree")

	flag.BoolVar(&o.SST, "s", false, "dump semantic tree")
	flag.BoolVar(&o.SST, "sst", false, "dump semantic tree")

	flag.BoolVar(&o.IR, "i", false, "dump IR (backend concern)")
	flag.BoolVar(&o.IR, "ir", false, "dump IR (backend concern)")

	flag.BoolVar(&o.NoFile, "n", false, "skip backend output")
	flag.BoolVar(&o.NoFile, "nofile", false, "skip backend output")

	flag.IntVar(&o.OptLvl, "O", 1, "optimization level, pass-through to backend")
	flag.IntVar(&o.OptLvl, "opt", 1, "optimization level, pass-through to backend")

	flag.StringVar(&o.Std, "std", "", "target standard version, pass-through to backend")
	flag.BoolVar(&o.LLIR, "llir", false, "backend flag: emit LLVM IR")

	flag.BoolVar(&o.Verbose, "V", false, "verbose logging")
	flag.BoolVar(&o.Verbose, "verbose", false, "verbose logging")

	flag.BoolVar(&o.Trace, "T", false, "trace logging")
	flag.BoolVar(&o.Trace, "trace", false, "trace logging")

	flag.Parse()

	if flag.NArg() > 0 {
		o.Path = flag.Arg(0)
	}
	return o
}

func main() {
	log.SetFlags(0)
	o := readArgs()

	if o.Version {
		fmt.Println("scribec 0.1.0")
		return
	}

	if err := validator.New().Struct(o); err != nil {
		log.Printf("usage: scribec [flags] <path.sc>")
		log.Fatal(err)
	}

	if o.Verbose || o.Trace {
		log.SetFlags(log.Ltime)
	}

	if err := run(o); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(o *options) error {
	mods := scribec.NewModuleLocRegistry()
	cfg := scribec.NewConfig()
	cfg.SetInt("cli.opt_level", o.OptLvl)
	cfg.SetString("cli.std", o.Std)
	cfg.SetBool("cli.nofile", o.NoFile)

	diags := scribec.NewDiagnostics(mods, cfg.GetInt("diagnostics.max_errors"))
	ctx := scribec.NewContext(mods, diags)

	src, err := os.ReadFile(o.Path)
	if err != nil {
		return fmt.Errorf("can't open input file: %w", err)
	}
	modID := mods.Intern(o.Path, src)

	if o.Tokens {
		for _, lx := range scribec.NewLexer(modID, src, diags).Lex() {
			fmt.Printf("%-16s %s\n", lx.Kind, mods.Format(lx.Loc))
		}
		return nil
	}

	if o.AST {
		p := scribec.NewParser(ctx, modID, scribec.NewLexer(modID, src, diags).Lex())
		top, perr := p.ParseModule()
		if perr != nil {
			return perr
		}
		scribec.Inspect(top, func(s scribec.Stmt) bool {
			fmt.Printf("%T @ %s\n", s, mods.Format(s.Loc()))
			return true
		})
		return nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("can't determine working directory: %w", err)
	}
	loader := scribec.NewFileSourceLoader(cwd)
	orch := scribec.NewOrchestrator(ctx, cfg, loader)

	if o.Trace {
		log.Printf("compiling %s", o.Path)
	}

	top, runErr := orch.Run(o.Path)
	if diags.HasErrors() {
		fmt.Fprint(os.Stderr, diags.Render())
	}
	if runErr != nil {
		return runErr
	}
	if diags.HasErrors() {
		return fmt.Errorf("compilation failed")
	}

	if o.SST {
		scribec.Inspect(top, func(s scribec.Stmt) bool {
			fmt.Printf("%T @ %s\n", s, mods.Format(s.Loc()))
			return true
		})
	}

	if o.NoFile {
		if o.Verbose {
			log.Printf("skipping backend output (-nofile)")
		}
		return nil
	}

	// Backend code generation (C/LLVM emission) is out of scope for the
	// core (spec.md §1); a separate module consumes `top` from here.
	return nil
}
