package main

import (
	"context"
	"io"
	"log"
	"os"
	"runtime"
	"time"
)

func usage() {
	println("\nUsage:\n")
	println("  larch optimize [flags]  run the optimization loop against an input DAG, writing a merged DAG")
	println("  larch diff [flags]      compare two DAG files' node/edge counts and label sets")
	println("  larch dump [flags]      print an input DAG as an indented ASCII tree\n")
	println("Type")
	println("  larch [command] -h")
	println("for further information on each command.\n")
}

func main() {
	log.SetFlags(0)
	if len(os.Args) == 1 {
		usage()
		return
	}
	switch command := os.Args[1]; command {
	case "optimize":
		os.Exit(runOptimizeCommand(os.Args[2:]))
	case "diff":
		os.Exit(runDiffCommand(os.Args[2:]))
	case "dump":
		os.Exit(runDumpCommand(os.Args[2:]))
	case "-h", "--help":
		usage()
	default:
		log.Println("Unknown command:", command)
		log.Println("Type 'larch -h' for help.")
		os.Exit(1)
	}
}

// exitCodeFor maps a returned error to the §6 CLI exit codes: 0
// success, 1 user error, 2 input/file I/O error, 3 invariant
// violation at runtime.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	switch {
	case IsKind(err, ErrInputFormat), IsKind(err, ErrRefMismatch), IsKind(err, ErrMissingSampleId):
		return 2
	case IsKind(err, ErrInvariantViolation), IsKind(err, ErrUnreachableNode), IsKind(err, ErrEmptyGraph):
		return 3
	default:
		return 1
	}
}

// runOptimizeCommand implements the `optimize` subcommand (§6):
// load, optionally apply a VCF and a prior --state-db checkpoint,
// run RunOptimization, write the result and (if requested) the new
// checkpoint.
func runOptimizeCommand(args []string) int {
	a := handleArgsOptimize(args)
	if a.input == "" || a.output == "" {
		exitUsage("optimize: --input and --output are required")
	}

	acceptance, err := ParseAcceptancePolicy(a.acceptance)
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}

	var refSeq *Reference
	if a.refSeq != "" {
		refSeq, err = LoadFASTA(a.refSeq)
		if err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
	}

	d, err := LoadDAG(a.input, refSeq)
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}

	if a.vcf != "" {
		diffs, err := LoadVCFDiffs(a.vcf, d.Ref)
		if err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
		if err := ApplyVCFToMADAG(d, diffs); err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
	}

	threads := a.threads
	if threads <= 0 {
		threads = runtime.GOMAXPROCS(0)
	}
	seed := a.seed
	if !a.haveSeed {
		seed = time.Now().UnixNano()
	}

	var stateDB *StateDB
	if a.stateDB != "" {
		stateDB, err = OpenStateDB(a.stateDB)
		if err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
		defer stateDB.Close()
	}

	m := NewMerge(d.Ref)
	if stateDB != nil {
		checkpoint, err := stateDB.Load()
		if err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
		if checkpoint != nil {
			if err := m.AddMany([]*MADAG{checkpoint}, threads); err != nil {
				log.Println(err)
				return exitCodeFor(err)
			}
		}
	}

	var logw io.Writer
	if a.logPath != "" {
		f, err := os.Create(a.logPath)
		if err != nil {
			log.Println(wrapErr(ErrInputFormat, "creating stats log "+a.logPath, err))
			return 2
		}
		defer f.Close()
		logw = f
	}

	cfg := OptimizeConfig{
		Iterations: a.iterations,
		Acceptance: acceptance,
		Alpha:      a.alpha,
		Beta:       a.beta,
		Threads:    threads,
		Seed:       seed,
		Sampler:    a.sampler,
		SubtreeMin: a.subtreeMin,
		SubtreeMax: a.subtreeMax,
	}
	if err := RunOptimization(context.Background(), m, d, cfg, logw); err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}

	result, err := m.Result()
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}

	if err := SaveDAG(result, a.output); err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}
	if stateDB != nil {
		if err := stateDB.Save(result); err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
	}
	return 0
}

// runDumpCommand implements the supplemented `dump` subcommand.
func runDumpCommand(args []string) int {
	a := handleArgsDump(args)
	if a.input == "" {
		exitUsage("dump: --input is required")
	}

	var refSeq *Reference
	var err error
	if a.refSeq != "" {
		refSeq, err = LoadFASTA(a.refSeq)
		if err != nil {
			log.Println(err)
			return exitCodeFor(err)
		}
	}

	d, err := LoadDAG(a.input, refSeq)
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}
	root, err := d.Root()
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}
	DumpTree(os.Stdout, d, root)
	return 0
}

// runDiffCommand implements the supplemented `diff` subcommand.
func runDiffCommand(args []string) int {
	a := handleArgsDiff(args)
	if a.lhs == "" || a.rhs == "" {
		exitUsage("diff: --lhs and --rhs are required")
	}

	lhs, err := LoadDAG(a.lhs, nil)
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}
	rhs, err := LoadDAG(a.rhs, nil)
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}

	res, err := DiffDAGs(lhs, rhs)
	if err != nil {
		log.Println(err)
		return exitCodeFor(err)
	}
	PrintDiff(os.Stdout, res)
	return 0
}
