package main

import (
	"flag"
	"fmt"
	"os"
)

// optimizeArgs is the full flag set of the `optimize` subcommand
// (§6), filled in by handleArgsOptimize the same way the teacher's
// handle_args_* functions fill in a plain returned-value struct from
// a flag.NewFlagSet.
type optimizeArgs struct {
	input, output, refSeq string
	iterations             int
	vcf                    string
	acceptance             string
	alpha, beta            int
	sampler                string
	subtreeMin, subtreeMax int
	seed                   int64
	haveSeed               bool
	threads                int
	logPath                string
	stateDB                string
}

func handleArgsOptimize(args []string) optimizeArgs {
	cmd := flag.NewFlagSet("optimize", flag.ExitOnError)

	var a optimizeArgs
	cmd.StringVar(&a.input, "input", "", "Input DAG (format inferred from extension)")
	cmd.StringVar(&a.output, "output", "", "Output DAG")
	cmd.StringVar(&a.refSeq, "ref-seq", "", "Reference fasta (required iff input is a tree file without an embedded reference)")
	cmd.IntVar(&a.iterations, "iterations", 1, "Number of optimization iterations")
	cmd.StringVar(&a.vcf, "vcf", "", "Apply per-sample sequence diffs from this VCF to the DAG's leaves before optimizing")
	cmd.StringVar(&a.acceptance, "acceptance", "best-moves", "Move acceptance policy: all-moves, best-moves, best-moves-treebased, best-moves-fixed-tree")
	cmd.IntVar(&a.alpha, "alpha", 1, "Alpha coefficient for treebased scoring")
	cmd.IntVar(&a.beta, "beta", 1, "Beta coefficient for treebased scoring")
	cmd.StringVar(&a.sampler, "sample", "best", "Per-iteration sampler: any or best")
	cmd.IntVar(&a.subtreeMin, "subtree-min", 0, "Minimum subtree leaf count for proposed moves (optional)")
	cmd.IntVar(&a.subtreeMax, "subtree-max", 0, "Maximum subtree leaf count for proposed moves (optional)")
	seed := cmd.Int64("seed", 0, "RNG seed (optional; otherwise non-deterministic)")
	cmd.IntVar(&a.threads, "threads", 0, "Worker count (default: hardware concurrency)")
	cmd.StringVar(&a.logPath, "log", "", "Tab-separated per-iteration statistics file")
	cmd.StringVar(&a.stateDB, "state-db", "", "Optional sqlite checkpoint file for incremental merging across invocations")

	cmd.Parse(args)

	a.haveSeed = false
	cmd.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			a.haveSeed = true
		}
	})
	a.seed = *seed
	return a
}

// dumpArgs is the flag set of the supplemented `dump` subcommand.
type dumpArgs struct {
	input, refSeq string
}

func handleArgsDump(args []string) dumpArgs {
	cmd := flag.NewFlagSet("dump", flag.ExitOnError)

	var a dumpArgs
	cmd.StringVar(&a.input, "input", "", "Input DAG (format inferred from extension)")
	cmd.StringVar(&a.refSeq, "ref-seq", "", "Reference fasta (required iff input is a tree file without an embedded reference)")
	cmd.Parse(args)
	return a
}

// diffArgs is the flag set of the supplemented `diff` subcommand.
type diffArgs struct {
	lhs, rhs string
}

func handleArgsDiff(args []string) diffArgs {
	cmd := flag.NewFlagSet("diff", flag.ExitOnError)

	var a diffArgs
	cmd.StringVar(&a.lhs, "lhs", "", "First DAG file")
	cmd.StringVar(&a.rhs, "rhs", "", "Second DAG file")
	cmd.Parse(args)
	return a
}

// exitUsage prints msg to stderr and exits with the §6 "user error"
// code.
func exitUsage(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
