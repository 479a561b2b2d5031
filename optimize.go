package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"time"
)

// AcceptancePolicy selects among §4.5's four move-acceptance rules.
type AcceptancePolicy int

const (
	AcceptAllMoves AcceptancePolicy = iota
	AcceptBestMoves
	AcceptBestMovesTreebased
	AcceptBestMovesFixedTree
)

// ParseAcceptancePolicy parses the --acceptance flag value.
func ParseAcceptancePolicy(s string) (AcceptancePolicy, error) {
	switch s {
	case "all-moves":
		return AcceptAllMoves, nil
	case "best-moves":
		return AcceptBestMoves, nil
	case "best-moves-treebased":
		return AcceptBestMovesTreebased, nil
	case "best-moves-fixed-tree":
		return AcceptBestMovesFixedTree, nil
	default:
		return 0, newErr(ErrInputFormat, "unknown acceptance policy: "+s)
	}
}

// OptimizeConfig is the full set of knobs §6's `optimize` subcommand
// exposes.
type OptimizeConfig struct {
	Iterations             int
	Acceptance             AcceptancePolicy
	Alpha, Beta            int
	AttemptsPerRadius      int
	Threads                int
	Seed                   int64
	Sampler                string // "any" or "best"
	SubtreeMin, SubtreeMax int
}

// countNewLabels approximates §4.5's "newly labeled nodes" term by
// counting candidate's nodes whose compact-genome content does not
// already appear anywhere in existing. It is an approximation of full
// (CG, LS, SampleId) label novelty (it ignores LS/SampleId), cheap
// enough to run once per scored move; see DESIGN.md.
func countNewLabels(existing, candidate *MADAG) int {
	seen := make(map[uint64]bool, len(existing.Nodes))
	for _, n := range existing.Nodes {
		if n.CG != nil {
			seen[n.CG.Hash()] = true
		}
	}
	count := 0
	for _, n := range candidate.Nodes {
		if n.CG != nil && !seen[n.CG.Hash()] {
			count++
		}
	}
	return count
}

// statsLogHeader/statsLogRow implement §3's per-iteration TSV
// schema: iteration, radius, parsimony before/after, accepted-move
// count, elapsed wall time.
func statsLogHeader(w io.Writer) {
	fmt.Fprintln(w, "iteration\tradius\tparsimony_before\tparsimony_after\taccepted\telapsed_ms")
}

func statsLogRow(w io.Writer, iteration, radius, before, after, accepted int, elapsed time.Duration) {
	fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\n", iteration, radius, before, after, accepted, elapsed.Milliseconds())
}

// RunOptimization runs the loop of §4.5: sample -> propose/score
// moves in parallel -> accept by policy -> merge accepted fragments
// and the sampled tree back into m. Checks ctx between iterations and
// between radii (§5 Cancellation).
func RunOptimization(ctx context.Context, m *Merge, initial *MADAG, cfg OptimizeConfig, logw io.Writer) error {
	if cfg.Threads <= 0 {
		cfg.Threads = 1
	}
	if cfg.AttemptsPerRadius <= 0 {
		cfg.AttemptsPerRadius = 8
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	proposer := RandomSPRProposer{SubtreeMin: cfg.SubtreeMin, SubtreeMax: cfg.SubtreeMax}
	scorer := ParsimonyMoveScorer{}

	if err := m.AddMany([]*MADAG{initial}, cfg.Threads); err != nil {
		return err
	}
	if logw != nil {
		statsLogHeader(logw)
	}

	globalBest := 0
	for iter := 0; iter < cfg.Iterations; iter++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()

		result, err := m.Result()
		if err != nil {
			return err
		}
		root, err := result.Root()
		if err != nil {
			return err
		}

		var sampled *MADAG
		if cfg.Sampler == "any" {
			sampled, err = SampleTree(result, root, rng)
		} else {
			sampled, err = MinWeightSampleTree(result, root, ParsimonyScore{}, rng)
		}
		if err != nil {
			return err
		}
		sampledRoot, err := sampled.Root()
		if err != nil {
			return err
		}
		beforeWeights, err := ComputeWeightBelow(sampled, sampledRoot, ParsimonyScore{})
		if err != nil {
			return err
		}
		before := beforeWeights[sampledRoot]

		depth := treeDepth(sampled, sampledRoot)
		maxRadius := 2 * depth
		if maxRadius < 2 {
			maxRadius = 2
		}

		var accepted []*MADAG
		iterBest := 0
		after := before
		totalAccepted := 0

		for radius := 2; radius <= maxRadius; radius *= 2 {
			if err := ctx.Err(); err != nil {
				return err
			}
			moves, err := proposer.ProposeMoves(sampled, radius, rng, cfg.AttemptsPerRadius)
			if err != nil {
				return err
			}
			fragments := make([]*Fragment, len(moves))
			scores := make([]int, len(moves))
			errs := make([]error, len(moves))
			parallelOverIndices(cfg.Threads, len(moves), func(i int) {
				frag, ferr := MaterializeMove(sampled, moves[i])
				if ferr != nil {
					errs[i] = ferr
					return
				}
				score, serr := scorer.Score(sampled, moves[i], frag)
				if serr != nil {
					errs[i] = serr
					return
				}
				fragments[i] = frag
				scores[i] = score
			})

			improved := false
			for i := range moves {
				if errs[i] != nil {
					if IsKind(errs[i], ErrIllegalMove) {
						logf(1, "skipping illegal move: %v", errs[i])
						continue
					}
					return errs[i]
				}
				score := scores[i]
				accept := false
				switch cfg.Acceptance {
				case AcceptAllMoves:
					accept = true
				case AcceptBestMoves:
					accept = score <= globalBest
				case AcceptBestMovesTreebased:
					newNodes := countNewLabels(result, fragments[i].Tree)
					adjusted := cfg.Beta*score - cfg.Alpha*newNodes
					accept = adjusted <= globalBest
				case AcceptBestMovesFixedTree:
					accept = score <= iterBest
				}
				if !accept {
					continue
				}
				accepted = append(accepted, fragments[i].Tree)
				totalAccepted++
				after += score
				if score < globalBest {
					globalBest = score
					improved = true
				}
				if score < iterBest {
					iterBest = score
					improved = true
				}
			}
			if logw != nil {
				statsLogRow(logw, iter, radius, before, after, totalAccepted, time.Since(start))
			}
			if !improved {
				break
			}
		}

		toMerge := append(accepted, sampled)
		if err := m.AddMany(toMerge, cfg.Threads); err != nil {
			return err
		}
	}
	return nil
}
