package featsel

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/tisono/diabrisk/boosting"
	"github.com/tisono/diabrisk/dataset"
	"github.com/tisono/diabrisk/pkg/errors"
)

// Decision classifies a predictor after the Boruta rounds.
type Decision int

const (
	Tentative Decision = iota
	Confirmed
	Rejected
)

// String returns the decision name.
func (d Decision) String() string {
	switch d {
	case Confirmed:
		return "Confirmed"
	case Rejected:
		return "Rejected"
	default:
		return "Tentative"
	}
}

// BorutaConfig controls the all-relevant selection procedure.
type BorutaConfig struct {
	Rounds int             // comparison rounds (default 11)
	Alpha  float64         // binomial-test significance (default 0.05)
	Params boosting.Params // ensemble trained each round
	Seed   int64
}

func (c BorutaConfig) withDefaults() BorutaConfig {
	if c.Rounds == 0 {
		c.Rounds = 11
	}
	if c.Alpha == 0 {
		c.Alpha = 0.05
	}
	if c.Params.NumTrees == 0 {
		c.Params.NumTrees = 50
	}
	return c
}

// FeatureStat is the per-predictor summary after all rounds.
type FeatureStat struct {
	Feature        string
	Decision       Decision
	Hits           int
	MeanImportance float64
	MaxImportance  float64
}

// BorutaResult holds the outcome of one Boruta run.
type BorutaResult struct {
	Rounds int
	Stats  []FeatureStat
}

// ByDecision returns the feature names carrying the given decision, in the
// ranked order of Stats.
func (r *BorutaResult) ByDecision(d Decision) []string {
	var names []string
	for _, s := range r.Stats {
		if s.Decision == d {
			names = append(names, s.Feature)
		}
	}
	return names
}

// Boruta runs the all-relevant feature selection: each round trains a tree
// ensemble on the real predictors plus one permuted shadow copy per
// predictor, and a predictor scores a hit when its gain importance exceeds
// the best shadow's. Hits over rounds feed a two-sided binomial test at
// cfg.Alpha that classifies each predictor as Confirmed, Tentative or
// Rejected. Deterministic for a fixed seed. Deciding what to drop is the
// caller's business.
func Boruta(cfg BorutaConfig, t *dataset.Table) (*BorutaResult, error) {
	cfg = cfg.withDefaults()
	if cfg.Rounds < 1 {
		return nil, errors.NewValidationError("Rounds", "must be positive", cfg.Rounds)
	}
	if cfg.Alpha <= 0 || cfg.Alpha >= 1 {
		return nil, errors.NewValidationError("Alpha", "must be in (0,1)", cfg.Alpha)
	}
	n, nf := t.NumRows(), t.NumFeatures()
	if n == 0 || nf == 0 {
		return nil, errors.NewValueError("featsel.Boruta", "empty table")
	}

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1))
	y := t.Y()

	hits := make([]int, nf)
	sumImp := make([]float64, nf)
	maxImp := make([]float64, nf)

	for round := 0; round < cfg.Rounds; round++ {
		extended := buildShadowMatrix(t.X, rng)

		params := cfg.Params
		params.Seed = int64(rng.Uint64() >> 1)
		model, err := boosting.Train(params, extended, y)
		if err != nil {
			return nil, errors.Wrapf(err, "boruta: round %d", round)
		}

		imp := model.RawGains()
		maxShadow := 0.0
		for j := nf; j < 2*nf; j++ {
			if imp[j] > maxShadow {
				maxShadow = imp[j]
			}
		}
		total := 0.0
		for _, g := range imp {
			total += g
		}
		for j := 0; j < nf; j++ {
			share := 0.0
			if total > 0 {
				share = imp[j] / total
			}
			sumImp[j] += share
			if share > maxImp[j] {
				maxImp[j] = share
			}
			if imp[j] > maxShadow {
				hits[j]++
			}
		}
	}

	binom := distuv.Binomial{N: float64(cfg.Rounds), P: 0.5}
	stats := make([]FeatureStat, nf)
	for j := 0; j < nf; j++ {
		decision := Tentative
		// P(X >= hits) under H0: importance no better than chance.
		if binom.Survival(float64(hits[j])-0.5) < cfg.Alpha {
			decision = Confirmed
		} else if binom.CDF(float64(hits[j])) < cfg.Alpha {
			decision = Rejected
		}
		stats[j] = FeatureStat{
			Feature:        t.Features[j],
			Decision:       decision,
			Hits:           hits[j],
			MeanImportance: sumImp[j] / float64(cfg.Rounds),
			MaxImportance:  maxImp[j],
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Hits != stats[j].Hits {
			return stats[i].Hits > stats[j].Hits
		}
		if stats[i].MeanImportance != stats[j].MeanImportance {
			return stats[i].MeanImportance > stats[j].MeanImportance
		}
		return stats[i].Feature < stats[j].Feature
	})
	return &BorutaResult{Rounds: cfg.Rounds, Stats: stats}, nil
}

// buildShadowMatrix returns [X | shadow] where each shadow column is an
// independently permuted copy of the corresponding real column.
func buildShadowMatrix(X *mat.Dense, rng *rand.Rand) *mat.Dense {
	rows, cols := X.Dims()
	out := mat.NewDense(rows, 2*cols, nil)
	perm := make([]int, rows)
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			out.Set(i, j, X.At(i, j))
			perm[i] = i
		}
		rng.Shuffle(rows, func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		for i := 0; i < rows; i++ {
			out.Set(i, cols+j, X.At(perm[i], j))
		}
	}
	return out
}
