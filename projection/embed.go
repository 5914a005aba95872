// Package projection computes a 2-D neighborhood-preserving embedding of
// the feature matrix for visual inspection of class structure. The layout
// is built from a k-nearest-neighbor graph whose edges pull their endpoints
// together under stochastic gradient descent, with random repulsion keeping
// the cloud from collapsing.
package projection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/pkg/errors"
)

// Config controls the embedding.
type Config struct {
	// NNeighbors is the neighborhood size of the graph (default 15).
	NNeighbors int
	// MinDist is the tightness of the layout; smaller packs neighbors
	// closer (default 0.1).
	MinDist float64
	// Epochs is the number of SGD passes over the edge set (default 200).
	Epochs int
	// LearningRate is the initial SGD step size (default 1.0).
	LearningRate float64
	// NegativeSamples is the number of repulsive updates per attractive
	// one (default 5).
	NegativeSamples int
	Seed            int64
}

func (c Config) withDefaults() Config {
	if c.NNeighbors == 0 {
		c.NNeighbors = 15
	}
	if c.MinDist == 0 {
		c.MinDist = 0.1
	}
	if c.Epochs == 0 {
		c.Epochs = 200
	}
	if c.LearningRate == 0 {
		c.LearningRate = 1.0
	}
	if c.NegativeSamples == 0 {
		c.NegativeSamples = 5
	}
	return c
}

func (c Config) validate() error {
	if c.NNeighbors < 2 {
		return errors.NewValidationError("nNeighbors", "need at least 2", c.NNeighbors)
	}
	if c.MinDist <= 0 {
		return errors.NewValidationError("minDist", "must be positive", c.MinDist)
	}
	if c.Epochs < 1 {
		return errors.NewValidationError("epochs", "must be positive", c.Epochs)
	}
	if c.LearningRate <= 0 {
		return errors.NewValidationError("learningRate", "must be positive", c.LearningRate)
	}
	if c.NegativeSamples < 1 {
		return errors.NewValidationError("negativeSamples", "must be positive", c.NegativeSamples)
	}
	return nil
}

type edge struct {
	from, to int
	weight   float64
}

// Embed lays out the rows of X in two dimensions. The returned matrix has
// one (x, y) row per input row, in input order. The same seed and input
// always produce the same layout.
func Embed(cfg Config, X mat.Matrix) (*mat.Dense, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if rows < cfg.NNeighbors+1 {
		return nil, errors.NewValueError("projection.Embed",
			"need more rows than neighbors")
	}
	if cols == 0 {
		return nil, errors.NewValueError("projection.Embed", "empty feature matrix")
	}

	edges := buildGraph(X, cfg.NNeighbors)
	a, b := fitKernel(cfg.MinDist)

	rng := rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)>>1))
	layout := mat.NewDense(rows, 2, nil)
	for i := 0; i < rows; i++ {
		layout.Set(i, 0, rng.NormFloat64()*10)
		layout.Set(i, 1, rng.NormFloat64()*10)
	}

	for epoch := 0; epoch < cfg.Epochs; epoch++ {
		alpha := cfg.LearningRate * (1 - float64(epoch)/float64(cfg.Epochs))
		for _, e := range edges {
			// High-weight edges are updated nearly every epoch, weak
			// ones only occasionally.
			if rng.Float64() >= e.weight {
				continue
			}
			attract(layout, e.from, e.to, a, b, alpha)
			for s := 0; s < cfg.NegativeSamples; s++ {
				other := rng.IntN(rows)
				if other == e.from || other == e.to {
					continue
				}
				repel(layout, e.from, other, a, b, alpha)
			}
		}
	}
	return layout, nil
}

// buildGraph connects each row to its k nearest neighbors and converts
// distances to fuzzy membership weights, symmetrized with the probabilistic
// union w_ij + w_ji - w_ij*w_ji.
func buildGraph(X mat.Matrix, k int) []edge {
	rows, cols := X.Dims()

	neighbors := make([][]int, rows)
	dists := make([][]float64, rows)
	row := make([]float64, cols)
	other := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		type nd struct {
			idx int
			d   float64
		}
		all := make([]nd, 0, rows-1)
		for j := 0; j < rows; j++ {
			if j == i {
				continue
			}
			mat.Row(other, j, X)
			d := 0.0
			for c := 0; c < cols; c++ {
				diff := row[c] - other[c]
				d += diff * diff
			}
			all = append(all, nd{idx: j, d: math.Sqrt(d)})
		}
		// Partial selection sort is enough for small k.
		for a := 0; a < k; a++ {
			min := a
			for b := a + 1; b < len(all); b++ {
				if all[b].d < all[min].d ||
					(all[b].d == all[min].d && all[b].idx < all[min].idx) {
					min = b
				}
			}
			all[a], all[min] = all[min], all[a]
		}
		neighbors[i] = make([]int, k)
		dists[i] = make([]float64, k)
		for a := 0; a < k; a++ {
			neighbors[i][a] = all[a].idx
			dists[i][a] = all[a].d
		}
	}

	directed := make(map[[2]int]float64, rows*k)
	target := math.Log2(float64(k))
	for i := 0; i < rows; i++ {
		rho := dists[i][0]
		sigma := calibrateSigma(dists[i], rho, target)
		for a, j := range neighbors[i] {
			w := 1.0
			if dists[i][a] > rho {
				w = math.Exp(-(dists[i][a] - rho) / sigma)
			}
			directed[[2]int{i, j}] = w
		}
	}

	edges := make([]edge, 0, len(directed))
	for key, w := range directed {
		i, j := key[0], key[1]
		if j < i {
			continue
		}
		back := directed[[2]int{j, i}]
		edges = append(edges, edge{from: i, to: j, weight: w + back - w*back})
	}
	sortEdges(edges)
	return edges
}

// calibrateSigma binary-searches the kernel bandwidth so the smoothed
// neighbor weights sum to log2(k).
func calibrateSigma(dists []float64, rho, target float64) float64 {
	lo, hi := 1e-6, 1000.0
	sigma := 1.0
	for iter := 0; iter < 64; iter++ {
		sigma = (lo + hi) / 2
		sum := 0.0
		for _, d := range dists {
			if d <= rho {
				sum++
				continue
			}
			sum += math.Exp(-(d - rho) / sigma)
		}
		if math.Abs(sum-target) < 1e-5 {
			break
		}
		if sum > target {
			hi = sigma
		} else {
			lo = sigma
		}
	}
	return sigma
}

// fitKernel finds a and b so that 1/(1+a*d^(2b)) tracks the target decay
// exp(-(d-minDist)) beyond minDist and stays near 1 inside it. The two
// parameters are refined by alternating golden-section minimization of the
// squared error on a fixed grid.
func fitKernel(minDist float64) (float64, float64) {
	const gridN = 300
	grid := make([]float64, gridN)
	want := make([]float64, gridN)
	for i := 0; i < gridN; i++ {
		d := 3.0 * float64(i+1) / gridN
		grid[i] = d
		if d < minDist {
			want[i] = 1
		} else {
			want[i] = math.Exp(-(d - minDist))
		}
	}
	loss := func(a, b float64) float64 {
		sum := 0.0
		for i, d := range grid {
			got := 1 / (1 + a*math.Pow(d, 2*b))
			diff := got - want[i]
			sum += diff * diff
		}
		return sum
	}
	a, b := 1.0, 1.0
	for round := 0; round < 12; round++ {
		a = goldenMin(func(x float64) float64 { return loss(x, b) }, 0.01, 10)
		b = goldenMin(func(x float64) float64 { return loss(a, x) }, 0.1, 3)
	}
	return a, b
}

func goldenMin(f func(float64) float64, lo, hi float64) float64 {
	const ratio = 0.618033988749895
	x1 := hi - ratio*(hi-lo)
	x2 := lo + ratio*(hi-lo)
	f1, f2 := f(x1), f(x2)
	for iter := 0; iter < 60; iter++ {
		if f1 < f2 {
			hi, x2, f2 = x2, x1, f1
			x1 = hi - ratio*(hi-lo)
			f1 = f(x1)
		} else {
			lo, x1, f1 = x1, x2, f2
			x2 = lo + ratio*(hi-lo)
			f2 = f(x2)
		}
	}
	return (lo + hi) / 2
}

func attract(layout *mat.Dense, i, j int, a, b, alpha float64) {
	dx := layout.At(i, 0) - layout.At(j, 0)
	dy := layout.At(i, 1) - layout.At(j, 1)
	d2 := dx*dx + dy*dy
	if d2 == 0 {
		return
	}
	coeff := -2 * a * b * math.Pow(d2, b-1) / (1 + a*math.Pow(d2, b))
	gx := clip(coeff * dx)
	gy := clip(coeff * dy)
	layout.Set(i, 0, layout.At(i, 0)+alpha*gx)
	layout.Set(i, 1, layout.At(i, 1)+alpha*gy)
	layout.Set(j, 0, layout.At(j, 0)-alpha*gx)
	layout.Set(j, 1, layout.At(j, 1)-alpha*gy)
}

func repel(layout *mat.Dense, i, j int, a, b, alpha float64) {
	dx := layout.At(i, 0) - layout.At(j, 0)
	dy := layout.At(i, 1) - layout.At(j, 1)
	d2 := dx*dx + dy*dy
	coeff := 2 * b / ((0.001 + d2) * (1 + a*math.Pow(d2, b)))
	gx := clip(coeff * dx)
	gy := clip(coeff * dy)
	layout.Set(i, 0, layout.At(i, 0)+alpha*gx)
	layout.Set(i, 1, layout.At(i, 1)+alpha*gy)
}

func clip(g float64) float64 {
	if g > 4 {
		return 4
	}
	if g < -4 {
		return -4
	}
	return g
}

func sortEdges(edges []edge) {
	// Map iteration order is random, so impose a fixed order to keep the
	// SGD schedule reproducible.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].from != edges[j].from {
			return edges[i].from < edges[j].from
		}
		return edges[i].to < edges[j].to
	})
}
