package projection

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// twoBlobs returns rows drawn around two well-separated centers, first half
// from one blob, second half from the other.
func twoBlobs(n int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed>>1))
	X := mat.NewDense(n, 4, nil)
	for i := 0; i < n; i++ {
		center := 0.0
		if i >= n/2 {
			center = 8.0
		}
		for j := 0; j < 4; j++ {
			X.Set(i, j, center+rng.NormFloat64())
		}
	}
	return X
}

func testConfig(seed int64) Config {
	return Config{NNeighbors: 5, Epochs: 60, Seed: seed}
}

func TestEmbedShapeAndFiniteness(t *testing.T) {
	X := twoBlobs(60, 1)
	layout, err := Embed(testConfig(42), X)
	require.NoError(t, err)

	rows, cols := layout.Dims()
	require.Equal(t, 60, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		assert.False(t, math.IsNaN(layout.At(i, 0)))
		assert.False(t, math.IsNaN(layout.At(i, 1)))
		assert.False(t, math.IsInf(layout.At(i, 0), 0))
		assert.False(t, math.IsInf(layout.At(i, 1), 0))
	}
}

func TestEmbedSeparatesBlobs(t *testing.T) {
	X := twoBlobs(80, 7)
	layout, err := Embed(testConfig(11), X)
	require.NoError(t, err)

	// Centroid distance between the blobs should exceed the mean spread
	// within each blob.
	var c1, c2 [2]float64
	for i := 0; i < 40; i++ {
		c1[0] += layout.At(i, 0) / 40
		c1[1] += layout.At(i, 1) / 40
		c2[0] += layout.At(i+40, 0) / 40
		c2[1] += layout.At(i+40, 1) / 40
	}
	between := math.Hypot(c1[0]-c2[0], c1[1]-c2[1])

	within := 0.0
	for i := 0; i < 40; i++ {
		within += math.Hypot(layout.At(i, 0)-c1[0], layout.At(i, 1)-c1[1]) / 80
		within += math.Hypot(layout.At(i+40, 0)-c2[0], layout.At(i+40, 1)-c2[1]) / 80
	}
	assert.Greater(t, between, within)
}

func TestEmbedDeterminism(t *testing.T) {
	X := twoBlobs(50, 3)
	a, err := Embed(testConfig(9), X)
	require.NoError(t, err)
	b, err := Embed(testConfig(9), X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(a, b))

	c, err := Embed(testConfig(10), X)
	require.NoError(t, err)
	assert.False(t, mat.Equal(a, c))
}

func TestEmbedValidation(t *testing.T) {
	X := twoBlobs(20, 1)

	cfg := testConfig(1)
	cfg.NNeighbors = 25
	_, err := Embed(cfg, X)
	assert.Error(t, err, "more neighbors than rows")

	cfg = testConfig(1)
	cfg.MinDist = -0.5
	_, err = Embed(cfg, X)
	assert.Error(t, err)

	cfg = testConfig(1)
	cfg.Epochs = -3
	_, err = Embed(cfg, X)
	assert.Error(t, err)
}
