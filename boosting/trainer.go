package boosting

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/tisono/diabrisk/pkg/errors"
)

// trainer holds the mutable state of one training run.
type trainer struct {
	params Params

	X *mat.Dense
	y []float64

	rawScores []float64 // current ensemble log-odds per sample
	gradients []float64
	hessians  []float64

	trees []Tree
	rng   *rand.Rand
}

// splitInfo describes a candidate split.
type splitInfo struct {
	feature    int
	threshold  float64
	gain       float64
	leftCount  int
	rightCount int
}

// Train fits a boosted ensemble with a binary-logistic objective. y must be
// a 0/1 column vector with both classes present.
func Train(params Params, X mat.Matrix, y mat.Matrix) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params = params.withDefaults()

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return nil, errors.NewValueError("boosting.Train", "y must be a column vector")
	}
	if yRows != rows {
		return nil, errors.NewDimensionError("boosting.Train", rows, yRows)
	}

	tr := &trainer{
		params: params,
		X:      toDense(X),
		y:      make([]float64, rows),
		rng:    rand.New(rand.NewPCG(uint64(params.Seed), uint64(params.Seed)>>1)),
	}
	nPos := 0
	for i := 0; i < rows; i++ {
		v := y.At(i, 0)
		if v != 0 && v != 1 {
			return nil, errors.NewValueError("boosting.Train", "labels must be 0 or 1")
		}
		tr.y[i] = v
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 || nPos == rows {
		return nil, errors.NewValueError("boosting.Train", "need both classes in training data")
	}

	initScore := math.Log(float64(nPos) / float64(rows-nPos))
	tr.rawScores = make([]float64, rows)
	for i := range tr.rawScores {
		tr.rawScores[i] = initScore
	}
	tr.gradients = make([]float64, rows)
	tr.hessians = make([]float64, rows)

	rootIndices := make([]int, rows)
	for i := range rootIndices {
		rootIndices[i] = i
	}

	for iter := 0; iter < params.NumTrees; iter++ {
		tr.calculateGradients()

		tree := tr.buildTree()
		tree.ShrinkageRate = params.LearningRate
		tree.NumLeaves = tree.countLeaves()
		tr.trees = append(tr.trees, tree)

		tr.updateScores(&tree, rootIndices)
	}

	return &Model{
		Trees:       tr.trees,
		NumFeatures: cols,
		InitScore:   initScore,
	}, nil
}

func (tr *trainer) calculateGradients() {
	for i := range tr.y {
		p := sigmoid(tr.rawScores[i])
		tr.gradients[i] = p - tr.y[i]
		tr.hessians[i] = p * (1 - p)
	}
}

func (tr *trainer) updateScores(tree *Tree, indices []int) {
	_, cols := tr.X.Dims()
	features := make([]float64, cols)
	for _, idx := range indices {
		for j := 0; j < cols; j++ {
			features[j] = tr.X.At(idx, j)
		}
		tr.rawScores[idx] += tree.Predict(features)
	}
}

// sampleFeatures draws the feature subset considered by one tree.
func (tr *trainer) sampleFeatures() []int {
	_, cols := tr.X.Dims()
	k := int(math.Round(tr.params.FeatureFraction * float64(cols)))
	if k < 1 {
		k = 1
	}
	if k >= cols {
		all := make([]int, cols)
		for j := range all {
			all[j] = j
		}
		return all
	}
	perm := tr.rng.Perm(cols)
	picked := append([]int(nil), perm[:k]...)
	sort.Ints(picked)
	return picked
}

func (tr *trainer) buildTree() Tree {
	tree := Tree{}
	rows, _ := tr.X.Dims()
	indices := make([]int, rows)
	for i := range indices {
		indices[i] = i
	}
	tr.buildNode(&tree, indices, tr.sampleFeatures(), 0)
	return tree
}

// buildNode grows the tree depth-first, appending to tree.Nodes and
// returning the new node's index.
func (tr *trainer) buildNode(tree *Tree, indices, features []int, depth int) int {
	nodeIdx := len(tree.Nodes)

	leaves := tree.countLeaves()
	atLimit := (tr.params.MaxDepth > 0 && depth >= tr.params.MaxDepth) ||
		len(indices) < 2*tr.params.MinDataInLeaf ||
		(tr.params.NumLeaves > 0 && leaves >= tr.params.NumLeaves-1)
	if atLimit {
		tree.Nodes = append(tree.Nodes, tr.makeLeaf(indices))
		return nodeIdx
	}

	best := tr.findBestSplit(indices, features)
	if best.gain <= tr.params.MinGainToSplit || best.leftCount == 0 || best.rightCount == 0 {
		tree.Nodes = append(tree.Nodes, tr.makeLeaf(indices))
		return nodeIdx
	}

	tree.Nodes = append(tree.Nodes, Node{
		SplitFeature: best.feature,
		Threshold:    best.threshold,
		Gain:         best.gain,
		LeftChild:    -1,
		RightChild:   -1,
	})

	var left, right []int
	for _, idx := range indices {
		if tr.X.At(idx, best.feature) <= best.threshold {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}

	leftChild := tr.buildNode(tree, left, features, depth+1)
	rightChild := tr.buildNode(tree, right, features, depth+1)
	tree.Nodes[nodeIdx].LeftChild = leftChild
	tree.Nodes[nodeIdx].RightChild = rightChild
	return nodeIdx
}

func (tr *trainer) makeLeaf(indices []int) Node {
	sumGrad, sumHess := 0.0, 0.0
	for _, idx := range indices {
		sumGrad += tr.gradients[idx]
		sumHess += tr.hessians[idx]
	}
	const eps = 1e-10
	return Node{
		LeftChild:  -1,
		RightChild: -1,
		LeafValue:  -sumGrad / (sumHess + tr.params.Lambda + eps),
		LeafCount:  len(indices),
	}
}

func (tr *trainer) findBestSplit(indices, features []int) splitInfo {
	best := splitInfo{gain: -math.MaxFloat64}
	for _, j := range features {
		if s := tr.findBestSplitForFeature(indices, j); s.gain > best.gain {
			best = s
		}
	}
	return best
}

// findBestSplitForFeature scans sorted feature values accumulating gradient
// and hessian sums on the left side.
func (tr *trainer) findBestSplitForFeature(indices []int, feature int) splitInfo {
	type pair struct {
		value float64
		idx   int
	}
	values := make([]pair, len(indices))
	for i, idx := range indices {
		values[i] = pair{value: tr.X.At(idx, feature), idx: idx}
	}
	sort.Slice(values, func(a, b int) bool { return values[a].value < values[b].value })

	totalGrad, totalHess := 0.0, 0.0
	for _, idx := range indices {
		totalGrad += tr.gradients[idx]
		totalHess += tr.hessians[idx]
	}

	best := splitInfo{feature: feature, gain: -math.MaxFloat64}
	leftGrad, leftHess := 0.0, 0.0
	leftCount := 0
	for i := 0; i < len(values)-1; i++ {
		leftGrad += tr.gradients[values[i].idx]
		leftHess += tr.hessians[values[i].idx]
		leftCount++

		if values[i].value == values[i+1].value {
			continue
		}
		rightCount := len(indices) - leftCount
		if leftCount < tr.params.MinDataInLeaf || rightCount < tr.params.MinDataInLeaf {
			continue
		}

		gain := tr.splitGain(leftGrad, leftHess, totalGrad-leftGrad, totalHess-leftHess, totalGrad, totalHess)
		if gain > best.gain {
			best.gain = gain
			best.threshold = (values[i].value + values[i+1].value) / 2
			best.leftCount = leftCount
			best.rightCount = rightCount
		}
	}
	return best
}

func (tr *trainer) splitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	lambda := tr.params.Lambda
	left := leftGrad * leftGrad / (leftHess + lambda)
	right := rightGrad * rightGrad / (rightHess + lambda)
	total := totalGrad * totalGrad / (totalHess + lambda)
	return 0.5 * (left + right - total)
}

func toDense(X mat.Matrix) *mat.Dense {
	if d, ok := X.(*mat.Dense); ok {
		return d
	}
	rows, cols := X.Dims()
	d := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			d.Set(i, j, X.At(i, j))
		}
	}
	return d
}
