package boosting

// Node is a single node in a decision tree. Leaves have LeftChild and
// RightChild set to -1.
type Node struct {
	SplitFeature int
	Threshold    float64
	Gain         float64
	LeftChild    int
	RightChild   int
	LeafValue    float64
	LeafCount    int
}

// IsLeaf reports whether the node is terminal.
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree is one member of the boosted ensemble. Leaf values carry the
// shrinkage rate applied at prediction time.
type Tree struct {
	Nodes         []Node
	NumLeaves     int
	ShrinkageRate float64
}

// Predict returns the shrunken leaf value for one sample.
func (t *Tree) Predict(features []float64) float64 {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return node.LeafValue * t.ShrinkageRate
		}
		if features[node.SplitFeature] <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return 0
}

func (t *Tree) countLeaves() int {
	count := 0
	for i := range t.Nodes {
		if t.Nodes[i].IsLeaf() {
			count++
		}
	}
	return count
}
