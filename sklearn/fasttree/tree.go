package fasttree

import "math"

// NodeType represents the type of a tree node
type NodeType int

const (
	// LeafNode represents a terminal node with a value
	LeafNode NodeType = iota
	// NumericalNode represents a node with numerical split
	NumericalNode
)

// Node represents a single node in a decision tree
type Node struct {
	NodeID     int      `json:"node_id"`
	ParentID   int      `json:"parent_id"`
	LeftChild  int      `json:"left_child"`
	RightChild int      `json:"right_child"`
	NodeType   NodeType `json:"node_type"`

	// Split information (for non-leaf nodes)
	SplitFeature int     `json:"split_feature"`
	Threshold    float64 `json:"threshold"`
	Gain         float64 `json:"gain"`

	// Leaf information (for leaf nodes)
	LeafValue float64 `json:"leaf_value"`
	LeafCount int     `json:"leaf_count"`
}

// IsLeaf returns true if the node is a leaf node
func (n *Node) IsLeaf() bool {
	return n.LeftChild == -1 && n.RightChild == -1
}

// Tree represents a single decision tree in the ensemble
type Tree struct {
	TreeIndex     int     `json:"tree_index"`
	NumLeaves     int     `json:"num_leaves"`
	ShrinkageRate float64 `json:"shrinkage_rate"`
	Nodes         []Node  `json:"nodes"`
}

// Predict makes a prediction for a single sample using this tree.
// Values not greater than a node's threshold go left; NaN is treated as zero.
func (t *Tree) Predict(features []float64) float64 {
	leaf := t.LeafIndex(features)
	if leaf < 0 {
		return 0.0
	}
	return t.Nodes[leaf].LeafValue * t.ShrinkageRate
}

// LeafIndex returns the node ID of the leaf the sample falls into
func (t *Tree) LeafIndex(features []float64) int {
	nodeID := 0
	for nodeID >= 0 && nodeID < len(t.Nodes) {
		node := &t.Nodes[nodeID]
		if node.IsLeaf() {
			return nodeID
		}

		value := features[node.SplitFeature]
		if math.IsNaN(value) {
			value = 0
		}
		if value <= node.Threshold {
			nodeID = node.LeftChild
		} else {
			nodeID = node.RightChild
		}
	}
	return -1
}

// Depth returns the maximum depth of the tree; a single leaf has depth 0
func (t *Tree) Depth() int {
	if len(t.Nodes) == 0 {
		return 0
	}
	var walk func(id int) int
	walk = func(id int) int {
		node := &t.Nodes[id]
		if node.IsLeaf() {
			return 0
		}
		return 1 + max(walk(node.LeftChild), walk(node.RightChild))
	}
	return walk(0)
}
