package fasttree

import (
	"math"
	"math/rand"
	"runtime"
	"sort"

	"github.com/YuminosukeSato/sentiment/core/parallel"
	"github.com/YuminosukeSato/sentiment/pkg/errors"
	"github.com/YuminosukeSato/sentiment/pkg/log"
	"gonum.org/v1/gonum/mat"
)

const (
	// splits must gain more than this to be taken
	minGainEpsilon = 1e-10
	// guards divisions by a near zero hessian
	hessianEpsilon = 1e-15
	// below this many candidate features the split search runs sequentially
	parallelFeatureThreshold = 64
)

// Trainer implements gradient boosting with leaf-wise (best-first) tree growth
// over pre-binned features.
type Trainer struct {
	params     TrainingParams
	objective  ObjectiveFunction
	callbacks  *callbackRunner
	numThreads int
	rng        *rand.Rand

	data      *binnedDataset
	usable    []int
	targets   []float64
	scores    []float64
	gradients []float64
	hessians  []float64
	inBag     []bool
	rowLeaf   []int32
	rowBin    []uint16

	initScore float64
	trees     []Tree
}

// histBin accumulates gradient statistics of one bin
type histBin struct {
	grad  float64
	hess  float64
	count int
}

// splitInfo contains information about a candidate split
type splitInfo struct {
	valid     bool
	feature   int
	bin       int
	gain      float64
	leftGrad  float64
	leftHess  float64
	leftCount int
}

// leafState tracks a leaf while the tree grows
type leafState struct {
	node    int
	rows    []int32
	sumGrad float64
	sumHess float64
	count   int
	best    splitInfo
}

// NewTrainer creates a new trainer
func NewTrainer(params TrainingParams) *Trainer {
	numThreads := params.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}
	return &Trainer{
		params:     params,
		numThreads: numThreads,
	}
}

// WithCallbacks sets the callbacks for training
func (t *Trainer) WithCallbacks(callbacks ...Callback) *Trainer {
	t.callbacks = &callbackRunner{callbacks: callbacks}
	return t
}

// Fit trains the ensemble. y is an n×1 matrix of targets (0/1 for the binary objective).
func (t *Trainer) Fit(X, y mat.Matrix) error {
	if err := t.params.Validate(); err != nil {
		return err
	}
	if X == nil || y == nil {
		return errors.NewTrainingError("fasttree.Fit", "empty training data", errors.ErrEmptyData)
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewTrainingError("fasttree.Fit", "empty training data", errors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != rows {
		return errors.NewDimensionError("fasttree.Fit", rows, yRows, 0)
	}

	objective, err := CreateObjectiveFunction(t.params.Objective)
	if err != nil {
		return err
	}
	t.objective = objective

	t.targets = make([]float64, rows)
	positives := 0
	for i := 0; i < rows; i++ {
		t.targets[i] = y.At(i, 0)
		if objective.Name() != string(BinaryLogistic) {
			continue
		}
		switch t.targets[i] {
		case 1:
			positives++
		case 0:
		default:
			return errors.NewValueError("fasttree.Fit", "binary targets must be 0 or 1")
		}
	}
	if objective.Name() == string(BinaryLogistic) && (positives == 0 || positives == rows) {
		return errors.NewTrainingError("fasttree.Fit", "training labels contain a single class", errors.ErrSingleClass)
	}

	t.initialize(X)
	if t.callbacks != nil {
		t.callbacks.reset()
	}

	logger := log.GetLoggerWithName("fasttree.trainer")
	for iter := 0; iter < t.params.NumTrees; iter++ {
		if t.callbacks != nil {
			if err := t.callbacks.run(iter, t.GetModel(), nil); err != nil {
				return errors.Wrapf(err, "callback error at iteration %d", iter)
			}
			if t.callbacks.stopped {
				logger.Info("Training stopped by callback", log.IterationKey, iter)
				break
			}
		}

		t.calculateGradients()
		t.sampleBag(iter)
		tree := t.buildTree(iter, t.sampleFeatures())
		t.trees = append(t.trees, tree)
		t.updateScores(&tree)

		loss := t.calculateLoss()
		if err := errors.CheckScalar("training_loss", loss, iter); err != nil {
			return errors.NewTrainingError("fasttree.Fit", "numerical instability", err)
		}

		if t.callbacks != nil {
			evalResults := map[string]float64{TrainingLossKey: loss}
			if err := t.callbacks.run(iter, t.GetModel(), evalResults); err != nil {
				return errors.Wrapf(err, "callback error at iteration %d", iter)
			}
			if t.callbacks.stopped {
				logger.Info("Training stopped by callback", log.IterationKey, iter)
				break
			}
		}

		if t.params.Verbosity > 0 && iter%10 == 0 {
			logger.Debug("Training progress",
				log.IterationKey, iter,
				log.LossKey, loss,
				"leaves", tree.NumLeaves,
			)
		}
	}

	logger.Debug("Training finished",
		log.SamplesKey, rows,
		log.FeaturesKey, cols,
		"trees", len(t.trees),
	)
	return nil
}

// initialize bins the data and resets the training state
func (t *Trainer) initialize(X mat.Matrix) {
	rows, _ := X.Dims()

	t.rng = rand.New(rand.NewSource(t.params.Seed))
	t.data = newBinnedDataset(X, t.params.MaxBin)
	t.usable = t.usable[:0]
	for j, m := range t.data.mappers {
		if m.NumBins() > 1 {
			t.usable = append(t.usable, j)
		}
	}

	t.initScore = t.objective.GetInitScore(t.targets)
	t.scores = make([]float64, rows)
	for i := range t.scores {
		t.scores[i] = t.initScore
	}
	t.gradients = make([]float64, rows)
	t.hessians = make([]float64, rows)
	t.inBag = make([]bool, rows)
	for i := range t.inBag {
		t.inBag[i] = true
	}
	t.rowLeaf = make([]int32, rows)
	t.rowBin = make([]uint16, rows)
	t.trees = nil
}

// calculateGradients computes gradients and hessians for current scores
func (t *Trainer) calculateGradients() {
	for i, score := range t.scores {
		t.gradients[i] = t.objective.CalculateGradient(score, t.targets[i])
		t.hessians[i] = t.objective.CalculateHessian(score, t.targets[i])
	}
}

// sampleBag redraws the in-bag rows every BaggingFreq iterations
func (t *Trainer) sampleBag(iter int) {
	if t.params.BaggingFraction >= 1 || t.params.BaggingFreq <= 0 || iter%t.params.BaggingFreq != 0 {
		return
	}
	n := len(t.inBag)
	k := max(1, int(math.Round(t.params.BaggingFraction*float64(n))))
	for i := range t.inBag {
		t.inBag[i] = false
	}
	for _, i := range t.rng.Perm(n)[:k] {
		t.inBag[i] = true
	}
}

// sampleFeatures returns the sorted candidate features of the next tree
func (t *Trainer) sampleFeatures() []int {
	if t.params.FeatureFraction >= 1 || len(t.usable) == 0 {
		return t.usable
	}
	k := max(1, int(math.Round(t.params.FeatureFraction*float64(len(t.usable)))))
	features := make([]int, 0, k)
	for _, i := range t.rng.Perm(len(t.usable))[:k] {
		features = append(features, t.usable[i])
	}
	sort.Ints(features)
	return features
}

// buildTree grows one tree leaf-wise until NumLeaves or no valid split remains
func (t *Trainer) buildTree(iter int, features []int) Tree {
	tree := Tree{
		TreeIndex:     iter,
		ShrinkageRate: t.params.LearningRate,
		Nodes:         []Node{newLeafNode(0, -1)},
	}

	root := &leafState{node: 0, rows: make([]int32, len(t.scores))}
	for i := range root.rows {
		root.rows[i] = int32(i)
		t.rowLeaf[i] = 0
		if t.inBag[i] {
			root.sumGrad += t.gradients[i]
			root.sumHess += t.hessians[i]
			root.count++
		}
	}
	root.best = t.findBestSplit(root, features)
	leaves := []*leafState{root}

	for len(leaves) < t.params.NumLeaves {
		bestIdx := -1
		for i, leaf := range leaves {
			if leaf.best.valid && (bestIdx < 0 || leaf.best.gain > leaves[bestIdx].best.gain) {
				bestIdx = i
			}
		}
		if bestIdx < 0 {
			break
		}

		left, right := t.splitLeaf(&tree, leaves[bestIdx])
		left.best = t.findBestSplit(left, features)
		right.best = t.findBestSplit(right, features)
		leaves[bestIdx] = left
		leaves = append(leaves, right)
	}

	for _, leaf := range leaves {
		node := &tree.Nodes[leaf.node]
		node.LeafValue = t.leafOutput(leaf.sumGrad, leaf.sumHess)
		node.LeafCount = leaf.count
	}
	tree.NumLeaves = len(leaves)
	return tree
}

func newLeafNode(id, parent int) Node {
	return Node{
		NodeID:     id,
		ParentID:   parent,
		LeftChild:  -1,
		RightChild: -1,
		NodeType:   LeafNode,
	}
}

// splitLeaf turns the leaf into a numerical node and returns its two children
func (t *Trainer) splitLeaf(tree *Tree, leaf *leafState) (*leafState, *leafState) {
	split := leaf.best
	mapper := t.data.mappers[split.feature]
	leafID := int32(leaf.node)

	for _, r := range leaf.rows {
		t.rowBin[r] = uint16(mapper.DefaultBin)
	}
	for k, r := range t.data.columnRows[split.feature] {
		if t.rowLeaf[r] == leafID {
			t.rowBin[r] = t.data.columnBins[split.feature][k]
		}
	}

	leftID, rightID := len(tree.Nodes), len(tree.Nodes)+1
	tree.Nodes = append(tree.Nodes, newLeafNode(leftID, leaf.node), newLeafNode(rightID, leaf.node))

	node := &tree.Nodes[leaf.node]
	node.NodeType = NumericalNode
	node.SplitFeature = split.feature
	node.Threshold = mapper.UpperBounds[split.bin]
	node.Gain = split.gain
	node.LeftChild = leftID
	node.RightChild = rightID

	left := &leafState{
		node:    leftID,
		sumGrad: split.leftGrad,
		sumHess: split.leftHess,
		count:   split.leftCount,
	}
	right := &leafState{
		node:    rightID,
		sumGrad: leaf.sumGrad - split.leftGrad,
		sumHess: leaf.sumHess - split.leftHess,
		count:   leaf.count - split.leftCount,
	}
	for _, r := range leaf.rows {
		if int(t.rowBin[r]) <= split.bin {
			left.rows = append(left.rows, r)
			t.rowLeaf[r] = int32(leftID)
		} else {
			right.rows = append(right.rows, r)
			t.rowLeaf[r] = int32(rightID)
		}
	}
	return left, right
}

// findBestSplit searches all candidate features of a leaf. Ties keep the
// lower feature index so the result does not depend on scheduling.
func (t *Trainer) findBestSplit(leaf *leafState, features []int) splitInfo {
	if leaf.count < 2*t.params.MinDataInLeaf || len(features) == 0 {
		return splitInfo{}
	}

	results := make([]splitInfo, len(features))
	parallel.ParallelizeWithThreshold(len(features), parallelFeatureThreshold, t.numThreads, func(start, end int) {
		var hist []histBin
		for k := start; k < end; k++ {
			results[k] = t.findBestSplitForFeature(leaf, features[k], &hist)
		}
	})

	var best splitInfo
	for _, s := range results {
		if s.valid && (!best.valid || s.gain > best.gain) {
			best = s
		}
	}
	return best
}

// findBestSplitForFeature builds the leaf histogram of one feature and scans its bins
func (t *Trainer) findBestSplitForFeature(leaf *leafState, feature int, buf *[]histBin) splitInfo {
	mapper := t.data.mappers[feature]
	numBins := mapper.NumBins()
	if cap(*buf) < numBins {
		*buf = make([]histBin, numBins)
	}
	hist := (*buf)[:numBins]
	for b := range hist {
		hist[b] = histBin{}
	}

	leafID := int32(leaf.node)
	bins := t.data.columnBins[feature]
	var otherGrad, otherHess float64
	otherCount := 0
	for k, r := range t.data.columnRows[feature] {
		if t.rowLeaf[r] != leafID || !t.inBag[r] {
			continue
		}
		h := &hist[bins[k]]
		h.grad += t.gradients[r]
		h.hess += t.hessians[r]
		h.count++
		otherGrad += t.gradients[r]
		otherHess += t.hessians[r]
		otherCount++
	}
	def := &hist[mapper.DefaultBin]
	def.grad = leaf.sumGrad - otherGrad
	def.hess = leaf.sumHess - otherHess
	def.count = leaf.count - otherCount

	best := splitInfo{feature: feature}
	var leftGrad, leftHess float64
	leftCount := 0
	for b := 0; b < numBins-1; b++ {
		leftGrad += hist[b].grad
		leftHess += hist[b].hess
		leftCount += hist[b].count

		rightCount := leaf.count - leftCount
		if leftCount < t.params.MinDataInLeaf || rightCount < t.params.MinDataInLeaf {
			continue
		}
		rightGrad := leaf.sumGrad - leftGrad
		rightHess := leaf.sumHess - leftHess
		if leftHess < t.params.MinSumHessianInLeaf || rightHess < t.params.MinSumHessianInLeaf {
			continue
		}

		gain := t.calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, leaf.sumGrad, leaf.sumHess)
		if gain <= t.params.MinGainToSplit || gain <= minGainEpsilon {
			continue
		}
		if !best.valid || gain > best.gain {
			best.valid = true
			best.bin = b
			best.gain = gain
			best.leftGrad = leftGrad
			best.leftHess = leftHess
			best.leftCount = leftCount
		}
	}
	return best
}

// calculateSplitGain calculates the gain from a split
func (t *Trainer) calculateSplitGain(leftGrad, leftHess, rightGrad, rightHess, totalGrad, totalHess float64) float64 {
	return 0.5 * (t.leafScore(leftGrad, leftHess) + t.leafScore(rightGrad, rightHess) - t.leafScore(totalGrad, totalHess))
}

func (t *Trainer) leafScore(grad, hess float64) float64 {
	return grad * grad / math.Max(hess+t.params.LambdaL2, hessianEpsilon)
}

// leafOutput calculates the Newton step of a leaf, clipped to MaxLeafOutput
func (t *Trainer) leafOutput(grad, hess float64) float64 {
	out := -grad / math.Max(hess+t.params.LambdaL2, hessianEpsilon)
	if limit := t.params.MaxLeafOutput; limit > 0 {
		out = errors.ClipValue(out, -limit, limit)
	}
	return out
}

// updateScores adds the new tree's output to the cached scores of every row
func (t *Trainer) updateScores(tree *Tree) {
	for i, leaf := range t.rowLeaf {
		t.scores[i] += tree.Nodes[leaf].LeafValue * tree.ShrinkageRate
	}
}

// calculateLoss calculates the mean training loss
func (t *Trainer) calculateLoss() float64 {
	loss := 0.0
	for i, score := range t.scores {
		loss += t.objective.CalculateLoss(score, t.targets[i])
	}
	return loss / float64(len(t.scores))
}

// GetModel returns the ensemble trained so far
func (t *Trainer) GetModel() *Model {
	objective := BinaryLogistic
	if t.objective != nil {
		objective = ObjectiveType(t.objective.Name())
	}
	numFeatures := 0
	if t.data != nil {
		numFeatures = t.data.numFeatures()
	}
	return &Model{
		Objective:    objective,
		NumFeatures:  numFeatures,
		LearningRate: t.params.LearningRate,
		NumLeaves:    t.params.NumLeaves,
		InitScore:    t.initScore,
		Trees:        append([]Tree(nil), t.trees...),
	}
}
