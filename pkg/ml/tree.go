package ml

import "sort"

// treeNode is one node of a CART tree. Internal nodes carry a split;
// leaves carry either a class distribution (classification) or a single
// value (regression, used by gradient boosting).
type treeNode struct {
	Feature   int       `json:"f,omitempty"`
	Threshold float64   `json:"t,omitempty"`
	Left      *treeNode `json:"l,omitempty"`
	Right     *treeNode `json:"r,omitempty"`
	Probs     []float64 `json:"p,omitempty"`
	Value     float64   `json:"v,omitempty"`
	Leaf      bool      `json:"leaf,omitempty"`
}

// maxSplitCandidates bounds the thresholds tried per feature so split
// search stays linear in practice.
const maxSplitCandidates = 16

type treeConfig struct {
	maxDepth   int
	minLeaf    int
	featureSub int // number of features considered per split; 0 = all
	regression bool
}

// buildTree grows a CART tree over the given sample indices. pick is an
// optional deterministic feature subsampler (used by the forest).
func buildTree(X [][]float64, y []int, residuals []float64, idx []int, depth int, cfg treeConfig, pick func(total, want int) []int) *treeNode {
	if len(idx) == 0 {
		return &treeNode{Leaf: true, Probs: uniformProbs()}
	}
	if depth >= cfg.maxDepth || len(idx) < 2*cfg.minLeaf || isPure(y, residuals, idx, cfg.regression) {
		return makeLeaf(y, residuals, idx, cfg.regression)
	}

	dims := len(X[0])
	features := allFeatures(dims)
	if cfg.featureSub > 0 && cfg.featureSub < dims && pick != nil {
		features = pick(dims, cfg.featureSub)
	}

	bestFeature, bestThreshold, found := findBestSplit(X, y, residuals, idx, features, cfg)
	if !found {
		return makeLeaf(y, residuals, idx, cfg.regression)
	}

	var left, right []int
	for _, i := range idx {
		if X[i][bestFeature] <= bestThreshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		return makeLeaf(y, residuals, idx, cfg.regression)
	}

	return &treeNode{
		Feature:   bestFeature,
		Threshold: bestThreshold,
		Left:      buildTree(X, y, residuals, left, depth+1, cfg, pick),
		Right:     buildTree(X, y, residuals, right, depth+1, cfg, pick),
	}
}

func (n *treeNode) predict(x []float64) *treeNode {
	node := n
	for !node.Leaf {
		if x[node.Feature] <= node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node
}

func allFeatures(dims int) []int {
	out := make([]int, dims)
	for i := range out {
		out[i] = i
	}
	return out
}

func isPure(y []int, residuals []float64, idx []int, regression bool) bool {
	if regression {
		first := residuals[idx[0]]
		for _, i := range idx[1:] {
			if residuals[i] != first {
				return false
			}
		}
		return true
	}
	first := y[idx[0]]
	for _, i := range idx[1:] {
		if y[i] != first {
			return false
		}
	}
	return true
}

func makeLeaf(y []int, residuals []float64, idx []int, regression bool) *treeNode {
	if regression {
		var sum float64
		for _, i := range idx {
			sum += residuals[i]
		}
		return &treeNode{Leaf: true, Value: sum / float64(len(idx))}
	}
	probs := make([]float64, numClasses)
	for _, i := range idx {
		probs[y[i]]++
	}
	for k := range probs {
		probs[k] /= float64(len(idx))
	}
	return &treeNode{Leaf: true, Probs: probs}
}

// findBestSplit searches candidate thresholds per feature, minimizing
// weighted gini impurity (classification) or variance (regression).
func findBestSplit(X [][]float64, y []int, residuals []float64, idx []int, features []int, cfg treeConfig) (int, float64, bool) {
	bestScore := parentImpurity(y, residuals, idx, cfg.regression)
	var bestFeature int
	var bestThreshold float64
	found := false

	for _, f := range features {
		for _, threshold := range candidateThresholds(X, idx, f) {
			score, ok := splitImpurity(X, y, residuals, idx, f, threshold, cfg)
			if ok && score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = threshold
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func candidateThresholds(X [][]float64, idx []int, feature int) []float64 {
	values := make([]float64, 0, len(idx))
	for _, i := range idx {
		values = append(values, X[i][feature])
	}
	sort.Float64s(values)

	uniq := values[:0]
	for i, v := range values {
		if i == 0 || v != uniq[len(uniq)-1] {
			uniq = append(uniq, v)
		}
	}
	if len(uniq) < 2 {
		return nil
	}

	step := 1
	if len(uniq)-1 > maxSplitCandidates {
		step = (len(uniq) - 1) / maxSplitCandidates
	}
	var out []float64
	for i := 0; i+1 < len(uniq); i += step {
		out = append(out, (uniq[i]+uniq[i+1])/2)
	}
	return out
}

func parentImpurity(y []int, residuals []float64, idx []int, regression bool) float64 {
	if regression {
		return variance(residuals, idx)
	}
	return gini(y, idx)
}

func splitImpurity(X [][]float64, y []int, residuals []float64, idx []int, feature int, threshold float64, cfg treeConfig) (float64, bool) {
	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < cfg.minLeaf || len(right) < cfg.minLeaf {
		return 0, false
	}

	n := float64(len(idx))
	if cfg.regression {
		return variance(residuals, left)*float64(len(left))/n +
			variance(residuals, right)*float64(len(right))/n, true
	}
	return gini(y, left)*float64(len(left))/n +
		gini(y, right)*float64(len(right))/n, true
}

func gini(y []int, idx []int) float64 {
	counts := make([]float64, numClasses)
	for _, i := range idx {
		counts[y[i]]++
	}
	n := float64(len(idx))
	impurity := 1.0
	for _, c := range counts {
		p := c / n
		impurity -= p * p
	}
	return impurity
}

func variance(residuals []float64, idx []int) float64 {
	var sum float64
	for _, i := range idx {
		sum += residuals[i]
	}
	mean := sum / float64(len(idx))
	var v float64
	for _, i := range idx {
		d := residuals[i] - mean
		v += d * d
	}
	return v / float64(len(idx))
}
