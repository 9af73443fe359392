package models

import (
	"math"
	"math/rand"
	"sort"
)

type DTNode struct {
	Feature   int
	Threshold float64
	Left      *DTNode
	Right     *DTNode
	IsLeaf    bool
	ProbaLeaf float64
}

// DecisionTree is a binary CART tree split on weighted gini impurity.
// Leaves hold the weighted share of fraud rows that reached them.
type DecisionTree struct {
	MaxDepth           int // 0 grows until leaves are pure or too small to split
	MinSamplesSplit    int
	MaxThresholdsPerFe int // 0 tries every boundary between distinct values
	MaxFeatures        int // 0 considers every feature at each node
	Seed               int64
	ClassWeight        ClassWeight
	NFeatures          int
	Root               *DTNode
}

func NewDecisionTree() *DecisionTree {
	return &DecisionTree{MinSamplesSplit: 2, ClassWeight: ClassWeightNone}
}

func (dt *DecisionTree) Name() string { return "DecisionTree" }

func (dt *DecisionTree) NumFeatures() int { return dt.NFeatures }

func (dt *DecisionTree) Fit(X [][]float64, y []int) error {
	if _, err := checkTraining(X, y); err != nil {
		return err
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	dt.fit(X, y, SampleWeights(y, dt.ClassWeight), idx, rand.New(rand.NewSource(dt.Seed)))
	return nil
}

// fit grows the tree over the rows listed in idx; repeated indices count once per occurrence.
func (dt *DecisionTree) fit(X [][]float64, y []int, w []float64, idx []int, rnd *rand.Rand) {
	dt.NFeatures = len(X[0])
	if dt.MinSamplesSplit < 2 {
		dt.MinSamplesSplit = 2
	}
	dt.Root = dt.build(X, y, w, idx, 0, rnd)
}

func (dt *DecisionTree) Predict(X [][]float64) ([]int, error) {
	ps, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(ps), nil
}

func (dt *DecisionTree) PredictProba(X [][]float64) ([]float64, error) {
	if dt.Root == nil {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, dt.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i := range X {
		out[i] = dt.predictProbaOne(X[i])
	}
	return out, nil
}

func (dt *DecisionTree) predictProbaOne(x []float64) float64 {
	n := dt.Root
	for !n.IsLeaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.ProbaLeaf
}

func (dt *DecisionTree) build(X [][]float64, y []int, w []float64, idx []int, depth int, rnd *rand.Rand) *DTNode {
	p := classProba(y, w, idx)
	if len(idx) < dt.MinSamplesSplit || (dt.MaxDepth > 0 && depth >= dt.MaxDepth) || p == 0 || p == 1 {
		return &DTNode{IsLeaf: true, ProbaLeaf: p}
	}

	bestFeature := -1
	bestThr := 0.0
	bestImp := math.MaxFloat64
	for _, f := range pickFeatures(dt.NFeatures, dt.MaxFeatures, rnd) {
		thr, imp, ok := dt.bestSplit(X, y, w, idx, f, rnd)
		if ok && imp < bestImp {
			bestImp = imp
			bestFeature = f
			bestThr = thr
		}
	}
	if bestFeature == -1 {
		return &DTNode{IsLeaf: true, ProbaLeaf: p}
	}
	lIdx, rIdx := splitIdx(X, idx, bestFeature, bestThr)
	return &DTNode{
		Feature:   bestFeature,
		Threshold: bestThr,
		Left:      dt.build(X, y, w, lIdx, depth+1, rnd),
		Right:     dt.build(X, y, w, rIdx, depth+1, rnd),
	}
}

type sortedSample struct {
	v   float64
	pos float64
	w   float64
}

// bestSplit sweeps the rows in feature order once, scoring each candidate boundary.
func (dt *DecisionTree) bestSplit(X [][]float64, y []int, w []float64, idx []int, f int, rnd *rand.Rand) (float64, float64, bool) {
	s := make([]sortedSample, len(idx))
	var totalW, totalPos float64
	for j, i := range idx {
		s[j] = sortedSample{v: X[i][f], pos: w[i] * float64(y[i]), w: w[i]}
		totalW += w[i]
		totalPos += s[j].pos
	}
	sort.Slice(s, func(a, b int) bool { return s[a].v < s[b].v })

	var bounds []int
	for k := 1; k < len(s); k++ {
		if s[k-1].v < s[k].v {
			bounds = append(bounds, k)
		}
	}
	if len(bounds) == 0 {
		return 0, 0, false
	}
	if dt.MaxThresholdsPerFe > 0 && len(bounds) > dt.MaxThresholdsPerFe {
		pick := rnd.Perm(len(bounds))[:dt.MaxThresholdsPerFe]
		sort.Ints(pick)
		kept := make([]int, len(pick))
		for j, b := range pick {
			kept[j] = bounds[b]
		}
		bounds = kept
	}

	bestImp := math.MaxFloat64
	bestK := -1
	var leftW, leftPos float64
	k := 0
	for _, b := range bounds {
		for ; k < b; k++ {
			leftW += s[k].w
			leftPos += s[k].pos
		}
		imp := giniImpurity(leftW, leftPos, totalW-leftW, totalPos-leftPos)
		if imp < bestImp {
			bestImp = imp
			bestK = b
		}
	}
	if bestK == -1 {
		return 0, 0, false
	}
	lo, hi := s[bestK-1].v, s[bestK].v
	thr := lo + (hi-lo)/2
	if thr >= hi {
		thr = lo
	}
	return thr, bestImp, true
}

func classProba(y []int, w []float64, idx []int) float64 {
	var pos, tot float64
	for _, i := range idx {
		tot += w[i]
		pos += w[i] * float64(y[i])
	}
	if tot == 0 {
		return 0
	}
	return pos / tot
}

func splitIdx(X [][]float64, idx []int, f int, thr float64) ([]int, []int) {
	l := make([]int, 0, len(idx))
	r := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][f] <= thr {
			l = append(l, i)
		} else {
			r = append(r, i)
		}
	}
	return l, r
}

func giniImpurity(wl, pl, wr, pr float64) float64 {
	g := func(w, pos float64) float64 {
		if w == 0 {
			return 0
		}
		p := pos / w
		return p * (1 - p)
	}
	n := wl + wr
	if n == 0 {
		return 0
	}
	return (wl/n)*g(wl, pl) + (wr/n)*g(wr, pr)
}

func pickFeatures(nFeats int, maxFeats int, rnd *rand.Rand) []int {
	if maxFeats <= 0 || maxFeats >= nFeats {
		out := make([]int, nFeats)
		for i := range out {
			out[i] = i
		}
		return out
	}
	out := rnd.Perm(nFeats)[:maxFeats]
	sort.Ints(out)
	return out
}
