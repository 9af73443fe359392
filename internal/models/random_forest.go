package models

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest averages fraud probabilities over bootstrapped trees that each
// look at a random subset of features per split.
type RandomForest struct {
	NEstimators        int
	MaxDepth           int
	MinSamples         int
	MaxThresholdsPerFe int
	MaxFeatures        int // 0 selects sqrt(n_features)
	Bootstrap          bool
	RandomState        int64
	ClassWeight        ClassWeight
	NFeatures          int
	Trees              []*DecisionTree
}

func NewRandomForest() *RandomForest {
	return &RandomForest{NEstimators: 100, MinSamples: 2, Bootstrap: true, ClassWeight: ClassWeightNone, Trees: []*DecisionTree{}}
}

func (rf *RandomForest) Name() string { return "RandomForest" }

func (rf *RandomForest) NumFeatures() int { return rf.NFeatures }

func (rf *RandomForest) apply(p Params) {
	if p.NEstimators > 0 {
		rf.NEstimators = p.NEstimators
	}
	rf.MaxDepth = p.MaxDepth
	if p.MinSamplesSplit > 0 {
		rf.MinSamples = p.MinSamplesSplit
	}
	rf.MaxFeatures = p.MaxFeatures
	rf.MaxThresholdsPerFe = p.MaxThresholds
	rf.RandomState = p.RandomState
	if p.ClassWeight != "" {
		rf.ClassWeight = p.ClassWeight
	}
}

// Fit builds the trees concurrently. Tree k draws only from a source seeded with
// RandomState+k and is stored at index k, so the result does not depend on scheduling.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	nFeats, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	if rf.NEstimators <= 0 {
		rf.NEstimators = 100
	}
	maxFeats := rf.MaxFeatures
	if maxFeats <= 0 {
		maxFeats = int(math.Max(1, math.Sqrt(float64(nFeats))))
	}
	w := SampleWeights(y, rf.ClassWeight)
	n := len(X)

	trees := make([]*DecisionTree, rf.NEstimators)
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for k := 0; k < rf.NEstimators; k++ {
		g.Go(func() error {
			rnd := rand.New(rand.NewSource(rf.RandomState + int64(k)))
			idx := make([]int, n)
			for i := range idx {
				if rf.Bootstrap {
					idx[i] = rnd.Intn(n)
				} else {
					idx[i] = i
				}
			}
			dt := NewDecisionTree()
			dt.MaxDepth = rf.MaxDepth
			dt.MinSamplesSplit = rf.MinSamples
			dt.MaxThresholdsPerFe = rf.MaxThresholdsPerFe
			dt.MaxFeatures = maxFeats
			dt.Seed = rf.RandomState + int64(k)
			dt.ClassWeight = rf.ClassWeight
			dt.fit(X, y, w, idx, rnd)
			trees[k] = dt
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	rf.Trees = trees
	rf.NFeatures = nFeats
	return nil
}

func (rf *RandomForest) Predict(X [][]float64) ([]int, error) {
	ps, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(ps), nil
}

func (rf *RandomForest) PredictProba(X [][]float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if err := checkRows(X, rf.NFeatures); err != nil {
		return nil, err
	}
	n := len(X)
	out := make([]float64, n)
	for _, dt := range rf.Trees {
		for i := 0; i < n; i++ {
			out[i] += dt.predictProbaOne(X[i])
		}
	}
	m := float64(len(rf.Trees))
	for i := 0; i < n; i++ {
		out[i] /= m
	}
	return out, nil
}
