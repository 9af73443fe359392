package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrEmptyDataset    = errors.New("models: empty training set")
	ErrLengthMismatch  = errors.New("models: X and y length mismatch")
	ErrFeatureMismatch = errors.New("models: feature count mismatch")
	ErrNonBinaryLabel  = errors.New("models: label is not 0/1")
	ErrNotFitted       = errors.New("models: model is not fitted")
	ErrUnknownAlgo     = errors.New("models: unknown algorithm")
	ErrNonFinite       = errors.New("models: feature value is NaN or infinite")
)

type Model interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) ([]int, error)
	PredictProba(X [][]float64) ([]float64, error)
	NumFeatures() int
	Name() string
}

// Params are the knobs shared by every algorithm; each one ignores what it has no use for.
type Params struct {
	NEstimators     int
	MaxDepth        int // gb always fits depth-one stumps
	MinSamplesSplit int // unused by gb
	MaxFeatures     int // features tried per split by rf and dt, 0 for their default; bagging tries all
	MaxThresholds   int // candidate thresholds per feature, 0 for the algorithm default
	RandomState     int64
	ClassWeight     ClassWeight
	LearningRate    float64
}

const (
	AlgoRandomForest     = "rf"
	AlgoBagging          = "bagging"
	AlgoGradientBoosting = "gb"
	AlgoDecisionTree     = "dt"
)

func Build(algo string, p Params) (Model, error) {
	switch strings.ToLower(algo) {
	case AlgoRandomForest, "":
		rf := NewRandomForest()
		rf.apply(p)
		return rf, nil
	case AlgoBagging:
		bg := NewBagging()
		bg.apply(p)
		return bg, nil
	case AlgoGradientBoosting:
		gb := NewGradientBoosting()
		if p.NEstimators > 0 {
			gb.NEstimators = p.NEstimators
		}
		if p.LearningRate > 0 {
			gb.LearningRate = p.LearningRate
		}
		if p.MaxThresholds > 0 {
			gb.MaxThresholdsPerFe = p.MaxThresholds
		}
		gb.ClassWeight = p.ClassWeight
		return gb, nil
	case AlgoDecisionTree:
		dt := NewDecisionTree()
		dt.MaxDepth = p.MaxDepth
		if p.MinSamplesSplit > 0 {
			dt.MinSamplesSplit = p.MinSamplesSplit
		}
		dt.MaxFeatures = p.MaxFeatures
		dt.MaxThresholdsPerFe = p.MaxThresholds
		dt.Seed = p.RandomState
		dt.ClassWeight = p.ClassWeight
		return dt, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgo, algo)
}

// Label turns a fraud probability into a class; ties go to the legitimate class.
func Label(p float64) int {
	if p > 0.5 {
		return 1
	}
	return 0
}

func labels(ps []float64) []int {
	out := make([]int, len(ps))
	for i, p := range ps {
		out[i] = Label(p)
	}
	return out
}

func checkTraining(X [][]float64, y []int) (int, error) {
	if len(X) == 0 {
		return 0, ErrEmptyDataset
	}
	if len(X) != len(y) {
		return 0, fmt.Errorf("%w: %d rows, %d labels", ErrLengthMismatch, len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return 0, fmt.Errorf("%w: rows have no features", ErrFeatureMismatch)
	}
	for i := range X {
		if len(X[i]) != p {
			return 0, fmt.Errorf("%w: row %d has %d features, want %d", ErrFeatureMismatch, i, len(X[i]), p)
		}
		if y[i] != 0 && y[i] != 1 {
			return 0, fmt.Errorf("%w: row %d has %d", ErrNonBinaryLabel, i, y[i])
		}
	}
	return p, nil
}

func checkRows(X [][]float64, nFeats int) error {
	if nFeats == 0 {
		return ErrNotFitted
	}
	for i := range X {
		if len(X[i]) != nFeats {
			return fmt.Errorf("%w: row %d has %d features, model was fit on %d", ErrFeatureMismatch, i, len(X[i]), nFeats)
		}
		for j, v := range X[i] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%w: row %d feature %d", ErrNonFinite, i, j)
			}
		}
	}
	return nil
}
