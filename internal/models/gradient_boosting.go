package models

import (
	"math"
	"sort"
)

type gbStump struct {
	Feature   int
	Threshold float64
	LeftVal   float64
	RightVal  float64
}

// GradientBoosting fits depth-one trees to the log-loss gradient.
type GradientBoosting struct {
	NEstimators        int
	LearningRate       float64
	MinSamples         int
	MaxThresholdsPerFe int
	ClassWeight        ClassWeight
	NFeatures          int
	Init               float64
	Trees              []gbStump
}

func NewGradientBoosting() *GradientBoosting {
	return &GradientBoosting{NEstimators: 100, LearningRate: 0.1, MaxThresholdsPerFe: 32, ClassWeight: ClassWeightNone}
}

func (gb *GradientBoosting) Name() string { return "GradientBoosting" }

func (gb *GradientBoosting) NumFeatures() int { return gb.NFeatures }

func sigmoid(z float64) float64 { return 1.0 / (1.0 + math.Exp(-z)) }

func (gb *GradientBoosting) Fit(X [][]float64, y []int) error {
	nFeats, err := checkTraining(X, y)
	if err != nil {
		return err
	}
	n := len(X)
	w := SampleWeights(y, gb.ClassWeight)
	var pos, tot float64
	for i := 0; i < n; i++ {
		tot += w[i]
		pos += w[i] * float64(y[i])
	}
	base := math.Min(math.Max(pos/tot, 1e-3), 1-1e-3)
	gb.Init = math.Log(base / (1.0 - base))
	gb.NFeatures = nFeats
	gb.Trees = gb.Trees[:0]

	F := make([]float64, n)
	for i := range F {
		F[i] = gb.Init
	}
	cands := make([][]float64, nFeats)
	for j := range cands {
		cands[j] = gbCandidateThresholds(X, j, gb.MaxThresholdsPerFe)
	}

	r := make([]float64, n)
	for m := 0; m < gb.NEstimators; m++ {
		for i := 0; i < n; i++ {
			r[i] = float64(y[i]) - sigmoid(F[i])
		}

		best := gbStump{Feature: -1}
		bestSSE := math.MaxFloat64
		for j := 0; j < nFeats; j++ {
			for _, thr := range cands[j] {
				var leftSum, leftW, rightSum, rightW float64
				leftCount, rightCount := 0, 0
				for i := 0; i < n; i++ {
					if X[i][j] <= thr {
						leftSum += w[i] * r[i]
						leftW += w[i]
						leftCount++
					} else {
						rightSum += w[i] * r[i]
						rightW += w[i]
						rightCount++
					}
				}
				if leftCount == 0 || rightCount == 0 || leftCount < gb.MinSamples || rightCount < gb.MinSamples {
					continue
				}
				leftAvg := leftSum / leftW
				rightAvg := rightSum / rightW

				var sse float64
				for i := 0; i < n; i++ {
					d := r[i] - rightAvg
					if X[i][j] <= thr {
						d = r[i] - leftAvg
					}
					sse += w[i] * d * d
				}
				if sse < bestSSE {
					bestSSE = sse
					best = gbStump{Feature: j, Threshold: thr, LeftVal: leftAvg, RightVal: rightAvg}
				}
			}
		}
		if best.Feature == -1 {
			break
		}
		gb.Trees = append(gb.Trees, best)
		for i := 0; i < n; i++ {
			inc := best.LeftVal
			if X[i][best.Feature] > best.Threshold {
				inc = best.RightVal
			}
			F[i] += gb.LearningRate * inc
		}
	}
	return nil
}

func (gb *GradientBoosting) PredictProba(X [][]float64) ([]float64, error) {
	if err := checkRows(X, gb.NFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(X))
	for i := range X {
		f := gb.Init
		for _, t := range gb.Trees {
			inc := t.LeftVal
			if X[i][t.Feature] > t.Threshold {
				inc = t.RightVal
			}
			f += gb.LearningRate * inc
		}
		out[i] = sigmoid(f)
	}
	return out, nil
}

func (gb *GradientBoosting) Predict(X [][]float64) ([]int, error) {
	ps, err := gb.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return labels(ps), nil
}

func gbCandidateThresholds(X [][]float64, j int, nCand int) []float64 {
	if nCand <= 0 {
		nCand = 16
	}
	n := len(X)
	vals := make([]float64, n)
	for i := 0; i < n; i++ {
		vals[i] = X[i][j]
	}
	sort.Float64s(vals)
	out := make([]float64, 0, nCand)
	for k := 1; k < nCand; k++ {
		idx := int(math.Round(float64(k) / float64(nCand) * float64(n-1)))
		if idx <= 0 || idx >= n {
			continue
		}
		thr := vals[idx]
		if len(out) == 0 || thr != out[len(out)-1] {
			out = append(out, thr)
		}
	}
	if len(out) == 0 {
		sum := 0.0
		for i := 0; i < n; i++ {
			sum += vals[i]
		}
		out = append(out, sum/float64(n))
	}
	return out
}
