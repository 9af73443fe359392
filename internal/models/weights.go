package models

import (
	"fmt"
	"strings"
)

type ClassWeight string

const (
	ClassWeightNone     ClassWeight = "none"
	ClassWeightBalanced ClassWeight = "balanced"
)

func ParseClassWeight(s string) (ClassWeight, error) {
	switch ClassWeight(strings.ToLower(s)) {
	case "", ClassWeightNone:
		return ClassWeightNone, nil
	case ClassWeightBalanced:
		return ClassWeightBalanced, nil
	}
	return "", fmt.Errorf("models: unknown class weight %q", s)
}

// SampleWeights gives every row the weight of its class. Balanced weighting is
// n / (2 * n_class), so both classes carry the same total mass.
func SampleWeights(y []int, cw ClassWeight) []float64 {
	w := make([]float64, len(y))
	if cw != ClassWeightBalanced {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	var counts [2]int
	for _, v := range y {
		counts[v]++
	}
	var cls [2]float64
	for c := range cls {
		if counts[c] > 0 {
			cls[c] = float64(len(y)) / (2 * float64(counts[c]))
		}
	}
	for i, v := range y {
		w[i] = cls[v]
	}
	return w
}
