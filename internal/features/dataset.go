package features

import "sort"

// Dataset is a feature matrix with its label vector. Row i of X belongs to Y[i];
// every reordering goes through Subset so the two never drift apart.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []int
}

func (d *Dataset) Len() int { return len(d.Y) }

func (d *Dataset) Width() int { return len(d.Features) }

func (d *Dataset) Fraud() int {
	n := 0
	for _, v := range d.Y {
		n += v
	}
	return n
}

func (d *Dataset) Subset(idx []int) *Dataset {
	out := &Dataset{Features: d.Features, X: make([][]float64, len(idx)), Y: make([]int, len(idx))}
	for i, j := range idx {
		out.X[i] = d.X[j]
		out.Y[i] = d.Y[j]
	}
	return out
}

func (d *Dataset) Head(n int) *Dataset {
	if n > d.Len() {
		n = d.Len()
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return d.Subset(idx)
}

// SortByLabelDesc stably moves fraud rows ahead of legitimate ones.
func (d *Dataset) SortByLabelDesc() *Dataset {
	idx := make([]int, d.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return d.Y[idx[a]] > d.Y[idx[b]] })
	return d.Subset(idx)
}
