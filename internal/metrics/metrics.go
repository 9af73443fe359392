package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	ErrLengthMismatch = errors.New("metrics: true and predicted labels differ in length")
	ErrNoRows         = errors.New("metrics: nothing to evaluate")
	ErrNonBinary      = errors.New("metrics: label is not 0/1")
)

// Confusion is indexed [true class][predicted class], 0 legitimate and 1 fraud.
type Confusion [2][2]int

func (c Confusion) TN() int    { return c[0][0] }
func (c Confusion) FP() int    { return c[0][1] }
func (c Confusion) FN() int    { return c[1][0] }
func (c Confusion) TP() int    { return c[1][1] }
func (c Confusion) Total() int { return c[0][0] + c[0][1] + c[1][0] + c[1][1] }

func (c Confusion) String() string {
	return fmt.Sprintf("[[%d %d]\n [%d %d]]", c[0][0], c[0][1], c[1][0], c[1][1])
}

type ClassStats struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

type Report struct {
	Rows        int            `json:"rows"`
	Accuracy    float64        `json:"accuracy"`
	Confusion   Confusion      `json:"confusion_matrix"`
	Classes     [2]ClassStats  `json:"classes"`
	MacroAvg    ClassStats     `json:"macro_avg"`
	WeightedAvg ClassStats     `json:"weighted_avg"`
	ROCAUC      float64        `json:"roc_auc,omitempty"`
	PRAUC       float64        `json:"pr_auc,omitempty"`
	Thresholds  *ThresholdScan `json:"thresholds,omitempty"`
}

func Evaluate(yTrue, yPred []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrLengthMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, ErrNoRows
	}
	var cm Confusion
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t > 1 || p < 0 || p > 1 {
			return nil, fmt.Errorf("%w: row %d true=%d pred=%d", ErrNonBinary, i, t, p)
		}
		cm[t][p]++
	}

	r := &Report{Rows: len(yTrue), Confusion: cm}
	r.Accuracy = float64(cm.TN()+cm.TP()) / float64(r.Rows)
	for c := 0; c < 2; c++ {
		tp := cm[c][c]
		predicted := cm[0][c] + cm[1][c]
		actual := cm[c][0] + cm[c][1]
		r.Classes[c] = stats(tp, predicted, actual)
	}
	for _, s := range r.Classes {
		r.MacroAvg.Precision += s.Precision / 2
		r.MacroAvg.Recall += s.Recall / 2
		r.MacroAvg.F1 += s.F1 / 2
		w := float64(s.Support) / float64(r.Rows)
		r.WeightedAvg.Precision += s.Precision * w
		r.WeightedAvg.Recall += s.Recall * w
		r.WeightedAvg.F1 += s.F1 * w
	}
	r.MacroAvg.Support = r.Rows
	r.WeightedAvg.Support = r.Rows
	return r, nil
}

func stats(tp, predicted, actual int) ClassStats {
	s := ClassStats{Support: actual}
	if predicted > 0 {
		s.Precision = float64(tp) / float64(predicted)
	}
	if actual > 0 {
		s.Recall = float64(tp) / float64(actual)
	}
	if s.Precision+s.Recall > 0 {
		s.F1 = 2 * s.Precision * s.Recall / (s.Precision + s.Recall)
	}
	return s
}

// AddScores fills the ranking metrics and the threshold scan from fraud probabilities.
func (r *Report) AddScores(yTrue []int, ps []float64) {
	r.ROCAUC = ROCAUC(yTrue, ps)
	r.PRAUC = PRAUC(yTrue, ps)
	scan := ScanThresholds(yTrue, ps)
	r.Thresholds = &scan
}

// ClassificationReport renders per-class precision/recall/F1 as an aligned text table.
func (r *Report) ClassificationReport() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%14s %10s %10s %10s %10s\n\n", "", "precision", "recall", "f1-score", "support")
	for c, s := range r.Classes {
		fmt.Fprintf(&b, "%14d %10.2f %10.2f %10.2f %10d\n", c, s.Precision, s.Recall, s.F1, s.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%14s %10s %10s %10.2f %10d\n", "accuracy", "", "", r.Accuracy, r.Rows)
	fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.MacroAvg.Support)
	fmt.Fprintf(&b, "%14s %10.2f %10.2f %10.2f %10d\n", "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.WeightedAvg.Support)
	return b.String()
}

type scored struct {
	s float64
	y int
}

func rank(y []int, ps []float64) []scored {
	pairs := make([]scored, len(y))
	for i := range y {
		pairs[i] = scored{ps[i], y[i]}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].s > pairs[j].s })
	return pairs
}

// ROCAUC is the trapezoidal area under the ROC curve; 0 when a class is absent.
func ROCAUC(y []int, ps []float64) float64 {
	pairs := rank(y, ps)
	var pos, neg int
	for _, p := range pairs {
		if p.y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return 0
	}
	tp, fp := 0, 0
	prevS := math.Inf(1)
	var auc, prevTPR, prevFPR float64
	for _, p := range pairs {
		if p.s != prevS {
			tpr := float64(tp) / float64(pos)
			fpr := float64(fp) / float64(neg)
			auc += (fpr - prevFPR) * (tpr + prevTPR) / 2.0
			prevTPR, prevFPR = tpr, fpr
			prevS = p.s
		}
		if p.y == 1 {
			tp++
		} else {
			fp++
		}
	}
	tpr := float64(tp) / float64(pos)
	fpr := float64(fp) / float64(neg)
	auc += (fpr - prevFPR) * (tpr + prevTPR) / 2.0
	return auc
}

func PRAUC(y []int, ps []float64) float64 {
	pairs := rank(y, ps)
	var tp, fp, fn int
	for _, p := range pairs {
		if p.y == 1 {
			fn++
		}
	}
	var prevRec, auc float64
	for _, p := range pairs {
		if p.y == 1 {
			tp++
			fn--
		} else {
			fp++
		}
		var prec, rec float64
		if tp+fp > 0 {
			prec = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			rec = float64(tp) / float64(tp+fn)
		}
		auc += (rec - prevRec) * prec
		prevRec = rec
	}
	return auc
}

// ThresholdScan holds the best cut-offs found when fraud is called at score >= threshold.
type ThresholdScan struct {
	F1Threshold       float64 `json:"f1_threshold"`
	F1                float64 `json:"f1"`
	AccuracyThreshold float64 `json:"accuracy_threshold"`
	Accuracy          float64 `json:"accuracy"`
}

const thresholdSteps = 200

// ScanThresholds tries evenly spaced cut-offs from 0 to 1 and keeps the first one
// maximizing fraud-class F1 and the first one maximizing accuracy.
func ScanThresholds(y []int, ps []float64) ThresholdScan {
	if len(y) == 0 || len(y) != len(ps) {
		return ThresholdScan{F1Threshold: 0.5, AccuracyThreshold: 0.5}
	}
	scan := ThresholdScan{F1: -1, Accuracy: -1}
	for i := 0; i <= thresholdSteps; i++ {
		t := float64(i) / thresholdSteps
		cm := confusionAt(y, ps, t)
		if f1 := stats(cm.TP(), cm.TP()+cm.FP(), cm.TP()+cm.FN()).F1; f1 > scan.F1 {
			scan.F1, scan.F1Threshold = f1, t
		}
		if acc := float64(cm.TP()+cm.TN()) / float64(cm.Total()); acc > scan.Accuracy {
			scan.Accuracy, scan.AccuracyThreshold = acc, t
		}
	}
	return scan
}

func confusionAt(y []int, ps []float64, thr float64) Confusion {
	var cm Confusion
	for i := range y {
		truth, pred := 0, 0
		if y[i] == 1 {
			truth = 1
		}
		if ps[i] >= thr {
			pred = 1
		}
		cm[truth][pred]++
	}
	return cm
}
