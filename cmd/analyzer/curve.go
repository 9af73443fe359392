package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"cardfraud/internal/features"
	"cardfraud/internal/metrics"
	"cardfraud/internal/models"
)

type curvePoint struct {
	Size     int
	TrainAcc float64
	TestAcc  float64
	TrainF1  float64
	TestF1   float64
	TrainROC float64
	TestROC  float64
	TrainPR  float64
	TestPR   float64
}

// shuffled returns a seeded permutation of d so prefixes are representative samples.
func shuffled(d *features.Dataset, seed int64) *features.Dataset {
	return d.Subset(rand.New(rand.NewSource(seed)).Perm(d.Len()))
}

func learningCurve(algo string, p models.Params, train, test *features.Dataset, sizes []int, logger *zap.Logger) ([]curvePoint, error) {
	out := make([]curvePoint, 0, len(sizes))
	for _, s := range sizes {
		sub := train.Head(s)
		m, err := models.Build(algo, p)
		if err != nil {
			return nil, err
		}
		if err := m.Fit(sub.X, sub.Y); err != nil {
			return nil, fmt.Errorf("fit at size %d: %w", s, err)
		}
		pt := curvePoint{Size: s}
		if pt.TrainAcc, pt.TrainF1, pt.TrainROC, pt.TrainPR, err = score(m, sub); err != nil {
			return nil, err
		}
		if pt.TestAcc, pt.TestF1, pt.TestROC, pt.TestPR, err = score(m, test); err != nil {
			return nil, err
		}
		logger.Info("curve point",
			zap.String("model", m.Name()),
			zap.Int("size", s),
			zap.Float64("train_acc", pt.TrainAcc),
			zap.Float64("test_acc", pt.TestAcc),
			zap.Float64("test_f1", pt.TestF1))
		out = append(out, pt)
	}
	return out, nil
}

func score(m models.Model, d *features.Dataset) (acc, f1, roc, pr float64, err error) {
	preds, err := m.Predict(d.X)
	if err != nil {
		return
	}
	ps, err := m.PredictProba(d.X)
	if err != nil {
		return
	}
	rep, err := metrics.Evaluate(d.Y, preds)
	if err != nil {
		return
	}
	return rep.Accuracy, rep.Classes[1].F1, metrics.ROCAUC(d.Y, ps), metrics.PRAUC(d.Y, ps), nil
}

func computeCurveSizes(totalTrain, points, min int, useLog bool) []int {
	if totalTrain <= 0 {
		return nil
	}
	if points <= 1 {
		points = 2
	}
	if min < 10 {
		min = 10
	}
	if min > totalTrain {
		min = int(math.Max(1, float64(totalTrain)/2))
	}
	sizes := make([]int, 0, points)
	if useLog {
		ratio := math.Pow(float64(totalTrain)/float64(min), 1.0/float64(points-1))
		for i := 0; i < points; i++ {
			sizes = append(sizes, int(math.Round(float64(min)*math.Pow(ratio, float64(i)))))
		}
	} else {
		step := float64(totalTrain-min) / float64(points-1)
		for i := 0; i < points; i++ {
			sizes = append(sizes, int(math.Round(float64(min)+float64(i)*step)))
		}
	}
	cleaned := make([]int, 0, len(sizes))
	last := 0
	for _, s := range sizes {
		if s <= last {
			s = last + 1
		}
		if s > totalTrain {
			s = totalTrain
		}
		if s != last {
			cleaned = append(cleaned, s)
			last = s
		}
	}
	cleaned[len(cleaned)-1] = totalTrain
	return cleaned
}

func writeCurveCSV(path string, points []curvePoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"size", "train_acc", "test_acc", "train_f1", "test_f1", "train_roc_auc", "test_roc_auc", "train_pr_auc", "test_pr_auc"}); err != nil {
		return err
	}
	f6 := func(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }
	for _, p := range points {
		rec := []string{strconv.Itoa(p.Size), f6(p.TrainAcc), f6(p.TestAcc), f6(p.TrainF1), f6(p.TestF1),
			f6(p.TrainROC), f6(p.TestROC), f6(p.TrainPR), f6(p.TestPR)}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func plotCurvePNG(path string, points []curvePoint) error {
	p := plot.New()
	p.Title.Text = "Learning curve"
	p.X.Label.Text = "Training rows"
	p.Y.Label.Text = "Score"
	p.Y.Min = 0
	p.Y.Max = 1

	series := func(get func(curvePoint) float64) plotter.XYs {
		pts := make(plotter.XYs, len(points))
		for i, cp := range points {
			pts[i].X = float64(cp.Size)
			pts[i].Y = get(cp)
		}
		return pts
	}
	err := plotutil.AddLinePoints(p,
		"Train (acc)", series(func(c curvePoint) float64 { return c.TrainAcc }),
		"Test (acc)", series(func(c curvePoint) float64 { return c.TestAcc }),
		"Train (F1)", series(func(c curvePoint) float64 { return c.TrainF1 }),
		"Test (F1)", series(func(c curvePoint) float64 { return c.TestF1 }),
		"Test (ROC AUC)", series(func(c curvePoint) float64 { return c.TestROC }))
	if err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
