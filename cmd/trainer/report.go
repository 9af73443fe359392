package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"cardfraud/internal/metrics"
	"cardfraud/internal/pipeline"
)

func printReport(w io.Writer, res *pipeline.Result, location string) {
	fmt.Fprintf(w, "Train shape: (%d, %d)\n", res.Train.Len(), res.Train.Width())
	fmt.Fprintf(w, "Test shape: (%d, %d)\n", res.Test.Len(), res.Test.Width())
	fmt.Fprintf(w, "Model %s saved to %s\n", res.Artifact.Model.Name(), location)
	fmt.Fprintf(w, "Total rows in test set: %d\n", res.Report.Rows)
	fmt.Fprintf(w, "Accuracy: %.4f\n", res.Report.Accuracy)
	fmt.Fprintf(w, "ROC AUC: %.4f  PR AUC: %.4f\n", res.Report.ROCAUC, res.Report.PRAUC)
	if th := res.Report.Thresholds; th != nil {
		fmt.Fprintf(w, "Best F1 threshold: %.3f (F1 %.4f)  best accuracy threshold: %.3f (accuracy %.4f)\n",
			th.F1Threshold, th.F1, th.AccuracyThreshold, th.Accuracy)
	}
	fmt.Fprintf(w, "Confusion matrix:\n%s\n", res.Report.Confusion)
	fmt.Fprintf(w, "Classification report:\n%s", res.Report.ClassificationReport())
	if res.Smoke != nil {
		fmt.Fprintf(w, "Smoke prediction: %d (p=%.4f)\n", res.Smoke.Label, res.Smoke.Probability)
	}
}

type smokeJSON struct {
	Input       []float64 `json:"input"`
	Label       int       `json:"label"`
	Probability float64   `json:"probability"`
}

type reportJSON struct {
	RunID     string          `json:"run_id"`
	Model     string          `json:"model"`
	Algo      string          `json:"algo"`
	Schema    string          `json:"schema"`
	Features  []string        `json:"features"`
	Location  string          `json:"location"`
	TrainRows int             `json:"train_rows"`
	TestRows  int             `json:"test_rows"`
	TrainedAt time.Time       `json:"trained_at"`
	Metrics   *metrics.Report `json:"metrics"`
	Smoke     *smokeJSON      `json:"smoke,omitempty"`
}

func newReportJSON(res *pipeline.Result, location string) reportJSON {
	out := reportJSON{
		RunID:     res.RunID,
		Model:     res.Artifact.Model.Name(),
		Algo:      res.Artifact.Algo,
		Schema:    res.Artifact.Schema,
		Features:  res.Artifact.Features,
		Location:  location,
		TrainRows: res.Train.Len(),
		TestRows:  res.Test.Len(),
		TrainedAt: res.Artifact.TrainedAt,
		Metrics:   res.Report,
	}
	if res.Smoke != nil {
		out.Smoke = &smokeJSON{Input: res.Smoke.Input, Label: res.Smoke.Label, Probability: res.Smoke.Probability}
	}
	return out
}

func writeReportJSON(path string, res *pipeline.Result, location string) error {
	b, err := json.MarshalIndent(newReportJSON(res, location), "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
