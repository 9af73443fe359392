package models

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"time"
)

const ArtifactVersion = 1

var ErrBadArtifact = errors.New("models: unreadable model artifact")

func init() {
	gob.Register(&RandomForest{})
	gob.Register(&Bagging{})
	gob.Register(&GradientBoosting{})
	gob.Register(&DecisionTree{})
}

// Artifact is what the trainer persists and the inference side loads back:
// the fitted model plus enough metadata to rebuild its input rows.
type Artifact struct {
	Version   int
	Algo      string
	Schema    string
	Features  []string
	Params    Params
	TrainRows int
	TrainedAt time.Time
	Model     Model
}

func NewArtifact(algo, schema string, features []string, p Params, rows int, m Model) *Artifact {
	return &Artifact{
		Version:   ArtifactVersion,
		Algo:      algo,
		Schema:    schema,
		Features:  features,
		Params:    p,
		TrainRows: rows,
		TrainedAt: time.Now().UTC(),
		Model:     m,
	}
}

func (a *Artifact) Encode(w io.Writer) error {
	return gob.NewEncoder(w).Encode(a)
}

func DecodeArtifact(r io.Reader) (*Artifact, error) {
	var a Artifact
	if err := gob.NewDecoder(r).Decode(&a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if a.Version != ArtifactVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrBadArtifact, a.Version, ArtifactVersion)
	}
	if a.Model == nil || a.Model.NumFeatures() != len(a.Features) {
		return nil, fmt.Errorf("%w: model does not match its feature list", ErrBadArtifact)
	}
	return &a, nil
}

// PredictOne scores a single row laid out in a.Features order.
func (a *Artifact) PredictOne(x []float64) (int, float64, error) {
	ps, err := a.Model.PredictProba([][]float64{x})
	if err != nil {
		return 0, 0, err
	}
	return Label(ps[0]), ps[0], nil
}
