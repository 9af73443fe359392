//go:generate mockgen -destination=mocks/repository.go -package=mocks cardfraud/internal/repository Repository,RunRecorder

// Package repository stores fitted model artifacts under string keys.
package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"cardfraud/internal/models"
)

const DefaultKey = "model.gob"

var (
	ErrNotFound   = errors.New("repository: model not found")
	ErrInvalidKey = errors.New("repository: invalid key")
)

type Repository interface {
	Save(key string, a *models.Artifact) error
	Load(key string) (*models.Artifact, error)
}

// RunRecord summarizes one training run for stores that keep a history.
type RunRecord struct {
	ID        string
	Key       string
	Algo      string
	TrainRows int
	TestRows  int
	Accuracy  float64
	Precision float64
	Recall    float64
	F1        float64
	TrainedAt time.Time
}

// RunRecorder is implemented by repositories that log training runs next to the models.
// SaveWithRun stores the artifact and its run record together or not at all.
type RunRecorder interface {
	SaveWithRun(key string, a *models.Artifact, r RunRecord) error
}

func checkKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
