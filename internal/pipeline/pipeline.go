// Package pipeline runs one training pass: reduce, rebalance, fit, predict, evaluate, persist.
package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cardfraud/internal/data"
	"cardfraud/internal/features"
	"cardfraud/internal/metrics"
	"cardfraud/internal/models"
	"cardfraud/internal/repository"
)

var ErrInvalidConfig = errors.New("pipeline: invalid configuration")

type Config struct {
	Algo      string
	Schema    features.Schema
	Params    models.Params
	Rebalance RebalancePolicy
	ModelKey  string
	// Smoke, when set, is scored alone after evaluation. It follows Schema column order.
	Smoke []float64
}

func (c Config) Validate() error {
	if c.Params.NEstimators <= 0 {
		return fmt.Errorf("%w: n_estimators must be positive, got %d", ErrInvalidConfig, c.Params.NEstimators)
	}
	if c.Schema.Width() == 0 {
		return fmt.Errorf("%w: empty feature schema", ErrInvalidConfig)
	}
	if c.Rebalance.Kind == RebalanceHead && c.Rebalance.Limit <= 0 {
		return fmt.Errorf("%w: rebalance limit must be positive", ErrInvalidConfig)
	}
	if c.Smoke != nil && len(c.Smoke) != c.Schema.Width() {
		return fmt.Errorf("%w: smoke vector has %d values, schema %q has %d",
			ErrInvalidConfig, len(c.Smoke), c.Schema.Name, c.Schema.Width())
	}
	if _, err := models.Build(c.Algo, c.Params); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

type SmokeResult struct {
	Input       []float64
	Label       int
	Probability float64
}

type Result struct {
	RunID         string
	Train         *features.Dataset
	Test          *features.Dataset
	TrainRowsRaw  int
	Artifact      *models.Artifact
	Predictions   []int
	Probabilities []float64
	Report        *metrics.Report
	Smoke         *SmokeResult
}

type Pipeline struct {
	cfg    Config
	repo   repository.Repository
	logger *zap.Logger
}

func New(cfg Config, repo repository.Repository, logger *zap.Logger) (*Pipeline, error) {
	if cfg.ModelKey == "" {
		cfg.ModelKey = repository.DefaultKey
	}
	if cfg.Algo == "" {
		cfg.Algo = models.AlgoRandomForest
	}
	if cfg.Rebalance.Kind == "" {
		cfg.Rebalance.Kind = RebalanceNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if repo == nil {
		return nil, fmt.Errorf("%w: no model repository", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, repo: repo, logger: logger}, nil
}

func (p *Pipeline) Config() Config { return p.cfg }

// RunFiles reads both CSV files and runs the pipeline over them.
func (p *Pipeline) RunFiles(trainPath, testPath string) (*Result, error) {
	train, err := data.ReadCSV(trainPath)
	if err != nil {
		return nil, err
	}
	test, err := data.ReadCSV(testPath)
	if err != nil {
		return nil, err
	}
	return p.Run(train, test)
}

// Run executes every step in order. The model is stored last, so any failure aborts the run
// with no partial result and nothing persisted.
func (p *Pipeline) Run(trainFrame, testFrame *data.Frame) (*Result, error) {
	runID := uuid.NewString()
	log := p.logger.With(zap.String("run_id", runID))
	started := time.Now()

	train, test, err := features.ReducePair(trainFrame, testFrame, p.cfg.Schema)
	if err != nil {
		return nil, err
	}
	log.Info("datasets reduced",
		zap.String("schema", p.cfg.Schema.Name),
		zap.Int("train_rows", train.Len()),
		zap.Int("train_fraud", train.Fraud()),
		zap.Int("test_rows", test.Len()),
		zap.Int("features", train.Width()))

	rawRows := train.Len()
	train = p.cfg.Rebalance.Apply(train)
	if p.cfg.Rebalance.Kind != RebalanceNone {
		log.Info("training set rebalanced",
			zap.Stringer("policy", p.cfg.Rebalance),
			zap.Int("rows", train.Len()),
			zap.Int("fraud", train.Fraud()))
	}

	model, err := models.Build(p.cfg.Algo, p.cfg.Params)
	if err != nil {
		return nil, err
	}
	fitStart := time.Now()
	if err := model.Fit(train.X, train.Y); err != nil {
		return nil, fmt.Errorf("fit %s: %w", model.Name(), err)
	}
	log.Info("model fitted", zap.String("model", model.Name()), zap.Duration("took", time.Since(fitStart)))

	art := models.NewArtifact(p.cfg.Algo, p.cfg.Schema.Name, train.Features, p.cfg.Params, train.Len(), model)

	preds, err := model.Predict(test.X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	probs, err := model.PredictProba(test.X)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	report, err := metrics.Evaluate(test.Y, preds)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	report.AddScores(test.Y, probs)

	res := &Result{
		RunID:         runID,
		Train:         train,
		Test:          test,
		TrainRowsRaw:  rawRows,
		Artifact:      art,
		Predictions:   preds,
		Probabilities: probs,
		Report:        report,
	}

	if p.cfg.Smoke != nil {
		label, prob, err := art.PredictOne(p.cfg.Smoke)
		if err != nil {
			return nil, fmt.Errorf("smoke inference: %w", err)
		}
		res.Smoke = &SmokeResult{Input: p.cfg.Smoke, Label: label, Probability: prob}
		log.Info("smoke inference", zap.Int("label", label), zap.Float64("probability", prob))
	}

	if err := p.persist(res); err != nil {
		return nil, err
	}
	log.Info("model saved", zap.String("key", p.cfg.ModelKey))

	log.Info("run complete",
		zap.Float64("accuracy", report.Accuracy),
		zap.Float64("roc_auc", report.ROCAUC),
		zap.Duration("took", time.Since(started)))
	return res, nil
}

func (p *Pipeline) persist(res *Result) error {
	rec, ok := p.repo.(repository.RunRecorder)
	if !ok {
		if err := p.repo.Save(p.cfg.ModelKey, res.Artifact); err != nil {
			return fmt.Errorf("save model: %w", err)
		}
		return nil
	}
	fraud := res.Report.Classes[1]
	err := rec.SaveWithRun(p.cfg.ModelKey, res.Artifact, repository.RunRecord{
		ID:        res.RunID,
		Key:       p.cfg.ModelKey,
		Algo:      res.Artifact.Algo,
		TrainRows: res.Train.Len(),
		TestRows:  res.Test.Len(),
		Accuracy:  res.Report.Accuracy,
		Precision: fraud.Precision,
		Recall:    fraud.Recall,
		F1:        fraud.F1,
		TrainedAt: res.Artifact.TrainedAt,
	})
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}
