package pipeline

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"cardfraud/internal/data"
	"cardfraud/internal/features"
	"cardfraud/internal/models"
	"cardfraud/internal/repository"
	"cardfraud/internal/repository/mocks"
)

func frame(schema features.Schema, rows [][]float64, labels []int) *data.Frame {
	header := append([]string{""}, schema.Columns...)
	header = append(header, data.LabelColumn)
	fr := &data.Frame{Header: header}
	for i, r := range rows {
		rec := []string{strconv.Itoa(i)}
		for _, v := range r {
			rec = append(rec, strconv.FormatFloat(v, 'f', -1, 64))
		}
		rec = append(rec, strconv.Itoa(labels[i]))
		fr.Rows = append(fr.Rows, rec)
	}
	return fr
}

// ten training rows (3 fraud) and four test rows (1 fraud) on the default schema
func smallFrames() (*data.Frame, *data.Frame) {
	train := frame(features.Default, [][]float64{
		{4.1e15, 12.5, 40.1, -75.2, 40.2, -75.1},
		{4.2e15, 1050.0, 36.0, -80.0, 44.5, -70.3},
		{4.3e15, 8.9, 41.0, -74.0, 41.1, -74.1},
		{4.4e15, 22.0, 39.5, -76.0, 39.6, -76.2},
		{4.5e15, 980.2, 33.3, -85.0, 42.0, -72.0},
		{4.6e15, 15.3, 40.7, -73.9, 40.6, -73.8},
		{4.7e15, 30.0, 42.0, -71.0, 42.1, -71.1},
		{4.8e15, 1200.0, 35.0, -90.0, 45.0, -68.0},
		{4.9e15, 5.5, 38.0, -77.0, 38.1, -77.1},
		{5.0e15, 45.0, 37.0, -79.0, 37.2, -79.1},
	}, []int{0, 1, 0, 0, 1, 0, 0, 1, 0, 0})
	test := frame(features.Default, [][]float64{
		{4.15e15, 11.0, 40.0, -75.0, 40.1, -75.0},
		{4.25e15, 1100.0, 34.0, -88.0, 44.0, -69.0},
		{4.35e15, 19.0, 41.5, -74.5, 41.4, -74.6},
		{4.45e15, 27.0, 39.0, -76.5, 39.2, -76.4},
	}, []int{0, 1, 0, 0})
	return train, test
}

func baseConfig() Config {
	return Config{
		Algo:   models.AlgoRandomForest,
		Schema: features.Default,
		Params: models.Params{NEstimators: 10, RandomState: 0},
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	p, err := New(baseConfig(), repository.NewFileRepository(dir), zap.NewNop())
	require.NoError(t, err)

	train, test := smallFrames()
	res, err := p.Run(train, test)
	require.NoError(t, err)

	require.Len(t, res.Predictions, 4)
	assert.Equal(t, features.Default.Columns, res.Train.Features)
	assert.Equal(t, res.Train.Features, res.Test.Features)
	assert.Equal(t, 10, res.Train.Len())
	assert.Len(t, res.Train.X, res.Train.Len())

	cm := res.Report.Confusion
	assert.Equal(t, 4, cm.Total())
	assert.InDelta(t, float64(cm.TP()+cm.TN())/4, res.Report.Accuracy, 1e-12)
	assert.GreaterOrEqual(t, res.Report.Accuracy, 0.0)
	assert.LessOrEqual(t, res.Report.Accuracy, 1.0)
	assert.NotEmpty(t, res.RunID)
	assert.Nil(t, res.Smoke)

	loaded, err := repository.LoadFromDir(dir)
	require.NoError(t, err)
	again, err := loaded.Model.Predict(res.Test.X)
	require.NoError(t, err)
	assert.Equal(t, res.Predictions, again)
	assert.Equal(t, models.AlgoRandomForest, loaded.Algo)
	assert.Equal(t, "default", loaded.Schema)
}

func TestRunIsDeterministic(t *testing.T) {
	run := func() *Result {
		cfg := baseConfig()
		cfg.Params.RandomState = 7
		cfg.Params.ClassWeight = models.ClassWeightBalanced
		p, err := New(cfg, repository.NewFileRepository(t.TempDir()), nil)
		require.NoError(t, err)
		train, test := smallFrames()
		res, err := p.Run(train, test)
		require.NoError(t, err)
		return res
	}
	a, b := run(), run()
	assert.Equal(t, a.Predictions, b.Predictions)
	assert.Equal(t, a.Probabilities, b.Probabilities)
	assert.Equal(t, a.Report.Confusion, b.Report.Confusion)
	assert.Equal(t, a.Report.Accuracy, b.Report.Accuracy)
}

func TestRebalanceHead(t *testing.T) {
	y := []int{0, 1, 0, 0, 1, 0, 1, 0, 0, 1, 0, 1, 0, 0, 0}
	X := make([][]float64, len(y))
	for i := range X {
		X[i] = []float64{float64(i)}
	}
	d := &features.Dataset{Features: []string{"i"}, X: X, Y: y}

	for _, n := range []int{1, 3, 5, 8, 15, 100} {
		t.Run(fmt.Sprintf("limit=%d", n), func(t *testing.T) {
			pol, err := ParseRebalance("head", n)
			require.NoError(t, err)
			got := pol.Apply(d)

			assert.Equal(t, min(n, len(y)), got.Len())
			assert.Len(t, got.X, got.Len())
			assert.Equal(t, min(n, 5), got.Fraud())
			seenLegit := false
			for i, label := range got.Y {
				if label == 0 {
					seenLegit = true
				}
				assert.False(t, label == 1 && seenLegit, "fraud after legit at %d", i)
				assert.Equal(t, label, y[int(got.X[i][0])], "row and label moved together")
			}
		})
	}

	pol, err := ParseRebalance("head", 7)
	require.NoError(t, err)
	got := pol.Apply(d)
	var order []float64
	for _, r := range got.X {
		order = append(order, r[0])
	}
	assert.Equal(t, []float64{1, 4, 6, 9, 11, 0, 2}, order, "stable within each class")

	none, err := ParseRebalance("", 0)
	require.NoError(t, err)
	assert.Same(t, d, none.Apply(d))

	_, err = ParseRebalance("head", 0)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = ParseRebalance("smote", 10)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunWithRebalance(t *testing.T) {
	cfg := baseConfig()
	cfg.Rebalance = RebalancePolicy{Kind: RebalanceHead, Limit: 5}
	p, err := New(cfg, repository.NewFileRepository(t.TempDir()), zap.NewNop())
	require.NoError(t, err)

	train, test := smallFrames()
	res, err := p.Run(train, test)
	require.NoError(t, err)
	assert.Equal(t, 10, res.TrainRowsRaw)
	assert.Equal(t, 5, res.Train.Len())
	assert.Equal(t, 3, res.Train.Fraud())
	assert.Equal(t, 5, res.Artifact.TrainRows)
}

func TestSmokeInferenceLocalSchema(t *testing.T) {
	rows := [][]float64{
		{12.5, 40.1, -75.2, 1500, 1371816865, 40.2, -75.1},
		{1050.0, 36.0, -80.0, 300, 1371816900, 44.5, -70.3},
		{8.9, 41.0, -74.0, 88000, 1371817000, 41.1, -74.1},
		{980.2, 33.3, -85.0, 2500, 1371817100, 42.0, -72.0},
		{15.3, 40.7, -73.9, 120000, 1371817200, 40.6, -73.8},
	}
	labels := []int{0, 1, 0, 1, 0}
	train := frame(features.Local, rows, labels)
	test := frame(features.Local, rows[:2], labels[:2])

	cfg := baseConfig()
	cfg.Schema = features.Local
	cfg.Smoke = []float64{996.31, 42.5200, -78.6847, 7728, 1372113010, 43.110777, -78.685005}
	p, err := New(cfg, repository.NewFileRepository(t.TempDir()), zap.NewNop())
	require.NoError(t, err)

	res, err := p.Run(train, test)
	require.NoError(t, err)
	require.NotNil(t, res.Smoke)
	assert.Contains(t, []int{0, 1}, res.Smoke.Label)
	assert.GreaterOrEqual(t, res.Smoke.Probability, 0.0)
	assert.LessOrEqual(t, res.Smoke.Probability, 1.0)
}

func TestNewRejectsBadConfig(t *testing.T) {
	repo := repository.NewFileRepository(t.TempDir())
	cases := map[string]func(*Config){
		"zero trees":   func(c *Config) { c.Params.NEstimators = 0 },
		"unknown algo": func(c *Config) { c.Algo = "xgboost" },
		"no schema":    func(c *Config) { c.Schema = features.Schema{} },
		"zero limit":   func(c *Config) { c.Rebalance = RebalancePolicy{Kind: RebalanceHead} },
		"smoke width":  func(c *Config) { c.Smoke = []float64{1, 2, 3} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			mutate(&cfg)
			_, err := New(cfg, repo, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := New(baseConfig(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	p, err := New(Config{Schema: features.Default, Params: models.Params{NEstimators: 1}}, repo, nil)
	require.NoError(t, err)
	assert.Equal(t, repository.DefaultKey, p.Config().ModelKey)
	assert.Equal(t, models.AlgoRandomForest, p.Config().Algo)
}

func TestRunInputErrors(t *testing.T) {
	p, err := New(baseConfig(), repository.NewFileRepository(t.TempDir()), zap.NewNop())
	require.NoError(t, err)

	train, test := smallFrames()
	test.Header[2] = "amount"
	_, err = p.Run(train, test)
	assert.ErrorIs(t, err, features.ErrMissingColumn)

	train, test = smallFrames()
	train.Rows[0][len(train.Rows[0])-1] = "2"
	_, err = p.Run(train, test)
	assert.ErrorIs(t, err, features.ErrNonBinaryLabel)

	_, err = p.RunFiles(filepath.Join(t.TempDir(), "nope.csv"), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestRunAbortsWhenSaveFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	diskFull := errors.New("disk full")
	repo.EXPECT().Save("model.gob", gomock.Any()).Return(diskFull)

	p, err := New(baseConfig(), repo, zap.NewNop())
	require.NoError(t, err)
	train, test := smallFrames()
	res, err := p.Run(train, test)
	assert.ErrorIs(t, err, diskFull)
	assert.Nil(t, res)
}

func TestRunSavesNothingWhenSmokeFails(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	repo.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)

	cfg := baseConfig()
	cfg.Smoke = []float64{1, 2, 3, 4, 5, math.NaN()}
	p, err := New(cfg, repo, zap.NewNop())
	require.NoError(t, err)
	train, test := smallFrames()
	res, err := p.Run(train, test)
	assert.Error(t, err)
	assert.Nil(t, res)
}

type recordingRepo struct {
	*mocks.MockRepository
	*mocks.MockRunRecorder
}

func TestRunRecordsTrainingLog(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := recordingRepo{mocks.NewMockRepository(ctrl), mocks.NewMockRunRecorder(ctrl)}

	repo.MockRepository.EXPECT().Save(gomock.Any(), gomock.Any()).Times(0)
	var saved *models.Artifact
	var rec repository.RunRecord
	repo.MockRunRecorder.EXPECT().SaveWithRun("candidate", gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ string, a *models.Artifact, r repository.RunRecord) error {
			saved, rec = a, r
			return nil
		})

	cfg := baseConfig()
	cfg.ModelKey = "candidate"
	p, err := New(cfg, repo, zap.NewNop())
	require.NoError(t, err)
	train, test := smallFrames()
	res, err := p.Run(train, test)
	require.NoError(t, err)

	assert.Same(t, saved, res.Artifact)
	assert.Equal(t, res.RunID, rec.ID)
	assert.Equal(t, "candidate", rec.Key)
	assert.Equal(t, 10, rec.TrainRows)
	assert.Equal(t, 4, rec.TestRows)
	assert.Equal(t, res.Report.Accuracy, rec.Accuracy)
}

func TestRunPropagatesRecordFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := recordingRepo{mocks.NewMockRepository(ctrl), mocks.NewMockRunRecorder(ctrl)}
	locked := errors.New("locked")
	repo.MockRunRecorder.EXPECT().SaveWithRun(gomock.Any(), gomock.Any(), gomock.Any()).Return(locked)

	p, err := New(baseConfig(), repo, zap.NewNop())
	require.NoError(t, err)
	train, test := smallFrames()
	res, err := p.Run(train, test)
	assert.ErrorIs(t, err, locked)
	assert.Nil(t, res)
}
