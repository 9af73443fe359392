package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardfraud/internal/models"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"SM_MODEL_DIR", "SM_CHANNEL_TRAIN", "SM_CHANNEL_TEST",
		"CARDFRAUD_N_ESTIMATORS", "CARDFRAUD_MODEL_DIR", "CARDFRAUD_ALGO"} {
		t.Setenv(k, "")
	}
}

func TestLoadTrainerDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadTrainer(nil)
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.NEstimators)
	assert.Equal(t, int64(0), cfg.RandomState)
	assert.Equal(t, models.AlgoRandomForest, cfg.Algo)
	assert.Equal(t, "default", cfg.Schema)
	assert.Equal(t, "none", cfg.Rebalance)
	assert.Equal(t, 100000, cfg.RebalanceLimit)
	assert.Equal(t, StoreFile, cfg.Store)
	assert.Equal(t, "model.gob", cfg.ModelKey)
	assert.Equal(t, filepath.Join("data", "fraudTrain.csv"), cfg.TrainPath())
	assert.Equal(t, filepath.Join("data", "fraudTest.csv"), cfg.TestPath())
	assert.Nil(t, cfg.SmokeVector)
}

func TestLoadTrainerSageMakerEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SM_MODEL_DIR", "/opt/ml/model")
	t.Setenv("SM_CHANNEL_TRAIN", "/opt/ml/input/data/train")
	t.Setenv("SM_CHANNEL_TEST", "/opt/ml/input/data/test")

	cfg, err := LoadTrainer(nil)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ml/model", cfg.ModelDir)
	assert.Equal(t, "/opt/ml/input/data/train/fraudTrain.csv", cfg.TrainPath())
	assert.Equal(t, "/opt/ml/input/data/test/fraudTest.csv", cfg.TestPath())

	cfg, err = LoadTrainer([]string{"--model-dir", "/tmp/out"})
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.ModelDir, "explicit flag wins over env")
}

func TestLoadTrainerPrefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CARDFRAUD_N_ESTIMATORS", "7")
	t.Setenv("CARDFRAUD_ALGO", "gb")

	cfg, err := LoadTrainer(nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.NEstimators)
	assert.Equal(t, models.AlgoGradientBoosting, cfg.Algo)
}

func TestLoadTrainerFlags(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadTrainer([]string{
		"--n_estimators=10", "--random_state=42", "--schema=local",
		"--class-weight=balanced", "--rebalance=head", "--rebalance-limit=500",
		"--smoke", "996.31, 42.52,-78.6847", "--max-features=3", "--max-thresholds=16",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.NEstimators)
	assert.Equal(t, int64(42), cfg.RandomState)
	assert.Equal(t, "local", cfg.Schema)
	assert.Equal(t, 500, cfg.RebalanceLimit)
	assert.Equal(t, []float64{996.31, 42.52, -78.6847}, cfg.SmokeVector)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, models.ClassWeightBalanced, p.ClassWeight)
	assert.Equal(t, 10, p.NEstimators)
	assert.Equal(t, int64(42), p.RandomState)
	assert.Equal(t, 2, p.MinSamplesSplit)
	assert.Equal(t, 3, p.MaxFeatures)
	assert.Equal(t, 16, p.MaxThresholds)
}

func TestLoadTrainerInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string][]string{
		"zero estimators": {"--n_estimators=0"},
		"unknown algo":    {"--algo=xgboost"},
		"unknown schema":  {"--schema=wide"},
		"bad rebalance":   {"--rebalance=smote"},
		"zero limit":      {"--rebalance-limit=0"},
		"neg features":    {"--max-features=-1"},
		"neg thresholds":  {"--max-thresholds=-2"},
		"sqlite no path":  {"--store=sqlite"},
		"redis no addr":   {"--store=redis"},
		"key with slash":  {"--model-key=a/b"},
		"bad smoke":       {"--smoke=1,abc"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadTrainer(args)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	_, err := LoadTrainer([]string{"--no-such-flag"})
	assert.Error(t, err)
}

func TestLoadTrainerConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "trainer.yaml")
	require.NoError(t, os.WriteFile(path, []byte("algo: bagging\nn_estimators: 12\nstore: sqlite\nsqlite-path: runs.db\n"), 0o644))

	cfg, err := LoadTrainer([]string{"--config", path, "--n_estimators=3"})
	require.NoError(t, err)
	assert.Equal(t, models.AlgoBagging, cfg.Algo)
	assert.Equal(t, 3, cfg.NEstimators, "flag wins over file")
	assert.Equal(t, StoreSQLite, cfg.Store)
	assert.Equal(t, "runs.db", cfg.SQLitePath)

	_, err = LoadTrainer([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestParseVector(t *testing.T) {
	v, err := ParseVector("[1, 2.5 ,3]")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5, 3}, v)

	v, err = ParseVector("  ")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = ParseVector("1,,2")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = ParseVector("1,NaN")
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = ParseVector("-Inf,2")
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadAnalyzer(t *testing.T) {
	cfg, err := LoadAnalyzer([]string{"--points=4"})
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Points)
	assert.Equal(t, "reports", cfg.OutDir)

	p, err := cfg.Params()
	require.NoError(t, err)
	assert.Equal(t, models.ClassWeightBalanced, p.ClassWeight)

	_, err = LoadAnalyzer([]string{"--points=1"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoadServer(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadServer([]string{"--api-key=secret", "--watch=false"})
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "secret", cfg.APIKey)
	assert.False(t, cfg.Watch)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.CacheSize)

	_, err = LoadServer([]string{"--cache-size=0"})
	assert.ErrorIs(t, err, ErrInvalid)
}
