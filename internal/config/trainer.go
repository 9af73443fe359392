package config

import (
	"path/filepath"

	"github.com/spf13/pflag"

	"cardfraud/internal/models"
)

const (
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type TrainerConfig struct {
	NEstimators     int     `mapstructure:"n_estimators" validate:"gt=0"`
	RandomState     int64   `mapstructure:"random_state"`
	MaxDepth        int     `mapstructure:"max-depth" validate:"gte=0"`
	MinSamplesSplit int     `mapstructure:"min-samples-split" validate:"gte=2"`
	MaxFeatures     int     `mapstructure:"max-features" validate:"gte=0"`
	MaxThresholds   int     `mapstructure:"max-thresholds" validate:"gte=0"`
	LearningRate    float64 `mapstructure:"learning-rate" validate:"gt=0"`
	Algo            string  `mapstructure:"algo" validate:"oneof=rf bagging gb dt"`
	Schema          string  `mapstructure:"schema" validate:"oneof=default local"`
	ClassWeight     string  `mapstructure:"class-weight" validate:"oneof=none balanced"`
	Rebalance       string  `mapstructure:"rebalance" validate:"oneof=none head"`
	RebalanceLimit  int     `mapstructure:"rebalance-limit" validate:"gt=0"`

	ModelDir  string `mapstructure:"model-dir" validate:"required"`
	TrainDir  string `mapstructure:"train" validate:"required"`
	TestDir   string `mapstructure:"test" validate:"required"`
	TrainFile string `mapstructure:"train-file" validate:"required"`
	TestFile  string `mapstructure:"test-file" validate:"required"`

	Store      string `mapstructure:"store" validate:"oneof=file sqlite redis"`
	SQLitePath string `mapstructure:"sqlite-path" validate:"required_if=Store sqlite"`
	RedisAddr  string `mapstructure:"redis-addr" validate:"required_if=Store redis"`
	ModelKey   string `mapstructure:"model-key" validate:"required,excludesall=/\\"`

	ReportJSON string  `mapstructure:"report-json"`
	Smoke      string  `mapstructure:"smoke"`
	Regen      int     `mapstructure:"regen" validate:"gte=0"`
	FraudRate  float64 `mapstructure:"fraud-rate" validate:"gt=0,lt=1"`

	SmokeVector []float64 `mapstructure:"-"`
}

func (c *TrainerConfig) TrainPath() string { return filepath.Join(c.TrainDir, c.TrainFile) }
func (c *TrainerConfig) TestPath() string  { return filepath.Join(c.TestDir, c.TestFile) }

func (c *TrainerConfig) Params() (models.Params, error) {
	cw, err := models.ParseClassWeight(c.ClassWeight)
	if err != nil {
		return models.Params{}, err
	}
	return models.Params{
		NEstimators:     c.NEstimators,
		MaxDepth:        c.MaxDepth,
		MinSamplesSplit: c.MinSamplesSplit,
		MaxFeatures:     c.MaxFeatures,
		MaxThresholds:   c.MaxThresholds,
		RandomState:     c.RandomState,
		ClassWeight:     cw,
		LearningRate:    c.LearningRate,
	}, nil
}

// LoadTrainer reads the trainer flags. model-dir, train and test fall back to the
// SM_MODEL_DIR, SM_CHANNEL_TRAIN and SM_CHANNEL_TEST variables.
func LoadTrainer(args []string) (*TrainerConfig, error) {
	fs := pflag.NewFlagSet("trainer", pflag.ContinueOnError)
	fs.Int("n_estimators", 100, "number of trees in the ensemble")
	fs.Int64("random_state", 0, "seed for every random draw during fit")
	fs.Int("max-depth", 0, "maximum tree depth, 0 for unlimited (ignored by gb, which fits stumps)")
	fs.Int("min-samples-split", 2, "minimum samples needed to split a node (ignored by gb)")
	fs.Int("max-features", 0, "features tried per split by rf and dt, 0 for sqrt (rf) or all (dt); bagging always tries all")
	fs.Int("max-thresholds", 0, "candidate thresholds per feature, 0 for every boundary (gb defaults to 32)")
	fs.Float64("learning-rate", 0.1, "shrinkage for gradient boosting (gb only)")
	fs.String("algo", models.AlgoRandomForest, "rf, bagging, gb or dt")
	fs.String("schema", "default", "feature schema: default or local")
	fs.String("class-weight", string(models.ClassWeightNone), "none or balanced")
	fs.String("rebalance", "none", "none or head")
	fs.Int("rebalance-limit", 100000, "rows kept by the head rebalance policy")

	fs.String("model-dir", "model", "directory the model is written to")
	fs.String("train", "data", "directory holding the training CSV")
	fs.String("test", "data", "directory holding the test CSV")
	fs.String("train-file", "fraudTrain.csv", "training CSV file name")
	fs.String("test-file", "fraudTest.csv", "test CSV file name")

	fs.String("store", StoreFile, "model store: file, sqlite or redis")
	fs.String("sqlite-path", "", "SQLite database path for --store=sqlite")
	fs.String("redis-addr", "", "Redis address for --store=redis")
	fs.String("model-key", "model.gob", "key the model is saved under")

	fs.String("report-json", "", "also write the evaluation report as JSON to this path")
	fs.String("smoke", "", "comma separated feature vector to score after training")
	fs.Int("regen", 0, "generate this many synthetic rows per file before training")
	fs.Float64("fraud-rate", 0.05, "fraud share of generated rows")

	v, err := load(fs, args, map[string][]string{
		"model-dir": {"SM_MODEL_DIR"},
		"train":     {"SM_CHANNEL_TRAIN"},
		"test":      {"SM_CHANNEL_TEST"},
	})
	if err != nil {
		return nil, err
	}

	var cfg TrainerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := check(&cfg); err != nil {
		return nil, err
	}
	if cfg.SmokeVector, err = ParseVector(cfg.Smoke); err != nil {
		return nil, err
	}
	return &cfg, nil
}
