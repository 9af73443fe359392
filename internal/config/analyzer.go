package config

import (
	"github.com/spf13/pflag"

	"cardfraud/internal/models"
)

type AnalyzerConfig struct {
	TrainPath   string `mapstructure:"train-path" validate:"required"`
	TestPath    string `mapstructure:"test-path" validate:"required"`
	OutDir      string `mapstructure:"out-dir" validate:"required"`
	Algo        string `mapstructure:"algo" validate:"oneof=rf bagging gb dt"`
	Schema      string `mapstructure:"schema" validate:"oneof=default local"`
	ClassWeight string `mapstructure:"class-weight" validate:"oneof=none balanced"`
	NEstimators int    `mapstructure:"n_estimators" validate:"gt=0"`
	RandomState int64  `mapstructure:"random_state"`
	MaxDepth    int    `mapstructure:"max-depth" validate:"gte=0"`
	Points      int    `mapstructure:"points" validate:"gte=2"`
	MinSize     int    `mapstructure:"min-size" validate:"gt=0"`
}

func (c *AnalyzerConfig) Params() (models.Params, error) {
	cw, err := models.ParseClassWeight(c.ClassWeight)
	if err != nil {
		return models.Params{}, err
	}
	return models.Params{
		NEstimators: c.NEstimators,
		MaxDepth:    c.MaxDepth,
		RandomState: c.RandomState,
		ClassWeight: cw,
	}, nil
}

func LoadAnalyzer(args []string) (*AnalyzerConfig, error) {
	fs := pflag.NewFlagSet("analyzer", pflag.ContinueOnError)
	fs.String("train-path", "data/fraudTrain.csv", "training CSV")
	fs.String("test-path", "data/fraudTest.csv", "test CSV")
	fs.String("out-dir", "reports", "directory for the learning curve CSV and PNG")
	fs.String("algo", models.AlgoRandomForest, "rf, bagging, gb or dt")
	fs.String("schema", "default", "feature schema: default or local")
	fs.String("class-weight", string(models.ClassWeightBalanced), "none or balanced")
	fs.Int("n_estimators", 50, "number of trees per fit")
	fs.Int64("random_state", 0, "seed for every random draw during fit")
	fs.Int("max-depth", 12, "maximum tree depth, 0 for unlimited")
	fs.Int("points", 8, "number of training sizes on the curve")
	fs.Int("min-size", 200, "smallest training size on the curve")

	v, err := load(fs, args, nil)
	if err != nil {
		return nil, err
	}
	var cfg AnalyzerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := check(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
