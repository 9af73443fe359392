package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"cardfraud/internal/config"
	"cardfraud/internal/data"
	"cardfraud/internal/features"
	"cardfraud/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	cfg, err := config.LoadAnalyzer(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	schema, err := features.SchemaByName(cfg.Schema)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	params, err := cfg.Params()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	trainFrame, err := data.ReadCSV(cfg.TrainPath)
	if err != nil {
		logger.Fatal("failed to read training data", zap.Error(err))
	}
	testFrame, err := data.ReadCSV(cfg.TestPath)
	if err != nil {
		logger.Fatal("failed to read test data", zap.Error(err))
	}
	train, test, err := features.ReducePair(trainFrame, testFrame, schema)
	if err != nil {
		logger.Fatal("malformed input", zap.Error(err))
	}

	sizes := computeCurveSizes(train.Len(), cfg.Points, cfg.MinSize, true)
	logger.Info("computing learning curve",
		zap.String("algo", cfg.Algo),
		zap.Ints("sizes", sizes),
		zap.Int("test_rows", test.Len()))

	points, err := learningCurve(cfg.Algo, params, shuffled(train, params.RandomState), test, sizes, logger)
	if err != nil {
		logger.Fatal("learning curve failed", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		logger.Fatal("failed to create output dir", zap.Error(err))
	}
	csvPath := filepath.Join(cfg.OutDir, "learning_curve.csv")
	pngPath := filepath.Join(cfg.OutDir, "learning_curve.png")
	if err := writeCurveCSV(csvPath, points); err != nil {
		logger.Fatal("failed to write curve CSV", zap.Error(err))
	}
	if err := plotCurvePNG(pngPath, points); err != nil {
		logger.Warn("failed to write curve PNG", zap.Error(err))
	} else {
		logger.Info("learning curve written", zap.String("png", pngPath), zap.String("csv", csvPath))
	}
}
