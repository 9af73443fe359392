package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"cardfraud/internal/config"
	"cardfraud/internal/data"
	"cardfraud/internal/features"
	"cardfraud/internal/pipeline"
	"cardfraud/internal/repository"
	"cardfraud/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	cfg, err := config.LoadTrainer(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if cfg.Regen > 0 {
		if err := regenerate(cfg, logger); err != nil {
			logger.Fatal("failed to generate synthetic data", zap.Error(err))
		}
	}

	repo, location, closeRepo, err := openRepository(cfg)
	if err != nil {
		logger.Fatal("failed to open model store", zap.String("store", cfg.Store), zap.Error(err))
	}
	defer closeRepo()

	pcfg, err := pipelineConfig(cfg)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	p, err := pipeline.New(pcfg, repo, logger)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("training",
		zap.String("algo", pcfg.Algo),
		zap.Int("n_estimators", pcfg.Params.NEstimators),
		zap.Int64("random_state", pcfg.Params.RandomState),
		zap.String("train", cfg.TrainPath()),
		zap.String("test", cfg.TestPath()))
	res, err := p.RunFiles(cfg.TrainPath(), cfg.TestPath())
	if err != nil {
		logger.Fatal("training run failed", zap.Error(err))
	}

	printReport(os.Stdout, res, location)
	if cfg.ReportJSON != "" {
		if err := writeReportJSON(cfg.ReportJSON, res, location); err != nil {
			logger.Fatal("failed to write JSON report", zap.Error(err))
		}
		logger.Info("report written", zap.String("path", cfg.ReportJSON))
	}
}

func pipelineConfig(cfg *config.TrainerConfig) (pipeline.Config, error) {
	schema, err := features.SchemaByName(cfg.Schema)
	if err != nil {
		return pipeline.Config{}, err
	}
	params, err := cfg.Params()
	if err != nil {
		return pipeline.Config{}, err
	}
	policy, err := pipeline.ParseRebalance(cfg.Rebalance, cfg.RebalanceLimit)
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Algo:      cfg.Algo,
		Schema:    schema,
		Params:    params,
		Rebalance: policy,
		ModelKey:  cfg.ModelKey,
		Smoke:     cfg.SmokeVector,
	}, nil
}

// openRepository returns the configured store, a human readable location of the saved
// model and a close func.
func openRepository(cfg *config.TrainerConfig) (repository.Repository, string, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case config.StoreSQLite:
		repo, err := repository.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, "", noop, err
		}
		return repo, fmt.Sprintf("sqlite:%s#%s", cfg.SQLitePath, cfg.ModelKey), repo.Close, nil
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		return repository.NewRedisRepository(client, 0),
			fmt.Sprintf("redis://%s/model:%s", cfg.RedisAddr, cfg.ModelKey), client.Close, nil
	default:
		repo := repository.NewFileRepository(cfg.ModelDir)
		return repo, repo.Path(cfg.ModelKey), noop, nil
	}
}

func regenerate(cfg *config.TrainerConfig, logger *zap.Logger) error {
	testRows := max(cfg.Regen/4, 1)
	logger.Info("generating synthetic data",
		zap.Int("train_rows", cfg.Regen),
		zap.Int("test_rows", testRows),
		zap.Float64("fraud_rate", cfg.FraudRate))
	if err := data.GenerateSyntheticTransactions(cfg.Regen, cfg.FraudRate, cfg.RandomState, cfg.TrainPath()); err != nil {
		return err
	}
	return data.GenerateSyntheticTransactions(testRows, cfg.FraudRate, cfg.RandomState+1, cfg.TestPath())
}
