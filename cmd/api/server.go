package main

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"go.uber.org/zap"

	"cardfraud/internal/data"
	"cardfraud/internal/features"
	"cardfraud/internal/models"
	"cardfraud/internal/repository"
)

const maxBatch = 10000

type server struct {
	repo   repository.Repository
	key    string
	apiKey string
	logger *zap.Logger
}

func newRouter(s *server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.logger))

	r.GET("/health", s.handleHealth)

	api := r.Group("/")
	api.Use(apiKeyMiddleware(s.apiKey))
	api.GET("/model", s.handleModel)
	api.POST("/predict", s.handlePredict)
	api.POST("/batch", s.handleBatch)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

func apiKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}

// artifact loads the served model, answering the request itself when it cannot.
func (s *server) artifact(c *gin.Context) (*models.Artifact, bool) {
	art, err := s.repo.Load(s.key)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrNotFound) {
			status = http.StatusServiceUnavailable
		}
		s.logger.Warn("model unavailable", zap.String("key", s.key), zap.Error(err))
		c.AbortWithStatusJSON(status, gin.H{"error": "model unavailable"})
		return nil, false
	}
	return art, true
}

func (s *server) handleHealth(c *gin.Context) {
	_, err := s.repo.Load(s.key)
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model_loaded": err == nil})
}

func (s *server) handleModel(c *gin.Context) {
	art, ok := s.artifact(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"key":        s.key,
		"model":      art.Model.Name(),
		"algo":       art.Algo,
		"schema":     art.Schema,
		"features":   art.Features,
		"train_rows": art.TrainRows,
		"trained_at": art.TrainedAt,
		"params": gin.H{
			"n_estimators":      art.Params.NEstimators,
			"random_state":      art.Params.RandomState,
			"max_depth":         art.Params.MaxDepth,
			"min_samples_split": art.Params.MinSamplesSplit,
			"max_features":      art.Params.MaxFeatures,
			"max_thresholds":    art.Params.MaxThresholds,
			"learning_rate":     art.Params.LearningRate,
			"class_weight":      art.Params.ClassWeight,
		},
	})
}

type prediction struct {
	TransNum string  `json:"trans_num,omitempty"`
	Score    float64 `json:"score"`
	Label    int     `json:"label"`
	Risk     string  `json:"risk"`
}

// record is one request item: typed for the fields echoed back, raw for the
// feature columns so absent ones can be told apart from zeros.
type record struct {
	tx  data.Transaction
	raw map[string]any
}

func (s *server) handlePredict(c *gin.Context) {
	var rec record
	if err := c.ShouldBindBodyWith(&rec.tx, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := c.ShouldBindBodyWith(&rec.raw, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	art, ok := s.artifact(c)
	if !ok {
		return
	}
	out, err := score(art, []record{rec})
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trans_num": out[0].TransNum,
		"score":     out[0].Score,
		"label":     out[0].Label,
		"risk":      out[0].Risk,
		"model":     art.Model.Name(),
	})
}

func (s *server) handleBatch(c *gin.Context) {
	var txs []data.Transaction
	if err := c.ShouldBindBodyWith(&txs, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(txs) > maxBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "batch too large", "max": maxBatch})
		return
	}
	var raws []map[string]any
	if err := c.ShouldBindBodyWith(&raws, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	items := make([]record, len(txs))
	for i := range txs {
		items[i] = record{tx: txs[i], raw: raws[i]}
	}
	art, ok := s.artifact(c)
	if !ok {
		return
	}
	out, err := score(art, items)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": art.Model.Name(), "items": out})
}

// score lays each record out in the artifact's feature order and runs the model once.
func score(art *models.Artifact, recs []record) ([]prediction, error) {
	if len(recs) == 0 {
		return []prediction{}, nil
	}
	schema := features.Schema{Name: art.Schema, Columns: art.Features}
	X := make([][]float64, len(recs))
	for i, rec := range recs {
		v, err := features.Vectorize(rec.raw, schema)
		if err != nil {
			if len(recs) > 1 {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			return nil, err
		}
		X[i] = v
	}
	ps, err := art.Model.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]prediction, len(recs))
	for i, p := range ps {
		out[i] = prediction{TransNum: recs[i].tx.TransNum, Score: p, Label: models.Label(p), Risk: riskBand(p)}
	}
	return out, nil
}

func riskBand(p float64) string {
	switch {
	case p >= 0.95:
		return "high"
	case p >= 0.7:
		return "medium"
	case p > 0.5:
		return "low"
	default:
		return "very_low"
	}
}
