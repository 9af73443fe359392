package main

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cardfraud/internal/data"
	"cardfraud/internal/features"
	"cardfraud/internal/models"
)

func TestComputeCurveSizes(t *testing.T) {
	cases := []struct {
		name               string
		total, points, min int
		log                bool
	}{
		{"log", 10000, 8, 200, true},
		{"linear", 1000, 5, 100, false},
		{"min above total", 50, 4, 200, true},
		{"many points few rows", 12, 20, 10, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sizes := computeCurveSizes(tc.total, tc.points, tc.min, tc.log)
			require.NotEmpty(t, sizes)
			assert.LessOrEqual(t, len(sizes), max(tc.points, 2))
			assert.Equal(t, tc.total, sizes[len(sizes)-1])
			for i := 1; i < len(sizes); i++ {
				assert.Greater(t, sizes[i], sizes[i-1])
			}
			assert.Greater(t, sizes[0], 0)
		})
	}
	assert.Nil(t, computeCurveSizes(0, 5, 10, true))
}

func TestLearningCurveOutputs(t *testing.T) {
	dir := t.TempDir()
	trainPath := filepath.Join(dir, "train.csv")
	testPath := filepath.Join(dir, "test.csv")
	require.NoError(t, data.GenerateSyntheticTransactions(300, 0.1, 1, trainPath))
	require.NoError(t, data.GenerateSyntheticTransactions(80, 0.1, 2, testPath))

	trainFrame, err := data.ReadCSV(trainPath)
	require.NoError(t, err)
	testFrame, err := data.ReadCSV(testPath)
	require.NoError(t, err)
	train, test, err := features.ReducePair(trainFrame, testFrame, features.Default)
	require.NoError(t, err)

	sizes := computeCurveSizes(train.Len(), 3, 50, true)
	p := models.Params{NEstimators: 5, MaxDepth: 6, RandomState: 3}
	points, err := learningCurve(models.AlgoRandomForest, p, shuffled(train, 3), test, sizes, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, points, len(sizes))
	for _, pt := range points {
		assert.GreaterOrEqual(t, pt.TestAcc, 0.0)
		assert.LessOrEqual(t, pt.TestAcc, 1.0)
	}

	csvPath := filepath.Join(dir, "curve.csv")
	require.NoError(t, writeCurveCSV(csvPath, points))
	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, len(points)+1)
	assert.Equal(t, "size", rows[0][0])
	assert.Len(t, rows[0], 9)

	pngPath := filepath.Join(dir, "curve.png")
	require.NoError(t, plotCurvePNG(pngPath, points))
	st, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))
}

func TestShuffledKeepsRowsWithLabels(t *testing.T) {
	d := &features.Dataset{
		Features: []string{"v"},
		X:        [][]float64{{0}, {1}, {2}, {3}, {4}},
		Y:        []int{0, 1, 0, 1, 0},
	}
	s := shuffled(d, 9)
	assert.Equal(t, d.Len(), s.Len())
	assert.Equal(t, d.Fraud(), s.Fraud())
	for i := range s.X {
		assert.Equal(t, d.Y[int(s.X[i][0])], s.Y[i])
	}
	assert.Equal(t, s.X, shuffled(d, 9).X)
}
