package data

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFrame(t *testing.T) {
	in := ",cc_num,amt,is_fraud\n0,1,2.5,0\n1,2,3.5,1\n"
	fr, err := ReadFrame(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []string{"", "cc_num", "amt", "is_fraud"}, fr.Header)
	assert.Equal(t, 2, fr.Len())
	assert.Equal(t, []string{"1", "2", "3.5", "1"}, fr.Rows[1])
}

func TestReadFrameEmpty(t *testing.T) {
	_, err := ReadFrame(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestReadFrameRaggedRow(t *testing.T) {
	_, err := ReadFrame(strings.NewReader("a,b\n1,2\n3\n"))
	assert.Error(t, err)
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "nope.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestGenerateSyntheticTransactions(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a", "train.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, GenerateSyntheticTransactions(300, 0.1, 7, a))
	require.NoError(t, GenerateSyntheticTransactions(300, 0.1, 7, b))

	ba, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	assert.Equal(t, ba, bb, "same seed must reproduce the file")

	fr, err := ReadCSV(a)
	require.NoError(t, err)
	assert.Equal(t, 300, fr.Len())
	assert.Equal(t, "", fr.Header[0])
	assert.Equal(t, Columns, fr.Header[1:])

	frauds := 0
	for _, row := range fr.Rows {
		if row[len(row)-1] == "1" {
			frauds++
		}
	}
	assert.Greater(t, frauds, 0)
	assert.Less(t, frauds, 300)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("no space left on device") }

func TestGenerateSurfacesWriteErrors(t *testing.T) {
	assert.Error(t, writeSynthetic(failingWriter{}, 50, 0.1, 1))

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("/dev/full not available")
	}
	assert.Error(t, GenerateSyntheticTransactions(50, 0.1, 1, "/dev/full"))
}
