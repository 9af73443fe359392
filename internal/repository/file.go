package repository

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cardfraud/internal/models"
)

// FileRepository keeps one gob file per key inside Dir.
type FileRepository struct {
	Dir string
}

func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{Dir: dir}
}

func (r *FileRepository) Path(key string) string {
	return filepath.Join(r.Dir, key)
}

// Save writes to a temp file first so readers never observe a half-written model.
func (r *FileRepository) Save(key string, a *models.Artifact) error {
	if err := checkKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	tmp, err := os.CreateTemp(r.Dir, ".tmp-"+key+"-*")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := a.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.Path(key)); err != nil {
		return fmt.Errorf("persist model: %w", err)
	}
	return nil
}

func (r *FileRepository) Load(key string) (*models.Artifact, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	f, err := os.Open(r.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, r.Path(key))
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return models.DecodeArtifact(f)
}

// LoadFromDir is the inference-side loader: the artifact saved under DefaultKey in dir.
func LoadFromDir(dir string) (*models.Artifact, error) {
	return NewFileRepository(dir).Load(DefaultKey)
}
