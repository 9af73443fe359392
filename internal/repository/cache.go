package repository

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"cardfraud/internal/models"
)

// Cached keeps recently loaded artifacts decoded in memory in front of another repository.
type Cached struct {
	next  Repository
	cache *lru.Cache[string, *models.Artifact]
}

func NewCached(next Repository, size int) (*Cached, error) {
	c, err := lru.New[string, *models.Artifact](size)
	if err != nil {
		return nil, err
	}
	return &Cached{next: next, cache: c}, nil
}

func (c *Cached) Save(key string, a *models.Artifact) error {
	if err := c.next.Save(key, a); err != nil {
		return err
	}
	c.cache.Add(key, a)
	return nil
}

func (c *Cached) Load(key string) (*models.Artifact, error) {
	if a, ok := c.cache.Get(key); ok {
		return a, nil
	}
	a, err := c.next.Load(key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, a)
	return a, nil
}

func (c *Cached) Invalidate(key string) { c.cache.Remove(key) }
