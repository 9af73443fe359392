package pipeline

import (
	"fmt"
	"strings"

	"cardfraud/internal/features"
)

type RebalanceKind string

const (
	RebalanceNone RebalanceKind = "none"
	RebalanceHead RebalanceKind = "head"

	DefaultRebalanceLimit = 100000
)

// RebalancePolicy decides which training rows the model sees. Head sorts fraud rows
// first, keeping the original order inside each class, and keeps the first Limit rows.
type RebalancePolicy struct {
	Kind  RebalanceKind
	Limit int
}

func ParseRebalance(kind string, limit int) (RebalancePolicy, error) {
	switch RebalanceKind(strings.ToLower(kind)) {
	case "", RebalanceNone:
		return RebalancePolicy{Kind: RebalanceNone}, nil
	case RebalanceHead:
		if limit <= 0 {
			return RebalancePolicy{}, fmt.Errorf("%w: rebalance limit must be positive, got %d", ErrInvalidConfig, limit)
		}
		return RebalancePolicy{Kind: RebalanceHead, Limit: limit}, nil
	}
	return RebalancePolicy{}, fmt.Errorf("%w: unknown rebalance policy %q", ErrInvalidConfig, kind)
}

func (p RebalancePolicy) Apply(d *features.Dataset) *features.Dataset {
	if p.Kind != RebalanceHead {
		return d
	}
	return d.SortByLabelDesc().Head(p.Limit)
}

func (p RebalancePolicy) String() string {
	if p.Kind == RebalanceHead {
		return fmt.Sprintf("head(%d)", p.Limit)
	}
	return string(RebalanceNone)
}
