//go:build windows

// Package neighbor finds devices that announce services on the local link
// over multicast DNS.
package neighbor

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/HerbHall/subnetsweep/pkg/models"
)

// Finder is a no-op on Windows where multicast DNS is not reliably
// supported.
type Finder struct{}

// NewFinder returns a no-op Finder on Windows.
func NewFinder(_ []string, _ time.Duration, _ *zap.Logger) *Finder {
	return &Finder{}
}

// Find reports no neighbors on Windows.
func (f *Finder) Find(_ context.Context) ([]models.Neighbor, error) {
	return nil, nil
}
