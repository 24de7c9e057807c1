// Package hours answers "when is this outlet open" for stored sellers.
package hours

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/example/storehours/internal/domain/timing"
	"github.com/example/storehours/internal/internaltypes"
	"github.com/example/storehours/internal/sellers"
)

type Source interface {
	Get(ctx context.Context, id string) (sellers.Seller, error)
}

// Hours is the resolved window of one seller location at an instant.
type Hours struct {
	SellerID   string `json:"seller_id"`
	LocationID string `json:"location_id"`
	timing.Window
	Open     bool            `json:"open"`
	Rule     timing.Rule     `json:"rule"`
	Category timing.Category `json:"category,omitempty"`
	Match    timing.Match    `json:"match,omitempty"`
	At       time.Time       `json:"at"`
}

type Service struct {
	Sellers  Source
	Resolver *timing.Resolver
}

// Lookup loads the seller and evaluates localID at at, or at the resolver's
// clock when at is zero.
func (s Service) Lookup(ctx context.Context, sellerID, localID string, at time.Time) (Hours, error) {
	if strings.TrimSpace(localID) == "" {
		return Hours{}, fmt.Errorf("%w: location is required", internaltypes.ErrInvalidInput)
	}
	if at.IsZero() {
		at = s.Resolver.Now()
	}
	seller, err := s.Sellers.Get(ctx, sellerID)
	if err != nil {
		return Hours{}, fmt.Errorf("seller %s: %w", sellerID, err)
	}
	return s.Evaluate(seller, localID, at), nil
}

func (s Service) Evaluate(seller sellers.Seller, localID string, at time.Time) Hours {
	local := s.Resolver.In(at)
	res := s.Resolver.Explain(seller.Tags, localID, local)
	return Hours{
		SellerID:   seller.ID,
		LocationID: localID,
		Window:     res.Window,
		Open:       res.OpenAt(local),
		Rule:       res.Rule,
		Category:   res.Category,
		Match:      res.Match,
		At:         local,
	}
}
