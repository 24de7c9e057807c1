package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/storehours/internal/hours"
	"github.com/example/storehours/internal/sellers"
)

const defaultPageSize = 500

// Store is the part of the seller repository the status board needs.
type Store interface {
	ListAfter(ctx context.Context, afterID string, limit int) ([]sellers.Seller, error)
	SaveStatus(ctx context.Context, st sellers.Status) error
}

// Scheduler periodically re-evaluates every seller location and records
// open/closed snapshots.
type Scheduler struct {
	Store    Store
	Hours    hours.Service
	Interval time.Duration
	Log      *zap.Logger

	// PageSize is how many sellers are loaded per query; a tick pages
	// through all of them.
	PageSize int

	mu   sync.Mutex
	last map[string]bool
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.Tick(ctx)
		}
	}
}

// Tick evaluates all sellers once at the resolver's current time.
func (s *Scheduler) Tick(ctx context.Context) {
	limit := s.PageSize
	if limit <= 0 {
		limit = defaultPageSize
	}

	now := s.Hours.Resolver.Now()
	after := ""
	for {
		page, err := s.Store.ListAfter(ctx, after, limit)
		if err != nil {
			s.Log.Error("scheduler: list sellers failed", zap.String("after", after), zap.Error(err))
			return
		}
		for _, seller := range page {
			for _, loc := range seller.LocationIDs() {
				s.record(ctx, s.Hours.Evaluate(seller, loc, now))
			}
		}
		if len(page) < limit {
			return
		}
		after = page[len(page)-1].ID
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Scheduler) record(ctx context.Context, h hours.Hours) {
	st := sellers.Status{
		SellerID:   h.SellerID,
		LocationID: h.LocationID,
		Open:       h.Open,
		Window:     h.Window,
		Rule:       h.Rule,
		Category:   h.Category,
		CheckedAt:  h.At,
	}
	if err := s.Store.SaveStatus(ctx, st); err != nil {
		s.Log.Error("scheduler: save status failed",
			zap.String("seller_id", h.SellerID), zap.String("location_id", h.LocationID), zap.Error(err))
		return
	}

	key := h.SellerID + "/" + h.LocationID
	s.mu.Lock()
	if s.last == nil {
		s.last = make(map[string]bool)
	}
	prev, seen := s.last[key]
	s.last[key] = h.Open
	s.mu.Unlock()

	if seen && prev != h.Open {
		s.Log.Info("store status changed",
			zap.String("seller_id", h.SellerID),
			zap.String("location_id", h.LocationID),
			zap.Bool("open", h.Open),
			zap.String("time_from", h.TimeFrom),
			zap.String("time_to", h.TimeTo))
	}
}

// lastOpen returns the last recorded state of a seller location.
func (s *Scheduler) lastOpen(sellerID, locationID string) (open, known bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	open, known = s.last[sellerID+"/"+locationID]
	return open, known
}
