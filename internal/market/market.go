// ABOUTME: Mandi price tracking with an offline cache
// ABOUTME: Snapshots carry a raw timestamp used for the 24 hour staleness flag
package market

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kisandost/kisandost-go/internal/genai"
	"github.com/kisandost/kisandost-go/internal/store"
)

// StaleAfter is how old a snapshot may be before it is flagged
const StaleAfter = 24 * time.Hour

// ErrNoCachedData means there is nothing to show while offline
var ErrNoCachedData = errors.New("no cached market data")

// PriceSnapshot is the cached price list for one location
type PriceSnapshot struct {
	Data         []genai.MandiPrice `json:"data"`
	Timestamp    string             `json:"timestamp"`
	RawTimestamp int64              `json:"rawTimestamp"`
}

// IsStale reports whether the snapshot is strictly older than 24 hours at now
func (p PriceSnapshot) IsStale(now time.Time) bool {
	if p.RawTimestamp == 0 {
		return true
	}
	return now.UnixMilli()-p.RawTimestamp > StaleAfter.Milliseconds()
}

// Age returns how long ago the snapshot was taken
func (p PriceSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(time.UnixMilli(p.RawTimestamp))
}

// Source fetches live prices and advice
type Source interface {
	MarketPrices(ctx context.Context, location string) ([]genai.MandiPrice, error)
	SaleAdvisory(ctx context.Context, crop string, price float64) (string, error)
}

// Report is what Load returns to the caller
type Report struct {
	Location  string
	Snapshot  PriceSnapshot
	Advisory  string
	Stale     bool
	FromCache bool
	// RefreshErr is set when a refresh failed and cached data was used
	RefreshErr error
}

// Service loads and caches market data
type Service struct {
	store  *store.Store
	source Source
	now    func() time.Time
}

// NewService creates a market service; now defaults to time.Now
func NewService(st *store.Store, source Source, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: st, source: source, now: now}
}

// Cached returns the stored snapshot and advisory for location
func (s *Service) Cached(ctx context.Context, location string) (PriceSnapshot, string, bool, error) {
	var snap PriceSnapshot
	ok, err := s.store.Get(ctx, store.PricesKey(location), &snap)
	if err != nil || !ok {
		return PriceSnapshot{}, "", false, err
	}

	var advisory string
	if _, err := s.store.Get(ctx, store.AdvisoryKey(location), &advisory); err != nil {
		return PriceSnapshot{}, "", false, err
	}
	return snap, advisory, true, nil
}

// Load returns prices for location. Offline it serves the cache; online it
// refreshes and falls back to the cache when the refresh fails.
func (s *Service) Load(ctx context.Context, location string, online bool) (Report, error) {
	cached, advisory, haveCache, err := s.Cached(ctx, location)
	if err != nil {
		return Report{}, err
	}

	fromCache := func(refreshErr error) Report {
		return Report{
			Location:   location,
			Snapshot:   cached,
			Advisory:   advisory,
			Stale:      cached.IsStale(s.now()),
			FromCache:  true,
			RefreshErr: refreshErr,
		}
	}

	if !online {
		if !haveCache {
			return Report{}, ErrNoCachedData
		}
		return fromCache(nil), nil
	}

	prices, err := s.source.MarketPrices(ctx, location)
	if err == nil && len(prices) == 0 {
		err = fmt.Errorf("%w: no prices for %s", genai.ErrEmptyResponse, location)
	}
	if err != nil {
		if haveCache {
			log.Printf("Price refresh failed for %s, using cache: %v", location, err)
			return fromCache(err), nil
		}
		return Report{}, err
	}

	now := s.now()
	snap := PriceSnapshot{
		Data:         prices,
		Timestamp:    now.Format("15:04"),
		RawTimestamp: now.UnixMilli(),
	}

	advice, err := s.source.SaleAdvisory(ctx, prices[0].Crop, prices[0].Price)
	if err != nil {
		log.Printf("Sale advisory failed for %s: %v", prices[0].Crop, err)
		advice = advisory
	}

	err = s.store.Update(ctx, func(tx *store.Tx) error {
		if err := tx.Put(store.PricesKey(location), snap); err != nil {
			return err
		}
		if advice == "" {
			return nil
		}
		return tx.Put(store.AdvisoryKey(location), advice)
	})
	if err != nil {
		return Report{}, fmt.Errorf("cache prices: %w", err)
	}

	return Report{Location: location, Snapshot: snap, Advisory: advice}, nil
}

// Favorite returns the favorite market, if any
func (s *Service) Favorite(ctx context.Context) (string, error) {
	var fav string
	if _, err := s.store.Get(ctx, store.KeyFavoriteMarket, &fav); err != nil {
		return "", err
	}
	return fav, nil
}

// ToggleFavorite marks location as favorite, or clears it if it already is
func (s *Service) ToggleFavorite(ctx context.Context, location string) (bool, error) {
	var favorite bool
	err := s.store.Update(ctx, func(tx *store.Tx) error {
		var current string
		if _, err := tx.Get(store.KeyFavoriteMarket, &current); err != nil {
			return err
		}
		if current == location {
			return tx.Delete(store.KeyFavoriteMarket)
		}
		favorite = true
		return tx.Put(store.KeyFavoriteMarket, location)
	})
	return favorite, err
}
