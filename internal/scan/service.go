// ABOUTME: Offline-first scan capture queue and sync worker
// ABOUTME: Queues captures while offline and drains them when connectivity returns
package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kisandost/kisandost-go/internal/connectivity"
	"github.com/kisandost/kisandost-go/internal/genai"
	"github.com/kisandost/kisandost-go/internal/store"
)

var (
	// ErrSyncInProgress is returned when a sync pass is already running
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrOffline is returned by Sync when there is no connectivity
	ErrOffline = errors.New("offline")

	// ErrEmptyImage is returned when capturing an empty image
	ErrEmptyImage = errors.New("empty image")
)

// FailurePolicy decides what happens to an item that fails during sync
type FailurePolicy int

const (
	// RetainOnFailure keeps failed items queued until MaxAttempts
	RetainOnFailure FailurePolicy = iota

	// DropOnFailure removes failed items after one attempt
	DropOnFailure
)

// ParsePolicy parses "retain" or "drop"
func ParsePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "retain":
		return RetainOnFailure, nil
	case "drop":
		return DropOnFailure, nil
	}
	return 0, fmt.Errorf("unknown sync failure policy %q", s)
}

func (p FailurePolicy) String() string {
	if p == DropOnFailure {
		return "drop"
	}
	return "retain"
}

// Verifier judges a product image
type Verifier interface {
	Verify(ctx context.Context, image []byte) (genai.Verdict, error)
}

// Connectivity reports whether the network is reachable
type Connectivity interface {
	Online() bool
}

// Reporter receives sync and verdict notifications
type Reporter interface {
	SyncCompleted(report SyncReport)
	Verified(record VerificationRecord)
}

// Config holds service configuration
type Config struct {
	Store        *store.Store
	Verifier     Verifier
	Connectivity Connectivity

	// Reporter is optional
	Reporter Reporter

	// Policy for items that fail during sync (default: RetainOnFailure)
	Policy FailurePolicy

	// MaxAttempts before a retained item is dropped (default: 3, negative: never)
	MaxAttempts int

	// Now is the clock (default: time.Now)
	Now func() time.Time
}

// Service owns the pending queue and history log
type Service struct {
	config  Config
	syncing atomic.Bool
}

// NewService creates a scan service
func NewService(config Config) (*Service, error) {
	if config.Store == nil || config.Verifier == nil || config.Connectivity == nil {
		return nil, fmt.Errorf("scan: store, verifier and connectivity are required")
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = 3
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	return &Service{config: config}, nil
}

// Capture verifies image now when online, or queues it when offline.
// Online failures are returned and nothing is queued.
func (s *Service) Capture(ctx context.Context, image []byte) (CaptureResult, error) {
	if len(image) == 0 {
		return CaptureResult{}, ErrEmptyImage
	}

	now := s.config.Now().UnixMilli()

	if !s.config.Connectivity.Online() {
		pending := PendingScan{
			ID:           uuid.New().String(),
			ImageData:    image,
			CapturedAtMs: now,
		}

		err := s.config.Store.Update(ctx, func(tx *store.Tx) error {
			queue, err := loadQueue(tx)
			if err != nil {
				return err
			}
			return tx.Put(store.KeyPendingScans, append(queue, pending))
		})
		if err != nil {
			return CaptureResult{}, fmt.Errorf("queue scan: %w", err)
		}

		log.Printf("Offline: scan %s saved for later verification", pending.ID)
		return CaptureResult{Queued: true, Pending: &pending}, nil
	}

	verdict, err := s.config.Verifier.Verify(ctx, image)
	if err != nil {
		return CaptureResult{}, err
	}

	record := newRecord(uuid.New().String(), image, now, s.config.Now().UnixMilli(), verdict)
	err = s.config.Store.Update(ctx, func(tx *store.Tx) error {
		history, err := loadHistory(tx)
		if err != nil {
			return err
		}
		return tx.Put(store.KeyScanHistory, append([]VerificationRecord{record}, history...))
	})
	if err != nil {
		return CaptureResult{}, fmt.Errorf("save verification: %w", err)
	}

	if s.config.Reporter != nil {
		s.config.Reporter.Verified(record)
	}
	return CaptureResult{Record: &record}, nil
}

// Sync verifies every queued scan once, in order. Only one pass runs at a time.
func (s *Service) Sync(ctx context.Context) (SyncReport, error) {
	if !s.syncing.CompareAndSwap(false, true) {
		return SyncReport{}, ErrSyncInProgress
	}
	defer s.syncing.Store(false)

	if !s.config.Connectivity.Online() {
		return SyncReport{}, ErrOffline
	}

	queue, err := s.Pending(ctx)
	if err != nil {
		return SyncReport{}, err
	}
	if len(queue) == 0 {
		return SyncReport{}, nil
	}

	start := s.config.Now()
	report := SyncReport{StartedAt: start.UnixMilli()}
	log.Printf("Syncing %d pending scans", len(queue))

	synced := make(map[string]bool)
	failed := make(map[string]PendingScan)
	var records []VerificationRecord

	for _, item := range queue {
		if ctx.Err() != nil {
			break
		}
		report.Processed++

		verdict, err := s.config.Verifier.Verify(ctx, item.ImageData)
		if err != nil {
			log.Printf("Sync error for scan %s: %v", item.ID, err)
			item.Attempts++
			failed[item.ID] = item
			continue
		}

		records = append(records, newRecord(item.ID, item.ImageData, item.CapturedAtMs, s.config.Now().UnixMilli(), verdict))
		synced[item.ID] = true
	}

	err = s.config.Store.Update(context.WithoutCancel(ctx), func(tx *store.Tx) error {
		// Reload so captures queued during the pass are kept
		current, err := loadQueue(tx)
		if err != nil {
			return err
		}

		remaining := make([]PendingScan, 0, len(current))
		for _, item := range current {
			if synced[item.ID] {
				continue
			}
			if f, ok := failed[item.ID]; ok {
				if s.shouldDrop(f) {
					report.Dropped = append(report.Dropped, f.ID)
					continue
				}
				item = f
			}
			remaining = append(remaining, item)
		}

		history, err := loadHistory(tx)
		if err != nil {
			return err
		}

		if err := tx.Put(store.KeyPendingScans, remaining); err != nil {
			return err
		}
		report.Remaining = len(remaining)
		return tx.Put(store.KeyScanHistory, append(records, history...))
	})
	if err != nil {
		return SyncReport{}, fmt.Errorf("commit sync: %w", err)
	}

	for _, r := range records {
		report.Synced = append(report.Synced, r.ID)
	}
	for _, item := range queue {
		if _, ok := failed[item.ID]; ok {
			report.Failed = append(report.Failed, item.ID)
		}
	}
	report.Duration = s.config.Now().Sub(start).Milliseconds()

	if len(report.Dropped) > 0 {
		log.Printf("Dropped %d scans after failed verification: %v", len(report.Dropped), report.Dropped)
	}
	log.Printf("Sync complete: %d synced, %d failed, %d remaining", len(report.Synced), len(report.Failed), report.Remaining)

	if s.config.Reporter != nil {
		s.config.Reporter.SyncCompleted(report)
		for _, r := range records {
			s.config.Reporter.Verified(r)
		}
	}
	return report, nil
}

func (s *Service) shouldDrop(item PendingScan) bool {
	if s.config.Policy == DropOnFailure {
		return true
	}
	return s.config.MaxAttempts > 0 && item.Attempts >= s.config.MaxAttempts
}

// Syncing reports whether a pass is running
func (s *Service) Syncing() bool {
	return s.syncing.Load()
}

// Watch syncs on every offline to online transition while the queue is non-empty.
// It returns when events is closed or ctx ends.
func (s *Service) Watch(ctx context.Context, events <-chan connectivity.Event) {
	online := false
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			wasOnline := online
			online = ev.Online
			if !online || wasOnline {
				continue
			}

			queue, err := s.Pending(ctx)
			if err != nil {
				log.Printf("Failed to read pending scans: %v", err)
				continue
			}
			if len(queue) == 0 {
				continue
			}

			if _, err := s.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) {
				log.Printf("Automatic sync failed: %v", err)
			}
		}
	}
}

// Pending returns the queue in capture order
func (s *Service) Pending(ctx context.Context) ([]PendingScan, error) {
	var queue []PendingScan
	if _, err := s.config.Store.Get(ctx, store.KeyPendingScans, &queue); err != nil {
		return nil, fmt.Errorf("load pending scans: %w", err)
	}
	return queue, nil
}

// History returns verification records, newest first
func (s *Service) History(ctx context.Context) ([]VerificationRecord, error) {
	var history []VerificationRecord
	if _, err := s.config.Store.Get(ctx, store.KeyScanHistory, &history); err != nil {
		return nil, fmt.Errorf("load scan history: %w", err)
	}
	return history, nil
}

func loadQueue(tx *store.Tx) ([]PendingScan, error) {
	var queue []PendingScan
	if _, err := tx.Get(store.KeyPendingScans, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func loadHistory(tx *store.Tx) ([]VerificationRecord, error) {
	var history []VerificationRecord
	if _, err := tx.Get(store.KeyScanHistory, &history); err != nil {
		return nil, err
	}
	return history, nil
}
