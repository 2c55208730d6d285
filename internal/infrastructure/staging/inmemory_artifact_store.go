package staging

import (
	"context"
	"errors"
	"sync"
	"time"

	paymentapp "github.com/backoffice/backend/internal/application/payment"
)

type entry struct {
	artifact  *paymentapp.StagedReceipt
	expiresAt time.Time
}

// InMemoryArtifactStore implements ArtifactStore using an in-memory map.
// Suitable for single-instance deployments and testing; staged receipts
// are lost on restart.
type InMemoryArtifactStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryArtifactStore creates an in-memory artifact store with a
// background goroutine that evicts expired entries
func NewInMemoryArtifactStore() *InMemoryArtifactStore {
	store := &InMemoryArtifactStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// Put stores a staged receipt under its reference with a TTL
func (s *InMemoryArtifactStore) Put(ctx context.Context, artifact *paymentapp.StagedReceipt, ttl time.Duration) error {
	if artifact == nil || artifact.Ref == "" {
		return errors.New("staged receipt with a reference is required")
	}
	if ttl <= 0 {
		return errors.New("staging TTL must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[artifact.Ref] = entry{
		artifact:  artifact,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Get resolves a staging reference. Returns (nil, nil) when the reference
// is unknown or has expired.
func (s *InMemoryArtifactStore) Get(ctx context.Context, ref string) (*paymentapp.StagedReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[ref]
	if !exists {
		return nil, nil
	}
	if time.Now().After(e.expiresAt) {
		return nil, nil
	}
	return e.artifact, nil
}

// Delete removes a staged receipt. Deleting an absent reference is a no-op.
func (s *InMemoryArtifactStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, ref)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryArtifactStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of staged receipts (for testing/monitoring)
func (s *InMemoryArtifactStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryArtifactStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryArtifactStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for ref, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, ref)
		}
	}
}

// Ensure InMemoryArtifactStore implements ArtifactStore
var _ paymentapp.ArtifactStore = (*InMemoryArtifactStore)(nil)
