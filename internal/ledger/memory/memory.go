// Package memory provides an in-process ledger store with the same
// duplicate-key semantics as the sqlite backend. It backs tests and the
// "memory" data backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"budgetbuddy/internal/core"
	"budgetbuddy/internal/ledger"
)

type Store struct {
	mu     sync.Mutex
	nextID int64
	txs    []core.Transaction
	keys   map[ledger.Key]struct{}
}

func NewStore() *Store {
	return &Store{
		nextID: 1,
		keys:   make(map[ledger.Key]struct{}),
	}
}

// Insert enforces the duplicate key the way the sqlite unique index does.
func (s *Store) Insert(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := ledger.KeyOf(tx)
	if _, exists := s.keys[key]; exists {
		return 0, ledger.ErrDuplicate
	}

	tx.ID = s.nextID
	s.nextID++
	s.keys[key] = struct{}{}
	s.txs = append(s.txs, tx)
	return tx.ID, nil
}

func (s *Store) HasDuplicate(ctx context.Context, key ledger.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.keys[key]
	return exists, nil
}

func (s *Store) Query(ctx context.Context, userID string, r *ledger.DateRange) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, tx := range s.txs {
		if tx.UserID != userID {
			continue
		}
		if r != nil && !r.Contains(tx.Date) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) QueryRecent(ctx context.Context, userID string, limit int) ([]core.Transaction, error) {
	all, err := s.Query(ctx, userID, nil)
	if err != nil {
		return nil, err
	}
	// Reverse to date descending.
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
