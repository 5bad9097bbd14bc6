package notification

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory Storage implementation for development and
// tests. Production deployments use PGStorage.
type MemoryStorage struct {
	records map[string][]Payload // userID -> notifications
	mu      sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory notification store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string][]Payload),
	}
}

func (s *MemoryStorage) Create(ctx context.Context, p Payload) (Payload, error) {
	if err := p.Validate(); err != nil {
		return Payload{}, err
	}
	if strings.TrimSpace(p.UserID) == "" {
		return Payload{}, ErrEmptyUserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.New().String()
	p.Read = false
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	s.records[p.UserID] = append(s.records[p.UserID], p)
	return p, nil
}

func (s *MemoryStorage) List(ctx context.Context, userID string, opts ListOptions) ([]Payload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Payload
	for _, p := range s.records[userID] {
		if opts.OnlyUnread && p.Read {
			continue
		}
		out = append(out, p)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	start := opts.Offset
	if start > len(out) {
		return []Payload{}, nil
	}
	end := len(out)
	if opts.Limit > 0 && start+opts.Limit < end {
		end = start + opts.Limit
	}
	return out[start:end], nil
}

func (s *MemoryStorage) MarkAllRead(ctx context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.records[userID]
	updated := 0
	for i := range records {
		if !records[i].Read {
			records[i].Read = true
			updated++
		}
	}
	return updated, nil
}

func (s *MemoryStorage) Delete(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Ownership check first: deleting someone else's record must be denied
	// rather than reported missing.
	for owner, records := range s.records {
		for i, p := range records {
			if p.ID != id {
				continue
			}
			if owner != userID {
				return ErrAccessDenied
			}
			s.records[owner] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (s *MemoryStorage) CountUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.records[userID] {
		if !p.Read {
			count++
		}
	}
	return count, nil
}
