package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"clubhours/worklog"
)

// MemoryStore keeps entries in process memory. It backs tests and the
// "memory" storage driver.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]worklog.Entry
	subs     *subscriptions
	revision atomic.Int64
}

var _ worklog.Repository = (*MemoryStore)(nil)

func NewMemoryStore(seed ...worklog.Entry) *MemoryStore {
	store := &MemoryStore{
		entries: make(map[string]worklog.Entry, len(seed)),
		subs:    newSubscriptions(),
	}
	for _, entry := range seed {
		entry = prepareCreate(entry)
		store.entries[entry.ID] = entry
	}
	return store
}

func (s *MemoryStore) Query(_ context.Context, filter worklog.Filter) ([]worklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]worklog.Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		if filter.Matches(entry) {
			result = append(result, entry)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Date.Equal(result[j].Date) {
			return result[i].ID < result[j].ID
		}
		return result[i].Date.After(result[j].Date)
	})
	return result, nil
}

func (s *MemoryStore) Subscribe(filter worklog.Filter, onChange func([]worklog.Entry)) func() {
	return s.subs.add(filter, onChange, s.Query)
}

func (s *MemoryStore) Watch(onChange func()) func() {
	return s.subs.watch(onChange)
}

func (s *MemoryStore) Revision(context.Context) (int64, error) {
	return s.revision.Load(), nil
}

// changed records a committed mutation and notifies listeners.
func (s *MemoryStore) changed() {
	s.revision.Add(1)
	s.subs.notify(s.Query)
}

func (s *MemoryStore) Get(_ context.Context, id string) (worklog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return worklog.Entry{}, fmt.Errorf("log %s: %w", id, worklog.ErrNotFound)
	}
	return entry, nil
}

func (s *MemoryStore) Insert(_ context.Context, entry worklog.Entry) (worklog.Entry, error) {
	entry = prepareCreate(entry)

	s.mu.Lock()
	if _, exists := s.entries[entry.ID]; exists {
		s.mu.Unlock()
		return worklog.Entry{}, fmt.Errorf("insert log %s: duplicate id", entry.ID)
	}
	s.entries[entry.ID] = entry
	s.mu.Unlock()

	s.changed()
	return entry, nil
}

func (s *MemoryStore) Update(_ context.Context, patch worklog.Patch) (worklog.Entry, error) {
	s.mu.Lock()
	updated, err := s.applyLocked(patch)
	if err == nil {
		s.entries[updated.ID] = updated
	}
	s.mu.Unlock()
	if err != nil {
		return worklog.Entry{}, err
	}

	s.changed()
	return updated, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("log id must not be empty")
	}

	s.mu.Lock()
	_, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("delete log %s: %w", id, worklog.ErrNotFound)
	}

	s.changed()
	return nil
}

// CommitGroup validates every operation before applying any of them.
func (s *MemoryStore) CommitGroup(_ context.Context, creates []worklog.Entry, updates []worklog.Patch) ([]string, error) {
	if len(creates) == 0 && len(updates) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	staged := make(map[string]worklog.Entry, len(creates)+len(updates))
	ids := make([]string, 0, len(creates))
	for _, entry := range creates {
		entry = prepareCreate(entry)
		if _, exists := s.entries[entry.ID]; exists {
			s.mu.Unlock()
			return nil, fmt.Errorf("insert log %s: duplicate id", entry.ID)
		}
		staged[entry.ID] = entry
		ids = append(ids, entry.ID)
	}
	for _, patch := range updates {
		current, ok := staged[patch.ID]
		if !ok {
			current, ok = s.entries[patch.ID]
		}
		if !ok {
			s.mu.Unlock()
			return nil, fmt.Errorf("log %s: %w", patch.ID, worklog.ErrNotFound)
		}
		if !patch.Allows(current) {
			s.mu.Unlock()
			return nil, fmt.Errorf("log %s has status %s: %w", patch.ID, current.Status, worklog.ErrNotFound)
		}
		staged[patch.ID] = patch.Apply(current)
	}

	for id, entry := range staged {
		s.entries[id] = entry
	}
	s.mu.Unlock()

	s.changed()
	return ids, nil
}

func (s *MemoryStore) applyLocked(patch worklog.Patch) (worklog.Entry, error) {
	current, ok := s.entries[patch.ID]
	if !ok {
		return worklog.Entry{}, fmt.Errorf("log %s: %w", patch.ID, worklog.ErrNotFound)
	}
	if !patch.Allows(current) {
		return worklog.Entry{}, fmt.Errorf("log %s has status %s: %w", patch.ID, current.Status, worklog.ErrNotFound)
	}
	return patch.Apply(current), nil
}
