package storage

import (
	"context"
	"sync"

	"clubhours/worklog"
)

type queryFunc func(ctx context.Context, filter worklog.Filter) ([]worklog.Entry, error)

type subscription struct {
	filter   worklog.Filter
	onChange func([]worklog.Entry)
}

// subscriptions fans committed mutations out to listeners. Snapshot
// listeners get a fresh query result, watchers only a signal.
type subscriptions struct {
	mu       sync.Mutex
	next     int
	subs     map[int]subscription
	watchers map[int]func()
}

func newSubscriptions() *subscriptions {
	return &subscriptions{subs: make(map[int]subscription), watchers: make(map[int]func())}
}

// add registers a listener and delivers the current snapshot immediately.
func (s *subscriptions) add(filter worklog.Filter, onChange func([]worklog.Entry), query queryFunc) func() {
	if onChange == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = subscription{filter: filter, onChange: onChange}
	s.mu.Unlock()

	if snapshot, err := query(context.Background(), filter); err == nil {
		onChange(snapshot)
	}

	return s.remover(func() { delete(s.subs, id) })
}

func (s *subscriptions) watch(onChange func()) func() {
	if onChange == nil {
		return func() {}
	}

	s.mu.Lock()
	id := s.next
	s.next++
	s.watchers[id] = onChange
	s.mu.Unlock()

	return s.remover(func() { delete(s.watchers, id) })
}

func (s *subscriptions) remover(remove func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			remove()
			s.mu.Unlock()
		})
	}
}

// notify signals every watcher, then re-queries each snapshot listener's
// filter. Nothing is queried when only watchers are registered. Listeners
// whose query fails are skipped for this round; the next mutation retries them.
func (s *subscriptions) notify(query queryFunc) {
	s.mu.Lock()
	watchers := make([]func(), 0, len(s.watchers))
	for _, onChange := range s.watchers {
		watchers = append(watchers, onChange)
	}
	current := make([]subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		current = append(current, sub)
	}
	s.mu.Unlock()

	for _, onChange := range watchers {
		onChange()
	}
	for _, sub := range current {
		snapshot, err := query(context.Background(), sub.filter)
		if err != nil {
			continue
		}
		sub.onChange(snapshot)
	}
}
