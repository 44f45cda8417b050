package storage

import (
	"context"
	"testing"

	"clubhours/worklog"
)

func TestSubscriptions_WatchersDoNotQuery(t *testing.T) {
	t.Parallel()

	queries := 0
	query := func(context.Context, worklog.Filter) ([]worklog.Entry, error) {
		queries++
		return nil, nil
	}

	subs := newSubscriptions()
	signals := 0
	cancel := subs.watch(func() { signals++ })

	subs.notify(query)
	subs.notify(query)
	if signals != 2 {
		t.Fatalf("expected 2 signals, got %d", signals)
	}
	if queries != 0 {
		t.Fatalf("expected no snapshot queries for watchers, got %d", queries)
	}

	cancel()
	subs.notify(query)
	if signals != 2 {
		t.Fatalf("expected no signal after cancel, got %d", signals)
	}

	stop := subs.add(worklog.Filter{}, func([]worklog.Entry) {}, query)
	defer stop()
	subs.notify(query)
	if queries != 2 {
		t.Fatalf("expected initial and change query for a snapshot listener, got %d", queries)
	}
}
