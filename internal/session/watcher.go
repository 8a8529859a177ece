package session

import (
	"context"
	"time"
)

// startWatchLocked replaces the running watcher with a new one
// Watcher context doesn't depend on caller's one: it lives as long as the session
func (s *Store) startWatchLocked() {
	s.stopWatchLocked()

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel

	s.watchers.Add(1)
	go s.watch(ctx, s.interval)
}

func (s *Store) stopWatchLocked() {
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

func (s *Store) watch(ctx context.Context, interval time.Duration) {
	defer s.watchers.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Session ending cancels ctx; storage cleanup must still complete
			if s.CheckExpiry(context.WithoutCancel(ctx)) {
				return
			}
		}
	}
}
