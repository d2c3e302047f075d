package stats

import "sync"

// Snapshot is an immutable copy of the session counters.
type Snapshot struct {
	TotalClicks         int `json:"total_clicks"`
	TotalClicksOnTarget int `json:"total_clicks_on_target"`
	TotalTargets        int `json:"total_targets"`
	TotalTargetsClicked int `json:"total_targets_clicked"`
}

// Store holds the counters for the current session. Reads through Get never
// establish a subscription; Subscribe is the observed read used for redraws.
type Store struct {
	mu          sync.Mutex
	current     Snapshot
	subscribers map[chan Snapshot]struct{}
}

func NewStore() *Store {
	return &Store{
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

func (s *Store) Get() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) SetTotalClicks(n int) {
	s.Update(func(snap *Snapshot) { snap.TotalClicks = n })
}

func (s *Store) SetTotalClicksOnTarget(n int) {
	s.Update(func(snap *Snapshot) { snap.TotalClicksOnTarget = n })
}

func (s *Store) SetTotalTargets(n int) {
	s.Update(func(snap *Snapshot) { snap.TotalTargets = n })
}

func (s *Store) SetTotalTargetsClicked(n int) {
	s.Update(func(snap *Snapshot) { snap.TotalTargetsClicked = n })
}

// Update applies fn to the counters under the store lock, so a read-then-write
// cannot interleave with another writer.
func (s *Store) Update(fn func(snap *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.current
	fn(&next)
	if next == s.current {
		return
	}
	s.current = next
	s.notifyLocked()
}

func (s *Store) Reset() {
	s.Update(func(snap *Snapshot) { *snap = Snapshot{} })
}

// Subscribe returns a channel that receives the latest snapshot after every
// change. The channel holds one value; a slow reader only sees the newest one.
func (s *Store) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 1)
	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()
	return ch
}

func (s *Store) Unsubscribe(ch chan Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribers[ch]; !ok {
		return
	}
	delete(s.subscribers, ch)
	close(ch)
}

func (s *Store) notifyLocked() {
	for ch := range s.subscribers {
		// drop a stale pending value so the send below never blocks
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.current:
		default:
		}
	}
}
