package broadcast

import (
	"encoding/json"
	"log"
	"sync"

	"monkeysnype/internal/events"
	"monkeysnype/internal/stats"
)

// Message is one server-sent event: a name and a JSON payload.
type Message struct {
	Event string
	Msg   string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool

	stats     *stats.Store
	updates   chan stats.Snapshot
	done      chan struct{}
	closeOnce sync.Once
}

// NewBroadcaster fans bus events and stats changes out to every subscriber
// until Close is called.
func NewBroadcaster(bus *events.Bus, st *stats.Store) *Broadcaster {
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
		stats:   st,
		done:    make(chan struct{}),
	}
	go b.forward(bus)
	if st != nil {
		b.updates = st.Subscribe()
		go func() {
			for snap := range b.updates {
				b.BroadcastJSON("stats", snap)
			}
		}()
	}
	return b
}

func (b *Broadcaster) forward(bus *events.Bus) {
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-bus.SessionChanges:
			if !ok {
				return
			}
			b.BroadcastJSON("session", ev)
		case ev, ok := <-bus.TargetChanges:
			if !ok {
				return
			}
			b.BroadcastJSON("target", ev)
		}
	}
}

// Close stops forwarding and releases the stats subscription. Existing
// subscribers stay registered until they unsubscribe.
func (b *Broadcaster) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
		if b.stats != nil {
			b.stats.Unsubscribe(b.updates)
		}
	})
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("[Broadcast] Marshal %s error: %v\n", event, err)
		return
	}
	b.Broadcast(event, string(data))
}

func (b *Broadcaster) Broadcast(event string, message string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Msg: message}:
		default:
			// skip clients with full data channels
		}
	}
}
