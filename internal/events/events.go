package events

import (
	"log"
	"time"
)

type SessionEvent struct {
	SessionID string `json:"session_id"`
	Scene     string `json:"scene"`
	Active    bool   `json:"active"`
}

type TargetKind string

const (
	TargetSpawned = TargetKind("spawned")
	TargetDowned  = TargetKind("downed")
	TargetCleared = TargetKind("cleared")
)

type TargetEvent struct {
	Kind     TargetKind `json:"kind"`
	TargetID int        `json:"id"`
	Top      float64    `json:"top"`
	Left     float64    `json:"left"`
	At       time.Time  `json:"at"`
}

type Bus struct {
	SessionChanges chan SessionEvent
	TargetChanges  chan TargetEvent
}

func NewBus() *Bus {
	return &Bus{
		SessionChanges: make(chan SessionEvent, 10),
		TargetChanges:  make(chan TargetEvent, 10),
	}
}

// PublishSession never blocks; the event is dropped when nobody drains the bus.
func (b *Bus) PublishSession(ev SessionEvent) {
	select {
	case b.SessionChanges <- ev:
	default:
		log.Printf("[Events] Session buffer full, dropping %q\n", ev.Scene)
	}
}

func (b *Bus) PublishTarget(ev TargetEvent) {
	select {
	case b.TargetChanges <- ev:
	default:
		log.Printf("[Events] Target buffer full, dropping %s #%d\n", ev.Kind, ev.TargetID)
	}
}
