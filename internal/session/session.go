package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"monkeysnype/internal/events"
	"monkeysnype/internal/metrics"
	"monkeysnype/internal/score"
	"monkeysnype/internal/settings"
	"monkeysnype/internal/stats"
	"monkeysnype/internal/targets"
)

type Scene string

const (
	SceneMenu    = Scene("menu")
	ScenePlaying = Scene("playing")
	SceneSummary = Scene("summary")
)

var ErrActive = errors.New("session already active")

type LiveRate struct {
	Value float64    `json:"value"`
	Band  score.Band `json:"band"`
	Text  string     `json:"text"`
}

func liveRate(num, den int) LiveRate {
	v, b := score.Live(num, den)
	return LiveRate{Value: v, Band: b, Text: score.FormatRate(v, b)}
}

// View is everything the view layer needs to draw one frame.
type View struct {
	Scene      Scene            `json:"scene"`
	Active     bool             `json:"active"`
	SessionID  string           `json:"session_id,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	Stats      stats.Snapshot   `json:"stats"`
	Target     *targets.Target  `json:"target,omitempty"`
	TargetRate LiveRate         `json:"target_rate"`
	ClickRate  LiveRate         `json:"click_rate"`
	Summary    *score.Summary   `json:"summary,omitempty"`
	Settings   settings.Display `json:"settings"`
	PlayArea   [2]float64       `json:"play_area"`
}

type Session struct {
	mu        sync.Mutex
	base      context.Context
	scene     Scene
	id        string
	startedAt time.Time
	summary   *score.Summary

	Stats    *stats.Store
	Targets  *targets.Controller
	Settings *settings.Store
	Events   *events.Bus
	Metrics  *metrics.Metrics
}

// New wires a session around its stores. The spawn loop of every session
// runs under base and stops when base is cancelled.
func New(base context.Context, st *stats.Store, tc *targets.Controller, ds *settings.Store, bus *events.Bus, m *metrics.Metrics) *Session {
	return &Session{
		base:     base,
		scene:    SceneMenu,
		Stats:    st,
		Targets:  tc,
		Settings: ds,
		Events:   bus,
		Metrics:  m,
	}
}

func (s *Session) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene
}

func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scene == ScenePlaying
}

func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Summary returns the result of the last ended session, if any.
func (s *Session) Summary() *score.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Start clears the counters and begins spawning targets.
func (s *Session) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene == ScenePlaying {
		return "", ErrActive
	}

	s.Stats.Reset()
	if err := s.Targets.Start(s.base); err != nil {
		return "", err
	}
	s.id = uuid.NewString()
	s.startedAt = time.Now()
	s.summary = nil
	s.scene = ScenePlaying
	s.Metrics.SessionStarted()
	s.publishLocked()
	log.Printf("[Session] Started %s\n", s.id)
	return s.id, nil
}

// End stops the spawn loop, scores the session and resets the counters for
// the next one. Ending an inactive session returns no summary.
func (s *Session) End() (*score.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene != ScenePlaying {
		return nil, false
	}

	s.Targets.Stop()
	snap := s.Stats.Get()
	summary := score.Summarize(&snap)
	s.Stats.Reset()

	s.summary = &summary
	s.scene = SceneSummary
	s.Metrics.SessionEnded(summary.Score)
	s.publishLocked()
	log.Printf("[Session] Ended %s: score %.2f (%s)\n", s.id, summary.Score, summary.Band)
	return &summary, true
}

// Dismiss leaves the summary screen for the menu.
func (s *Session) Dismiss() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.scene != SceneSummary {
		return
	}
	s.scene = SceneMenu
	s.publishLocked()
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.Stats.Get()
	w, h := s.Targets.PlayArea()
	v := View{
		Scene:      s.scene,
		Active:     s.scene == ScenePlaying,
		Stats:      snap,
		TargetRate: liveRate(snap.TotalTargetsClicked, snap.TotalTargets),
		ClickRate:  liveRate(snap.TotalClicksOnTarget, snap.TotalClicks),
		Summary:    s.summary,
		Settings:   s.Settings.Get(),
		PlayArea:   [2]float64{w, h},
	}
	if v.Active {
		v.SessionID = s.id
		started := s.startedAt
		v.StartedAt = &started
	}
	if t, ok := s.Targets.Current(); ok {
		v.Target = &t
	}
	return v
}

func (s *Session) publishLocked() {
	s.Events.PublishSession(events.SessionEvent{
		SessionID: s.id,
		Scene:     string(s.scene),
		Active:    s.scene == ScenePlaying,
	})
}
