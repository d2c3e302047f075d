package targets

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"monkeysnype/internal/events"
	"monkeysnype/internal/metrics"
	"monkeysnype/internal/stats"
)

const (
	DefaultDiameter   = 100
	DefaultInterval   = 1500 * time.Millisecond
	DefaultPlayWidth  = 1280
	DefaultPlayHeight = 720
)

var ErrRunning = errors.New("spawn loop already running")

// Ticker is the part of time.Ticker the spawn loop needs.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (tt timeTicker) C() <-chan time.Time { return tt.t.C }
func (tt timeTicker) Stop()               { tt.t.Stop() }

func NewTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

type Config struct {
	Interval   time.Duration
	Diameter   float64
	PlayWidth  float64
	PlayHeight float64
	NewTicker  func(time.Duration) Ticker
	// Rand returns a value in [0, 1).
	Rand func() float64
}

func DefaultConfig() Config {
	return Config{
		Interval:   DefaultInterval,
		Diameter:   DefaultDiameter,
		PlayWidth:  DefaultPlayWidth,
		PlayHeight: DefaultPlayHeight,
		NewTicker:  NewTimeTicker,
		Rand:       rand.Float64,
	}
}

// Controller owns the live target and the spawn loop. It is the only writer
// of the stats store while a session runs.
type Controller struct {
	mu      sync.Mutex
	cfg     Config
	stats   *stats.Store
	events  *events.Bus
	metrics *metrics.Metrics

	current *Target
	nextID  int
	running bool
	// gen is bumped on every Start and Stop; a tick from an older loop is ignored.
	gen    int
	cancel context.CancelFunc
	done   chan struct{}
}

func NewController(st *stats.Store, bus *events.Bus, m *metrics.Metrics, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Diameter <= 0 {
		cfg.Diameter = def.Diameter
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = def.NewTicker
	}
	if cfg.Rand == nil {
		cfg.Rand = def.Rand
	}
	return &Controller{
		cfg:     cfg,
		stats:   st,
		events:  bus,
		metrics: m,
		nextID:  1,
	}
}

// Start spawns the first target and begins replacing it every interval until
// ctx is cancelled or Stop is called.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ErrRunning
	}
	c.running = true
	c.gen++
	c.nextID = 1

	t := c.spawnLocked()
	c.stats.SetTotalTargets(1)
	c.publishSpawnLocked(t)

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(loopCtx, c.gen, c.cfg.NewTicker(c.cfg.Interval), c.done)
	return nil
}

// Stop cancels the spawn loop, waits for it to exit and discards the current
// target. No counter changes after Stop returns.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	c.gen++
	c.cancel()
	done := c.done
	if c.current != nil {
		c.events.PublishTarget(events.TargetEvent{
			Kind:     events.TargetCleared,
			TargetID: c.current.ID,
			At:       time.Now(),
		})
	}
	c.current = nil
	c.mu.Unlock()

	<-done
}

func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Current returns a copy of the live target.
func (c *Controller) Current() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return Target{}, false
	}
	t := *c.current
	if t.HitPoint != nil {
		p := *t.HitPoint
		t.HitPoint = &p
	}
	return t, true
}

// SetPlayArea changes the bounds used by later spawns.
func (c *Controller) SetPlayArea(width, height float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.PlayWidth = width
	c.cfg.PlayHeight = height
}

func (c *Controller) PlayArea() (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.PlayWidth, c.cfg.PlayHeight
}

// Click registers a click anywhere in the play area. It downs the live target
// when p lands inside it and reports whether that happened.
func (c *Controller) Click(p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return false
	}
	hit := c.current != nil && c.current.Contains(p)
	return c.clickLocked(hit, p)
}

// ClickTarget registers a click the view resolved onto target id. Clicks on
// a replaced or already downed target count only as a play-area click.
func (c *Controller) ClickTarget(id int, p Point) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return false
	}
	hit := c.current != nil && c.current.ID == id
	return c.clickLocked(hit, p)
}

func (c *Controller) clickLocked(onTarget bool, p Point) bool {
	downed := onTarget && !c.current.Downed()
	c.stats.Update(func(s *stats.Snapshot) {
		s.TotalClicks++
		if downed {
			s.TotalClicksOnTarget++
			s.TotalTargetsClicked++
		}
	})
	c.metrics.Click(downed)
	if !downed {
		return false
	}

	now := time.Now()
	c.current.State = StateDowned
	c.current.DownedAt = now
	c.current.HitPoint = &p
	c.events.PublishTarget(events.TargetEvent{
		Kind:     events.TargetDowned,
		TargetID: c.current.ID,
		Top:      c.current.Top,
		Left:     c.current.Left,
		At:       now,
	})
	return true
}

func (c *Controller) run(ctx context.Context, gen int, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			c.tick(gen)
		}
	}
}

func (c *Controller) tick(gen int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.gen != gen {
		return
	}
	t := c.spawnLocked()
	c.stats.Update(func(s *stats.Snapshot) { s.TotalTargets++ })
	c.publishSpawnLocked(t)
}

// spawnLocked replaces the live target. The caller counts it in the stats
// before announcing it with publishSpawnLocked.
func (c *Controller) spawnLocked() *Target {
	top, left := c.position()
	t := &Target{
		ID:        c.nextID,
		Top:       top,
		Left:      left,
		Diameter:  c.cfg.Diameter,
		State:     StateSpawned,
		SpawnedAt: time.Now(),
	}
	c.nextID++
	c.current = t
	c.metrics.TargetSpawned()
	if c.cfg.PlayHeight < c.cfg.Diameter || c.cfg.PlayWidth < c.cfg.Diameter {
		log.Printf("[Targets] Play area %vx%v smaller than target diameter %v\n", c.cfg.PlayWidth, c.cfg.PlayHeight, c.cfg.Diameter)
	}
	return t
}

func (c *Controller) publishSpawnLocked(t *Target) {
	c.events.PublishTarget(events.TargetEvent{
		Kind:     events.TargetSpawned,
		TargetID: t.ID,
		Top:      t.Top,
		Left:     t.Left,
		At:       t.SpawnedAt,
	})
}

// position draws top and left independently so the whole circle stays
// inside the play area. Bounds smaller than the diameter give a negative
// range and a position off the top/left edge.
func (c *Controller) position() (float64, float64) {
	maxTop := c.cfg.PlayHeight - c.cfg.Diameter
	maxLeft := c.cfg.PlayWidth - c.cfg.Diameter
	return c.cfg.Rand() * maxTop, c.cfg.Rand() * maxLeft
}
