package targets

import (
	"context"
	"sync"
	"testing"
	"time"

	"monkeysnype/internal/events"
	"monkeysnype/internal/stats"
)

type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

func (m *manualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

type harness struct {
	c      *Controller
	stats  *stats.Store
	bus    *events.Bus
	ticker *manualTicker
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		stats:  stats.NewStore(),
		bus:    events.NewBus(),
		ticker: &manualTicker{ch: make(chan time.Time)},
	}
	cfg.NewTicker = func(time.Duration) Ticker { return h.ticker }
	if cfg.Rand == nil {
		cfg.Rand = func() float64 { return 0.5 }
	}
	h.c = NewController(h.stats, h.bus, nil, cfg)
	t.Cleanup(h.c.Stop)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	h.waitFor(t, events.TargetSpawned)
}

// tick fires the ticker and waits until the new target has been spawned.
func (h *harness) tick(t *testing.T) {
	t.Helper()
	select {
	case h.ticker.ch <- time.Now():
	case <-time.After(1 * time.Second):
		t.Fatal("spawn loop did not receive tick")
	}
	h.waitFor(t, events.TargetSpawned)
}

// waitFor skips events until one of the given kind arrives.
func (h *harness) waitFor(t *testing.T, kind events.TargetKind) {
	t.Helper()
	deadline := time.After(1 * time.Second)
	for {
		select {
		case ev := <-h.bus.TargetChanges:
			if ev.Kind == kind {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q event", kind)
		}
	}
}

func (h *harness) expectEvent(t *testing.T, kind events.TargetKind) events.TargetEvent {
	t.Helper()
	select {
	case ev := <-h.bus.TargetChanges:
		if ev.Kind != kind {
			t.Fatalf("event kind = %q, want %q", ev.Kind, kind)
		}
		return ev
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for %q event", kind)
	}
	return events.TargetEvent{}
}

func testConfig() Config {
	return Config{
		Interval:   DefaultInterval,
		Diameter:   100,
		PlayWidth:  600,
		PlayHeight: 400,
	}
}

func TestController_StartSpawnsFirstTarget(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	if got := h.stats.Get().TotalTargets; got != 1 {
		t.Errorf("TotalTargets = %d, want 1", got)
	}
	target, ok := h.c.Current()
	if !ok {
		t.Fatal("Current() should return a target after Start")
	}
	if target.ID != 1 {
		t.Errorf("first target ID = %d, want 1", target.ID)
	}
	if target.State != StateSpawned {
		t.Errorf("state = %q, want %q", target.State, StateSpawned)
	}
	if target.Top != 150 || target.Left != 250 {
		t.Errorf("position = (%v, %v), want (150, 250)", target.Top, target.Left)
	}
}

func TestController_StartTwice(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	if err := h.c.Start(context.Background()); err != ErrRunning {
		t.Errorf("second Start() error = %v, want ErrRunning", err)
	}
}

func TestController_TicksIncrementTargets(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	for k := 1; k <= 5; k++ {
		h.tick(t)
		if got := h.stats.Get().TotalTargets; got != 1+k {
			t.Errorf("after %d ticks TotalTargets = %d, want %d", k, got, 1+k)
		}
	}

	target, _ := h.c.Current()
	if target.ID != 6 {
		t.Errorf("current target ID = %d, want 6", target.ID)
	}
}

func TestController_SpawnEventAfterCount(t *testing.T) {
	h := newHarness(t, testConfig())
	if err := h.c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	for k := 1; k <= 50; k++ {
		if k > 1 {
			select {
			case h.ticker.ch <- time.Now():
			case <-time.After(1 * time.Second):
				t.Fatal("spawn loop did not receive tick")
			}
		}
		ev := h.expectEvent(t, events.TargetSpawned)
		if got := h.stats.Get().TotalTargets; got != ev.TargetID {
			t.Fatalf("spawn of target %d seen with TotalTargets = %d", ev.TargetID, got)
		}
	}
}

func TestController_PositionWithinBounds(t *testing.T) {
	cfg := testConfig()
	cfg.Rand = func() float64 { return 0.999 }
	h := newHarness(t, cfg)
	h.start(t)

	target, _ := h.c.Current()
	if target.Top < 0 || target.Top+target.Diameter > cfg.PlayHeight {
		t.Errorf("Top = %v out of bounds", target.Top)
	}
	if target.Left < 0 || target.Left+target.Diameter > cfg.PlayWidth {
		t.Errorf("Left = %v out of bounds", target.Left)
	}
}

func TestController_DegeneratePlayArea(t *testing.T) {
	cfg := testConfig()
	cfg.PlayWidth = 100
	cfg.PlayHeight = 100
	cfg.Rand = func() float64 { return 0.73 }
	h := newHarness(t, cfg)
	h.start(t)

	target, _ := h.c.Current()
	if target.Top != 0 || target.Left != 0 {
		t.Errorf("position = (%v, %v), want (0, 0)", target.Top, target.Left)
	}
}

func TestController_TooSmallPlayArea(t *testing.T) {
	cfg := testConfig()
	cfg.PlayWidth = 50
	cfg.PlayHeight = 80
	h := newHarness(t, cfg)
	h.start(t)

	target, _ := h.c.Current()
	if target.Top >= 0 || target.Left >= 0 {
		t.Errorf("position = (%v, %v), want negative degenerate values", target.Top, target.Left)
	}
}

func TestController_ClickTargetOnce(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	target, _ := h.c.Current()
	if !h.c.ClickTarget(target.ID, Point{X: 300, Y: 200}) {
		t.Fatal("ClickTarget should down a live target")
	}
	h.expectEvent(t, events.TargetDowned)

	want := stats.Snapshot{TotalTargets: 1, TotalTargetsClicked: 1, TotalClicks: 1, TotalClicksOnTarget: 1}
	if got := h.stats.Get(); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}

	downed, ok := h.c.Current()
	if !ok || !downed.Downed() {
		t.Fatal("downed target should stay current until the next tick")
	}
	if downed.HitPoint == nil || downed.HitPoint.X != 300 || downed.HitPoint.Y != 200 {
		t.Errorf("HitPoint = %v, want (300, 200)", downed.HitPoint)
	}
}

func TestController_ClickDownedTargetDoesNotDoubleCount(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	target, _ := h.c.Current()
	for i := 0; i < 10; i++ {
		h.c.ClickTarget(target.ID, Point{X: 300, Y: 200})
	}

	got := h.stats.Get()
	if got.TotalClicksOnTarget != 1 || got.TotalTargetsClicked != 1 {
		t.Errorf("hits = %d/%d, want 1/1", got.TotalClicksOnTarget, got.TotalTargetsClicked)
	}
	if got.TotalClicks != 10 {
		t.Errorf("TotalClicks = %d, want 10", got.TotalClicks)
	}
}

func TestController_ClickReplacedTarget(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	old, _ := h.c.Current()
	h.tick(t)

	if h.c.ClickTarget(old.ID, Point{}) {
		t.Error("a replaced target should not be downed")
	}
	got := h.stats.Get()
	if got.TotalClicks != 1 || got.TotalClicksOnTarget != 0 {
		t.Errorf("stats = %+v, want one miss", got)
	}
}

func TestController_ClickHitTest(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	// Target at top=150 left=250, diameter 100 -> center (300, 200)
	if h.c.Click(Point{X: 10, Y: 10}) {
		t.Error("click far from the target should miss")
	}
	if h.c.Click(Point{X: 251, Y: 151}) {
		t.Error("click in the bounding box corner should miss the circle")
	}
	if !h.c.Click(Point{X: 340, Y: 200}) {
		t.Error("click inside the circle should hit")
	}

	want := stats.Snapshot{TotalTargets: 1, TotalTargetsClicked: 1, TotalClicks: 3, TotalClicksOnTarget: 1}
	if got := h.stats.Get(); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestController_MixedSession(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	first, _ := h.c.Current()
	h.c.ClickTarget(first.ID, Point{X: 300, Y: 200})
	h.c.Click(Point{X: 1, Y: 1})
	h.tick(t)
	h.tick(t)
	second, _ := h.c.Current()
	h.c.ClickTarget(second.ID, Point{X: 300, Y: 200})
	h.c.Click(Point{X: 1, Y: 1})
	h.tick(t)
	h.c.Click(Point{X: 1, Y: 1})

	want := stats.Snapshot{TotalTargets: 4, TotalTargetsClicked: 2, TotalClicks: 5, TotalClicksOnTarget: 2}
	if got := h.stats.Get(); got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestController_StopDiscardsTarget(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	h.c.Stop()
	h.expectEvent(t, events.TargetCleared)

	if _, ok := h.c.Current(); ok {
		t.Error("Current() should be empty after Stop")
	}
	if h.c.Running() {
		t.Error("Running() should be false after Stop")
	}
	if !h.ticker.Stopped() {
		t.Error("ticker should be stopped after Stop")
	}
}

func TestController_NoMutationAfterStop(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)
	h.c.Stop()

	before := h.stats.Get()
	h.c.Click(Point{X: 300, Y: 200})
	h.c.ClickTarget(1, Point{})

	if got := h.stats.Get(); got != before {
		t.Errorf("stats changed after Stop: %+v -> %+v", before, got)
	}

	// The loop has exited; a tick would block forever
	select {
	case h.ticker.ch <- time.Now():
		t.Error("spawn loop still receiving ticks after Stop")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestController_StaleTickIgnored(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)

	h.c.tick(h.c.gen - 1)

	if got := h.stats.Get().TotalTargets; got != 1 {
		t.Errorf("stale tick changed TotalTargets to %d", got)
	}
}

func TestController_RestartResetsIDs(t *testing.T) {
	h := newHarness(t, testConfig())
	h.start(t)
	h.tick(t)
	h.c.Stop()
	h.expectEvent(t, events.TargetCleared)

	h.stats.Reset()
	h.start(t)

	target, _ := h.c.Current()
	if target.ID != 1 {
		t.Errorf("first target of new session ID = %d, want 1", target.ID)
	}
	if got := h.stats.Get().TotalTargets; got != 1 {
		t.Errorf("TotalTargets = %d, want 1", got)
	}
}

func TestController_SetPlayArea(t *testing.T) {
	h := newHarness(t, testConfig())
	h.c.SetPlayArea(1000, 800)

	w, ht := h.c.PlayArea()
	if w != 1000 || ht != 800 {
		t.Errorf("PlayArea() = %v x %v, want 1000 x 800", w, ht)
	}

	h.start(t)
	target, _ := h.c.Current()
	if target.Top != 350 || target.Left != 450 {
		t.Errorf("position = (%v, %v), want (350, 450)", target.Top, target.Left)
	}
}

func TestController_RealTicker(t *testing.T) {
	st := stats.NewStore()
	bus := events.NewBus()
	cfg := testConfig()
	cfg.Interval = 10 * time.Millisecond
	c := NewController(st, bus, nil, cfg)

	if err := c.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for st.Get().TotalTargets < 3 {
		select {
		case <-bus.TargetChanges:
		case <-deadline:
			t.Fatalf("TotalTargets = %d after 2s, want >= 3", st.Get().TotalTargets)
		}
	}
	c.Stop()

	after := st.Get().TotalTargets
	time.Sleep(50 * time.Millisecond)
	if got := st.Get().TotalTargets; got != after {
		t.Errorf("TotalTargets changed after Stop: %d -> %d", after, got)
	}
}

func TestTarget_Contains(t *testing.T) {
	target := Target{Top: 0, Left: 0, Diameter: 100}
	if !target.Contains(Point{X: 50, Y: 50}) {
		t.Error("center should be inside")
	}
	if !target.Contains(Point{X: 100, Y: 50}) {
		t.Error("edge should be inside")
	}
	if target.Contains(Point{X: 0, Y: 0}) {
		t.Error("bounding box corner should be outside")
	}
}
