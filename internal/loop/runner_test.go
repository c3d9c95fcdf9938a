package loop

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
)

// quietConfig never lets the real timers fire during a test; ticks are driven by hand.
func quietConfig() game.Config {
	cfg := game.DefaultConfig()
	cfg.BaseSpawnInterval = time.Hour
	cfg.MinSpawnInterval = time.Hour
	return cfg
}

func testExercise() game.Exercise {
	return game.Exercise{
		ID: "ex-1",
		DialogueLines: []game.DialogueLine{
			{Speaker: "A", Template: "I ___ to the ___."},
		},
		CorrectAnswers: []string{"I go to the market."},
	}
}

func newTestRunner(t *testing.T, cfg game.Config, ex game.Exercise, h Handlers) (*Runner, *fakeClock) {
	t.Helper()
	clock := newFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	logger := zerolog.Nop()
	r := New(ex, Options{
		Config:        cfg,
		Seed:          5,
		FrameInterval: time.Hour,
		Time:          clock,
		Handlers:      h,
		Logger:        &logger,
	})
	t.Cleanup(r.Close)
	return r, clock
}

// tick runs one frame tick as the loop goroutine would.
func tick(r *Runner) {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	r.frameTick(stop)
}

// spawnNow runs one spawn tick as the loop goroutine would.
func spawnNow(r *Runner) {
	r.mu.Lock()
	stop := r.stop
	r.mu.Unlock()
	r.spawnTick(stop)
}

func TestRunnerMissOnLastLifeCompletesOnce(t *testing.T) {
	cfg := quietConfig()
	cfg.Lives = 1
	var completions []Completion
	var progress []Progress
	r, clock := newTestRunner(t, cfg, testExercise(), Handlers{
		OnComplete: func(c Completion) { completions = append(completions, c) },
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Without a word bank every spawn offers the target.
	spawnNow(r)
	snap := r.Snapshot()
	if len(snap.Words) != 1 || !snap.Words[0].IsTarget {
		t.Fatalf("expected one target word, got %+v", snap.Words)
	}

	clock.Advance(time.Minute)
	tick(r)

	snap = r.Snapshot()
	if snap.Game.Phase != game.PhaseLost || snap.Game.Lives != 0 {
		t.Errorf("expected lost with 0 lives, got %s/%d", snap.Game.Phase, snap.Game.Lives)
	}
	if len(completions) != 1 {
		t.Fatalf("expected exactly one completion, got %d", len(completions))
	}
	if completions[0].Score != 0 || completions[0].Lives != 0 {
		t.Errorf("unexpected completion %+v", completions[0])
	}
	if len(progress) != 1 || progress[0].Correct {
		t.Errorf("expected one incorrect progress event, got %+v", progress)
	}
	if r.Running() {
		t.Error("expected ticks stopped after loss")
	}

	// Further input is rejected and nothing changes.
	if err := r.Hit(1); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("expected ErrInvalidPhase, got %v", err)
	}
	tick(r)
	if len(completions) != 1 {
		t.Errorf("completion raised again")
	}
}

func TestRunnerSlowCompletionDoesNotBlockSnapshot(t *testing.T) {
	cfg := quietConfig()
	cfg.Lives = 1
	entered := make(chan struct{})
	release := make(chan struct{})
	r, clock := newTestRunner(t, cfg, testExercise(), Handlers{
		OnComplete: func(Completion) {
			close(entered)
			<-release // stands in for a slow result write
		},
	})
	t.Cleanup(func() {
		select {
		case <-release:
		default:
			close(release)
		}
	})

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	spawnNow(r)
	clock.Advance(time.Minute)

	done := make(chan struct{})
	go func() {
		tick(r)
		close(done)
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("completion handler was not called")
	}

	got := make(chan Snapshot, 1)
	go func() { got <- r.Snapshot() }()
	select {
	case snap := <-got:
		if snap.Game.Phase != game.PhaseLost {
			t.Errorf("expected lost while handler runs, got %s", snap.Game.Phase)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Snapshot blocked while the completion handler was running")
	}

	close(release)
	<-done
}

func TestRunnerHandlerMayReadSnapshot(t *testing.T) {
	var r *Runner
	var seen game.Phase
	r, _ = newTestRunner(t, quietConfig(), game.Exercise{ID: "empty"}, Handlers{
		OnComplete: func(Completion) { seen = r.Snapshot().Game.Phase },
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if seen != game.PhaseWon {
		t.Errorf("expected handler to observe won, got %q", seen)
	}
}

func TestSnapshotJSONHidesTarget(t *testing.T) {
	r, _ := newTestRunner(t, quietConfig(), testExercise(), Handlers{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	spawnNow(r) // no word bank: the spawned word is the target
	b, err := json.Marshal(r.Snapshot())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"text":"go"`) {
		t.Fatalf("expected the falling word in %s", b)
	}
	if strings.Contains(strings.ToLower(string(b)), "target") {
		t.Errorf("snapshot leaks the target flag: %s", b)
	}
}

func TestRunnerFreshBaselineAfterResume(t *testing.T) {
	r, clock := newTestRunner(t, quietConfig(), testExercise(), Handlers{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	spawnNow(r)
	w := r.Snapshot().Words[0]

	clock.Advance(time.Second)
	tick(r)
	y1 := r.Snapshot().Words[0].Y
	if math.Abs(y1-w.Speed) > 1e-9 {
		t.Fatalf("expected y=%v after 1s, got %v", w.Speed, y1)
	}

	if err := r.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	clock.Advance(time.Hour)
	if err := r.Resume(); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	clock.Advance(500 * time.Millisecond)
	tick(r)

	y2 := r.Snapshot().Words[0].Y
	if want := y1 + w.Speed*0.5; math.Abs(y2-want) > 1e-9 {
		t.Errorf("expected y=%v after resume, got %v (pause time leaked into delta)", want, y2)
	}
}

func TestRunnerPauseStopsTicks(t *testing.T) {
	r, clock := newTestRunner(t, quietConfig(), testExercise(), Handlers{})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !r.Running() {
		t.Fatal("expected ticks running after start")
	}
	spawnNow(r)

	r.mu.Lock()
	stale := r.stop
	r.mu.Unlock()

	if err := r.Pause(); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	if r.Running() {
		t.Error("expected ticks stopped while paused")
	}

	before := r.Snapshot().Words
	clock.Advance(10 * time.Second)
	r.frameTick(stale)
	if _, ok := r.spawnTick(stale); ok {
		t.Error("expected stale spawn tick to be rejected")
	}
	after := r.Snapshot().Words
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("stale tick mutated the field: %+v -> %+v", before, after)
	}
}

func TestRunnerCommandPhases(t *testing.T) {
	r, _ := newTestRunner(t, quietConfig(), testExercise(), Handlers{})
	if err := r.Pause(); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("expected ErrInvalidPhase for pause before start, got %v", err)
	}
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("expected ErrInvalidPhase for second start, got %v", err)
	}
	if err := r.Resume(); !errors.Is(err, ErrInvalidPhase) {
		t.Errorf("expected ErrInvalidPhase for resume while playing, got %v", err)
	}
}

func TestRunnerCloseReleasesEverything(t *testing.T) {
	completed := false
	r, _ := newTestRunner(t, quietConfig(), testExercise(), Handlers{
		OnComplete: func(Completion) { completed = true },
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	spawnNow(r)

	r.Close()
	if r.Running() {
		t.Error("expected no ticks after close")
	}
	if err := r.Hit(1); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := r.Resume(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	snap := r.Snapshot()
	if !snap.Closed || len(snap.Words) != 0 {
		t.Errorf("expected closed empty snapshot, got %+v", snap)
	}
	if completed {
		t.Error("teardown must not raise completion")
	}
	r.Close() // idempotent
}

func TestRunnerHitTextScoresAndReveals(t *testing.T) {
	var progress []Progress
	r, _ := newTestRunner(t, quietConfig(), testExercise(), Handlers{
		OnProgress: func(p Progress) { progress = append(progress, p) },
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if got := r.Snapshot().Revealed; len(got) != 0 {
		t.Fatalf("expected nothing revealed at start, got %q", got)
	}
	spawnNow(r)

	ok, err := r.HitText("GO")
	if err != nil || !ok {
		t.Fatalf("HitText: ok=%v err=%v", ok, err)
	}
	snap := r.Snapshot()
	if snap.Game.Score != 10 || snap.Game.Combo != 1 {
		t.Errorf("expected score 10 combo 1, got %d/%d", snap.Game.Score, snap.Game.Combo)
	}
	if len(snap.Revealed) != 1 || snap.Revealed[0] != "go" {
		t.Errorf("expected 'go' revealed, got %q", snap.Revealed)
	}
	if len(progress) != 1 || !progress[0].Correct || progress[0].Points != 10 {
		t.Errorf("unexpected progress events %+v", progress)
	}
	if ok, _ := r.HitText("nothing-falling"); ok {
		t.Error("expected no match for absent text")
	}
}

func TestRunnerDeterministicSpawns(t *testing.T) {
	ex := testExercise()
	ex.WordBank = []string{"went", "station", "gone", "market"}

	sequence := func() []game.FallingWord {
		r, _ := newTestRunner(t, quietConfig(), ex, Handlers{})
		if err := r.Start(); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		for i := 0; i < 20; i++ {
			spawnNow(r)
		}
		return r.Snapshot().Words
	}
	a, b := sequence(), sequence()
	if len(a) != 20 || len(b) != 20 {
		t.Fatalf("expected 20 spawns each, got %d and %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("spawn %d differs: %+v vs %+v", i, a[i], b[i])
		}
		if a[i].X < quietConfig().EdgeMargin || a[i].X > quietConfig().FieldWidth-quietConfig().EdgeMargin {
			t.Errorf("spawn %d outside margins: x=%v", i, a[i].X)
		}
	}
}

func TestRunnerFallbackPool(t *testing.T) {
	clock := newFakeClock(time.Now())
	logger := zerolog.Nop()
	r := New(testExercise(), Options{
		Config:        quietConfig(),
		Seed:          3,
		FrameInterval: time.Hour,
		Time:          clock,
		FallbackPool:  []string{"station"},
		Logger:        &logger,
	})
	defer r.Close()
	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	sawDistractor := false
	for i := 0; i < 30; i++ {
		spawnNow(r)
	}
	for _, w := range r.Snapshot().Words {
		if w.Text == "station" {
			sawDistractor = true
		}
	}
	if !sawDistractor {
		t.Error("expected fallback pool to supply distractors")
	}
}

// The real timers drive the session when nothing is mocked.
func TestRunnerRealTicks(t *testing.T) {
	cfg := game.DefaultConfig()
	cfg.BaseSpawnInterval = 5 * time.Millisecond
	cfg.SpawnIntervalStep = 0
	cfg.MinSpawnInterval = 5 * time.Millisecond
	logger := zerolog.Nop()
	r := New(testExercise(), Options{Config: cfg, Seed: 1, FrameInterval: 2 * time.Millisecond, Logger: &logger})

	if err := r.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	moved := false
	for time.Now().Before(deadline) && !moved {
		for _, w := range r.Snapshot().Words {
			if w.Y > 0 {
				moved = true
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !moved {
		t.Fatal("expected spawned words to fall under real ticks")
	}

	r.Close()
	if r.Running() {
		t.Error("expected ticks released after close")
	}
	frozen := r.Snapshot()
	time.Sleep(20 * time.Millisecond)
	if again := r.Snapshot(); again.Game != frozen.Game || len(again.Words) != 0 {
		t.Errorf("state changed after close: %+v -> %+v", frozen.Game, again.Game)
	}
}
