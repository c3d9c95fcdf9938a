// internal/loop/runner.go
//
// Simulation clock for one word-catching session.
// Responsibilities:
//   - Own the two timing sources: a per-frame ticker that integrates word motion
//     and a spawn timer whose interval shrinks with difficulty.
//   - Funnel every mutation (ticks, commands, player hits) through one mutex into
//     game.Step, so ticks and input observe each other's writes.
//   - Start the timers on entering playing, stop them on any exit, release them on Close.
//
// Notes:
//   - Each start creates a new stop channel; a tick from a stopped generation is
//     discarded under the lock, so nothing mutates after pause, terminal phase or Close.
//   - The frame delta baseline is reset whenever ticks start, so resuming after a
//     pause does not produce a large jump.
//   - Notices are queued under the lock and handed to Handlers only after it is
//     released, so a slow handler never blocks Snapshot or input. A handler may
//     call back into the runner, but not Close: on the tick goroutine Close would
//     wait for itself. Handlers can run on the tick goroutine and on a caller's
//     goroutine at the same time.
package loop

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

var (
	ErrClosed       = errors.New("loop: runner closed")
	ErrInvalidPhase = errors.New("loop: command not valid in current phase")
)

// DefaultFrameInterval approximates a 60 Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Progress is raised on every scored hit or miss.
type Progress struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"`
}

// Completion is raised exactly once, when the session is won or lost.
type Completion struct {
	Score int        `json:"score"`
	Lives int        `json:"lives"`
	Phase game.Phase `json:"phase"`
}

// Handlers are the callbacks to the hosting page. All are optional.
type Handlers struct {
	OnProgress func(Progress)
	OnComplete func(Completion)
	OnNotice   func(game.Notice)
}

// Options configure a Runner.
type Options struct {
	Config        game.Config
	Seed          int64         // 0 picks a time-based seed
	FrameInterval time.Duration // 0 uses DefaultFrameInterval
	Time          TimeProvider  // nil uses SystemTime
	FallbackPool  []string      // distractors used when the exercise has no word bank
	Handlers      Handlers
	Logger        *zerolog.Logger
}

// Runner drives one session. It is safe for concurrent use.
type Runner struct {
	mu sync.Mutex

	cfg      game.Config
	state    game.State
	warnings []game.Warning
	pool     []string
	sampler  *words.Sampler
	clock    TimeProvider
	handlers Handlers
	log      zerolog.Logger

	frameEvery time.Duration
	lastFrame  time.Time
	stop       chan struct{} // non-nil while ticks run
	wg         sync.WaitGroup
	closed     bool
	last       *game.Notice
	pending    []game.Notice // emitted under mu, delivered by unlock
}

// New builds a ready runner for ex. Authoring problems are logged as warnings
// and reported in snapshots; they never prevent a session from starting.
func New(ex game.Exercise, opts Options) *Runner {
	cfg := opts.Config
	if cfg == (game.Config{}) {
		cfg = game.DefaultConfig()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	clock := opts.Time
	if clock == nil {
		clock = SystemTime{}
	}
	frameEvery := opts.FrameInterval
	if frameEvery <= 0 {
		frameEvery = DefaultFrameInterval
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	pool := ex.WordBank
	if len(pool) == 0 {
		pool = opts.FallbackPool
	}

	lines, warnings := game.BuildLines(ex)
	r := &Runner{
		cfg:        cfg,
		state:      game.NewState(cfg, lines),
		warnings:   warnings,
		pool:       pool,
		sampler:    words.NewSampler(seed, cfg.TargetProbability),
		clock:      clock,
		handlers:   opts.Handlers,
		log:        logger.With().Str("exercise", ex.ID).Logger(),
		frameEvery: frameEvery,
	}
	for _, w := range warnings {
		r.log.Warn().Int("line", w.LineIndex).Int("gap", w.GapIndex).
			Str("template", w.Template).Msg(w.Reason)
	}
	return r
}

// Start moves a ready session to playing.
func (r *Runner) Start() error { return r.command(game.Start{}, game.PhaseReady) }

// Pause freezes both ticks; field contents and state are kept.
func (r *Runner) Pause() error { return r.command(game.Pause{}, game.PhasePlaying) }

// Resume restarts both ticks with a fresh frame baseline.
func (r *Runner) Resume() error { return r.command(game.Resume{}, game.PhasePaused) }

func (r *Runner) command(ev game.Event, from game.Phase) error {
	r.mu.Lock()
	defer r.unlock()
	if r.closed {
		return ErrClosed
	}
	if r.state.Game.Phase != from {
		return ErrInvalidPhase
	}
	r.apply(ev)
	return nil
}

// Hit catches the word with id. A word that is already gone is ignored.
func (r *Runner) Hit(id uint64) error {
	r.mu.Lock()
	defer r.unlock()
	if r.closed {
		return ErrClosed
	}
	if r.state.Game.Phase != game.PhasePlaying {
		return ErrInvalidPhase
	}
	r.apply(game.Hit{ID: id})
	return nil
}

// HitText catches the lowest in-flight word spelled text. It reports whether a
// word matched.
func (r *Runner) HitText(text string) (bool, error) {
	r.mu.Lock()
	defer r.unlock()
	if r.closed {
		return false, ErrClosed
	}
	if r.state.Game.Phase != game.PhasePlaying {
		return false, ErrInvalidPhase
	}
	w, ok := r.state.Field.FindByText(text)
	if !ok {
		return false, nil
	}
	r.apply(game.Hit{ID: w.ID})
	return true, nil
}

// Close tears the session down: timers are released, no further mutation
// happens and completion is not raised. Close waits for the tick goroutine.
func (r *Runner) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		r.apply(game.Teardown{})
		r.stopTicks()
	}
	r.unlock()
	r.wg.Wait()
}

// Running reports whether the tick goroutine is active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop != nil
}

// apply runs one Step and reconciles timers with the resulting phase.
// Caller holds r.mu.
func (r *Runner) apply(ev game.Event) {
	next, notices := game.Step(r.cfg, r.state, ev)
	r.state = next
	r.syncTicks()
	r.emit(notices)
}

func (r *Runner) syncTicks() {
	playing := r.state.Game.Phase == game.PhasePlaying && !r.state.Closed
	switch {
	case playing && r.stop == nil:
		r.startTicks()
	case !playing && r.stop != nil:
		r.stopTicks()
	}
}

func (r *Runner) startTicks() {
	r.lastFrame = r.clock.Now()
	stop := make(chan struct{})
	r.stop = stop
	r.wg.Add(1)
	go r.run(stop, r.frameEvery, game.SpawnInterval(r.cfg, r.state.Game.SpeedMultiplier))
	r.log.Debug().Msg("ticks started")
}

func (r *Runner) stopTicks() {
	if r.stop == nil {
		return
	}
	close(r.stop)
	r.stop = nil
	r.log.Debug().Str("phase", string(r.state.Game.Phase)).Msg("ticks stopped")
}

func (r *Runner) run(stop <-chan struct{}, frameEvery, firstSpawn time.Duration) {
	defer r.wg.Done()
	frame := time.NewTicker(frameEvery)
	defer frame.Stop()
	spawn := time.NewTimer(firstSpawn)
	defer spawn.Stop()

	for {
		select {
		case <-stop:
			return
		case <-frame.C:
			r.frameTick(stop)
		case <-spawn.C:
			next, ok := r.spawnTick(stop)
			if !ok {
				return
			}
			spawn.Reset(next)
		}
	}
}

// frameTick integrates motion since the previous frame.
func (r *Runner) frameTick(stop <-chan struct{}) {
	r.mu.Lock()
	defer r.unlock()
	if stop == nil || r.stop != stop {
		return
	}
	now := r.clock.Now()
	dt := now.Sub(r.lastFrame).Seconds()
	r.lastFrame = now
	r.apply(game.Frame{DT: dt})
}

// spawnTick inserts one sampled word and returns the delay to the next spawn.
func (r *Runner) spawnTick(stop <-chan struct{}) (time.Duration, bool) {
	r.mu.Lock()
	defer r.unlock()
	if stop == nil || r.stop != stop {
		return 0, false
	}
	r.spawn()
	return game.SpawnInterval(r.cfg, r.state.Game.SpeedMultiplier), true
}

// spawn samples a word for the current target. Caller holds r.mu.
func (r *Runner) spawn() {
	target := r.state.CurrentTarget()
	if target == "" {
		return
	}
	text := r.sampler.Sample(target, r.pool)
	x := game.SpawnX(r.cfg, r.sampler.Float64())
	jitter := (r.sampler.Float64()*2 - 1) * r.cfg.SpeedJitter
	r.apply(game.Spawn{Text: text, X: x, Jitter: jitter})
}

// emit records notices for snapshots and queues them for the handlers.
// Caller holds r.mu.
func (r *Runner) emit(notices []game.Notice) {
	for _, n := range notices {
		n := n
		r.last = &n
		switch n.Kind {
		case game.NoticeUnfillableGap:
			r.log.Warn().Int("line", n.LineIndex).Int("gap", n.GapIndex).Msg("skipping unfillable gap")
		case game.NoticeComplete:
			r.log.Info().Str("phase", string(n.Phase)).Int("score", n.Score).Int("lives", n.Lives).Msg("session complete")
		}
	}
	r.pending = append(r.pending, notices...)
}

// unlock releases r.mu, then delivers whatever was emitted while it was held.
func (r *Runner) unlock() {
	queued := r.pending
	r.pending = nil
	r.mu.Unlock()
	r.deliver(queued)
}

func (r *Runner) deliver(notices []game.Notice) {
	for _, n := range notices {
		if r.handlers.OnNotice != nil {
			r.handlers.OnNotice(n)
		}
		switch n.Kind {
		case game.NoticeProgress:
			if r.handlers.OnProgress != nil {
				r.handlers.OnProgress(Progress{Correct: n.Correct, Points: n.Points})
			}
		case game.NoticeComplete:
			if r.handlers.OnComplete != nil {
				r.handlers.OnComplete(Completion{Score: n.Score, Lives: n.Lives, Phase: n.Phase})
			}
		}
	}
}
