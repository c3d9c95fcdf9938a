// internal/game/engine.go
//
// Pure transition function for a single word-catching session.
// Responsibilities:
//   - Build the initial State from an exercise.
//   - Apply one Event at a time: Step(cfg, state, event) -> (state, notices).
//   - Enforce the lifecycle: ready → playing ⇄ paused → won/lost, terminal once.
//
// Notes:
//   - Step never mutates its argument; the field is copied before any write.
//   - Once the phase is terminal, or the session was torn down, every event is a no-op.
//   - Scoring lives in scoring.go, gap/line advancement in progression.go.
package game

import "strings"

// State is everything Step needs: scalar state, in-flight words and the lines to play.
type State struct {
	Game   GameState `json:"game"`
	Field  Field     `json:"-"`
	Lines  []Line    `json:"lines"`
	Closed bool      `json:"closed"` // torn down; no further mutation
}

// NewState returns a ready session for lines.
func NewState(cfg Config, lines []Line) State {
	return State{
		Game: GameState{
			Lives:           cfg.Lives,
			SpeedMultiplier: 1,
			Phase:           PhaseReady,
		},
		Lines: lines,
	}
}

// CurrentTarget returns the word for the active gap, or "" when there is none
// (finished session or unfillable gap).
func (s State) CurrentTarget() string {
	if s.Game.LineIndex >= len(s.Lines) {
		return ""
	}
	targets := s.Lines[s.Game.LineIndex].Targets
	if s.Game.GapIndex >= len(targets) {
		return ""
	}
	return targets[s.Game.GapIndex]
}

// CurrentLine returns the active line, if any.
func (s State) CurrentLine() (Line, bool) {
	if s.Game.LineIndex >= len(s.Lines) {
		return Line{}, false
	}
	return s.Lines[s.Game.LineIndex], true
}

// Step applies ev to s and returns the next state plus any notices raised.
func Step(cfg Config, s State, ev Event) (State, []Notice) {
	if s.Closed || s.Game.Phase.Terminal() {
		return s, nil
	}
	next := s
	next.Field = s.Field.clone()

	t := &transition{cfg: cfg, s: &next}
	switch e := ev.(type) {
	case Start:
		if next.Game.Phase != PhaseReady {
			return s, nil
		}
		next.Game.Phase = PhasePlaying
		if len(next.Lines) == 0 {
			t.finish(PhaseWon)
			break
		}
		t.skipUnfillable()

	case Pause:
		if next.Game.Phase != PhasePlaying {
			return s, nil
		}
		next.Game.Phase = PhasePaused

	case Resume:
		if next.Game.Phase != PhasePaused {
			return s, nil
		}
		next.Game.Phase = PhasePlaying

	case Frame:
		if next.Game.Phase != PhasePlaying {
			return s, nil
		}
		for _, w := range next.Field.Advance(e.DT, cfg.FieldHeight) {
			if w.IsTarget {
				t.miss(w)
			}
			if next.Game.Phase.Terminal() {
				break
			}
		}

	case Spawn:
		if next.Game.Phase != PhasePlaying {
			return s, nil
		}
		text := strings.TrimSpace(e.Text)
		if text == "" {
			return s, nil
		}
		target := next.CurrentTarget()
		isTarget := target != "" && strings.EqualFold(text, strings.TrimSpace(target))
		next.Field.Insert(text, isTarget, clampX(cfg, e.X), WordSpeed(cfg, next.Game.SpeedMultiplier, e.Jitter))

	case Hit:
		if next.Game.Phase != PhasePlaying {
			return s, nil
		}
		w, ok := next.Field.Remove(e.ID)
		if !ok {
			// Already gone (fell off or caught): removal is idempotent.
			return s, nil
		}
		if w.IsTarget {
			t.correct(w)
			t.advance()
		} else {
			t.wrong(w)
		}

	case Teardown:
		next.Closed = true
		next.Field.Clear()

	default:
		return s, nil
	}
	return next, t.notices
}

// transition accumulates notices while mutating a private copy of the state.
type transition struct {
	cfg     Config
	s       *State
	notices []Notice
}

func (t *transition) notify(kind NoticeKind, mut func(*Notice)) {
	n := Notice{
		Kind:      kind,
		Score:     t.s.Game.Score,
		Lives:     t.s.Game.Lives,
		Phase:     t.s.Game.Phase,
		LineIndex: t.s.Game.LineIndex,
		GapIndex:  t.s.Game.GapIndex,
	}
	if mut != nil {
		mut(&n)
	}
	t.notices = append(t.notices, n)
}

// finish enters a terminal phase and raises the single completion notice.
func (t *transition) finish(p Phase) {
	if t.s.Game.Phase.Terminal() {
		return
	}
	t.s.Game.Phase = p
	t.s.Field.Clear()
	t.notify(NoticeComplete, nil)
}

func clampX(cfg Config, x float64) float64 {
	lo, hi := cfg.EdgeMargin, cfg.FieldWidth-cfg.EdgeMargin
	if hi < lo {
		return cfg.FieldWidth / 2
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
