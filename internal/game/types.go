// internal/game/types.go
//
// Core type definitions for the word-catching engine.
// Defines:
//   - Phase: session lifecycle (ready → playing ⇄ paused → won/lost).
//   - GameState: score, lives, combo, difficulty and progression cursor.
//   - FallingWord: one in-flight word object.
//   - Event: inputs to Step (commands, ticks, player hits).
//   - Notice: outputs of Step (progress, completion, feedback).

package game

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseReady   Phase = "ready"
	PhasePlaying Phase = "playing"
	PhasePaused  Phase = "paused"
	PhaseWon     Phase = "won"
	PhaseLost    Phase = "lost"
)

// Terminal reports whether no further transitions are possible.
func (p Phase) Terminal() bool { return p == PhaseWon || p == PhaseLost }

// GameState holds the scalar state of a single session.
type GameState struct {
	Score           int     `json:"score"`
	Lives           int     `json:"lives"`           // never negative
	Combo           int     `json:"combo"`           // consecutive correct catches
	SpeedMultiplier float64 `json:"speedMultiplier"` // starts at 1, capped by Config.MaxSpeedMultiplier
	LineIndex       int     `json:"lineIndex"`
	GapIndex        int     `json:"gapIndex"`
	Phase           Phase   `json:"phase"`
}

// FallingWord is a word object in the playfield. Y grows downward.
// IsTarget stays server-side so clients cannot tell which word to catch.
type FallingWord struct {
	ID       uint64  `json:"id"`
	Text     string  `json:"text"`
	IsTarget bool    `json:"-"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Speed    float64 `json:"speed"` // field units per second
}

// Line is a playable dialogue line with its recovered gap targets.
type Line struct {
	Speaker  string   `json:"speaker"`
	Template string   `json:"template"`
	Answer   string   `json:"answer"`
	Targets  []string `json:"targets"` // "" marks an unfillable gap
}

// Warning describes a content-authoring problem found while building lines.
type Warning struct {
	LineIndex int    `json:"lineIndex"`
	GapIndex  int    `json:"gapIndex"`
	Template  string `json:"template"`
	Reason    string `json:"reason"`
}

// Event is an input to Step.
type Event interface{ isEvent() }

// Start begins a ready session.
type Start struct{}

// Pause freezes a playing session.
type Pause struct{}

// Resume continues a paused session.
type Resume struct{}

// Frame advances every in-flight word by DT seconds.
type Frame struct{ DT float64 }

// Spawn inserts a word at horizontal position X. Jitter is added to the
// difficulty-derived speed.
type Spawn struct {
	Text   string
	X      float64
	Jitter float64
}

// Hit is a player catch of the word with the given ID.
type Hit struct{ ID uint64 }

// Teardown ends the session without completion (playfield unmounted).
type Teardown struct{}

func (Start) isEvent()    {}
func (Pause) isEvent()    {}
func (Resume) isEvent()   {}
func (Frame) isEvent()    {}
func (Spawn) isEvent()    {}
func (Hit) isEvent()      {}
func (Teardown) isEvent() {}

// NoticeKind classifies a Notice.
type NoticeKind string

const (
	NoticeProgress      NoticeKind = "progress"       // scored hit or miss
	NoticeComplete      NoticeKind = "complete"       // phase became won or lost
	NoticeMissed        NoticeKind = "missed"         // target left the playfield
	NoticeWrongHit      NoticeKind = "wrong_hit"      // distractor caught
	NoticeGapAdvanced   NoticeKind = "gap_advanced"   // next gap in the same line
	NoticeLineAdvanced  NoticeKind = "line_advanced"  // next line, difficulty raised
	NoticeUnfillableGap NoticeKind = "unfillable_gap" // empty target skipped
)

// Notice is an outcome raised by Step for the hosting page.
type Notice struct {
	Kind      NoticeKind `json:"kind"`
	Correct   bool       `json:"correct,omitempty"`
	Points    int        `json:"points,omitempty"`
	Score     int        `json:"score"`
	Lives     int        `json:"lives"`
	Phase     Phase      `json:"phase"`
	Word      string     `json:"word,omitempty"`
	LineIndex int        `json:"lineIndex"`
	GapIndex  int        `json:"gapIndex"`
}
