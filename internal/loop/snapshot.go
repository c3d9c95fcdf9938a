package loop

import "github.com/robalobadob/wordcatch/apps/go-server/internal/game"

// Snapshot is a read-only view of a session for rendering. It never exposes
// the target of the active gap.
type Snapshot struct {
	Game      game.GameState     `json:"game"`
	Words     []game.FallingWord `json:"words"`
	Speaker   string             `json:"speaker,omitempty"`
	Template  string             `json:"template,omitempty"`
	Revealed  []string           `json:"revealed"` // targets of gaps already caught on this line
	LineCount int                `json:"lineCount"`
	GapCount  int                `json:"gapCount"`
	Warnings  []game.Warning     `json:"warnings,omitempty"`
	Last      *game.Notice       `json:"last,omitempty"` // most recent feedback
	Running   bool               `json:"running"`
	Closed    bool               `json:"closed"`
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
}

// Snapshot copies the current state.
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		Game:      r.state.Game,
		Words:     r.state.Field.Words(),
		Revealed:  []string{},
		LineCount: len(r.state.Lines),
		Warnings:  r.warnings,
		Running:   r.stop != nil,
		Closed:    r.closed,
		Width:     r.cfg.FieldWidth,
		Height:    r.cfg.FieldHeight,
	}
	if line, ok := r.state.CurrentLine(); ok {
		s.Speaker = line.Speaker
		s.Template = line.Template
		s.GapCount = len(line.Targets)
		upto := r.state.Game.GapIndex
		if r.state.Game.Phase.Terminal() {
			upto = len(line.Targets)
		}
		if upto > len(line.Targets) {
			upto = len(line.Targets)
		}
		s.Revealed = append(s.Revealed, line.Targets[:upto]...)
	}
	if r.last != nil {
		n := *r.last
		s.Last = &n
	}
	return s
}
