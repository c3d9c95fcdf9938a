package game

import "math"

// advance moves past the current gap after a correct catch, then skips any
// unfillable gaps that follow.
func (t *transition) advance() {
	t.step()
	t.skipUnfillable()
}

// step moves the cursor one gap forward. Words in flight for the old gap are
// discarded without scoring.
func (t *transition) step() {
	g := &t.s.Game
	t.s.Field.Clear()

	line := t.s.Lines[g.LineIndex]
	if g.GapIndex+1 < len(line.Targets) {
		g.GapIndex++
		t.notify(NoticeGapAdvanced, nil)
		return
	}
	if g.LineIndex+1 < len(t.s.Lines) {
		g.LineIndex++
		g.GapIndex = 0
		// Difficulty never decreases, whatever the tuning says.
		g.SpeedMultiplier = math.Max(g.SpeedMultiplier,
			math.Min(g.SpeedMultiplier+math.Max(t.cfg.SpeedIncrement, 0), t.cfg.MaxSpeedMultiplier))
		t.notify(NoticeLineAdvanced, nil)
		return
	}
	t.finish(PhaseWon)
}

// skipUnfillable auto-advances past gaps whose target is empty so the session
// cannot stall on bad authoring data.
func (t *transition) skipUnfillable() {
	for t.s.Game.Phase == PhasePlaying && t.s.CurrentTarget() == "" {
		t.notify(NoticeUnfillableGap, nil)
		t.step()
	}
}
