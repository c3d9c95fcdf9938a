package game

// Points returns the award for a correct catch at the given combo.
func Points(cfg Config, combo int) int {
	return cfg.BasePoints + combo*cfg.ComboBonus
}

// correct scores a caught target word.
func (t *transition) correct(w FallingWord) {
	g := &t.s.Game
	pts := Points(t.cfg, g.Combo)
	g.Score += pts
	g.Combo++
	t.notify(NoticeProgress, func(n *Notice) {
		n.Correct = true
		n.Points = pts
		n.Word = w.Text
	})
}

// wrong penalises a caught distractor.
func (t *transition) wrong(w FallingWord) {
	t.loseLife()
	t.notify(NoticeWrongHit, func(n *Notice) { n.Word = w.Text })
	t.notify(NoticeProgress, func(n *Notice) { n.Word = w.Text })
	t.checkLost()
}

// miss penalises a target word that left the playfield.
func (t *transition) miss(w FallingWord) {
	t.loseLife()
	t.notify(NoticeMissed, func(n *Notice) { n.Word = w.Text })
	t.notify(NoticeProgress, func(n *Notice) { n.Word = w.Text })
	t.checkLost()
}

func (t *transition) loseLife() {
	g := &t.s.Game
	if g.Lives > 0 {
		g.Lives--
	}
	g.Combo = 0
}

func (t *transition) checkLost() {
	if t.s.Game.Lives <= 0 {
		t.finish(PhaseLost)
	}
}
