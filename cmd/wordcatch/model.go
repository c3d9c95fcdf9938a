package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/align"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/loop"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

// --- STYLING (using Lipgloss) ---

var (
	styleHeader   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	styleSpeaker  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // Yellow
	styleRevealed = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true) // Green
	styleGap      = lipgloss.NewStyle().Background(lipgloss.Color("22")).Foreground(lipgloss.Color("0"))
	styleCorrect  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	styleWrong    = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	styleSubtle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleField    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	styleLives    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

const (
	pollEvery   = 50 * time.Millisecond
	fieldCols   = 60
	fieldRows   = 16
	gapMarkText = "___"
)

// tickMsg asks the model to pull a fresh snapshot.
type tickMsg time.Time

func pollCmd() tea.Cmd {
	return tea.Tick(pollEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// model renders one runner at a time; the runner does the simulation.
type model struct {
	exercises []game.Exercise
	current   int
	cfg       game.Config
	seed      int64
	frame     time.Duration
	logger    *zerolog.Logger

	runner *loop.Runner
	snap   loop.Snapshot
	input  textinput.Model
	flash  string // one-off message for the last key press
	quit   bool
}

func newModel(list []game.Exercise, cfg game.Config, seed int64, frame time.Duration, logger *zerolog.Logger) *model {
	ti := textinput.New()
	ti.Placeholder = "Type a falling word and press Enter..."
	ti.Focus()
	ti.CharLimit = 40
	ti.Width = 40
	ti.Prompt = "> "

	m := &model{
		exercises: list,
		cfg:       cfg,
		seed:      seed,
		frame:     frame,
		logger:    logger,
		input:     ti,
	}
	m.load(0)
	return m
}

// load replaces the current runner with a fresh one for exercise i.
func (m *model) load(i int) {
	if m.runner != nil {
		m.runner.Close()
	}
	m.current = i
	seed := m.seed
	if seed != 0 {
		seed += int64(i)
	}
	m.runner = loop.New(m.exercises[i], loop.Options{
		Config:        m.cfg,
		Seed:          seed,
		FrameInterval: m.frame,
		FallbackPool:  words.Bank(),
		Logger:        m.logger,
	})
	m.snap = m.runner.Snapshot()
	m.flash = ""
	m.input.SetValue("")
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, pollCmd())
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tickMsg:
		m.snap = m.runner.Snapshot()
		return m, pollCmd()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.runner.Close()
			m.quit = true
			return m, tea.Quit

		case tea.KeyEsc:
			m.togglePause()
			m.snap = m.runner.Snapshot()
			return m, nil

		case tea.KeyEnter:
			m.enter()
			m.snap = m.runner.Snapshot()
			return m, nil
		}
	}

	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) togglePause() {
	switch m.snap.Game.Phase {
	case game.PhasePlaying:
		_ = m.runner.Pause()
	case game.PhasePaused:
		_ = m.runner.Resume()
	}
}

// enter starts, catches, or moves on depending on the phase.
func (m *model) enter() {
	m.flash = ""
	switch phase := m.runner.Snapshot().Game.Phase; {
	case phase == game.PhaseReady:
		_ = m.runner.Start()

	case phase.Terminal():
		if m.current+1 < len(m.exercises) {
			m.load(m.current + 1)
		} else {
			m.load(0)
		}

	case phase == game.PhasePlaying:
		text := strings.TrimSpace(m.input.Value())
		m.input.SetValue("")
		if text == "" {
			return
		}
		ok, err := m.runner.HitText(text)
		if err != nil {
			m.flash = err.Error()
			return
		}
		if !ok {
			m.flash = fmt.Sprintf("%q is not falling", text)
		}
	}
}

// --- VIEW ---

func (m *model) View() string {
	if m.quit {
		return ""
	}
	s := m.snap
	var b strings.Builder

	title := m.exercises[m.current].Title
	if title == "" {
		title = m.exercises[m.current].ID
	}
	b.WriteString(styleHeader.Render(fmt.Sprintf("%s  (%d/%d)", title, m.current+1, len(m.exercises))))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf(" Score %d   Combo %d   Speed x%.1f   %s\n",
		s.Game.Score, s.Game.Combo, s.Game.SpeedMultiplier, styleLives.Render(strings.Repeat("♥ ", s.Game.Lives))))
	if s.LineCount > 0 {
		b.WriteString(styleSubtle.Render(fmt.Sprintf(" Line %d/%d", min(s.Game.LineIndex+1, s.LineCount), s.LineCount)))
		b.WriteString("\n")
	}
	b.WriteString(" " + renderLine(s) + "\n")
	b.WriteString(styleField.Render(renderField(s, fieldCols, fieldRows)))
	b.WriteString("\n")

	switch s.Game.Phase {
	case game.PhaseReady:
		b.WriteString(" Press Enter to start.\n")
	case game.PhasePaused:
		b.WriteString(" Paused. Esc to resume.\n")
	case game.PhaseWon:
		b.WriteString(styleCorrect.Render(fmt.Sprintf(" Exercise complete! Final score %d.", s.Game.Score)) + " Enter for the next one.\n")
	case game.PhaseLost:
		b.WriteString(styleWrong.Render(fmt.Sprintf(" Out of lives. Final score %d.", s.Game.Score)) + " Enter for the next one.\n")
	default:
		b.WriteString(" " + m.input.View() + "\n")
	}

	if fb := feedback(s.Last); fb != "" {
		b.WriteString(" " + fb + "\n")
	}
	if m.flash != "" {
		b.WriteString(" " + styleSubtle.Render(m.flash) + "\n")
	}
	for _, w := range s.Warnings {
		b.WriteString(styleSubtle.Render(fmt.Sprintf(" warning: line %d: %s", w.LineIndex+1, w.Reason)) + "\n")
	}
	b.WriteString(styleSubtle.Render(" Enter: catch/start   Esc: pause   Ctrl+C: quit"))
	return b.String()
}

// renderLine draws the current template with caught words filled in and the
// active gap highlighted.
func renderLine(s loop.Snapshot) string {
	if s.Template == "" {
		return ""
	}
	parts := align.Parts(s.Template)
	var b strings.Builder
	if s.Speaker != "" {
		b.WriteString(styleSpeaker.Render(s.Speaker+":") + " ")
	}
	for i, p := range parts {
		b.WriteString(p)
		if i == len(parts)-1 {
			break
		}
		switch {
		case i < len(s.Revealed):
			b.WriteString(styleRevealed.Render(s.Revealed[i]))
		case i == s.Game.GapIndex && !s.Game.Phase.Terminal():
			b.WriteString(styleGap.Render(gapMarkText))
		default:
			b.WriteString(gapMarkText)
		}
	}
	return b.String()
}

// renderField scales the playfield onto a cols×rows character grid.
func renderField(s loop.Snapshot, cols, rows int) string {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", cols))
	}
	width, height := s.Width, s.Height
	if width <= 0 || height <= 0 {
		return joinGrid(grid)
	}
	for _, w := range s.Words {
		text := []rune(w.Text)
		if len(text) > cols {
			text = text[:cols]
		}
		row := int(w.Y / height * float64(rows-1))
		if row < 0 || row >= rows {
			continue
		}
		col := int(w.X/width*float64(cols)) - len(text)/2
		if col < 0 {
			col = 0
		}
		if col+len(text) > cols {
			col = cols - len(text)
		}
		copy(grid[row][col:], text)
	}
	return joinGrid(grid)
}

func joinGrid(grid [][]rune) string {
	lines := make([]string, len(grid))
	for i, r := range grid {
		lines[i] = string(r)
	}
	return strings.Join(lines, "\n")
}

// feedback turns the latest notice into a one-line message.
func feedback(n *game.Notice) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case game.NoticeProgress:
		if n.Correct {
			return styleCorrect.Render(fmt.Sprintf("+%d  %s", n.Points, n.Word))
		}
		return styleWrong.Render("✗ " + n.Word)
	case game.NoticeWrongHit:
		return styleWrong.Render(fmt.Sprintf("✗ %s is not the missing word", n.Word))
	case game.NoticeMissed:
		return styleWrong.Render(fmt.Sprintf("✗ missed %s", n.Word))
	case game.NoticeGapAdvanced:
		return styleCorrect.Render("✓ next gap")
	case game.NoticeLineAdvanced:
		return styleCorrect.Render("✓ next line, faster!")
	case game.NoticeUnfillableGap:
		return styleSubtle.Render("skipped a gap with no answer")
	}
	return ""
}
