package game

import (
	"strings"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/align"
)

// DialogueLine is one line of an exercise. Lines without a template are
// narration and are not played.
type DialogueLine struct {
	Speaker  string `json:"speaker"`
	Template string `json:"template,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Exercise is the read-only input supplied by the hosting page.
type Exercise struct {
	ID             string         `json:"id,omitempty"`
	Title          string         `json:"title,omitempty"`
	DialogueLines  []DialogueLine `json:"dialogue_lines"`
	WordBank       []string       `json:"word_bank"`
	CorrectAnswers []string       `json:"correct_answers"` // one per line with a template
}

// BuildLines pairs every templated dialogue line with its answer and recovers the
// gap targets. Templates without gap markers are skipped. Missing answers and
// gaps whose target cannot be recovered are reported as warnings; such gaps keep
// an empty target and are skipped during play.
func BuildLines(ex Exercise) ([]Line, []Warning) {
	var (
		lines    []Line
		warnings []Warning
		answerAt int
	)
	for _, dl := range ex.DialogueLines {
		if strings.TrimSpace(dl.Template) == "" {
			continue
		}
		var answer string
		hasAnswer := answerAt < len(ex.CorrectAnswers)
		if hasAnswer {
			answer = ex.CorrectAnswers[answerAt]
		}
		answerAt++

		if align.CountGaps(dl.Template) == 0 {
			continue
		}
		idx := len(lines)
		targets := align.Align(dl.Template, answer)
		if !hasAnswer {
			warnings = append(warnings, Warning{
				LineIndex: idx, GapIndex: -1, Template: dl.Template, Reason: "missing correct answer",
			})
		}
		for g, w := range targets {
			if w == "" && hasAnswer {
				warnings = append(warnings, Warning{
					LineIndex: idx, GapIndex: g, Template: dl.Template, Reason: "gap target not found in answer",
				})
			}
		}
		lines = append(lines, Line{Speaker: dl.Speaker, Template: dl.Template, Answer: answer, Targets: targets})
	}
	return lines, warnings
}
