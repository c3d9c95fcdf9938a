// cmd/wordcatch/main.go
//
// Terminal player for word-catching exercises.
//
//	wordcatch [-seed N] [exercise.json]
//
// The file may hold a single exercise object or an array of them. Without a
// file the embedded sample exercises are played in order.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/assets"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/config"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/words"
)

func main() {
	seed := flag.Int64("seed", 0, "random seed for word spawns (0 = time based)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: wordcatch [-seed N] [exercise.json]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := config.Load()
	logger, closeLog := openLog(cfg.LogLevel)
	defer closeLog()
	log.Logger = logger

	if err := words.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "vocabulary: %v\n", err)
		os.Exit(1)
	}

	list, err := loadExercises(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "exercises: %v\n", err)
		os.Exit(1)
	}
	if len(list) == 0 {
		fmt.Println("No exercises to play. Exiting.")
		return
	}

	s := *seed
	if s == 0 {
		s = cfg.Seed
	}
	m := newModel(list, cfg.Game, s, cfg.FrameInterval, &logger)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		logger.Error().Err(err).Msg("program exited")
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

// openLog sends logs to WORDCATCH_LOG when set; the terminal is owned by the UI.
func openLog(level string) (zerolog.Logger, func()) {
	path := os.Getenv("WORDCATCH_LOG")
	if path == "" {
		return zerolog.Nop(), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log file: %v (logging disabled)\n", err)
		return zerolog.Nop(), func() {}
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(f).Level(lvl).With().Timestamp().Str("app", "wordcatch").Logger(), func() { _ = f.Close() }
}

// loadExercises reads path (object or array) or falls back to the samples.
func loadExercises(path string) ([]game.Exercise, error) {
	if path == "" {
		return assets.SampleExercises()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseExercises(b)
}

func parseExercises(b []byte) ([]game.Exercise, error) {
	trimmed := strings.TrimSpace(string(b))
	if strings.HasPrefix(trimmed, "[") {
		var list []game.Exercise
		if err := json.Unmarshal(b, &list); err != nil {
			return nil, fmt.Errorf("decode exercise list: %w", err)
		}
		return list, nil
	}
	var ex game.Exercise
	if err := json.Unmarshal(b, &ex); err != nil {
		return nil, fmt.Errorf("decode exercise: %w", err)
	}
	return []game.Exercise{ex}, nil
}
