package assets

import (
	"embed"
	"encoding/json"
	"io/fs"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
)

//go:embed exercises.json sql/*.sql
var FS embed.FS

// MigrationsDir is the directory inside FS holding the *.sql migrations.
const MigrationsDir = "sql"

// Migrations returns the embedded migration files.
func Migrations() fs.FS {
	return FS
}

// SampleJSON returns the embedded exercise set (a JSON array) used to seed
// the catalogue.
func SampleJSON() ([]byte, error) {
	return FS.ReadFile("exercises.json")
}

// SampleExercises decodes SampleJSON for the terminal player.
func SampleExercises() ([]game.Exercise, error) {
	b, err := SampleJSON()
	if err != nil {
		return nil, err
	}
	var out []game.Exercise
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}
