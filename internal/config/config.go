// internal/config/config.go
//
// Environment configuration for the server and the terminal player.
// Responsibilities:
//   - Load .env (development) via godotenv; real environment variables win.
//   - Read every setting with a default so a bare checkout runs.
//   - Fold the GAME_* / FIELD_* overrides into a game.Config.
//
// Malformed numeric values are logged and replaced by their default rather
// than refusing to start.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordcatch/apps/go-server/internal/game"
	"github.com/robalobadob/wordcatch/apps/go-server/internal/loop"
)

// Config is the resolved process configuration.
type Config struct {
	Port          string
	LogLevel      string
	DBPath        string
	JWTSecret     string // empty disables token verification (guests only)
	ClientOrigin  string
	DailySalt     string
	ExercisesFile string // optional JSON array seeded into the catalogue at startup
	FrameInterval time.Duration
	SessionTTL    time.Duration // idle sessions are evicted after this long
	Seed          int64         // 0 = time based per session
	Game          game.Config
}

// Load reads .env (if present) and the environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment without touching .env files.
func FromEnv() Config {
	g := game.DefaultConfig()
	g.Lives = envInt("GAME_LIVES", g.Lives)
	g.BasePoints = envInt("GAME_BASE_POINTS", g.BasePoints)
	g.ComboBonus = envInt("GAME_COMBO_BONUS", g.ComboBonus)
	g.TargetProbability = envFloat("GAME_TARGET_PROBABILITY", g.TargetProbability)
	g.SpeedIncrement = envFloat("GAME_SPEED_INCREMENT", g.SpeedIncrement)
	g.MaxSpeedMultiplier = envFloat("GAME_MAX_SPEED", g.MaxSpeedMultiplier)
	g.FieldWidth = envFloat("FIELD_WIDTH", g.FieldWidth)
	g.FieldHeight = envFloat("FIELD_HEIGHT", g.FieldHeight)
	if g.Lives < 1 {
		log.Warn().Int("lives", g.Lives).Msg("GAME_LIVES must be positive; using 1")
		g.Lives = 1
	}
	if g.SpeedIncrement < 0 {
		log.Warn().Float64("increment", g.SpeedIncrement).Msg("GAME_SPEED_INCREMENT must not be negative; using 0")
		g.SpeedIncrement = 0
	}
	if g.MaxSpeedMultiplier < 1 {
		g.MaxSpeedMultiplier = 1
	}

	return Config{
		Port:          getEnv("PORT", "5175"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DBPath:        getEnv("DB_PATH", "./data/wordcatch.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		DailySalt:     getEnv("DAILY_SALT", "local_dev_salt"),
		ExercisesFile: os.Getenv("EXERCISES_FILE"),
		FrameInterval: envDuration("FRAME_INTERVAL", loop.DefaultFrameInterval),
		SessionTTL:    envDuration("SESSION_TTL", 30*time.Minute),
		Seed:          int64(envInt("RNG_SEED", 0)),
		Game:          g,
	}
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid integer; using default")
		return def
	}
	return n
}

func envFloat(k string, def float64) float64 {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Warn().Str("key", k).Str("value", v).Msg("invalid number; using default")
		return def
	}
	return f
}

// envDuration accepts Go durations ("16ms") or a bare millisecond count.
func envDuration(k string, def time.Duration) time.Duration {
	v := getEnv(k, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	log.Warn().Str("key", k).Str("value", v).Msg("invalid duration; using default")
	return def
}
