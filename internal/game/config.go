package game

import "time"

// Config holds the tuning parameters of a session.
type Config struct {
	Lives      int
	BasePoints int
	ComboBonus int

	TargetProbability  float64
	SpeedIncrement     float64 // added to SpeedMultiplier per completed line
	MaxSpeedMultiplier float64

	// Per-word speed = BaseSpeed + SpeedMultiplier*SpeedFactor + jitter.
	BaseSpeed   float64
	SpeedFactor float64
	SpeedJitter float64 // jitter is drawn from [-SpeedJitter, +SpeedJitter]

	FieldWidth  float64
	FieldHeight float64
	EdgeMargin  float64 // spawns stay this far from the left/right edges

	// Spawn interval = max(MinSpawnInterval, BaseSpawnInterval - SpawnIntervalStep*SpeedMultiplier).
	BaseSpawnInterval time.Duration
	SpawnIntervalStep time.Duration
	MinSpawnInterval  time.Duration
}

// DefaultConfig returns the design defaults.
func DefaultConfig() Config {
	return Config{
		Lives:              3,
		BasePoints:         10,
		ComboBonus:         5,
		TargetProbability:  0.35,
		SpeedIncrement:     0.2,
		MaxSpeedMultiplier: 2.5,
		BaseSpeed:          60,
		SpeedFactor:        40,
		SpeedJitter:        15,
		FieldWidth:         800,
		FieldHeight:        600,
		EdgeMargin:         60,
		BaseSpawnInterval:  1800 * time.Millisecond,
		SpawnIntervalStep:  150 * time.Millisecond,
		MinSpawnInterval:   700 * time.Millisecond,
	}
}

// SpawnInterval returns the delay between spawn ticks at the given difficulty.
func SpawnInterval(cfg Config, speedMultiplier float64) time.Duration {
	d := cfg.BaseSpawnInterval - time.Duration(float64(cfg.SpawnIntervalStep)*speedMultiplier)
	if d < cfg.MinSpawnInterval {
		return cfg.MinSpawnInterval
	}
	return d
}

// WordSpeed returns the fall speed for a newly spawned word.
func WordSpeed(cfg Config, speedMultiplier, jitter float64) float64 {
	v := cfg.BaseSpeed + speedMultiplier*cfg.SpeedFactor + jitter
	if v < 1 {
		v = 1
	}
	return v
}

// SpawnX maps a uniform draw u in [0,1) to a horizontal position clear of the edges.
func SpawnX(cfg Config, u float64) float64 {
	span := cfg.FieldWidth - 2*cfg.EdgeMargin
	if span <= 0 {
		return cfg.FieldWidth / 2
	}
	return cfg.EdgeMargin + u*span
}
