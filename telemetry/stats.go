package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	PreyCount      int     `csv:"prey"`
	CarnivoreCount int     `csv:"carnivores"`
	HerbivoreCount int     `csv:"herbivores"`
	SeaweedTotal   float64 `csv:"seaweed_total"`

	// Events during window
	PreySpawns int `csv:"prey_spawns"`
	PreyDeaths int `csv:"prey_deaths"`
	FishDeaths int `csv:"fish_deaths"`

	// Predation
	Attempts    int     `csv:"attempts"`
	Predations  int     `csv:"predations"`
	PlayerKills int     `csv:"player_kills"`
	HitRate     float64 `csv:"hit_rate"`

	// Behavior
	Alarms      int `csv:"alarms"`
	Alerted     int `csv:"alerted"`
	Bites       int `csv:"bites"`
	Transitions int `csv:"transitions"`
	Avoidance   int `csv:"avoidance"`
	Stars       int `csv:"stars"`

	// Size distribution (sampled at window end)
	PreySizeMean float64 `csv:"prey_size_mean"`
	PreySizeStd  float64 `csv:"prey_size_std"`
	PreySizeP10  float64 `csv:"prey_size_p10"`
	PreySizeP50  float64 `csv:"prey_size_p50"`
	PreySizeP90  float64 `csv:"prey_size_p90"`

	CarnivoreSizeMean float64 `csv:"carnivore_size_mean"`
	CarnivoreSizeStd  float64 `csv:"carnivore_size_std"`
	CarnivoreSizeP10  float64 `csv:"carnivore_size_p10"`
	CarnivoreSizeP50  float64 `csv:"carnivore_size_p50"`
	CarnivoreSizeP90  float64 `csv:"carnivore_size_p90"`

	// Player
	PlayerAlive bool    `csv:"player_alive"`
	PlayerSize  float64 `csv:"player_size"`
	PlayerScore int     `csv:"player_score"`
	FishEaten   int     `csv:"fish_eaten"`
}

// SizeStats summarizes a size distribution.
type SizeStats struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSizeStats calculates the population mean, standard deviation and
// percentiles of values. values is not modified.
func ComputeSizeStats(values []float64) SizeStats {
	if len(values) == 0 {
		return SizeStats{}
	}

	var s SizeStats
	s.Mean, s.Std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	s.P10 = Percentile(sorted, 0.10)
	s.P50 = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("prey", s.PreyCount),
		slog.Int("carnivores", s.CarnivoreCount),
		slog.Int("herbivores", s.HerbivoreCount),
		slog.Float64("seaweed_total", s.SeaweedTotal),
		slog.Int("prey_spawns", s.PreySpawns),
		slog.Int("prey_deaths", s.PreyDeaths),
		slog.Int("fish_deaths", s.FishDeaths),
		slog.Int("attempts", s.Attempts),
		slog.Int("predations", s.Predations),
		slog.Int("player_kills", s.PlayerKills),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int("alarms", s.Alarms),
		slog.Int("alerted", s.Alerted),
		slog.Int("bites", s.Bites),
		slog.Int("transitions", s.Transitions),
		slog.Int("avoidance", s.Avoidance),
		slog.Int("stars", s.Stars),
		slog.Float64("prey_size_mean", s.PreySizeMean),
		slog.Float64("prey_size_std", s.PreySizeStd),
		slog.Float64("prey_size_p50", s.PreySizeP50),
		slog.Float64("carnivore_size_mean", s.CarnivoreSizeMean),
		slog.Float64("carnivore_size_p90", s.CarnivoreSizeP90),
		slog.Bool("player_alive", s.PlayerAlive),
		slog.Float64("player_size", s.PlayerSize),
		slog.Int("player_score", s.PlayerScore),
		slog.Int("fish_eaten", s.FishEaten),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
