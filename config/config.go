// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World     WorldConfig     `yaml:"world"`
	Steering  SteeringConfig  `yaml:"steering"`
	Carnivore CarnivoreConfig `yaml:"carnivore"`
	Herbivore HerbivoreConfig `yaml:"herbivore"`
	Prey      PreyConfig      `yaml:"prey"`
	Player    PlayerConfig    `yaml:"player"`
	Seaweed   SeaweedConfig   `yaml:"seaweed"`
	Stars     StarsConfig     `yaml:"stars"`
	Spawner   SpawnerConfig   `yaml:"spawner"`
	Obstacles []BoxConfig     `yaml:"obstacles"`
	Pollution []SphereConfig  `yaml:"pollution"`
	Game      GameConfig      `yaml:"game"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Bookmarks BookmarksConfig `yaml:"bookmarks"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds the water volume and stepping parameters.
type WorldConfig struct {
	Min          [3]float64 `yaml:"min"`            // Volume lower corner (x, y, z)
	Max          [3]float64 `yaml:"max"`            // Volume upper corner (x, y, z)
	SurfaceY     float64    `yaml:"surface_y"`      // Water surface height
	DT           float64    `yaml:"dt"`             // Fixed step for headless runs
	GridCellSize float64    `yaml:"grid_cell_size"` // Spatial grid cell size
}

// SteeringConfig holds the shared steering controller parameters.
type SteeringConfig struct {
	SmoothTime     float64 `yaml:"smooth_time"`     // Direction smoothing time constant (seconds)
	AvoidStrength  float64 `yaml:"avoid_strength"`  // Weight of the avoidance vector
	DetectDistance float64 `yaml:"detect_distance"` // Ray length for obstacle sensing
	RayCount       int     `yaml:"ray_count"`       // Rays in the sensing fan
	RaySpreadDeg   float64 `yaml:"ray_spread_deg"`  // Total fan angle
	ArriveDistance float64 `yaml:"arrive_distance"` // Wander point counts as reached below this
}

// FishConfig holds parameters shared by every fish species.
type FishConfig struct {
	Size              float64 `yaml:"size"`
	MinSize           float64 `yaml:"min_size"`
	MaxSize           float64 `yaml:"max_size"`
	MoveSpeed         float64 `yaml:"move_speed"`
	TurnRate          float64 `yaml:"turn_rate"` // degrees per second
	DetectionRange    float64 `yaml:"detection_range"`
	EatRange          float64 `yaml:"eat_range"`
	Nutrition         float64 `yaml:"nutrition"`           // Yield when eaten
	NutritionFromSize bool    `yaml:"nutrition_from_size"` // Yield own size instead of Nutrition
}

// CarnivoreConfig holds predator fish parameters.
type CarnivoreConfig struct {
	FishConfig `yaml:",inline"`

	ChaseSpeed     float64 `yaml:"chase_speed"`
	FleeSpeed      float64 `yaml:"flee_speed"`
	AttackCooldown float64 `yaml:"attack_cooldown"`
	SizeAdvantage  float64 `yaml:"size_advantage"` // Hysteresis margin for chase/flee decisions
	WanderRadius   float64 `yaml:"wander_radius"`
	WanderTime     float64 `yaml:"wander_time"`
	AggroRange     float64 `yaml:"aggro_range"`
	HuntNPC        bool    `yaml:"hunt_npc"`     // Also target smaller non-player fish
	GrowthScale    float64 `yaml:"growth_scale"` // Fraction of nutrition converted to size
}

// HerbivoreConfig holds grazing fish parameters.
type HerbivoreConfig struct {
	FishConfig `yaml:",inline"`

	IdleTime        float64 `yaml:"idle_time"`
	WanderTime      float64 `yaml:"wander_time"`
	WanderRadius    float64 `yaml:"wander_radius"`
	HungerThreshold float64 `yaml:"hunger_threshold"`
	RestChance      float64 `yaml:"rest_chance"` // Probability of resting after a successful bite
}

// PreyConfig holds schooling fish parameters.
type PreyConfig struct {
	FishConfig `yaml:",inline"`

	NormalSpeed        float64 `yaml:"normal_speed"`
	FleeSpeed          float64 `yaml:"flee_speed"`
	FleeDistance       float64 `yaml:"flee_distance"`
	SafeDistance       float64 `yaml:"safe_distance"`
	NeighborRadius     float64 `yaml:"neighbor_radius"`
	SeparationDistance float64 `yaml:"separation_distance"`
	SeparationWeight   float64 `yaml:"separation_weight"`
	AlignmentWeight    float64 `yaml:"alignment_weight"`
	CohesionWeight     float64 `yaml:"cohesion_weight"`
	WanderStrength     float64 `yaml:"wander_strength"`
	WanderInterval     float64 `yaml:"wander_interval"` // Seconds between wander bias samples
	WanderScale        float64 `yaml:"wander_scale"`    // Noise frequency for the wander field
	FleeJitter         float64 `yaml:"flee_jitter"`
	AlarmHold          float64 `yaml:"alarm_hold"`        // Seconds an alarmed fish keeps fleeing
	AlarmRadiusMult    float64 `yaml:"alarm_radius_mult"` // Alarm radius = neighbor_radius * this
}

// PlayerConfig holds the player-controlled fish parameters.
type PlayerConfig struct {
	FishConfig `yaml:",inline"`

	Spawn             [3]float64 `yaml:"spawn"`
	SprintSpeed       float64    `yaml:"sprint_speed"`
	DiveSpeed         float64    `yaml:"dive_speed"`
	MaxDiveDepth      float64    `yaml:"max_dive_depth"`
	JumpHeight        float64    `yaml:"jump_height"`
	JumpSpeed         float64    `yaml:"jump_speed"`
	Gravity           float64    `yaml:"gravity"`
	GrowthPerBite     float64    `yaml:"growth_per_bite"`
	ShrinkRate        float64    `yaml:"shrink_rate"` // Size lost per second in polluted water
	SuperScore        int        `yaml:"super_score"`
	SuperDuration     float64    `yaml:"super_duration"`
	SuperEatRangeMult float64    `yaml:"super_eat_range_mult"`
	SuperSizeMult     float64    `yaml:"super_size_mult"`
	SegmentSpacing    float64    `yaml:"segment_spacing"`
}

// SeaweedConfig holds grazing resource parameters.
type SeaweedConfig struct {
	Count      int     `yaml:"count"`
	TotalSize  float64 `yaml:"total_size"`
	Bite       float64 `yaml:"bite"`
	RegrowRate float64 `yaml:"regrow_rate"` // per second
}

// StarsConfig holds score pickup parameters.
type StarsConfig struct {
	Count        int     `yaml:"count"`
	PointValue   int     `yaml:"point_value"`
	PickupRadius float64 `yaml:"pickup_radius"`
}

// SpawnerConfig holds initial population and top-up parameters.
type SpawnerConfig struct {
	Carnivores  int         `yaml:"carnivores"`
	Herbivores  int         `yaml:"herbivores"`
	Depth       float64     `yaml:"depth"`        // Swim layer for NPC fish and seaweed
	DepthJitter float64     `yaml:"depth_jitter"` // +/- around Depth
	Prey        PreySpawner `yaml:"prey"`
}

// PreySpawner holds school spawn and respawn parameters.
type PreySpawner struct {
	Center        [3]float64 `yaml:"center"`
	InitialMin    int        `yaml:"initial_min"`
	InitialMax    int        `yaml:"initial_max"`
	Radius        float64    `yaml:"radius"`
	SizeMin       float64    `yaml:"size_min"`
	SizeMax       float64    `yaml:"size_max"`
	CheckInterval float64    `yaml:"check_interval"`
	MinAlive      int        `yaml:"min_alive"`
}

// BoxConfig describes an axis-aligned obstacle.
type BoxConfig struct {
	Min [3]float64 `yaml:"min"`
	Max [3]float64 `yaml:"max"`
}

// SphereConfig describes a spherical zone.
type SphereConfig struct {
	Center [3]float64 `yaml:"center"`
	Radius float64    `yaml:"radius"`
}

// GameConfig holds run-level rules.
type GameConfig struct {
	TotalFishCount int  `yaml:"total_fish_count"` // Fish the player must eat for victory
	Autopilot      bool `yaml:"autopilot"`        // Drive the player without input
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"`
	BookmarkHistorySize int     `yaml:"bookmark_history_size"`
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// BookmarksConfig holds bookmark detection thresholds.
type BookmarksConfig struct {
	SchoolCrash SchoolCrashConfig `yaml:"school_crash"`
	MassAlarm   MassAlarmConfig   `yaml:"mass_alarm"`
	ApexGrowth  ApexGrowthConfig  `yaml:"apex_growth"`
}

// SchoolCrashConfig holds prey crash detection parameters.
type SchoolCrashConfig struct {
	DropPercent float64 `yaml:"drop_percent"`
	MinDrop     int     `yaml:"min_drop"`
}

// MassAlarmConfig holds alarm burst detection parameters.
type MassAlarmConfig struct {
	MinAlarms int `yaml:"min_alarms"`
}

// ApexGrowthConfig holds carnivore growth detection parameters.
type ApexGrowthConfig struct {
	GrowthPercent float64 `yaml:"growth_percent"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	Extent         [3]float64 // World.Max - World.Min
	Center         [3]float64 // Volume midpoint
	AlarmRadius    float64    // Prey.NeighborRadius * Prey.AlarmRadiusMult
	TicksPerWindow int32      // Telemetry.StatsWindow / World.DT
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults are invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.computeDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Obstacles = append([]BoxConfig(nil), c.Obstacles...)
	cp.Pollution = append([]SphereConfig(nil), c.Pollution...)
	return &cp
}

// Recompute refreshes derived values after fields were changed in code.
func (c *Config) Recompute() {
	c.computeDerived()
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	for i := 0; i < 3; i++ {
		c.Derived.Extent[i] = c.World.Max[i] - c.World.Min[i]
		c.Derived.Center[i] = (c.World.Max[i] + c.World.Min[i]) / 2
	}

	mult := c.Prey.AlarmRadiusMult
	if mult == 0 {
		mult = 2
	}
	c.Derived.AlarmRadius = c.Prey.NeighborRadius * mult

	c.Derived.TicksPerWindow = 1
	if c.World.DT > 0 {
		if n := int32(c.Telemetry.StatsWindow / c.World.DT); n > 1 {
			c.Derived.TicksPerWindow = n
		}
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
