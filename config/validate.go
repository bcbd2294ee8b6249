package config

import (
	"errors"
	"fmt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Validate rejects configurations the simulation cannot converge with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, path, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s: %s", ErrInvalid, path, fmt.Sprintf(format, args...)))
		}
	}

	w := c.World
	for i, axis := range []string{"x", "y", "z"} {
		check(w.Max[i] > w.Min[i], "world."+axis, "max %.2f must exceed min %.2f", w.Max[i], w.Min[i])
	}
	check(w.DT > 0, "world.dt", "must be > 0, got %v", w.DT)
	check(w.GridCellSize > 0, "world.grid_cell_size", "must be > 0, got %v", w.GridCellSize)

	s := c.Steering
	check(s.SmoothTime > 0, "steering.smooth_time", "must be > 0, got %v", s.SmoothTime)
	check(s.DetectDistance > 0, "steering.detect_distance", "must be > 0, got %v", s.DetectDistance)
	check(s.RayCount >= 1, "steering.ray_count", "must be >= 1, got %d", s.RayCount)
	check(s.RaySpreadDeg >= 0 && s.RaySpreadDeg <= 360, "steering.ray_spread_deg", "must be in [0, 360], got %v", s.RaySpreadDeg)
	check(s.AvoidStrength >= 0, "steering.avoid_strength", "must be >= 0, got %v", s.AvoidStrength)
	check(s.ArriveDistance > 0, "steering.arrive_distance", "must be > 0, got %v", s.ArriveDistance)

	errs = append(errs, c.Carnivore.FishConfig.validate("carnivore")...)
	cv := c.Carnivore
	check(cv.ChaseSpeed > 0, "carnivore.chase_speed", "must be > 0, got %v", cv.ChaseSpeed)
	check(cv.FleeSpeed > 0, "carnivore.flee_speed", "must be > 0, got %v", cv.FleeSpeed)
	check(cv.AttackCooldown >= 0, "carnivore.attack_cooldown", "must be >= 0, got %v", cv.AttackCooldown)
	check(cv.SizeAdvantage >= 0, "carnivore.size_advantage", "must be >= 0, got %v", cv.SizeAdvantage)
	check(cv.WanderRadius > 0, "carnivore.wander_radius", "must be > 0, got %v", cv.WanderRadius)
	check(cv.WanderTime > 0, "carnivore.wander_time", "must be > 0, got %v", cv.WanderTime)
	check(cv.AggroRange > 0, "carnivore.aggro_range", "must be > 0, got %v", cv.AggroRange)
	check(cv.AggroRange <= cv.DetectionRange, "carnivore.aggro_range", "%v exceeds detection_range %v", cv.AggroRange, cv.DetectionRange)

	errs = append(errs, c.Herbivore.FishConfig.validate("herbivore")...)
	h := c.Herbivore
	check(h.IdleTime >= 0, "herbivore.idle_time", "must be >= 0, got %v", h.IdleTime)
	check(h.WanderTime > 0, "herbivore.wander_time", "must be > 0, got %v", h.WanderTime)
	check(h.WanderRadius > 0, "herbivore.wander_radius", "must be > 0, got %v", h.WanderRadius)
	check(h.HungerThreshold > 0, "herbivore.hunger_threshold", "must be > 0, got %v", h.HungerThreshold)
	check(h.RestChance >= 0 && h.RestChance <= 1, "herbivore.rest_chance", "must be in [0, 1], got %v", h.RestChance)

	errs = append(errs, c.Prey.FishConfig.validate("prey")...)
	p := c.Prey
	check(p.NormalSpeed > 0, "prey.normal_speed", "must be > 0, got %v", p.NormalSpeed)
	check(p.FleeSpeed > 0, "prey.flee_speed", "must be > 0, got %v", p.FleeSpeed)
	check(p.FleeDistance > 0, "prey.flee_distance", "must be > 0, got %v", p.FleeDistance)
	check(p.SafeDistance >= p.FleeDistance, "prey.safe_distance", "%v is below flee_distance %v", p.SafeDistance, p.FleeDistance)
	check(p.NeighborRadius > 0, "prey.neighbor_radius", "must be > 0, got %v", p.NeighborRadius)
	check(p.SeparationDistance > 0, "prey.separation_distance", "must be > 0, got %v", p.SeparationDistance)
	check(p.WanderInterval > 0, "prey.wander_interval", "must be > 0, got %v", p.WanderInterval)
	check(p.AlarmHold >= 0, "prey.alarm_hold", "must be >= 0, got %v", p.AlarmHold)

	errs = append(errs, c.Player.FishConfig.validate("player")...)
	pl := c.Player
	check(pl.SprintSpeed > 0, "player.sprint_speed", "must be > 0, got %v", pl.SprintSpeed)
	check(pl.DiveSpeed > 0, "player.dive_speed", "must be > 0, got %v", pl.DiveSpeed)
	check(pl.Gravity > 0, "player.gravity", "must be > 0, got %v", pl.Gravity)
	check(pl.SuperDuration > 0, "player.super_duration", "must be > 0, got %v", pl.SuperDuration)
	check(pl.SuperEatRangeMult > 0, "player.super_eat_range_mult", "must be > 0, got %v", pl.SuperEatRangeMult)
	check(pl.SuperSizeMult > 0, "player.super_size_mult", "must be > 0, got %v", pl.SuperSizeMult)
	check(pl.ShrinkRate >= 0, "player.shrink_rate", "must be >= 0, got %v", pl.ShrinkRate)

	check(c.Seaweed.TotalSize > 0, "seaweed.total_size", "must be > 0, got %v", c.Seaweed.TotalSize)
	check(c.Seaweed.Bite > 0, "seaweed.bite", "must be > 0, got %v", c.Seaweed.Bite)
	check(c.Seaweed.RegrowRate >= 0, "seaweed.regrow_rate", "must be >= 0, got %v", c.Seaweed.RegrowRate)
	check(c.Stars.PickupRadius > 0, "stars.pickup_radius", "must be > 0, got %v", c.Stars.PickupRadius)

	ps := c.Spawner.Prey
	check(ps.InitialMin <= ps.InitialMax, "spawner.prey.initial_min", "%d exceeds initial_max %d", ps.InitialMin, ps.InitialMax)
	check(ps.SizeMin > 0 && ps.SizeMin <= ps.SizeMax, "spawner.prey.size_min", "must be in (0, size_max], got %v", ps.SizeMin)
	check(ps.CheckInterval > 0, "spawner.prey.check_interval", "must be > 0, got %v", ps.CheckInterval)

	for i, b := range c.Obstacles {
		for axis := 0; axis < 3; axis++ {
			check(b.Max[axis] > b.Min[axis], fmt.Sprintf("obstacles[%d]", i), "axis %d is inverted", axis)
		}
	}
	for i, z := range c.Pollution {
		check(z.Radius > 0, fmt.Sprintf("pollution[%d].radius", i), "must be > 0, got %v", z.Radius)
	}

	check(c.Telemetry.StatsWindow > 0, "telemetry.stats_window", "must be > 0, got %v", c.Telemetry.StatsWindow)

	return errors.Join(errs...)
}

func (f FishConfig) validate(section string) []error {
	var errs []error
	check := func(ok bool, field, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %s.%s: %s", ErrInvalid, section, field, fmt.Sprintf(format, args...)))
		}
	}
	check(f.MinSize > 0, "min_size", "must be > 0, got %v", f.MinSize)
	check(f.MinSize <= f.MaxSize, "min_size", "%v exceeds max_size %v", f.MinSize, f.MaxSize)
	check(f.Size >= f.MinSize && f.Size <= f.MaxSize, "size", "%v outside [%v, %v]", f.Size, f.MinSize, f.MaxSize)
	check(f.MoveSpeed > 0, "move_speed", "must be > 0, got %v", f.MoveSpeed)
	check(f.TurnRate > 0, "turn_rate", "must be > 0, got %v", f.TurnRate)
	check(f.DetectionRange > 0, "detection_range", "must be > 0, got %v", f.DetectionRange)
	check(f.EatRange > 0, "eat_range", "must be > 0, got %v", f.EatRange)
	check(f.Nutrition >= 0, "nutrition", "must be >= 0, got %v", f.Nutrition)
	return errs
}
