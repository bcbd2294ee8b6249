// Package telemetry provides school health tracking, bookmarking, and the event journal.
package telemetry

import "github.com/pthm-cable/shoal/components"

// EventType identifies telemetry events.
type EventType uint8

const (
	EventSpawn EventType = iota
	EventDeath
	EventPredation
	EventPlayerDeath
	EventAlarm
	EventSuperOn
	EventSuperOff
	EventVictory
	EventStar
)

var eventNames = [...]string{
	EventSpawn:       "spawn",
	EventDeath:       "death",
	EventPredation:   "predation",
	EventPlayerDeath: "player_death",
	EventAlarm:       "alarm",
	EventSuperOn:     "super_on",
	EventSuperOff:    "super_off",
	EventVictory:     "victory",
	EventStar:        "star",
}

// String returns the snake_case name stored in the journal.
func (t EventType) String() string {
	if int(t) < len(eventNames) {
		return eventNames[t]
	}
	return "unknown"
}

// Event is a single notable occurrence.
type Event struct {
	Type   EventType
	Tick   int32
	Actor  components.Identity
	Target components.Identity // zero when the event has no second party

	// Nutrition for predation, alerted count for alarms, score for stars.
	Amount float64
}

// NewSpawnEvent records an agent entering the water.
func NewSpawnEvent(tick int32, id components.Identity) Event {
	return Event{Type: EventSpawn, Tick: tick, Actor: id}
}

// NewDeathEvent records an agent leaving the registry.
func NewDeathEvent(tick int32, id components.Identity) Event {
	return Event{Type: EventDeath, Tick: tick, Actor: id}
}

// NewPredationEvent records eater consuming victim.
func NewPredationEvent(tick int32, eater, victim components.Identity, nutrition float64) Event {
	return Event{Type: EventPredation, Tick: tick, Actor: eater, Target: victim, Amount: nutrition}
}

// NewPlayerDeathEvent records the player being caught. The killer is the actor.
func NewPlayerDeathEvent(tick int32, killer, player components.Identity) Event {
	return Event{Type: EventPlayerDeath, Tick: tick, Actor: killer, Target: player}
}

// NewAlarmEvent records a contagion burst raised by threat.
func NewAlarmEvent(tick int32, threat components.Identity, alerted int) Event {
	return Event{Type: EventAlarm, Tick: tick, Actor: threat, Amount: float64(alerted)}
}

// NewSuperEvent records super mode switching on or off.
func NewSuperEvent(tick int32, player components.Identity, active bool) Event {
	t := EventSuperOff
	if active {
		t = EventSuperOn
	}
	return Event{Type: t, Tick: tick, Actor: player}
}

// NewVictoryEvent records the player reaching the eaten fish target.
func NewVictoryEvent(tick int32, player components.Identity, eaten int) Event {
	return Event{Type: EventVictory, Tick: tick, Actor: player, Amount: float64(eaten)}
}

// NewStarEvent records a pickup being collected.
func NewStarEvent(tick int32, player components.Identity, score int) Event {
	return Event{Type: EventStar, Tick: tick, Actor: player, Amount: float64(score)}
}
