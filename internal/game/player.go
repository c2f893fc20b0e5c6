package game

import (
	"math"
	"strings"
)

// boostMultiplier and boostDuration implement the normalized boost rule
// from the simulation step: a short multiplicative speed burst that cannot
// be re-triggered while still active.
const (
	boostMultiplier = 2.0
	boostDuration   = 0.5 // seconds
	moveEpsilon     = 1.0 // pixels; below this the player is considered "arrived"
)

// spawnPalette assigns a player's color deterministically from its
// identifier, so two servers with the same join order render identically.
var spawnPalette = []string{
	"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6",
	"#1abc9c", "#e67e22", "#34495e", "#ff6b81", "#00cec9",
}

// Player is an alive avatar in the arena. Position and mass are mutated
// only by the simulation step; everything else is derived.
type Player struct {
	ID    string
	Name  string
	Color string

	X, Y float64
	Mass float64

	TargetX, TargetY float64

	BoostRemaining float64 // seconds left in the current boost window

	Alive bool
}

// Radius returns the player's current collision/render radius: r = k_r *
// sqrt(mass).
func (p *Player) Radius(radiusMultiplier float64) float64 {
	return radiusMultiplier * math.Sqrt(p.Mass)
}

// Speed returns the player's current ground speed (before any boost
// multiplier): v = v0 / mass^alpha.
func (p *Player) Speed(baseSpeed, massExponent float64) float64 {
	return baseSpeed / math.Pow(p.Mass, massExponent)
}

// IsBoosting reports whether the boost window is currently active.
func (p *Player) IsBoosting() bool {
	return p.BoostRemaining > 0
}

// ActivateBoost starts the boost window if one isn't already running. A
// boost already in progress cannot be re-triggered, per the simulation
// step's normalized boost rule.
func (p *Player) ActivateBoost() {
	if p.BoostRemaining > 0 {
		return
	}
	p.BoostRemaining = boostDuration
}

// ColorForID deterministically maps a player identifier to a palette entry.
func ColorForID(id string) string {
	var h uint32
	for i := 0; i < len(id); i++ {
		h = h*31 + uint32(id[i])
	}
	return spawnPalette[h%uint32(len(spawnPalette))]
}

// SanitizeName trims, strips control characters, truncates to 20 runes,
// and falls back to "Anonymous" when nothing usable remains.
func SanitizeName(raw string) string {
	clean := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r < 0x20 || r == 0x7f {
			continue
		}
		clean = append(clean, r)
	}
	name := strings.TrimSpace(string(clean))
	if runes := []rune(name); len(runes) > 20 {
		name = string(runes[:20])
	}
	if name == "" {
		name = "Anonymous"
	}
	return name
}
