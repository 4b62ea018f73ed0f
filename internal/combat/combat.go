// Package combat resolves a single exchange between two entities.
package combat

import (
	"fmt"
	"math"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

const (
	varianceSides = 10000
	varianceRange = 2.5
	minEdge       = -3
	maxEdge       = 5
)

// Resolver is the narrow contract the engine consumes.
type Resolver interface {
	Spar(input *SparInput) (*SparOutput, error)
}

// SparInput describes one blow.
type SparInput struct {
	Attacker    *entities.Entity
	Defender    *entities.Entity
	WeaponName  string
	WeaponPower int
	// Lethal lets the blow drop the defender to zero health.
	Lethal bool
}

// SparOutput reports the result. The defender's health is already updated.
type SparOutput struct {
	Damage         int
	DefenderHealth int
	Defeated       bool
	Message        string
}

// Config contains the dependencies for Spar.
type Config struct {
	Roller         dice.Roller
	BaseXPPerLevel int
}

// Validate checks the config.
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	if c.Roller == nil {
		vb.RequiredField("roller")
	}
	errors.ValidateMin("baseXpPerLevel", c.BaseXPPerLevel, 1, vb)
	return vb.Build()
}

// Spar is the default resolver: a level edge, attribute weighting and a
// bounded variance drawn from the roller.
type Spar struct {
	roller         dice.Roller
	baseXPPerLevel int
}

var _ Resolver = (*Spar)(nil)

// NewSpar creates a resolver.
func NewSpar(cfg *Config) (*Spar, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &Spar{roller: cfg.Roller, baseXPPerLevel: cfg.BaseXPPerLevel}, nil
}

// Spar applies one blow from attacker to defender.
func (s *Spar) Spar(input *SparInput) (*SparOutput, error) {
	if input == nil || input.Attacker == nil || input.Defender == nil {
		return nil, errors.InvalidArgument("attacker and defender are required")
	}

	roll, err := s.roller.Roll(varianceSides)
	if err != nil {
		return nil, errors.Wrap(err, "failed to roll variance")
	}
	variance := float64(roll-1) / varianceSides * varianceRange

	attacker, defender := input.Attacker, input.Defender
	edge := s.level(attacker) - s.level(defender)
	if edge < minEdge {
		edge = minEdge
	}
	if edge > maxEdge {
		edge = maxEdge
	}

	raw := 6 +
		float64(attacker.Attributes.Might)*0.6 +
		float64(attacker.Attributes.Agility)*0.35 +
		float64(edge)*1.1 +
		float64(input.WeaponPower)*2 +
		variance
	damage := int(math.Round(raw))
	if damage < 1 {
		damage = 1
	}

	floor := 1
	if input.Lethal {
		floor = 0
	}
	health := defender.Health - damage
	if health < floor {
		health = floor
	}
	defender.Health = health

	out := &SparOutput{
		Damage:         damage,
		DefenderHealth: health,
		Defeated:       health <= 0,
	}
	if out.Defeated {
		out.Message = fmt.Sprintf("%s defeats %s using %s.", attacker.Name, defender.Name, input.WeaponName)
	} else {
		out.Message = fmt.Sprintf("%s hits %s for %d using %s.", attacker.Name, defender.Name, damage, input.WeaponName)
	}
	return out, nil
}

func (s *Spar) level(e *entities.Entity) int {
	level := e.Level(s.baseXPPerLevel)
	if level < 1 {
		return 1
	}
	return level
}
