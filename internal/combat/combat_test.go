package combat_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/combat"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/rng"
)

type fixedRoller struct {
	value int
	err   error
}

func (f *fixedRoller) Roll(_ int) (int, error) { return f.value, f.err }
func (f *fixedRoller) RollN(count, _ int) ([]int, error) {
	out := make([]int, count)
	for i := range out {
		out[i] = f.value
	}
	return out, f.err
}

type SparTestSuite struct {
	suite.Suite
	roller   *fixedRoller
	spar     *combat.Spar
	attacker *entities.Entity
	defender *entities.Entity
}

func TestSparSuite(t *testing.T) {
	suite.Run(t, new(SparTestSuite))
}

func (s *SparTestSuite) SetupTest() {
	s.roller = &fixedRoller{value: 1}
	spar, err := combat.NewSpar(&combat.Config{Roller: s.roller, BaseXPPerLevel: 30})
	s.Require().NoError(err)
	s.spar = spar

	s.attacker = &entities.Entity{
		ID:         "kael",
		Name:       "Kael",
		Attributes: entities.Attributes{Might: 6, Agility: 5, Insight: 5, Willpower: 6},
		BaseLevel:  1,
		Health:     100,
	}
	s.defender = &entities.Entity{
		ID:         "dungeoneer_12_01",
		Name:       "Mira",
		Attributes: entities.DefaultAttributes(),
		BaseLevel:  1,
		Health:     94,
	}
}

func (s *SparTestSuite) TestDamageFormula() {
	testCases := []struct {
		name       string
		roll       int
		power      int
		attackerXP int
		expected   int
	}{
		// 6 + 3.6 + 1.75 + 2 = 13.35
		{name: "bare hands no variance", roll: 1, power: 1, expected: 13},
		// + 2.5 * 9999/10000
		{name: "max variance", roll: 10000, power: 1, expected: 16},
		{name: "epic weapon", roll: 1, power: 3, expected: 17},
		// edge 2 levels -> +2.2
		{name: "level edge", roll: 1, power: 1, attackerXP: 60, expected: 16},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.roller.value = tc.roll
			s.attacker.XP = tc.attackerXP
			s.defender.Health = 94

			out, err := s.spar.Spar(&combat.SparInput{
				Attacker:    s.attacker,
				Defender:    s.defender,
				WeaponName:  "bare hands",
				WeaponPower: tc.power,
			})
			s.Require().NoError(err)
			s.Equal(tc.expected, out.Damage)
			s.Equal(94-tc.expected, s.defender.Health)
			s.Equal(s.defender.Health, out.DefenderHealth)
			s.False(out.Defeated)
		})
	}
}

func (s *SparTestSuite) TestEdgeIsClamped() {
	s.defender.BaseLevel = 20
	out, err := s.spar.Spar(&combat.SparInput{Attacker: s.attacker, Defender: s.defender, WeaponName: "bare hands", WeaponPower: 1})
	s.Require().NoError(err)
	// 13.35 - 3.3
	s.Equal(10, out.Damage)
}

func (s *SparTestSuite) TestNonLethalLeavesOneHealth() {
	s.defender.Health = 3
	out, err := s.spar.Spar(&combat.SparInput{Attacker: s.attacker, Defender: s.defender, WeaponName: "Worn Blade", WeaponPower: 1})
	s.Require().NoError(err)
	s.Equal(1, s.defender.Health)
	s.False(out.Defeated)
	s.Equal("Kael hits Mira for 13 using Worn Blade.", out.Message)
}

func (s *SparTestSuite) TestLethalDefeats() {
	s.defender.Health = 3
	out, err := s.spar.Spar(&combat.SparInput{
		Attacker:    s.attacker,
		Defender:    s.defender,
		WeaponName:  "Worn Blade",
		WeaponPower: 2,
		Lethal:      true,
	})
	s.Require().NoError(err)
	s.Equal(0, s.defender.Health)
	s.True(out.Defeated)
	s.False(s.defender.IsAlive())
	s.Equal("Kael defeats Mira using Worn Blade.", out.Message)
}

func (s *SparTestSuite) TestRollerError() {
	s.roller.err = errors.Internal("dice jammed")
	_, err := s.spar.Spar(&combat.SparInput{Attacker: s.attacker, Defender: s.defender})
	s.Require().Error(err)
	s.Equal(94, s.defender.Health)
}

func (s *SparTestSuite) TestDeterministicWithSeededRoller() {
	run := func() []int {
		spar, err := combat.NewSpar(&combat.Config{Roller: rng.New(10), BaseXPPerLevel: 30})
		s.Require().NoError(err)
		defender := *s.defender
		defender.Health = 1000
		var out []int
		for i := 0; i < 20; i++ {
			res, err := spar.Spar(&combat.SparInput{Attacker: s.attacker, Defender: &defender, WeaponPower: 1})
			s.Require().NoError(err)
			out = append(out, res.Damage)
		}
		return out
	}
	s.Equal(run(), run())
}

func (s *SparTestSuite) TestConfigValidation() {
	_, err := combat.NewSpar(nil)
	s.True(errors.IsInvalidArgument(err))

	_, err = combat.NewSpar(&combat.Config{BaseXPPerLevel: 30})
	s.True(errors.IsInvalidArgument(err))

	_, err = combat.NewSpar(&combat.Config{Roller: s.roller})
	s.True(errors.IsInvalidArgument(err))

	_, err = s.spar.Spar(&combat.SparInput{Attacker: s.attacker})
	s.True(errors.IsInvalidArgument(err))
}
