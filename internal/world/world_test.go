package world_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/rng"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

type staticTemplates map[string]entities.Vector

func (t staticTemplates) RoomVector(feature string) entities.Vector {
	out := entities.NewTraitVector(0)
	for k, v := range t[feature] {
		out[k] = v
	}
	return out
}

type WorldTestSuite struct {
	suite.Suite
	cfg       *world.Config
	templates staticTemplates
	dungeon   *world.Dungeon
}

func TestWorldSuite(t *testing.T) {
	suite.Run(t, new(WorldTestSuite))
}

func (s *WorldTestSuite) SetupTest() {
	s.cfg = &world.Config{
		Title:          "Escape the Dungeon",
		TotalLevels:    12,
		Rows:           5,
		Columns:        10,
		RoomsPerLevel:  50,
		ChaptersPerAct: 4,
		TreasureRooms:  20,
		RuneForgeRooms: 5,
	}
	s.templates = staticTemplates{
		world.FeatureTraining: {"Constraint": 0.3},
		world.FeatureTreasure: {"Projection": 0.2},
	}
	d, err := world.Build(s.cfg, s.templates, rng.New(7))
	s.Require().NoError(err)
	s.dungeon = d
}

func (s *WorldTestSuite) countFeature(depth int, feature string) int {
	n := 0
	for _, room := range s.dungeon.Level(depth).Rooms {
		if room.Feature == feature {
			n++
		}
	}
	return n
}

func (s *WorldTestSuite) TestShape() {
	s.Equal(12, s.dungeon.StartDepth)
	s.Equal("L12_R000", s.dungeon.StartRoomID)
	s.Equal(1, s.dungeon.EscapeDepth)
	s.Equal("L01_R049", s.dungeon.EscapeRoomID)
	s.Len(s.dungeon.Levels, 12)

	for depth := 1; depth <= 12; depth++ {
		level := s.dungeon.Level(depth)
		s.Require().NotNil(level)
		s.Len(level.Rooms, 50)
		s.Equal(13-depth, level.ChapterNumber)
		s.Equal(20, s.countFeature(depth, world.FeatureTreasure), "depth %d", depth)
		s.Equal(5, s.countFeature(depth, world.FeatureRuneForge), "depth %d", depth)
		s.Equal(1, s.countFeature(depth, world.FeatureTraining))
		s.Equal(1, s.countFeature(depth, world.FeatureDialogue))
		s.Equal(1, s.countFeature(depth, world.FeatureRest))
		s.Equal(1, s.countFeature(depth, world.FeatureCombat))
	}

	s.Equal(world.FeatureStart, s.dungeon.Room(12, "L12_R000").Feature)
	s.Equal(world.FeatureStairsDown, s.dungeon.Room(11, "L11_R000").Feature)
	s.Equal(world.FeatureStairsUp, s.dungeon.Room(12, "L12_R049").Feature)
	s.Equal(world.FeatureEscapeGate, s.dungeon.Room(1, "L01_R049").Feature)
}

func (s *WorldTestSuite) TestExitsAreOrdered() {
	corner := s.dungeon.Room(12, "L12_R000")
	s.Equal([]string{world.South, world.East}, corner.ExitDirections())

	middle := s.dungeon.Room(12, world.RoomID(12, 15))
	s.Equal([]string{world.North, world.South, world.West, world.East}, middle.ExitDirections())

	exit := s.dungeon.Room(12, "L12_R049")
	s.Equal([]string{world.North, world.West, world.Up}, exit.ExitDirections())

	upperStart := s.dungeon.Room(11, "L11_R000")
	s.Equal([]string{world.South, world.East, world.Down}, upperStart.ExitDirections())

	s.Equal([]string{world.North, world.West}, s.dungeon.Room(1, "L01_R049").ExitDirections())
}

func (s *WorldTestSuite) TestStairsLinkLevels() {
	up, ok := s.dungeon.Step(12, "L12_R049", world.Up)
	s.Require().True(ok)
	s.Equal(world.Exit{Direction: world.Up, Depth: 11, RoomID: "L11_R000"}, up)

	down, ok := s.dungeon.Step(11, "L11_R000", world.Down)
	s.Require().True(ok)
	s.Equal(12, down.Depth)
	s.Equal("L12_R049", down.RoomID)

	_, ok = s.dungeon.Step(1, "L01_R049", world.Up)
	s.False(ok)
}

func (s *WorldTestSuite) TestStepRespectsBlockedFeatures() {
	level := s.dungeon.Level(12)
	var forge *world.Room
	for _, room := range level.Rooms {
		if room.Feature == world.FeatureRuneForge && room.Row > 0 {
			forge = room
			break
		}
	}
	s.Require().NotNil(forge)
	from := world.RoomID(12, forge.Index-s.cfg.Columns)

	_, ok := s.dungeon.Step(12, from, world.South, world.FeatureRuneForge)
	s.False(ok)
	exit, ok := s.dungeon.Step(12, from, world.South)
	s.True(ok)
	s.Equal(forge.RoomID, exit.RoomID)

	_, ok = s.dungeon.Step(12, "L12_R000", world.North)
	s.False(ok)
	_, ok = s.dungeon.Step(99, "L12_R000", world.South)
	s.False(ok)
}

func (s *WorldTestSuite) TestSameSeedSameDungeon() {
	other, err := world.Build(s.cfg, s.templates, rng.New(7))
	s.Require().NoError(err)

	a, err := json.Marshal(s.dungeon)
	s.Require().NoError(err)
	b, err := json.Marshal(other)
	s.Require().NoError(err)
	s.JSONEq(string(a), string(b))

	different, err := world.Build(s.cfg, s.templates, rng.New(8))
	s.Require().NoError(err)
	c, err := json.Marshal(different)
	s.Require().NoError(err)
	s.NotEqual(string(a), string(c))
}

func (s *WorldTestSuite) TestRoomItems() {
	for _, room := range s.dungeon.Level(3).Rooms {
		switch room.Feature {
		case world.FeatureTreasure:
			s.Require().Len(room.Items, 2)
			s.Equal("Treasure Cache", room.Items[0].Name)
			s.True(room.Items[1].HasTag(entities.TagWeapon))
			s.True(room.Items[1].IsPresent)
		case world.FeatureCombat:
			s.Require().Len(room.Items, 1)
			s.Equal("Worn Blade", room.Items[0].Name)
		default:
			s.Empty(room.Items)
		}
	}
}

func (s *WorldTestSuite) TestEffectiveVectorAndTakeItems() {
	room := &world.Room{
		BaseVector: entities.Vector{"Constraint": 0.3},
		Items: []*world.RoomItem{
			{ItemID: "a", Tags: []string{entities.TagLoot}, VectorDelta: entities.Vector{"Projection": 0.4}, IsPresent: true},
			{ItemID: "b", Tags: []string{entities.TagWeapon}, VectorDelta: entities.Vector{"Survival": -0.5}, IsPresent: true},
		},
	}
	vector := room.EffectiveVector()
	s.InDelta(0.3, vector["Constraint"], 1e-9)
	s.InDelta(0.4, vector["Projection"], 1e-9)
	s.Len(vector, len(entities.TraitNames))

	top := room.TopVector(2)
	s.Require().Len(top, 2)
	s.Equal("Survival", top[0].Trait)
	s.Equal("Projection", top[1].Trait)

	s.True(room.HasItemTag(entities.TagWeapon))
	taken := room.TakeFirstItemWithTag(entities.TagWeapon)
	s.Require().NotNil(taken)
	s.Equal("b", taken.ItemID)
	s.False(room.HasItemTag(entities.TagWeapon))
	s.Equal(1, room.PresentItemCount())

	s.Equal("a", room.TakeFirstPresentItem().ItemID)
	s.Nil(room.TakeFirstPresentItem())
	s.InDelta(0.0, room.EffectiveVector()["Projection"], 1e-9)
}

func (s *WorldTestSuite) TestChaptersAndActs() {
	s.Equal(1, s.dungeon.ChapterForDepth(12))
	s.Equal(12, s.dungeon.ChapterForDepth(1))
	s.Equal(1, s.dungeon.ActForDepth(9))
	s.Equal(2, s.dungeon.ActForDepth(8))
	s.Equal(3, s.dungeon.ActForDepth(1))
}

func (s *WorldTestSuite) TestWeaponPowerForTier() {
	s.Equal(1, world.WeaponPowerForTier(nil))
	s.Equal(2, world.WeaponPowerForTier([]string{entities.TagWeapon, entities.RarityRare}))
	s.Equal(3, world.WeaponPowerForTier([]string{entities.RarityEpic}))
	s.Equal(4, world.WeaponPowerForTier([]string{entities.RarityRare, entities.RarityLegendary}))
}

func (s *WorldTestSuite) TestBuildValidation() {
	testCases := []struct {
		name   string
		mutate func(cfg *world.Config)
	}{
		{name: "grid mismatch", mutate: func(cfg *world.Config) { cfg.RoomsPerLevel = 49 }},
		{name: "no levels", mutate: func(cfg *world.Config) { cfg.TotalLevels = 0 }},
		{name: "negative treasure", mutate: func(cfg *world.Config) { cfg.TreasureRooms = -1 }},
	}
	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := *s.cfg
			tc.mutate(&cfg)
			_, err := world.Build(&cfg, s.templates, rng.New(7))
			s.Require().Error(err)
			s.True(errors.IsInvalidArgument(err))
		})
	}

	_, err := world.Build(nil, s.templates, rng.New(7))
	s.True(errors.IsInvalidArgument(err))
}
