package engine_test

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

const testSeed = 7

type EngineTestSuite struct {
	suite.Suite
	catalog *content.Catalog
	game    *engine.Engine
}

func (s *EngineTestSuite) SetupSuite() {
	catalog, err := content.Default()
	s.Require().NoError(err)
	s.catalog = catalog
}

func (s *EngineTestSuite) SetupTest() {
	game, err := engine.Create(s.catalog, testSeed)
	s.Require().NoError(err)
	s.game = game
}

// roomWithFeature returns the first room of the player's depth, in room
// order, carrying feature.
func (s *EngineTestSuite) roomWithFeature(feature string) *world.Room {
	state := s.game.State()
	level := state.Dungeon.Level(s.game.Player().Depth)
	s.Require().NotNil(level)
	for i := 0; i < len(level.Rooms); i++ {
		room := level.Rooms[world.RoomID(level.Depth, i)]
		if room != nil && room.Feature == feature {
			return room
		}
	}
	s.FailNow(fmt.Sprintf("no %s room on depth %d", feature, level.Depth))
	return nil
}

func (s *EngineTestSuite) placePlayer(room *world.Room) {
	player := s.game.Player()
	player.Depth = room.Depth
	player.RoomID = room.RoomID
}

func (s *EngineTestSuite) addHostile(id string, depth int, roomID string) *entities.Entity {
	hostile := newTestEntity(id, entities.KindHostile, engine.FactionLegion, depth, roomID)
	hostile.Name = "Test Crawler"
	s.game.State().Entities[id] = hostile
	return hostile
}

func (s *EngineTestSuite) addDungeoneer(id string, depth int, roomID string) *entities.Entity {
	npc := newTestEntity(id, entities.KindDungeoneer, engine.FactionFreelancer, depth, roomID)
	npc.Name = "Test Delver"
	npc.ArchetypeHeading = "delver"
	s.game.State().Entities[id] = npc
	return npc
}

func newTestEntity(id string, kind entities.Kind, faction string, depth int, roomID string) *entities.Entity {
	return &entities.Entity{
		ID:         id,
		Kind:       kind,
		Depth:      depth,
		RoomID:     roomID,
		Traits:     entities.NewTraitVector(0),
		Features:   entities.NewFeatureVector(),
		Attributes: entities.DefaultAttributes(),
		Faction:    faction,
		BaseLevel:  1,
		Health:     70,
		Energy:     1,
		Inventory:  []entities.ItemInstance{},
		Skills:     map[string]entities.SkillState{},
		Deeds:      []entities.DeedMemory{},
		Rumors:     []entities.Rumor{},
		Effects:    []entities.ActiveEffect{},
	}
}

func findRumor(entity *entities.Entity, rumorID string) (entities.Rumor, bool) {
	for _, rumor := range entity.Rumors {
		if rumor.RumorID == rumorID {
			return rumor, true
		}
	}
	return entities.Rumor{}, false
}

func hasDeed(entity *entities.Entity, deedType, rumorID string) bool {
	for _, deed := range entity.Deeds {
		if deed.SourceAction == deedType && strings.HasSuffix(deed.DeedID, "_"+rumorID) {
			return true
		}
	}
	return false
}

// withoutCache drops the memo size, which depends on process history
// rather than game state.
func withoutCache(status engine.Status) engine.Status {
	status.SemanticCacheSize = 0
	return status
}

func playerEvents(result engine.TurnResult) []engine.GameEvent {
	out := []engine.GameEvent{}
	for _, ev := range result.Events {
		if ev.ActorID == "kael" {
			out = append(out, ev)
		}
	}
	return out
}

func (s *EngineTestSuite) TestNew() {
	s.Run("nil config", func() {
		_, err := engine.New(nil)
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("missing catalog", func() {
		_, err := engine.New(&engine.Config{Seed: testSeed})
		s.Require().Error(err)
		s.Contains(err.Error(), "invalid config")
	})

	s.Run("records the opening event", func() {
		log := s.game.State().EventLog
		s.Require().Len(log, 1)
		s.Equal(engine.EventStart, log[0].ActionType)
		s.Equal(0, log[0].TurnIndex)
		s.Equal(1, s.game.State().TurnIndex)
	})

	s.Run("player starts at the dungeon start", func() {
		dungeon := s.game.State().Dungeon
		player := s.game.Player()
		s.Equal(dungeon.StartDepth, player.Depth)
		s.Equal(dungeon.StartRoomID, player.RoomID)
		s.True(player.IsPlayer)
	})
}

func (s *EngineTestSuite) TestSameSeedSameRun() {
	other, err := engine.Create(s.catalog, testSeed)
	s.Require().NoError(err)

	for turn := 0; turn < 12; turn++ {
		rows := s.game.AvailableActions(nil)
		available := []engine.ActionAvailability{}
		for _, row := range rows {
			if row.Available {
				available = append(available, row)
			}
		}
		s.Require().NotEmpty(available)
		action := available[turn%len(available)].Action()

		s.Equal(s.game.Dispatch(action), other.Dispatch(action))
	}

	left, err := s.game.Snapshot()
	s.Require().NoError(err)
	right, err := other.Snapshot()
	s.Require().NoError(err)
	s.Equal(left, right)
}

func (s *EngineTestSuite) TestTrainInTrainingRoom() {
	s.placePlayer(s.roomWithFeature(world.FeatureTraining))
	might := s.game.Player().Attributes.Might

	result := s.game.Dispatch(engine.Train{})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Equal(string(engine.ActionTrain), events[0].ActionType)
	s.Empty(events[0].Warnings)
	s.Equal(might+1, s.game.Player().Attributes.Might)
}

func (s *EngineTestSuite) TestTrainOutsideTrainingRoomIsBlocked() {
	start := s.game.Player()
	room := s.game.State().Dungeon.Room(start.Depth, start.RoomID)
	if room.Feature == world.FeatureTraining {
		s.T().Skip("start room is a training room")
	}
	might := start.Attributes.Might

	result := s.game.Dispatch(engine.Train{})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Contains(events[0].Message, "cannot use 'train' right now")
	s.Equal([]string{engine.ReasonNeedTrainingRoom}, events[0].Warnings)
	s.Equal(might, s.game.Player().Attributes.Might)
}

func (s *EngineTestSuite) TestMoveBlocked() {
	player := s.game.Player()
	room := s.game.State().Dungeon.Room(player.Depth, player.RoomID)
	blockedDir := ""
	for _, dir := range []string{world.North, world.South, world.West, world.East} {
		if _, ok := room.ExitTo(dir); !ok {
			blockedDir = dir
			break
		}
	}
	if blockedDir == "" {
		s.T().Skip("start room has every horizontal exit")
	}
	from := player.RoomID

	result := s.game.Dispatch(engine.Move{Direction: blockedDir})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Contains(events[0].Warnings, engine.WarnMoveBlocked)
	s.Equal(from, s.game.Player().RoomID)
}

func (s *EngineTestSuite) TestMoveFollowsExit() {
	player := s.game.Player()
	room := s.game.State().Dungeon.Room(player.Depth, player.RoomID)
	dirs := room.ExitDirections()
	s.Require().NotEmpty(dirs)
	exit, ok := room.ExitTo(dirs[0])
	s.Require().True(ok)

	s.game.Dispatch(engine.Move{Direction: dirs[0]})

	s.Equal(exit.Depth, s.game.Player().Depth)
	s.Equal(exit.RoomID, s.game.Player().RoomID)
}

func (s *EngineTestSuite) TestMurderGates() {
	player := s.game.Player()
	player.Traits[entities.TraitSurvival] = 0
	player.Reputation = 0
	s.addHostile("hostile_test", player.Depth, player.RoomID)

	result := s.game.Dispatch(engine.Murder{TargetID: "hostile_test"})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Contains(events[0].Warnings, engine.ReasonMurderTraitGate)
	s.Contains(events[0].Warnings, engine.ReasonMurderFactionGate)
	s.NotContains(events[0].Warnings, engine.ReasonMurderNeedsEnemy)
}

func (s *EngineTestSuite) TestHostileSpawnsAtExitRoom() {
	depth := s.game.Player().Depth
	exitRoom := s.game.State().Dungeon.Level(depth).ExitRoomID

	result := s.game.Dispatch(engine.Rest{})

	var spawn *engine.GameEvent
	for i := range result.Events {
		if result.Events[i].ActionType == engine.EventSpawn {
			spawn = &result.Events[i]
			break
		}
	}
	s.Require().NotNil(spawn)
	s.Equal(depth, spawn.Depth)
	s.Equal(exitRoom, spawn.Metadata["spawnRoomId"])

	hostile, ok := s.game.Entity("hostile_00001")
	s.Require().True(ok)
	s.Equal(entities.KindHostile, hostile.Kind)
	s.Equal(engine.FactionLegion, hostile.Faction)
}

func (s *EngineTestSuite) TestHostilesStayOutOfRuneForge() {
	forge := s.roomWithFeature(world.FeatureRuneForge)
	dungeon := s.game.State().Dungeon

	var neighbor *world.Room
	direction := ""
	for _, exit := range forge.Exits {
		if exit.Depth != forge.Depth {
			continue
		}
		candidate := dungeon.Room(exit.Depth, exit.RoomID)
		for _, back := range candidate.Exits {
			if back.RoomID == forge.RoomID {
				neighbor, direction = candidate, back.Direction
			}
		}
		if neighbor != nil {
			break
		}
	}
	s.Require().NotNil(neighbor)

	hostile := s.addHostile("hostile_forge", neighbor.Depth, neighbor.RoomID)
	for _, row := range s.game.AvailableActions(hostile) {
		if row.Label == "go "+direction {
			s.False(row.Available)
			s.Contains(row.BlockedReasons, engine.WarnMoveBlocked)
		}
	}

	s.placePlayer(neighbor)
	for _, row := range s.game.AvailableActions(nil) {
		if row.Label == "go "+direction {
			s.True(row.Available)
		}
	}
}

func (s *EngineTestSuite) TestLiveStreamStartsRumor() {
	player := s.game.Player()
	player.Features[entities.FeatureEffort] = 50

	result := s.game.Dispatch(engine.LiveStream{})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Equal(string(engine.ActionLiveStream), events[0].ActionType)
	s.Empty(events[0].Warnings)
	s.Require().NotEmpty(player.Rumors)
	s.Equal(fmt.Sprintf("rumor_kael_%d", events[0].TurnIndex), player.Rumors[0].RumorID)
	s.Less(player.Features[entities.FeatureEffort], 50.0)
}

func (s *EngineTestSuite) TestRumorsDecayAsTheySpread() {
	s.game.State().Config.HostileSpawnPerTurn = 0
	player := s.game.Player()
	player.Features[entities.FeatureEffort] = 50
	for i := 1; i <= 8; i++ {
		s.addDungeoneer(fmt.Sprintf("listener_%02d", i), player.Depth, player.RoomID)
	}

	events := playerEvents(s.game.Dispatch(engine.LiveStream{}))
	s.Require().NotEmpty(events)
	s.Require().Empty(events[0].Warnings)

	source, ok := findRumor(player, fmt.Sprintf("rumor_kael_%d", events[0].TurnIndex))
	s.Require().True(ok)

	receivers := []*entities.Entity{}
	for _, id := range sortedIDs(s.game.State().Entities) {
		entity := s.game.State().Entities[id]
		heard, ok := findRumor(entity, source.RumorID+"_"+entity.ID)
		if !ok {
			continue
		}
		receivers = append(receivers, entity)
		if heard.BeliefState == entities.BeliefMisinformed {
			s.InDelta(math.Max(0, source.Confidence-0.2), heard.Confidence, 1e-9, entity.ID)
		} else {
			s.Equal(entities.BeliefRumor, heard.BeliefState, entity.ID)
			s.InDelta(math.Max(0, source.Confidence-0.08), heard.Confidence, 1e-9, entity.ID)
		}
		s.True(hasDeed(entity, engine.EventRumorHeard, heard.RumorID), entity.ID)
	}
	s.Require().NotEmpty(receivers)

	var target *entities.Entity
	for _, entity := range receivers {
		if entity.IsAlive() && strings.HasPrefix(entity.ID, "listener_") {
			target = entity
			break
		}
	}
	s.Require().NotNil(target)
	target.Depth, target.RoomID = player.Depth, player.RoomID
	playerLatest := player.Rumors[len(player.Rumors)-1]
	targetLatest := target.Rumors[len(target.Rumors)-1]

	events = playerEvents(s.game.Dispatch(engine.Talk{TargetID: target.ID}))
	s.Require().NotEmpty(events)
	s.Require().Equal(string(engine.ActionTalk), events[0].ActionType)
	s.Require().Empty(events[0].Warnings)
	turn := events[0].TurnIndex

	s.Run("talk shares each side's latest rumor", func() {
		toTarget, ok := findRumor(target, fmt.Sprintf("%s_shared_%s_%d", playerLatest.RumorID, target.ID, turn))
		s.Require().True(ok)
		s.InDelta(math.Max(0, playerLatest.Confidence-0.1), toTarget.Confidence, 1e-9)
		s.True(hasDeed(target, engine.EventRumorShared, toTarget.RumorID))

		toPlayer, ok := findRumor(player, fmt.Sprintf("%s_shared_kael_%d", targetLatest.RumorID, turn))
		s.Require().True(ok)
		s.InDelta(math.Max(0, targetLatest.Confidence-0.1), toPlayer.Confidence, 1e-9)
		s.True(hasDeed(player, engine.EventRumorShared, toPlayer.RumorID))
	})

	s.Run("no copy is more confident than the source", func() {
		copies := 0
		for _, entity := range s.game.State().Entities {
			for _, rumor := range entity.Rumors {
				if !strings.HasPrefix(rumor.RumorID, source.RumorID+"_") {
					continue
				}
				copies++
				s.LessOrEqual(rumor.Confidence, source.Confidence, rumor.RumorID)
			}
		}
		s.GreaterOrEqual(copies, len(receivers))
	})
}

func sortedIDs(population map[string]*entities.Entity) []string {
	ids := make([]string, 0, len(population))
	for id := range population {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *EngineTestSuite) TestMoveAppliesInfluenceOfTheRoomLeft() {
	traitShift := func(left, entered float64) float64 {
		game, err := engine.Create(s.catalog, testSeed)
		s.Require().NoError(err)
		player := game.Player()
		room := game.State().Dungeon.Room(player.Depth, player.RoomID)
		dirs := room.ExitDirections()
		s.Require().NotEmpty(dirs)
		exit, ok := room.ExitTo(dirs[0])
		s.Require().True(ok)
		room.BaseVector = entities.NewTraitVector(left)
		game.State().Dungeon.Room(exit.Depth, exit.RoomID).BaseVector = entities.NewTraitVector(entered)

		events := playerEvents(game.Dispatch(engine.Move{Direction: dirs[0]}))
		s.Require().NotEmpty(events)
		s.Require().Empty(events[0].Warnings)
		s.Require().Equal(exit.RoomID, game.Player().RoomID)

		total := 0.0
		for _, v := range events[0].TraitDelta {
			total += v
		}
		return total
	}

	s.Greater(traitShift(5, -5), traitShift(-5, 5))
}

func (s *EngineTestSuite) TestLiveStreamNeedsEffort() {
	s.game.Player().Features[entities.FeatureEffort] = 0

	result := s.game.Dispatch(engine.LiveStream{})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Equal([]string{engine.ReasonNeedEffort}, events[0].Warnings)
}

func (s *EngineTestSuite) TestFleeFromEncounter() {
	player := s.game.Player()
	s.addHostile("hostile_flee", player.Depth, player.RoomID)
	flees := 0
	for _, row := range s.game.AvailableActions(nil) {
		if strings.HasPrefix(row.Label, "flee ") {
			flees++
		}
	}
	s.Positive(flees)

	room := s.game.State().Dungeon.Room(player.Depth, player.RoomID)
	dirs := room.ExitDirections()
	s.Require().NotEmpty(dirs)
	exit, _ := room.ExitTo(dirs[0])

	result := s.game.Dispatch(engine.Flee{Direction: dirs[0]})

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Equal(string(engine.ActionFlee), events[0].ActionType)
	s.Empty(events[0].Warnings)
	s.Equal(exit.RoomID, s.game.Player().RoomID)
}

func (s *EngineTestSuite) TestChapterPagesRecordTranscript() {
	result := s.game.Dispatch(engine.Rest{})
	events := playerEvents(result)
	s.Require().NotEmpty(events)

	pages := s.game.PagesForCurrentChapter()
	want := fmt.Sprintf("[%d] rest@%s: ", events[0].TurnIndex, events[0].RoomID)
	found := false
	for _, line := range pages.Chapter {
		if strings.HasPrefix(line, want) {
			found = true
		}
	}
	s.True(found, "chapter pages missing %q", want)
	s.NotEmpty(pages.Entities["kael"])

	s.Run("returned pages are a copy", func() {
		pages.Chapter[0] = "edited"
		pages.Entities["kael"] = nil
		again := s.game.PagesForCurrentChapter()
		s.NotEqual("edited", again.Chapter[0])
		s.NotEmpty(again.Entities["kael"])
	})

	s.Run("unwritten chapter reads empty without being created", func() {
		state := s.game.State()
		state.ChapterPages = map[int]*engine.ChapterPages{}

		pages := s.game.PagesForCurrentChapter()

		s.Empty(pages.Chapter)
		s.Empty(pages.Entities)
		s.Empty(state.ChapterPages)
	})
}

func (s *EngineTestSuite) TestSnapshotRestore() {
	s.game.Dispatch(engine.Rest{})
	snapshot, err := s.game.Snapshot()
	s.Require().NoError(err)

	status, look := s.game.Status(), s.game.Look()

	s.game.Dispatch(engine.Search{})
	s.game.Dispatch(engine.Rest{})
	s.NotEqual(status.Turn, s.game.Status().Turn)

	s.Require().NoError(s.game.Restore(snapshot))
	s.Equal(withoutCache(status), withoutCache(s.game.Status()))
	s.Equal(look, s.game.Look())

	s.Run("resumed engine replays identically", func() {
		resumed, err := engine.FromSnapshot(&engine.Config{Catalog: s.catalog}, snapshot)
		s.Require().NoError(err)

		s.Equal(s.game.Dispatch(engine.Search{}), resumed.Dispatch(engine.Search{}))
		s.Equal(withoutCache(s.game.Status()), withoutCache(resumed.Status()))
	})

	s.Run("snapshot is detached from live state", func() {
		before := snapshot.TurnIndex
		s.game.Dispatch(engine.Rest{})
		s.Equal(before, snapshot.TurnIndex)
	})
}

func (s *EngineTestSuite) TestEscape() {
	dungeon := s.game.State().Dungeon
	player := s.game.Player()
	player.Depth = dungeon.EscapeDepth
	player.RoomID = dungeon.EscapeRoomID

	found := false
	for _, row := range s.game.AvailableActions(nil) {
		if row.Label == "go "+world.Up {
			found = true
			s.True(row.Available)
		}
	}
	s.True(found)

	result := s.game.Dispatch(engine.Move{Direction: world.Up})

	s.True(result.Escaped)
	status := s.game.Status()
	s.True(status.Escaped)
	quest := status.Quests["escape_the_dungeon"]
	s.True(quest.Complete)
	s.Equal(quest.Required, quest.Progress)
}

func (s *EngineTestSuite) TestQuestProgressClamps() {
	player := s.game.Player()
	required := s.game.Status().Quests["rising_signal"].Required
	s.Require().Positive(required)

	for i := 0; i < required+2; i++ {
		player.Features[entities.FeatureEffort] = 1000
		s.game.Dispatch(engine.LiveStream{})
	}

	quest := s.game.Status().Quests["rising_signal"]
	s.Equal(required, quest.Progress)
	s.True(quest.Complete)
}

func (s *EngineTestSuite) TestTraitsStayInBounds() {
	cfg := s.game.State().Config
	for turn := 0; turn < 40; turn++ {
		available := []engine.ActionAvailability{}
		for _, row := range s.game.AvailableActions(nil) {
			if row.Available {
				available = append(available, row)
			}
		}
		s.Require().NotEmpty(available)
		s.game.Dispatch(available[(turn*7)%len(available)].Action())
	}

	for id, entity := range s.game.State().Entities {
		for trait, value := range entity.Traits {
			s.GreaterOrEqual(value, cfg.MinTraitValue, "%s %s", id, trait)
			s.LessOrEqual(value, cfg.MaxTraitValue, "%s %s", id, trait)
		}
		s.LessOrEqual(len(entity.Deeds), 160, id)
	}
}

func (s *EngineTestSuite) TestUnknownActionIsLogged() {
	action := engine.PlayerAction{ActionType: "dance"}.Decode()

	result := s.game.Dispatch(action)

	events := playerEvents(result)
	s.Require().NotEmpty(events)
	s.Equal("dance", events[0].ActionType)
	s.Equal([]string{engine.WarnUnknownAction}, events[0].Warnings)
}

func (s *EngineTestSuite) TestLook() {
	lines := strings.Split(s.game.Look(), "\n")
	s.Require().Len(lines, 6)
	s.True(strings.HasPrefix(lines[1], "Exits: "))
	s.True(strings.HasPrefix(lines[2], "Nearby: "))
	s.True(strings.HasPrefix(lines[5], "Available actions: "))
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

type PressureTestSuite struct {
	suite.Suite
	catalog *content.Catalog
}

func (s *PressureTestSuite) SetupTest() {
	catalog, err := content.Default()
	s.Require().NoError(err)
	s.catalog = catalog
}

// quietGame starts a run with spawning off and items left out of the
// pressure count, so the population only changes when a test changes it.
func (s *PressureTestSuite) quietGame(capOffset int) (*engine.Engine, int) {
	probe, err := engine.Create(s.catalog, testSeed)
	s.Require().NoError(err)
	population := len(probe.State().Entities)

	cfg := engine.DefaultGameConfig(s.catalog, testSeed)
	cfg.EntityPressureCap = population + capOffset
	cfg.CountItemsAsEntitiesForPressure = false
	cfg.HostileSpawnPerTurn = 0
	game, err := engine.New(&engine.Config{Catalog: s.catalog, Seed: testSeed, Game: &cfg})
	s.Require().NoError(err)
	return game, population
}

// emptyRoom returns a room on the player's depth that nobody occupies.
func (s *PressureTestSuite) emptyRoom(game *engine.Engine) string {
	depth := game.Player().Depth
	occupied := map[string]bool{}
	for _, entity := range game.State().Entities {
		if entity.Depth == depth {
			occupied[entity.RoomID] = true
		}
	}
	level := game.State().Dungeon.Level(depth)
	for i := 0; i < len(level.Rooms); i++ {
		id := world.RoomID(depth, i)
		if _, ok := level.Rooms[id]; ok && !occupied[id] {
			return id
		}
	}
	s.FailNow("no empty room")
	return ""
}

func pressureEvents(result engine.TurnResult) []engine.GameEvent {
	out := []engine.GameEvent{}
	for _, ev := range result.Events {
		if ev.ActionType == engine.EventPressureControl {
			out = append(out, ev)
		}
	}
	return out
}

func (s *PressureTestSuite) TestCapPrunesExactlyTheExcess() {
	game, population := s.quietGame(0)
	const excess = 10
	depth, roomID := game.Player().Depth, s.emptyRoom(game)
	for i := 1; i <= excess; i++ {
		hostile := newTestEntity(fmt.Sprintf("hostile_test_%02d", i), entities.KindHostile, engine.FactionLegion, depth, roomID)
		hostile.Health = 1000
		game.State().Entities[hostile.ID] = hostile
	}

	result := game.Dispatch(engine.Rest{})

	pressure := pressureEvents(result)
	s.Require().Len(pressure, 1)
	s.Equal(population, pressure[0].Metadata["cap"])
	s.Equal(excess, pressure[0].Metadata["pruned"])
	s.Equal(population, pressure[0].Metadata["pressureAfter"])
	s.LessOrEqual(game.Status().Pressure, population)
	for _, entity := range game.State().Entities {
		s.NotEqual(entities.KindHostile, entity.Kind, entity.ID)
	}
}

func (s *PressureTestSuite) TestCapWithNothingToPruneLogsNothing() {
	game, population := s.quietGame(-3)
	turn := game.State().TurnIndex

	result := game.Dispatch(engine.Rest{})

	s.Empty(pressureEvents(result))
	s.Equal(turn+len(result.Events), game.State().TurnIndex)
	s.Greater(game.Status().Pressure, population-3)
}

func (s *PressureTestSuite) TestUnderCapLogsNothing() {
	game, err := engine.Create(s.catalog, testSeed)
	s.Require().NoError(err)

	result := game.Dispatch(engine.Rest{})

	s.Empty(pressureEvents(result))
}

func TestPressureTestSuite(t *testing.T) {
	suite.Run(t, new(PressureTestSuite))
}

type ActionCodecTestSuite struct {
	suite.Suite
}

func (s *ActionCodecTestSuite) TestDecodeVariants() {
	testCases := []struct {
		name   string
		input  engine.PlayerAction
		expect engine.Action
	}{
		{
			name:   "move lowercases direction",
			input:  engine.PlayerAction{ActionType: "move", Payload: map[string]any{"direction": "NORTH"}},
			expect: engine.Move{Direction: "north"},
		},
		{
			name:   "live stream numeric string effort",
			input:  engine.PlayerAction{ActionType: "live_stream", Payload: map[string]any{"effort": "12"}},
			expect: engine.LiveStream{Effort: 12},
		},
		{
			name:   "talk without target",
			input:  engine.PlayerAction{ActionType: "talk"},
			expect: engine.Talk{},
		},
		{
			name:   "unknown keeps its fields",
			input:  engine.PlayerAction{ActionType: "dance", Payload: map[string]any{"style": "jig"}},
			expect: engine.Unknown{Name: "dance", Fields: map[string]any{"style": "jig"}},
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.expect, tc.input.Decode())
		})
	}
}

func (s *ActionCodecTestSuite) TestEncodeDecodeKeepsIntent() {
	action := engine.Fight{TargetID: "boss_d12"}
	wire := engine.Encode(action)
	s.Equal("fight", wire.ActionType)
	s.Equal("boss_d12", wire.Payload["targetId"])
	s.Equal(action, wire.Decode())
}

func TestActionCodecTestSuite(t *testing.T) {
	suite.Run(t, new(ActionCodecTestSuite))
}
