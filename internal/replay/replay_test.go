package replay_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/replay"
)

const restSearchYAML = `fixtureId: rest_search
seed: 7
actions:
  - actionType: rest
    payload: {}
  - actionType: search
    payload: {}
  - actionType: live_stream
    payload:
      effort: 10
setup:
  player:
    features:
      Effort: 40
`

const restSearchJSON = `{
  "fixtureId": "rest_search",
  "seed": 7,
  "actions": [
    {"actionType": "rest", "payload": {}},
    {"actionType": "search", "payload": {}},
    {"actionType": "live_stream", "payload": {"effort": 10}}
  ],
  "setup": {"player": {"features": {"Effort": 40}}}
}`

type ReplayTestSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *content.Catalog
	runner  *replay.Runner
	dir     string
}

func (s *ReplayTestSuite) SetupTest() {
	s.ctx = context.Background()
	catalog, err := content.Default()
	s.Require().NoError(err)
	s.catalog = catalog

	runner, err := replay.NewRunner(&replay.Config{Catalog: catalog})
	s.Require().NoError(err)
	s.runner = runner
	s.dir = s.T().TempDir()
}

func (s *ReplayTestSuite) writeFixture(name, body string) string {
	path := filepath.Join(s.dir, name)
	s.Require().NoError(os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (s *ReplayTestSuite) TestStringifySortsKeysAtEveryDepth() {
	value := map[string]any{
		"zeta":  1,
		"alpha": []any{map[string]any{"b": true, "a": "x"}},
		"mid":   struct{ B, A int }{B: 2, A: 1},
	}

	out, err := replay.Stringify(value)
	s.Require().NoError(err)
	s.Equal(`{"alpha":[{"a":"x","b":true}],"mid":{"A":1,"B":2},"zeta":1}`, string(out))
}

func (s *ReplayTestSuite) TestStringifyKeepsNumberText() {
	out, err := replay.Stringify(map[string]any{"v": 0.1, "n": 12345678901})
	s.Require().NoError(err)
	s.Equal(`{"n":12345678901,"v":0.1}`, string(out))
}

func (s *ReplayTestSuite) TestHash() {
	first, err := replay.Hash(map[string]int{"a": 1, "b": 2})
	s.Require().NoError(err)
	second, err := replay.Hash(map[string]int{"b": 2, "a": 1})
	s.Require().NoError(err)

	s.Len(first, 64)
	s.Equal(first, second)
}

func (s *ReplayTestSuite) TestRunIsDeterministic() {
	fixture, err := replay.LoadFile(s.writeFixture("rest_search.yaml", restSearchYAML))
	s.Require().NoError(err)

	first, err := s.runner.Run(s.ctx, fixture)
	s.Require().NoError(err)
	second, err := s.runner.Run(s.ctx, fixture)
	s.Require().NoError(err)

	s.Equal(first.SnapshotHash, second.SnapshotHash)
	s.Equal("rest_search", first.FixtureID)
	s.Equal(0, first.Snapshot.Config.HostileSpawnPerTurn)
	s.Zero(first.Snapshot.HostileSpawnIndex)
}

func (s *ReplayTestSuite) TestYAMLAndJSONFixturesMatch() {
	fromYAML, err := replay.LoadFile(s.writeFixture("a.yml", restSearchYAML))
	s.Require().NoError(err)
	fromJSON, err := replay.LoadFile(s.writeFixture("a.json", restSearchJSON))
	s.Require().NoError(err)

	yamlResult, err := s.runner.Run(s.ctx, fromYAML)
	s.Require().NoError(err)
	jsonResult, err := s.runner.Run(s.ctx, fromJSON)
	s.Require().NoError(err)

	s.Equal(yamlResult.SnapshotHash, jsonResult.SnapshotHash)
}

func (s *ReplayTestSuite) TestExpectedHashMismatchIsDataLoss() {
	fixture, err := replay.Decode(strings.NewReader(restSearchYAML), replay.FormatYAML)
	s.Require().NoError(err)
	fixture.ExpectedSnapshotHash = strings.Repeat("0", 64)

	result, err := s.runner.Run(s.ctx, fixture)
	s.Require().Error(err)
	s.True(errors.IsDataLoss(err))
	s.Require().NotNil(result)

	meta := errors.GetMeta(err)
	s.Equal("rest_search", meta["fixture_id"])
	s.Equal(result.SnapshotHash, meta["actual"])
}

func (s *ReplayTestSuite) TestExpectedHashMatch() {
	fixture, err := replay.Decode(strings.NewReader(restSearchYAML), replay.FormatYAML)
	s.Require().NoError(err)
	first, err := s.runner.Run(s.ctx, fixture)
	s.Require().NoError(err)

	fixture.ExpectedSnapshotHash = first.SnapshotHash
	_, err = s.runner.Run(s.ctx, fixture)
	s.NoError(err)
}

func (s *ReplayTestSuite) TestDecodeRejectsBadInput() {
	testCases := []struct {
		name   string
		body   string
		format replay.Format
	}{
		{name: "unknown yaml field", body: "fixtureId: x\nseed: 1\nbogus: true\n", format: replay.FormatYAML},
		{name: "unknown json field", body: `{"fixtureId":"x","bogus":1}`, format: replay.FormatJSON},
		{name: "missing fixture id", body: "seed: 1\nactions: []\n", format: replay.FormatYAML},
		{name: "action without type", body: "fixtureId: x\nactions:\n  - payload: {}\n", format: replay.FormatYAML},
		{name: "unsupported format", body: "{}", format: replay.Format("toml")},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := replay.Decode(strings.NewReader(tc.body), tc.format)
			s.Require().Error(err)
			s.True(errors.IsInvalidArgument(err), err.Error())
		})
	}
}

func (s *ReplayTestSuite) TestLoadFileErrors() {
	s.Run("missing file", func() {
		_, err := replay.LoadFile(filepath.Join(s.dir, "nope.yaml"))
		s.True(errors.IsNotFound(err))
	})

	s.Run("unknown extension", func() {
		_, err := replay.LoadFile(s.writeFixture("fixture.txt", restSearchYAML))
		s.True(errors.IsInvalidArgument(err))
	})
}

func (s *ReplayTestSuite) TestApplySetup() {
	game, err := engine.Create(s.catalog, 7)
	s.Require().NoError(err)
	player := game.Player()

	ids := []string{}
	for id, entity := range game.State().Entities {
		if !entity.IsPlayer {
			ids = append(ids, id)
		}
	}
	s.Require().GreaterOrEqual(len(ids), 2)
	keep := ids[0]

	reputation := -7
	health := 5
	err = replay.ApplySetup(game, &replay.Setup{
		DisableHostileSpawn: true,
		KeepEntityIDs:       []string{keep},
		Player: &replay.PlayerSetup{
			Reputation:     &reputation,
			Traits:         map[string]float64{entities.TraitSurvival: 0.5},
			Attributes:     map[string]int{"might": 9},
			UnlockedSkills: []string{"shadow_hand"},
		},
		ColocatedEnemy: &replay.EnemySetup{
			EntityID:   keep,
			Faction:    engine.FactionLegion,
			Health:     &health,
			AddLootTag: true,
		},
	})
	s.Require().NoError(err)

	state := game.State()
	s.Equal(0, state.Config.HostileSpawnPerTurn)
	s.Len(state.Entities, 2)
	s.Equal(-7, player.Reputation)
	s.Equal(0.5, player.Traits[entities.TraitSurvival])
	s.Equal(9, player.Attributes.Might)
	s.True(player.SkillUnlocked("shadow_hand"))

	enemy := state.Entities[keep]
	s.Equal(player.Depth, enemy.Depth)
	s.Equal(player.RoomID, enemy.RoomID)
	s.Equal(engine.FactionLegion, enemy.Faction)
	s.Equal(5, enemy.Health)
	s.True(enemy.HasItemTag(entities.TagLoot))
}

func (s *ReplayTestSuite) TestApplySetupRejectsUnknownAttribute() {
	game, err := engine.Create(s.catalog, 7)
	s.Require().NoError(err)

	err = replay.ApplySetup(game, &replay.Setup{
		Player: &replay.PlayerSetup{Attributes: map[string]int{"charm": 3}},
	})
	s.True(errors.IsInvalidArgument(err))
}

func (s *ReplayTestSuite) TestRunCanceled() {
	fixture, err := replay.Decode(strings.NewReader(restSearchYAML), replay.FormatYAML)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = s.runner.Run(ctx, fixture)
	s.Require().Error(err)
	s.Equal(errors.CodeCanceled, errors.GetCode(err))
}

func TestReplayTestSuite(t *testing.T) {
	suite.Run(t, new(ReplayTestSuite))
}
