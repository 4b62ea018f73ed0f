package content_test

import (
	"io/fs"
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

type ContentTestSuite struct {
	suite.Suite
	packs fstest.MapFS
}

func TestContentSuite(t *testing.T) {
	suite.Run(t, new(ContentTestSuite))
}

func (s *ContentTestSuite) SetupTest() {
	s.packs = fstest.MapFS{}
	dir := os.DirFS("packs")
	entries, err := fs.ReadDir(dir, ".")
	s.Require().NoError(err)
	for _, entry := range entries {
		data, err := fs.ReadFile(dir, entry.Name())
		s.Require().NoError(err)
		s.packs[entry.Name()] = &fstest.MapFile{Data: data}
	}
}

func (s *ContentTestSuite) TestDefaultLoads() {
	catalog, err := content.Default()
	s.Require().NoError(err)

	s.Assert().Equal(int64(7), catalog.Contracts.CanonicalSeedV1)
	s.Assert().Equal(120, catalog.Contracts.EntityPressure.Cap)
	s.Assert().Equal(0.35, catalog.Contracts.DeedProjection.GlobalBudget)
	s.Assert().Len(catalog.Skills, 7)
	s.Assert().Len(catalog.Cutscenes, 6)
	s.Assert().Equal("move", catalog.ActionTypes()[0])

	again, err := content.Default()
	s.Require().NoError(err)
	s.Assert().Same(catalog, again)
}

func (s *ContentTestSuite) TestLoadFromFS() {
	catalog, err := content.Load(s.packs)
	s.Require().NoError(err)

	train := catalog.Formula("train")
	s.Assert().Equal(-0.15, train.EnergyDelta)
	s.Assert().Equal(5, train.XPDelta)
	s.Assert().Equal(0.07, train.TraitDelta["Constraint"])
	s.Assert().Empty(catalog.Formula("dance").TraitDelta)

	policy, ok := catalog.Policy("hostile_aggressor")
	s.Require().True(ok)
	s.Assert().Equal([]string{"murder", "fight"}, policy.PriorityOrder)
	_, ok = catalog.Policy("missing")
	s.Assert().False(ok)
}

func (s *ContentTestSuite) TestRoomVectorIsFull() {
	catalog, err := content.Load(s.packs)
	s.Require().NoError(err)

	training := catalog.RoomVector("training")
	s.Assert().Len(training, 10)
	s.Assert().Equal(0.45, training["Constraint"])
	s.Assert().Equal(0.0, training["Empathy"])

	corridor := catalog.RoomVector("corridor")
	for _, v := range corridor {
		s.Assert().Equal(0.0, v)
	}
}

func (s *ContentTestSuite) TestRuneForgeOffers() {
	catalog, err := content.Load(s.packs)
	s.Require().NoError(err)

	offers := catalog.RuneForgeOffers()
	s.Assert().Equal([]string{"iron_ward", "runed_plate", "echo_relic", "sunken_idol", "crowd_charm", "spotlight_lens"}, offers)
	s.Assert().NotContains(offers, "healing_draught")

	item, ok := catalog.Item("echo_relic")
	s.Require().True(ok)
	s.Assert().Equal([]string{"relic", "rare"}, item.Tags)
}

func (s *ContentTestSuite) TestQuestRequired() {
	catalog, err := content.Load(s.packs)
	s.Require().NoError(err)

	required := map[string]int{}
	for _, q := range catalog.Quests {
		required[q.QuestID] = q.Required(12)
	}
	s.Assert().Equal(12, required["escape_the_dungeon"])
	s.Assert().Equal(3, required["prove_yourself"])
}

func (s *ContentTestSuite) TestPrerequisiteValues() {
	catalog, err := content.Load(s.packs)
	s.Require().NoError(err)

	var appraisal content.SkillDefinition
	for _, skill := range catalog.Skills {
		if skill.SkillID == "appraisal" {
			appraisal = skill
		}
	}
	s.Require().Len(appraisal.UnlockRequirements, 1)
	s.Assert().Equal(5.0, appraisal.UnlockRequirements[0].Number())
	s.Assert().Equal("5", appraisal.UnlockRequirements[0].Text())
}

func (s *ContentTestSuite) TestRejectsBadPacks() {
	testCases := []struct {
		name     string
		file     string
		data     string
		code     errors.Code
		contains string
	}{
		{
			name:     "unknown field",
			file:     content.FilePolicies,
			data:     "policies:\n  - policyId: p\n    priorityOrder: [rest]\n    weight: 3\n",
			code:     errors.CodeInvalidArgument,
			contains: "field weight not found",
		},
		{
			name:     "duplicate policy",
			file:     content.FilePolicies,
			data:     "policies:\n  - {policyId: p, priorityOrder: [rest]}\n  - {policyId: p, priorityOrder: [fight]}\n",
			code:     errors.CodeInvalidArgument,
			contains: `duplicate id "p"`,
		},
		{
			name:     "unknown trait",
			file:     content.FileRoomTemplates,
			data:     "templates:\n  - {feature: rest, baseVector: {Courage: 0.5}}\n",
			code:     errors.CodeInvalidArgument,
			contains: `unknown trait "Courage"`,
		},
		{
			name:     "quest without rules",
			file:     content.FileQuests,
			data:     "quests:\n  - {questId: q, title: Q, description: d, requiredProgress: {mode: fixed, value: 1}, progressRules: []}\n",
			code:     errors.CodeInvalidArgument,
			contains: "must not be empty",
		},
		{
			name:     "unknown policy action",
			file:     content.FilePolicies,
			data:     "policies:\n  - {policyId: p, priorityOrder: [dance]}\n",
			code:     errors.CodeInvalidArgument,
			contains: `unknown action type "dance"`,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.packs[tc.file] = &fstest.MapFile{Data: []byte(tc.data)}

			_, err := content.Load(s.packs)
			s.Require().Error(err)
			s.Assert().Equal(tc.code, errors.GetCode(err))
			s.Assert().Contains(err.Error(), tc.contains)
		})
	}
}

func (s *ContentTestSuite) TestMissingPack() {
	delete(s.packs, content.FileEvents)

	_, err := content.Load(s.packs)
	s.Require().Error(err)
	s.Assert().True(errors.IsNotFound(err))
}
