package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/engine/rpgtoolkit"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	mockclock "github.com/KirkDiggler/dungeonbreak/internal/pkg/clock/mock"
	idgenmock "github.com/KirkDiggler/dungeonbreak/internal/pkg/idgen/mock"
	"github.com/KirkDiggler/dungeonbreak/internal/orchestrators/session"
	"github.com/KirkDiggler/dungeonbreak/internal/replay"
	"github.com/KirkDiggler/dungeonbreak/internal/repositories/saves"
	savesmock "github.com/KirkDiggler/dungeonbreak/internal/repositories/saves/mock"
	"github.com/KirkDiggler/dungeonbreak/internal/testutils"
)

const (
	testSessionID = "session_1"
	testSaveID    = "save_1"
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockRepo    *savesmock.MockRepository
	mockClock   *mockclock.MockClock
	mockSession *idgenmock.MockGenerator
	mockSaveIDs *idgenmock.MockGenerator
	catalog     *content.Catalog
	bus         events.EventBus
	orch        session.Service
	ctx         context.Context
	now         time.Time

	topicsMu sync.Mutex
	topics   []string
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockRepo = savesmock.NewMockRepository(s.ctrl)
	s.mockClock = mockclock.NewMockClock(s.ctrl)
	s.mockSession = idgenmock.NewMockGenerator(s.ctrl)
	s.mockSaveIDs = idgenmock.NewMockGenerator(s.ctrl)
	s.catalog = testutils.LoadCatalog(s.T())
	s.bus = events.NewBus()
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	s.topics = nil

	orch, err := session.NewOrchestrator(s.config())
	s.Require().NoError(err)
	s.orch = orch

	recorder, err := rpgtoolkit.NewPublisher(&rpgtoolkit.Config{EventBus: s.bus})
	s.Require().NoError(err)
	recorder.SubscribeAll(0, func(_ context.Context, event events.Event) error {
		s.topicsMu.Lock()
		defer s.topicsMu.Unlock()
		s.topics = append(s.topics, event.Type())
		return nil
	})
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *OrchestratorTestSuite) config() *session.Config {
	return &session.Config{
		Catalog:    s.catalog,
		Repository: s.mockRepo,
		Clock:      s.mockClock,
		SessionIDs: s.mockSession,
		SaveIDs:    s.mockSaveIDs,
		EventBus:   s.bus,
	}
}

func (s *OrchestratorTestSuite) newGame(seed int64) string {
	s.mockSession.EXPECT().Generate().Return(testSessionID)
	out, err := s.orch.NewGame(s.ctx, &session.NewGameInput{Seed: seed})
	s.Require().NoError(err)
	return out.SessionID
}

func (s *OrchestratorTestSuite) recordedTopics() []string {
	s.topicsMu.Lock()
	defer s.topicsMu.Unlock()
	return append([]string(nil), s.topics...)
}

func (s *OrchestratorTestSuite) TestNewOrchestratorValidation() {
	testCases := []struct {
		name   string
		mutate func(cfg *session.Config)
	}{
		{name: "missing catalog", mutate: func(cfg *session.Config) { cfg.Catalog = nil }},
		{name: "missing repository", mutate: func(cfg *session.Config) { cfg.Repository = nil }},
		{name: "missing clock", mutate: func(cfg *session.Config) { cfg.Clock = nil }},
		{name: "missing session ids", mutate: func(cfg *session.Config) { cfg.SessionIDs = nil }},
		{name: "missing save ids", mutate: func(cfg *session.Config) { cfg.SaveIDs = nil }},
		{name: "missing event bus", mutate: func(cfg *session.Config) { cfg.EventBus = nil }},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			cfg := s.config()
			tc.mutate(cfg)
			_, err := session.NewOrchestrator(cfg)
			s.Require().Error(err)
			s.True(errors.IsInvalidArgument(err))
		})
	}

	_, err := session.NewOrchestrator(nil)
	s.True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestNewGame() {
	s.mockSession.EXPECT().Generate().Return(testSessionID)

	out, err := s.orch.NewGame(s.ctx, &session.NewGameInput{})
	s.Require().NoError(err)

	s.Equal(testSessionID, out.SessionID)
	s.Equal(s.catalog.Contracts.CanonicalSeedV1, out.Seed)
	s.NotEmpty(out.Look)
	s.Equal([]string{rpgtoolkit.Topic(engine.EventStart)}, s.recordedTopics())
}

func (s *OrchestratorTestSuite) TestNewGameUsesConfiguredPlayerName() {
	cfg := s.config()
	cfg.PlayerName = "Vesper"
	orch, err := session.NewOrchestrator(cfg)
	s.Require().NoError(err)

	s.mockSession.EXPECT().Generate().Return(testSessionID)
	out, err := orch.NewGame(s.ctx, &session.NewGameInput{Seed: 3})
	s.Require().NoError(err)

	s.mockSaveIDs.EXPECT().Generate().Return(testSaveID)
	s.mockClock.EXPECT().Now().Return(s.now)
	s.mockRepo.EXPECT().
		Create(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input saves.CreateInput) (*saves.CreateOutput, error) {
			return &saves.CreateOutput{Save: input.Save}, nil
		})

	saved, err := orch.Save(s.ctx, &session.SaveInput{SessionID: out.SessionID})
	s.Require().NoError(err)
	s.Equal("Vesper", saved.Save.PlayerName)
}

func (s *OrchestratorTestSuite) TestDispatch() {
	sessionID := s.newGame(7)
	before := len(s.recordedTopics())

	out, err := s.orch.Dispatch(s.ctx, &session.DispatchInput{
		SessionID: sessionID,
		Action:    engine.PlayerAction{ActionType: string(engine.ActionRest), Payload: map[string]any{}},
	})
	s.Require().NoError(err)
	s.Require().NotEmpty(out.Events)
	s.Equal(string(engine.ActionRest), out.Events[0].ActionType)
	s.False(out.Escaped)

	// every event of the turn reached the bus in order
	topics := s.recordedTopics()[before:]
	s.Require().Len(topics, len(out.Events))
	for i, ev := range out.Events {
		s.Equal(rpgtoolkit.Topic(ev.ActionType), topics[i])
	}
}

func (s *OrchestratorTestSuite) TestDispatchErrors() {
	s.Run("unknown session", func() {
		_, err := s.orch.Dispatch(s.ctx, &session.DispatchInput{
			SessionID: "missing",
			Action:    engine.PlayerAction{ActionType: string(engine.ActionRest)},
		})
		s.True(errors.IsNotFound(err))
	})

	s.Run("missing action type", func() {
		_, err := s.orch.Dispatch(s.ctx, &session.DispatchInput{SessionID: testSessionID})
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("nil input", func() {
		_, err := s.orch.Dispatch(s.ctx, nil)
		s.True(errors.IsInvalidArgument(err))
	})
}

func (s *OrchestratorTestSuite) TestConcurrentDispatchOnOneSession() {
	sessionID := s.newGame(7)

	status, err := s.orch.Status(s.ctx, &session.StatusInput{SessionID: sessionID})
	s.Require().NoError(err)
	startTurn := status.Status.Turn

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.orch.Dispatch(s.ctx, &session.DispatchInput{
				SessionID: sessionID,
				Action:    engine.PlayerAction{ActionType: string(engine.ActionRest)},
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	status, err = s.orch.Status(s.ctx, &session.StatusInput{SessionID: sessionID})
	s.Require().NoError(err)
	s.GreaterOrEqual(status.Status.Turn, startTurn+8)
}

func (s *OrchestratorTestSuite) TestProjections() {
	sessionID := s.newGame(7)

	look, err := s.orch.Look(s.ctx, &session.LookInput{SessionID: sessionID})
	s.Require().NoError(err)
	s.NotEmpty(look.Look)

	status, err := s.orch.Status(s.ctx, &session.StatusInput{SessionID: sessionID})
	s.Require().NoError(err)
	s.False(status.Status.Escaped)

	actions, err := s.orch.AvailableActions(s.ctx, &session.AvailableActionsInput{SessionID: sessionID})
	s.Require().NoError(err)
	s.NotEmpty(actions.Actions)
}

func (s *OrchestratorTestSuite) TestSave() {
	sessionID := s.newGame(7)

	s.mockSaveIDs.EXPECT().Generate().Return(testSaveID)
	s.mockClock.EXPECT().Now().Return(s.now)
	s.mockRepo.EXPECT().
		Create(s.ctx, gomock.Any()).
		DoAndReturn(func(_ context.Context, input saves.CreateInput) (*saves.CreateOutput, error) {
			s.Equal(time.Hour, input.TTL)
			save := input.Save
			s.Equal(testSaveID, save.SaveID)
			s.Equal("Kael", save.PlayerName)
			s.Equal(int64(7), save.Seed)
			s.Equal(s.now, save.CreatedAt)
			s.Require().NotNil(save.Snapshot)
			s.Equal(save.Snapshot.TurnIndex, save.Turn)

			hash, err := replay.Hash(save.Snapshot)
			s.Require().NoError(err)
			s.Equal(hash, save.SnapshotHash)
			return &saves.CreateOutput{Save: save}, nil
		})

	out, err := s.orch.Save(s.ctx, &session.SaveInput{SessionID: sessionID, TTL: time.Hour})
	s.Require().NoError(err)
	s.Equal(testSaveID, out.Save.SaveID)
}

func (s *OrchestratorTestSuite) TestSaveRepositoryError() {
	sessionID := s.newGame(7)

	s.mockSaveIDs.EXPECT().Generate().Return(testSaveID)
	s.mockClock.EXPECT().Now().Return(s.now)
	s.mockRepo.EXPECT().
		Create(s.ctx, gomock.Any()).
		Return(nil, errors.AlreadyExistsf("save with ID %s already exists", testSaveID))

	_, err := s.orch.Save(s.ctx, &session.SaveInput{SessionID: sessionID})
	s.Require().Error(err)
	s.True(errors.IsAlreadyExists(err))
}

func (s *OrchestratorTestSuite) TestLoadResumesTheSavedRun() {
	game := testutils.CreateTestEngine(s.T(), 7)
	game.Dispatch(engine.Rest{})
	save := testutils.CreateTestSave(s.T(), testSaveID, game)
	hash, err := replay.Hash(save.Snapshot)
	s.Require().NoError(err)
	save.SnapshotHash = hash

	s.mockRepo.EXPECT().
		Get(s.ctx, saves.GetInput{SaveID: testSaveID}).
		Return(&saves.GetOutput{Save: save}, nil)
	s.mockSession.EXPECT().Generate().Return("session_2")

	out, err := s.orch.Load(s.ctx, &session.LoadInput{SaveID: testSaveID})
	s.Require().NoError(err)
	s.Equal("session_2", out.SessionID)
	s.Equal(save.Turn, out.Turn)

	status, err := s.orch.Status(s.ctx, &session.StatusInput{SessionID: "session_2"})
	s.Require().NoError(err)
	expected := game.Status()
	s.Equal(expected.Turn, status.Status.Turn)
	s.Equal(expected.RoomID, status.Status.RoomID)
	s.Equal(expected.Traits, status.Status.Traits)

	// the resumed run keeps playing the same sequence
	next, err := s.orch.Dispatch(s.ctx, &session.DispatchInput{
		SessionID: "session_2",
		Action:    engine.PlayerAction{ActionType: string(engine.ActionSearch)},
	})
	s.Require().NoError(err)
	s.Equal(game.Dispatch(engine.Search{}).Events, next.Events)
}

func (s *OrchestratorTestSuite) TestLoadRejectsTamperedSnapshot() {
	game := testutils.CreateTestEngine(s.T(), 7)
	save := testutils.CreateTestSave(s.T(), testSaveID, game)
	hash, err := replay.Hash(save.Snapshot)
	s.Require().NoError(err)
	save.SnapshotHash = hash
	save.Snapshot.Entities[save.Snapshot.PlayerID].Reputation += 50

	s.mockRepo.EXPECT().
		Get(s.ctx, saves.GetInput{SaveID: testSaveID}).
		Return(&saves.GetOutput{Save: save}, nil)

	_, err = s.orch.Load(s.ctx, &session.LoadInput{SaveID: testSaveID})
	s.Require().Error(err)
	s.True(errors.IsDataLoss(err))
	s.Equal(hash, errors.GetMeta(err)["expected"])
}

func (s *OrchestratorTestSuite) TestLoadMissingSave() {
	s.mockRepo.EXPECT().
		Get(s.ctx, saves.GetInput{SaveID: "gone"}).
		Return(nil, errors.NotFoundf("save with ID %s not found", "gone"))

	_, err := s.orch.Load(s.ctx, &session.LoadInput{SaveID: "gone"})
	s.True(errors.IsNotFound(err))
}

func (s *OrchestratorTestSuite) TestListSavesDefaultsToPlayerName() {
	listed := []*saves.Save{{SaveID: testSaveID, PlayerName: "Kael"}}
	s.mockRepo.EXPECT().
		ListByPlayer(s.ctx, saves.ListByPlayerInput{PlayerName: "Kael"}).
		Return(&saves.ListByPlayerOutput{Saves: listed}, nil)

	out, err := s.orch.ListSaves(s.ctx, &session.ListSavesInput{})
	s.Require().NoError(err)
	s.Equal(listed, out.Saves)
}

func (s *OrchestratorTestSuite) TestDeleteSave() {
	s.mockRepo.EXPECT().
		Delete(s.ctx, saves.DeleteInput{SaveID: testSaveID}).
		Return(&saves.DeleteOutput{}, nil)
	_, err := s.orch.DeleteSave(s.ctx, &session.DeleteSaveInput{SaveID: testSaveID})
	s.NoError(err)

	s.mockRepo.EXPECT().
		Delete(s.ctx, saves.DeleteInput{SaveID: "gone"}).
		Return(nil, errors.NotFoundf("save with ID %s not found", "gone"))
	_, err = s.orch.DeleteSave(s.ctx, &session.DeleteSaveInput{SaveID: "gone"})
	s.True(errors.IsNotFound(err))
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}
