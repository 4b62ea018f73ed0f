package simulation_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	mockclock "github.com/KirkDiggler/dungeonbreak/internal/pkg/clock/mock"
	"github.com/KirkDiggler/dungeonbreak/internal/simulation"
)

type HarnessTestSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	mockClock *mockclock.MockClock
	catalog   *content.Catalog
	harness   *simulation.Harness
	ctx       context.Context
	ticks     atomic.Int64
}

func (s *HarnessTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockClock = mockclock.NewMockClock(s.ctrl)
	s.ctx = context.Background()
	s.ticks.Store(0)

	// every reading advances one millisecond
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.mockClock.EXPECT().Now().DoAndReturn(func() time.Time {
		n := s.ticks.Add(1)
		return base.Add(time.Duration(n) * time.Millisecond)
	}).AnyTimes()

	catalog, err := content.Default()
	s.Require().NoError(err)
	s.catalog = catalog

	harness, err := simulation.NewHarness(&simulation.Config{
		Catalog: catalog,
		Clock:   s.mockClock,
		Workers: 2,
	})
	s.Require().NoError(err)
	s.harness = harness
}

func (s *HarnessTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HarnessTestSuite) TestNewHarness() {
	testCases := []struct {
		name string
		cfg  *simulation.Config
	}{
		{name: "nil config", cfg: nil},
		{name: "missing catalog", cfg: &simulation.Config{Clock: s.mockClock}},
		{name: "missing clock", cfg: &simulation.Config{Catalog: s.catalog}},
		{name: "negative workers", cfg: &simulation.Config{Catalog: s.catalog, Clock: s.mockClock, Workers: -1}},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			_, err := simulation.NewHarness(tc.cfg)
			s.Require().Error(err)
			s.True(errors.IsInvalidArgument(err))
		})
	}
}

func (s *HarnessTestSuite) TestRun() {
	run, err := s.harness.Run(s.ctx, 7, 20)
	s.Require().NoError(err)

	s.Equal(int64(7), run.Seed)
	s.Equal(20, run.TurnsRequested)
	s.Positive(run.TurnsPlayed)
	s.LessOrEqual(run.TurnsPlayed, 20)

	used := 0
	for _, count := range run.ActionUsage {
		used += count
	}
	s.Equal(run.TurnsPlayed, used)

	// each turn reads the clock twice, one tick apart
	s.InDelta(1.0, run.AverageTurnMs, 1e-9)
	s.InDelta(1.0, run.MaxTurnMs, 1e-9)
	s.NotEmpty(run.FinalArchetype)
}

func (s *HarnessTestSuite) TestRunIsDeterministicApartFromTiming() {
	first, err := s.harness.Run(s.ctx, 11, 25)
	s.Require().NoError(err)
	second, err := s.harness.Run(s.ctx, 11, 25)
	s.Require().NoError(err)

	s.Equal(first.ActionUsage, second.ActionUsage)
	s.Equal(first.FinalArchetype, second.FinalArchetype)
	s.Equal(first.Depth, second.Depth)
	s.Equal(first.Fame, second.Fame)
}

func (s *HarnessTestSuite) TestBatchKeepsSeedOrder() {
	batch, err := s.harness.Batch(s.ctx, []int64{3, 1, 2}, 10)
	s.Require().NoError(err)

	s.Equal([]int64{3, 1, 2}, batch.Seeds)
	s.Require().Len(batch.Runs, 3)
	for i, seed := range batch.Seeds {
		s.Equal(seed, batch.Runs[i].Seed)
	}
	s.Equal(10, batch.TurnsPerRun)
	s.GreaterOrEqual(batch.Aggregate.SurvivalRate, 0.0)
	s.LessOrEqual(batch.Aggregate.SurvivalRate, 1.0)

	total := 0
	for _, n := range batch.Aggregate.ArchetypeDistribution {
		total += n
	}
	s.Equal(3, total)
}

func (s *HarnessTestSuite) TestBatchDefaultsToCanonicalSeed() {
	batch, err := s.harness.Batch(s.ctx, nil, 5)
	s.Require().NoError(err)
	s.Equal([]int64{s.catalog.Contracts.CanonicalSeedV1}, batch.Seeds)
}

func (s *HarnessTestSuite) TestLongRun() {
	metrics, err := s.harness.LongRun(s.ctx, []int64{7}, []int{12, 4, 12, 0}, 50)
	s.Require().NoError(err)

	s.Require().Len(metrics.Windows, 3)
	s.Equal(1, metrics.Windows[0].Turns)
	s.Equal(4, metrics.Windows[1].Turns)
	s.Equal(12, metrics.Windows[2].Turns)
	s.Equal(50.0, metrics.Summary.PerformanceBudgetMs)
	s.True(metrics.Summary.WithinPerformanceBudget)
	s.IsIncreasing(metrics.Summary.DeadActionTypesAcrossWindows)
}

func (s *HarnessTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()

	_, err := s.harness.Run(ctx, 7, 10)
	s.Require().Error(err)
	s.Equal(errors.CodeCanceled, errors.GetCode(err))
}

func (s *HarnessTestSuite) TestDeadActionTypes() {
	usage := map[string]int{}
	for _, actionType := range s.catalog.ActionTypes() {
		usage[actionType] = 1
	}
	usage["murder"] = 0

	s.Equal([]string{"murder"}, simulation.DeadActionTypes(s.catalog, usage))
}

func TestHarnessTestSuite(t *testing.T) {
	suite.Run(t, new(HarnessTestSuite))
}
