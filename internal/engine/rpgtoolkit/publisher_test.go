package rpgtoolkit_test

import (
	"context"
	"testing"

	"github.com/KirkDiggler/rpg-toolkit/events"
	"github.com/stretchr/testify/suite"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/engine/rpgtoolkit"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

type PublisherTestSuite struct {
	suite.Suite
	ctx       context.Context
	bus       events.EventBus
	publisher *rpgtoolkit.Publisher
	game      *engine.Engine
	received  []events.Event
}

func (s *PublisherTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.bus = events.NewBus()
	s.received = nil

	publisher, err := rpgtoolkit.NewPublisher(&rpgtoolkit.Config{EventBus: s.bus})
	s.Require().NoError(err)
	s.publisher = publisher

	catalog, err := content.Default()
	s.Require().NoError(err)
	game, err := engine.Create(catalog, 7)
	s.Require().NoError(err)
	s.game = game
}

func (s *PublisherTestSuite) record(_ context.Context, event events.Event) error {
	s.received = append(s.received, event)
	return nil
}

func (s *PublisherTestSuite) TestNewPublisher() {
	s.Run("nil config", func() {
		_, err := rpgtoolkit.NewPublisher(nil)
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})

	s.Run("missing event bus", func() {
		_, err := rpgtoolkit.NewPublisher(&rpgtoolkit.Config{})
		s.Require().Error(err)
		s.Contains(err.Error(), "event bus is required")
	})
}

func (s *PublisherTestSuite) TestPublishTurnDeliversEveryEventInOrder() {
	s.publisher.SubscribeAll(0, s.record)

	result := s.game.Dispatch(engine.Rest{})
	s.Require().NotEmpty(result.Events)

	err := s.publisher.PublishTurn(s.ctx, s.game, result)
	s.Require().NoError(err)

	s.Require().Len(s.received, len(result.Events))
	for i, ev := range result.Events {
		s.Equal(rpgtoolkit.Topic(ev.ActionType), s.received[i].Type())
	}
	s.Equal("dungeonbreak.rest", s.received[0].Type())
	s.Equal("kael", s.received[0].Source().GetID())
	s.Equal(string(entities.KindPlayer), s.received[0].Source().GetType())
}

func (s *PublisherTestSuite) TestPublishTurnWithoutFinderUsesReferences() {
	s.publisher.SubscribeAll(0, s.record)

	result := s.game.Dispatch(engine.Train{})
	err := s.publisher.PublishTurn(s.ctx, nil, result)
	s.Require().NoError(err)

	s.Require().NotEmpty(s.received)
	s.Equal("kael", s.received[0].Source().GetID())
	s.Equal("unknown", s.received[0].Source().GetType())
}

func (s *PublisherTestSuite) TestUnsubscribeStopsDelivery() {
	ids := s.publisher.SubscribeAll(0, s.record)
	s.Len(ids, len(rpgtoolkit.Topics()))

	s.Require().NoError(s.publisher.Unsubscribe(ids))

	result := s.game.Dispatch(engine.Rest{})
	s.Require().NoError(s.publisher.PublishTurn(s.ctx, s.game, result))
	s.Empty(s.received)
}

func (s *PublisherTestSuite) TestTopicsCoverEveryActionType() {
	topics := map[string]bool{}
	for _, topic := range rpgtoolkit.Topics() {
		topics[topic] = true
	}
	catalog := s.game.Catalog()
	for _, actionType := range catalog.ActionTypes() {
		s.True(topics[rpgtoolkit.Topic(actionType)], "missing topic for %s", actionType)
	}
	s.True(topics["dungeonbreak.pressure_control"])
}

func (s *PublisherTestSuite) TestWrapExposesEntityIdentity() {
	boss := &entities.Entity{ID: "boss_d12", Kind: entities.KindBoss}
	adapter := rpgtoolkit.Wrap(boss)
	s.Equal("boss_d12", adapter.GetID())
	s.Equal("boss", adapter.GetType())
}

func TestPublisherTestSuite(t *testing.T) {
	suite.Run(t, new(PublisherTestSuite))
}
