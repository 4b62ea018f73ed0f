// Package rpgtoolkit bridges dispatched game events onto an rpg-toolkit
// event bus so listeners outside the engine can react to a turn.
package rpgtoolkit

import (
	"context"

	"github.com/KirkDiggler/rpg-toolkit/core"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/dungeonbreak/internal/engine"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// TopicPrefix namespaces every published event type.
const TopicPrefix = "dungeonbreak."

// Context keys set on every published event
const (
	KeyTurnIndex = "turn_index"
	KeyMessage   = "message"
	KeyDepth     = "depth"
	KeyRoomID    = "room_id"
	KeyChapter   = "chapter"
	KeyWarnings  = "warnings"
	KeyMetadata  = "metadata"
	KeyEscaped   = "escaped"
)

const typeUnknown = "unknown"

// EntityFinder resolves entity ids against a live run.
type EntityFinder interface {
	Entity(id string) (*entities.Entity, bool)
}

// Config contains the dependencies for a Publisher
type Config struct {
	EventBus events.EventBus
}

// Validate checks that all required dependencies are provided
func (c *Config) Validate() error {
	if c.EventBus == nil {
		return errors.InvalidArgument("event bus is required")
	}
	return nil
}

// Publisher publishes turn results on the event bus
type Publisher struct {
	eventBus events.EventBus
}

// NewPublisher creates a new publisher
func NewPublisher(cfg *Config) (*Publisher, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Publisher{eventBus: cfg.EventBus}, nil
}

// Topic returns the bus event type for an engine action or event type.
func Topic(actionType string) string {
	return TopicPrefix + actionType
}

// Topics lists every topic the engine can produce.
func Topics() []string {
	types := []string{
		string(engine.ActionMove), string(engine.ActionTrain), string(engine.ActionRest),
		string(engine.ActionTalk), string(engine.ActionSearch), string(engine.ActionSpeak),
		string(engine.ActionFight), string(engine.ActionFlee), string(engine.ActionChooseDialogue),
		string(engine.ActionLiveStream), string(engine.ActionSteal), string(engine.ActionRecruit),
		string(engine.ActionMurder), string(engine.ActionEvolveSkill), string(engine.ActionUseItem),
		string(engine.ActionEquipItem), string(engine.ActionDropItem), string(engine.ActionPurchase),
		string(engine.ActionReEquip),
		engine.EventStart, engine.EventCutscene, engine.EventGlobal, engine.EventSpawn,
		engine.EventPressureControl,
	}
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = Topic(t)
	}
	return out
}

// SubscribeAll registers handler on every engine topic and returns the
// subscription ids.
func (p *Publisher) SubscribeAll(priority int, handler events.HandlerFunc) []string {
	topics := Topics()
	ids := make([]string, 0, len(topics))
	for _, topic := range topics {
		ids = append(ids, p.eventBus.SubscribeFunc(topic, priority, handler))
	}
	return ids
}

// Unsubscribe removes subscriptions made through SubscribeAll.
func (p *Publisher) Unsubscribe(ids []string) error {
	for _, id := range ids {
		if err := p.eventBus.Unsubscribe(id); err != nil {
			return errors.Wrapf(err, "failed to unsubscribe %s", id)
		}
	}
	return nil
}

// PublishTurn publishes each event of a dispatch in log order. It stops at
// the first handler error.
func (p *Publisher) PublishTurn(ctx context.Context, finder EntityFinder, result engine.TurnResult) error {
	for i := range result.Events {
		ev := &result.Events[i]
		busEvent := events.NewGameEvent(Topic(ev.ActionType), p.source(finder, ev), p.target(finder, ev))
		busEvent.Context().Set(KeyTurnIndex, ev.TurnIndex)
		busEvent.Context().Set(KeyMessage, ev.Message)
		busEvent.Context().Set(KeyDepth, ev.Depth)
		busEvent.Context().Set(KeyRoomID, ev.RoomID)
		busEvent.Context().Set(KeyChapter, ev.ChapterNumber)
		busEvent.Context().Set(KeyWarnings, ev.Warnings)
		busEvent.Context().Set(KeyMetadata, ev.Metadata)
		busEvent.Context().Set(KeyEscaped, result.Escaped)

		if err := p.eventBus.Publish(ctx, busEvent); err != nil {
			return errors.Wrapf(err, "failed to publish %s event", ev.ActionType)
		}
	}
	return nil
}

func (p *Publisher) source(finder EntityFinder, ev *engine.GameEvent) core.Entity {
	if finder != nil {
		if entity, ok := finder.Entity(ev.ActorID); ok {
			return Wrap(entity)
		}
	}
	return &entityRef{id: ev.ActorID, entityType: typeUnknown}
}

func (p *Publisher) target(finder EntityFinder, ev *engine.GameEvent) core.Entity {
	targetID, _ := ev.Metadata["targetId"].(string)
	if targetID == "" {
		return nil
	}
	if finder != nil {
		if entity, ok := finder.Entity(targetID); ok {
			return Wrap(entity)
		}
	}
	return &entityRef{id: targetID, entityType: typeUnknown}
}
