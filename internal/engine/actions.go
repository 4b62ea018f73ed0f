package engine

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ActionType names an action kind as it appears in events and fixtures.
type ActionType string

// Action types an entity can take
const (
	ActionMove           ActionType = "move"
	ActionTrain          ActionType = "train"
	ActionRest           ActionType = "rest"
	ActionTalk           ActionType = "talk"
	ActionSearch         ActionType = "search"
	ActionSpeak          ActionType = "speak"
	ActionFight          ActionType = "fight"
	ActionFlee           ActionType = "flee"
	ActionChooseDialogue ActionType = "choose_dialogue"
	ActionLiveStream     ActionType = "live_stream"
	ActionSteal          ActionType = "steal"
	ActionRecruit        ActionType = "recruit"
	ActionMurder         ActionType = "murder"
	ActionEvolveSkill    ActionType = "evolve_skill"
	ActionUseItem        ActionType = "use_item"
	ActionEquipItem      ActionType = "equip_item"
	ActionDropItem       ActionType = "drop_item"
	ActionPurchase       ActionType = "purchase"
	ActionReEquip        ActionType = "re_equip"
)

// Event types the engine records on its own behalf
const (
	EventStart           = "start"
	EventCutscene        = "cutscene"
	EventGlobal          = "global_event"
	EventSpawn           = "spawn"
	EventPressureControl = "pressure_control"
	EventRumorHeard      = "rumor_heard"
	EventRumorShared     = "rumor_shared"
)

// Action is one intent. The implementations below are the complete set;
// anything else decodes to Unknown.
type Action interface {
	Type() ActionType
	payload() map[string]any
}

// Move steps through an exit.
type Move struct{ Direction string }

// Train drills in a training room.
type Train struct{}

// Rest recovers energy.
type Rest struct{}

// Talk trades rumors with someone nearby.
type Talk struct{ TargetID string }

// Search takes the first item lying in the room.
type Search struct{}

// Speak projects free intent text onto traits and features.
type Speak struct{ IntentText string }

// Fight spars with an enemy.
type Fight struct{ TargetID string }

// Flee leaves an encounter through an exit.
type Flee struct{ Direction string }

// ChooseDialogue picks a dialogue option.
type ChooseDialogue struct{ OptionID string }

// LiveStream spends effort for fame. Zero effort uses the formula cost.
type LiveStream struct{ Effort float64 }

// Steal takes loot from a nearby entity.
type Steal struct{ TargetID string }

// Recruit turns a nearby entity into a companion.
type Recruit struct{ TargetID string }

// Murder is a lethal strike.
type Murder struct{ TargetID string }

// EvolveSkill evolves an unlocked skill at a rune forge.
type EvolveSkill struct{ SkillID string }

// UseItem applies an inventory item.
type UseItem struct{ ItemID string }

// EquipItem wields a weapon or armor.
type EquipItem struct{ ItemID string }

// DropItem discards an inventory item.
type DropItem struct{ ItemID string }

// Purchase buys rune forge stock with currency.
type Purchase struct{ ItemID string }

// ReEquip re-wields an item at a rune forge.
type ReEquip struct{ ItemID string }

// Unknown carries an action type the engine does not know.
type Unknown struct {
	Name   string
	Fields map[string]any
}

func (Move) Type() ActionType           { return ActionMove }
func (Train) Type() ActionType          { return ActionTrain }
func (Rest) Type() ActionType           { return ActionRest }
func (Talk) Type() ActionType           { return ActionTalk }
func (Search) Type() ActionType         { return ActionSearch }
func (Speak) Type() ActionType          { return ActionSpeak }
func (Fight) Type() ActionType          { return ActionFight }
func (Flee) Type() ActionType           { return ActionFlee }
func (ChooseDialogue) Type() ActionType { return ActionChooseDialogue }
func (LiveStream) Type() ActionType     { return ActionLiveStream }
func (Steal) Type() ActionType          { return ActionSteal }
func (Recruit) Type() ActionType        { return ActionRecruit }
func (Murder) Type() ActionType         { return ActionMurder }
func (EvolveSkill) Type() ActionType    { return ActionEvolveSkill }
func (UseItem) Type() ActionType        { return ActionUseItem }
func (EquipItem) Type() ActionType      { return ActionEquipItem }
func (DropItem) Type() ActionType       { return ActionDropItem }
func (Purchase) Type() ActionType       { return ActionPurchase }
func (ReEquip) Type() ActionType        { return ActionReEquip }
func (u Unknown) Type() ActionType      { return ActionType(u.Name) }

func (a Move) payload() map[string]any   { return map[string]any{"direction": a.Direction} }
func (Train) payload() map[string]any    { return map[string]any{} }
func (Rest) payload() map[string]any     { return map[string]any{} }
func (a Talk) payload() map[string]any   { return withTarget(a.TargetID) }
func (Search) payload() map[string]any   { return map[string]any{} }
func (a Speak) payload() map[string]any  { return map[string]any{"intentText": a.IntentText} }
func (a Fight) payload() map[string]any  { return withTarget(a.TargetID) }
func (a Flee) payload() map[string]any   { return map[string]any{"direction": a.Direction} }
func (a Steal) payload() map[string]any  { return withTarget(a.TargetID) }
func (a Murder) payload() map[string]any { return withTarget(a.TargetID) }

func (a ChooseDialogue) payload() map[string]any {
	if a.OptionID == "" {
		return map[string]any{}
	}
	return map[string]any{"optionId": a.OptionID}
}

func (a LiveStream) payload() map[string]any {
	if a.Effort == 0 {
		return map[string]any{}
	}
	return map[string]any{"effort": a.Effort}
}

func (a Recruit) payload() map[string]any     { return withTarget(a.TargetID) }
func (a EvolveSkill) payload() map[string]any { return map[string]any{"skillId": a.SkillID} }
func (a UseItem) payload() map[string]any     { return map[string]any{"itemId": a.ItemID} }
func (a EquipItem) payload() map[string]any   { return map[string]any{"itemId": a.ItemID} }
func (a DropItem) payload() map[string]any    { return map[string]any{"itemId": a.ItemID} }
func (a Purchase) payload() map[string]any    { return map[string]any{"itemId": a.ItemID} }
func (a ReEquip) payload() map[string]any     { return map[string]any{"itemId": a.ItemID} }

func (u Unknown) payload() map[string]any {
	out := make(map[string]any, len(u.Fields))
	for k, v := range u.Fields {
		out[k] = v
	}
	return out
}

func withTarget(targetID string) map[string]any {
	if targetID == "" {
		return map[string]any{}
	}
	return map[string]any{"targetId": targetID}
}

// PlayerAction is the wire form of an action: a type plus a loose payload.
type PlayerAction struct {
	ActionType string         `json:"actionType" yaml:"actionType"`
	Payload    map[string]any `json:"payload" yaml:"payload"`
}

// Encode converts an action to its wire form.
func Encode(a Action) PlayerAction {
	return PlayerAction{ActionType: string(a.Type()), Payload: a.payload()}
}

// Decode resolves the wire form into a typed action.
func (p PlayerAction) Decode() Action {
	m := p.Payload
	switch ActionType(strings.TrimSpace(p.ActionType)) {
	case ActionMove:
		return Move{Direction: strings.ToLower(stringField(m, "direction"))}
	case ActionTrain:
		return Train{}
	case ActionRest:
		return Rest{}
	case ActionTalk:
		return Talk{TargetID: stringField(m, "targetId")}
	case ActionSearch:
		return Search{}
	case ActionSpeak:
		return Speak{IntentText: stringField(m, "intentText")}
	case ActionFight:
		return Fight{TargetID: stringField(m, "targetId")}
	case ActionFlee:
		return Flee{Direction: strings.ToLower(stringField(m, "direction"))}
	case ActionChooseDialogue:
		return ChooseDialogue{OptionID: stringField(m, "optionId")}
	case ActionLiveStream:
		effort, _ := numberField(m, "effort")
		return LiveStream{Effort: effort}
	case ActionSteal:
		return Steal{TargetID: stringField(m, "targetId")}
	case ActionRecruit:
		return Recruit{TargetID: stringField(m, "targetId")}
	case ActionMurder:
		return Murder{TargetID: stringField(m, "targetId")}
	case ActionEvolveSkill:
		return EvolveSkill{SkillID: stringField(m, "skillId")}
	case ActionUseItem:
		return UseItem{ItemID: stringField(m, "itemId")}
	case ActionEquipItem:
		return EquipItem{ItemID: stringField(m, "itemId")}
	case ActionDropItem:
		return DropItem{ItemID: stringField(m, "itemId")}
	case ActionPurchase:
		return Purchase{ItemID: stringField(m, "itemId")}
	case ActionReEquip:
		return ReEquip{ItemID: stringField(m, "itemId")}
	}
	return Unknown{Name: p.ActionType, Fields: m}
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
