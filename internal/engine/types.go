package engine

import (
	"encoding/json"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/narrative"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// QuestState is the live progress of one quest.
type QuestState struct {
	QuestID          string `json:"questId"`
	Title            string `json:"title"`
	Description      string `json:"description"`
	RequiredProgress int    `json:"requiredProgress"`
	Progress         int    `json:"progress"`
	IsComplete       bool   `json:"isComplete"`
}

// GameEvent is one entry of the event log.
type GameEvent struct {
	TurnIndex     int             `json:"turnIndex"`
	ActorID       string          `json:"actorId"`
	ActorName     string          `json:"actorName"`
	ActionType    string          `json:"actionType"`
	Depth         int             `json:"depth"`
	RoomID        string          `json:"roomId"`
	ChapterNumber int             `json:"chapterNumber"`
	ActNumber     int             `json:"actNumber"`
	Message       string          `json:"message"`
	Warnings      []string        `json:"warnings"`
	TraitDelta    entities.Vector `json:"traitDelta"`
	FeatureDelta  entities.Vector `json:"featureDelta"`
	Metadata      map[string]any  `json:"metadata"`
}

// ChapterPages is the transcript of one chapter, overall and per entity.
type ChapterPages struct {
	Chapter  []string            `json:"chapter"`
	Entities map[string][]string `json:"entities"`
}

// DialogueEntry is one talk or choose_dialogue turn of the player.
type DialogueEntry struct {
	Sequence       int    `json:"sequence"`
	TurnIndex      int    `json:"turnIndex"`
	ActionType     string `json:"actionType"`
	OptionID       string `json:"optionId,omitempty"`
	ClusterID      string `json:"clusterId,omitempty"`
	Label          string `json:"label"`
	ResponseText   string `json:"responseText"`
	Depth          int    `json:"depth"`
	RoomID         string `json:"roomId"`
	TargetEntityID string `json:"targetEntityId,omitempty"`
}

// DialogueProgress is the ledger of the player's conversations.
type DialogueProgress struct {
	Sequence          int             `json:"sequence"`
	LastOptionID      string          `json:"lastOptionId,omitempty"`
	LastClusterID     string          `json:"lastClusterId,omitempty"`
	VisitedOptionIDs  []string        `json:"visitedOptionIds"`
	VisitedClusterIDs []string        `json:"visitedClusterIds"`
	History           []DialogueEntry `json:"history"`
}

// GameState is the single root of mutable run state.
type GameState struct {
	Config                GameConfig                  `json:"config"`
	Dungeon               *world.Dungeon              `json:"dungeon"`
	Entities              map[string]*entities.Entity `json:"entities"`
	PlayerID              string                      `json:"playerId"`
	Quests                map[string]*QuestState      `json:"quests"`
	EventLog              []GameEvent                 `json:"eventLog"`
	ActionHistory         []string                    `json:"actionHistory"`
	ChapterPages          map[int]*ChapterPages       `json:"chapterPages"`
	TurnIndex             int                         `json:"turnIndex"`
	RngState              uint32                      `json:"rngState"`
	CombatRngState        uint32                      `json:"combatRngState"`
	Escaped               bool                        `json:"escaped"`
	GlobalEnemyLevelBonus int                         `json:"globalEnemyLevelBonus"`
	HostileSpawnIndex     int                         `json:"hostileSpawnIndex"`
	ActiveCompanionID     string                      `json:"activeCompanionId,omitempty"`
	RunBranchChoice       string                      `json:"runBranchChoice,omitempty"`
	GlobalEventFlags      []string                    `json:"globalEventFlags"`
	SeenCutscenes         []string                    `json:"seenCutscenes"`
	DialogueProgress      DialogueProgress            `json:"dialogueProgress"`
}

// Clone returns a deep, independent copy through the JSON form, which is
// also the persisted form.
func (s *GameState) Clone() (*GameState, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, "failed to encode game state")
	}
	out := &GameState{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInternal, "failed to decode game state")
	}
	return out, nil
}

// ActionAvailability is one offered action with its gate result.
type ActionAvailability struct {
	ActionType     ActionType     `json:"actionType"`
	Label          string         `json:"label"`
	Available      bool           `json:"available"`
	BlockedReasons []string       `json:"blockedReasons"`
	Payload        map[string]any `json:"payload"`
	action         Action
}

// Action returns the typed action this row offers.
func (a ActionAvailability) Action() Action {
	if a.action != nil {
		return a.action
	}
	return PlayerAction{ActionType: string(a.ActionType), Payload: a.Payload}.Decode()
}

// TurnResult is what one dispatch produced.
type TurnResult struct {
	Events  []GameEvent `json:"events"`
	Escaped bool        `json:"escaped"`
}

// Status is the read-only summary of the player's run.
type Status struct {
	Turn                   int                        `json:"turn"`
	Depth                  int                        `json:"depth"`
	RoomID                 string                     `json:"roomId"`
	Chapter                int                        `json:"chapter"`
	Act                    int                        `json:"act"`
	Health                 int                        `json:"health"`
	Energy                 float64                    `json:"energy"`
	Level                  int                        `json:"level"`
	Faction                string                     `json:"faction"`
	Reputation             int                        `json:"reputation"`
	ArchetypeHeading       string                     `json:"archetypeHeading"`
	ArchetypeScores        []narrative.ArchetypeScore `json:"archetypeScores"`
	Traits                 entities.Vector            `json:"traits"`
	Features               entities.Vector            `json:"features"`
	Skills                 []string                   `json:"skills"`
	Inventory              []InventoryRow             `json:"inventory"`
	EquippedWeaponItemID   string                     `json:"equippedWeaponItemId,omitempty"`
	Quests                 map[string]QuestStatus     `json:"quests"`
	Companion              string                     `json:"companion,omitempty"`
	Rumors                 int                        `json:"rumors"`
	Deeds                  int                        `json:"deeds"`
	Pressure               int                        `json:"pressure"`
	PressureCap            int                        `json:"pressureCap"`
	SemanticCacheSize      int                        `json:"semanticCacheSize"`
	FormulaRegistryVersion string                     `json:"formulaRegistryVersion"`
	FogMetrics             narrative.FogMetrics       `json:"fogMetrics"`
	DialogueProgress       DialogueStatus             `json:"dialogueProgress"`
	Escaped                bool                       `json:"escaped"`
}

// InventoryRow is one carried item in the status view.
type InventoryRow struct {
	ItemID   string   `json:"itemId"`
	Name     string   `json:"name"`
	Rarity   string   `json:"rarity"`
	Tags     []string `json:"tags"`
	Equipped bool     `json:"equipped"`
}

// QuestStatus is one quest in the status view.
type QuestStatus struct {
	Progress int  `json:"progress"`
	Required int  `json:"required"`
	Complete bool `json:"complete"`
}

// DialogueStatus summarizes the dialogue ledger.
type DialogueStatus struct {
	Sequence            int             `json:"sequence"`
	LastOptionID        string          `json:"lastOptionId,omitempty"`
	LastClusterID       string          `json:"lastClusterId,omitempty"`
	VisitedOptionCount  int             `json:"visitedOptionCount"`
	VisitedClusterCount int             `json:"visitedClusterCount"`
	Recent              []DialogueEntry `json:"recent"`
}
