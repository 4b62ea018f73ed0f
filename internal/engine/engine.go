// Package engine runs the turn loop: it owns the game state, resolves one
// player action per dispatch and then lets the dungeon answer with global
// events, hostile spawns, NPC turns and pressure control.
//
// An Engine is not safe for concurrent use. Callers serialize access.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/combat"
	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/narrative"
	"github.com/KirkDiggler/dungeonbreak/internal/rng"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

const (
	playerID          = "kael"
	worldSeedOffset   = 11
	combatSeedOffset  = 3
	maxDeedMemories   = 160
	dialogueHistoryN  = 40
	runBranchAppraise = "appraisal"
	runBranchXray     = "xray"
)

var dungeoneerNames = []string{
	"Mira", "Dagan", "Yori", "Sable", "Fen", "Ibis", "Noel", "Rook",
	"Cora", "Jex", "Vale", "Ryn", "Lio", "Tamsin", "Orin", "Bram",
}

// Factions with engine meaning
const (
	FactionFreelancer   = "freelancer"
	FactionLaughingFace = "laughing_face"
	FactionLegion       = "dungeon_legion"
	FactionParty        = "party"
	FactionFallen       = "fallen"
)

// Config contains the dependencies for an Engine.
type Config struct {
	Catalog *content.Catalog
	// Seed is used when Game is nil.
	Seed int64
	// Game defaults to DefaultGameConfig(Catalog, Seed).
	Game *GameConfig
	// Resolver replaces the default spar resolver.
	Resolver combat.Resolver
}

// Validate checks the config.
func (c *Config) Validate() error {
	if c.Catalog == nil {
		return errors.InvalidArgument("catalog is required")
	}
	if c.Game != nil {
		return c.Game.Validate(c.Catalog)
	}
	return nil
}

// Engine is the turn/action state machine.
type Engine struct {
	catalog    *content.Catalog
	state      *GameState
	rng        *rng.Deterministic
	combatRng  *rng.Deterministic
	resolver   combat.Resolver
	dialogue   *narrative.DialogueDirector
	skills     *narrative.SkillDirector
	archetypes *narrative.ArchetypeDirector
	cutscenes  *narrative.CutsceneDirector
	deeds      *narrative.Vectorizer
}

var _ Game = (*Engine)(nil)

// New builds the dungeon and population for a fresh run and records the
// opening event.
func New(cfg *Config) (*Engine, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	game := DefaultGameConfig(cfg.Catalog, cfg.Seed)
	if cfg.Game != nil {
		game = *cfg.Game
	}
	if err := game.Validate(cfg.Catalog); err != nil {
		return nil, errors.Wrap(err, "invalid game config")
	}

	worldRng := rng.New(game.RandomSeed + worldSeedOffset)
	dungeon, err := world.Build(game.worldConfig(), cfg.Catalog, rng.New(game.RandomSeed))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build dungeon")
	}

	state := &GameState{
		Config:           game,
		Dungeon:          dungeon,
		Entities:         populate(&game, dungeon, worldRng),
		PlayerID:         playerID,
		Quests:           buildQuests(cfg.Catalog, &game),
		EventLog:         []GameEvent{},
		ActionHistory:    []string{},
		ChapterPages:     map[int]*ChapterPages{},
		GlobalEventFlags: []string{},
		SeenCutscenes:    []string{},
		DialogueProgress: DialogueProgress{
			VisitedOptionIDs:  []string{},
			VisitedClusterIDs: []string{},
			History:           []DialogueEntry{},
		},
	}

	e, err := newEngine(cfg, state)
	if err != nil {
		return nil, err
	}
	e.rng = worldRng
	e.syncRngState()
	e.ensureChapterPages(dungeon.ChapterForDepth(dungeon.StartDepth))

	for _, id := range e.sortedEntityIDs() {
		e.refreshArchetype(e.state.Entities[id])
	}
	player := e.Player()
	e.record(player, EventStart,
		fmt.Sprintf("%s begins. %s wakes on depth %d.", game.GameTitle, player.Name, player.Depth),
		nil, nil, nil, nil)
	return e, nil
}

// Create starts the default run for seed.
func Create(catalog *content.Catalog, seed int64) (*Engine, error) {
	return New(&Config{Catalog: catalog, Seed: seed})
}

// FromSnapshot resumes a run from a snapshot.
func FromSnapshot(cfg *Config, snapshot *GameState) (*Engine, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if snapshot == nil {
		return nil, errors.InvalidArgument("snapshot is required")
	}
	e, err := newEngine(cfg, &GameState{Config: snapshot.Config})
	if err != nil {
		return nil, err
	}
	if err := e.Restore(snapshot); err != nil {
		return nil, err
	}
	return e, nil
}

func newEngine(cfg *Config, state *GameState) (*Engine, error) {
	game := &state.Config
	e := &Engine{
		catalog:    cfg.Catalog,
		state:      state,
		rng:        rng.New(game.RandomSeed + worldSeedOffset),
		combatRng:  rng.New(game.RandomSeed + combatSeedOffset),
		resolver:   cfg.Resolver,
		dialogue:   narrative.NewDialogueDirector(cfg.Catalog.Dialogue),
		skills:     narrative.NewSkillDirector(cfg.Catalog.Skills, game.MinTraitValue, game.MaxTraitValue),
		archetypes: narrative.NewArchetypeDirector(cfg.Catalog.Archetypes),
		cutscenes:  narrative.NewCutsceneDirector(cfg.Catalog.Cutscenes),
		deeds:      narrative.NewVectorizer(nil, nil, cfg.Catalog.Contracts.DeedProjection),
	}
	if e.resolver == nil {
		spar, err := combat.NewSpar(&combat.Config{Roller: e.combatRng, BaseXPPerLevel: game.BaseXPPerLevel})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create combat resolver")
		}
		e.resolver = spar
	}
	return e, nil
}

func populate(cfg *GameConfig, dungeon *world.Dungeon, r *rng.Deterministic) map[string]*entities.Entity {
	out := map[string]*entities.Entity{}
	player := &entities.Entity{
		ID:               playerID,
		Name:             cfg.PlayerName,
		IsPlayer:         true,
		Kind:             entities.KindPlayer,
		Depth:            dungeon.StartDepth,
		RoomID:           dungeon.StartRoomID,
		Traits:           entities.NewTraitVector(0),
		Attributes:       entities.Attributes{Might: 6, Agility: 5, Insight: 5, Willpower: 6},
		Features:         entities.NewFeatureVector(),
		Faction:          FactionFreelancer,
		ArchetypeHeading: "wanderer",
		BaseLevel:        1,
		Health:           cfg.DefaultPlayerHealth,
		Energy:           cfg.DefaultPlayerEnergy,
	}
	out[player.ID] = withEmptyCollections(player)

	counter := 0
	for depth := cfg.TotalLevels; depth >= 1; depth-- {
		level := dungeon.Level(depth)
		candidates := make([]string, 0, cfg.RoomsPerLevel)
		for idx := 0; idx < cfg.RoomsPerLevel; idx++ {
			room := level.Rooms[world.RoomID(depth, idx)]
			if room != nil && room.Feature != world.FeatureRuneForge {
				candidates = append(candidates, room.RoomID)
			}
		}
		shuffled := rng.Shuffle(r, candidates)

		for idx := 0; idx < cfg.DungeoneersPerLevel && idx < len(shuffled); idx++ {
			counter++
			faction, reputation := FactionFreelancer, 0
			if counter%11 == 0 {
				faction, reputation = FactionLaughingFace, -2
			}
			npc := &entities.Entity{
				ID:               fmt.Sprintf("dungeoneer_%02d_%02d", depth, idx+1),
				Name:             dungeoneerNames[(counter-1)%len(dungeoneerNames)],
				Kind:             entities.KindDungeoneer,
				Depth:            depth,
				RoomID:           shuffled[idx],
				Traits:           entities.NewTraitVector(0),
				Attributes:       entities.DefaultAttributes(),
				Features:         entities.NewFeatureVector(),
				Faction:          faction,
				Reputation:       reputation,
				ArchetypeHeading: "delver",
				BaseLevel:        max(1, cfg.TotalLevels-depth+1),
				Health:           94,
				Energy:           1,
				Inventory: []entities.ItemInstance{{
					ItemID:      fmt.Sprintf("loot_%d_%d", depth, idx+1),
					Name:        "Worn Pouch",
					Rarity:      entities.RarityCommon,
					Description: "A pouch with mixed salvage.",
					Tags:        []string{entities.TagLoot, entities.TagCurrency},
					TraitDelta:  entities.Vector{"Projection": 0.03},
				}},
			}
			npc.Features[entities.FeatureEffort] = 80
			out[npc.ID] = withEmptyCollections(npc)
		}

		lift := max(0, cfg.TotalLevels-depth)
		boss := &entities.Entity{
			ID:     fmt.Sprintf("boss_%02d", depth),
			Name:   fmt.Sprintf("Depth %d Warden", depth),
			Kind:   entities.KindBoss,
			Depth:  depth,
			RoomID: level.ExitRoomID,
			Traits: entities.NewTraitVector(0),
			Attributes: entities.Attributes{
				Might:     7 + lift,
				Agility:   6 + lift/2,
				Insight:   5 + lift/3,
				Willpower: 7 + lift/2,
			},
			Features:         entities.NewFeatureVector(),
			Faction:          FactionLegion,
			Reputation:       -5,
			ArchetypeHeading: "warden",
			BaseLevel:        max(2, cfg.TotalLevels-depth+1+cfg.BossLevelBonus),
			Health:           120,
			Energy:           1,
			Inventory: []entities.ItemInstance{{
				ItemID:      fmt.Sprintf("boss_weapon_%02d", depth),
				Name:        "Gatekeeper Halberd",
				Rarity:      entities.RarityEpic,
				Description: "A heavy weapon used by gatekeepers.",
				Tags:        []string{entities.TagWeapon, entities.RarityEpic},
				TraitDelta:  entities.Vector{"Direction": 0.1, "Survival": 0.1},
			}},
		}
		out[boss.ID] = withEmptyCollections(boss)
	}
	return out
}

func withEmptyCollections(e *entities.Entity) *entities.Entity {
	if e.Inventory == nil {
		e.Inventory = []entities.ItemInstance{}
	}
	if e.Skills == nil {
		e.Skills = map[string]entities.SkillState{}
	}
	if e.Deeds == nil {
		e.Deeds = []entities.DeedMemory{}
	}
	if e.Rumors == nil {
		e.Rumors = []entities.Rumor{}
	}
	if e.Effects == nil {
		e.Effects = []entities.ActiveEffect{}
	}
	return e
}

func buildQuests(catalog *content.Catalog, cfg *GameConfig) map[string]*QuestState {
	out := make(map[string]*QuestState, len(catalog.Quests))
	for _, q := range catalog.Quests {
		out[q.QuestID] = &QuestState{
			QuestID:          q.QuestID,
			Title:            q.Title,
			Description:      q.Description,
			RequiredProgress: q.Required(cfg.TotalLevels),
		}
	}
	return out
}

// Catalog returns the content the engine runs on.
func (e *Engine) Catalog() *content.Catalog {
	return e.catalog
}

// State exposes the live state for fixture setup. Mutations made through it
// take effect on the next dispatch.
func (e *Engine) State() *GameState {
	return e.state
}

// Player returns the live player entity.
func (e *Engine) Player() *entities.Entity {
	return e.state.Entities[e.state.PlayerID]
}

// Entity looks up a live entity by id.
func (e *Engine) Entity(id string) (*entities.Entity, bool) {
	entity, ok := e.state.Entities[id]
	return entity, ok
}

// Snapshot returns a deep copy of the state with the rng positions synced.
func (e *Engine) Snapshot() (*GameState, error) {
	e.syncRngState()
	return e.state.Clone()
}

// Restore replaces the live state with a copy of snapshot and resumes its
// rng sequences.
func (e *Engine) Restore(snapshot *GameState) error {
	if snapshot == nil {
		return errors.InvalidArgument("snapshot is required")
	}
	state, err := snapshot.Clone()
	if err != nil {
		return errors.Wrap(err, "failed to restore snapshot")
	}
	if state.Dungeon == nil || state.Entities[state.PlayerID] == nil {
		return errors.InvalidArgument("snapshot has no dungeon or player")
	}
	if state.DialogueProgress.History == nil {
		state.DialogueProgress.History = []DialogueEntry{}
	}
	if state.DialogueProgress.VisitedOptionIDs == nil {
		state.DialogueProgress.VisitedOptionIDs = []string{}
	}
	if state.DialogueProgress.VisitedClusterIDs == nil {
		state.DialogueProgress.VisitedClusterIDs = []string{}
	}
	if state.ChapterPages == nil {
		state.ChapterPages = map[int]*ChapterPages{}
	}
	e.state = state
	e.rng.SetState(state.RngState)
	if state.CombatRngState != 0 {
		e.combatRng.SetState(state.CombatRngState)
	}
	return nil
}

func (e *Engine) syncRngState() {
	e.state.RngState = e.rng.State()
	e.state.CombatRngState = e.combatRng.State()
}

func (e *Engine) sortedEntityIDs() []string {
	ids := make([]string, 0, len(e.state.Entities))
	for id := range e.state.Entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) room(actor *entities.Entity) *world.Room {
	return e.state.Dungeon.Room(actor.Depth, actor.RoomID)
}

func (e *Engine) chapterFor(depth int) int {
	return e.state.Dungeon.ChapterForDepth(depth)
}

func (e *Engine) levelFor(entity *entities.Entity) int {
	level := entity.BaseLevel + entity.XP/e.state.Config.BaseXPPerLevel
	if entity.IsHostile() {
		level += e.state.GlobalEnemyLevelBonus
	}
	return max(1, level)
}

func (e *Engine) refreshArchetype(entity *entities.Entity) {
	entity.ArchetypeHeading = e.archetypes.Classify(entity, entity.ArchetypeHeading)
}

// Status summarizes the player's run.
func (e *Engine) Status() Status {
	player := e.Player()
	level := e.levelFor(player)
	scores := e.archetypes.Rank(player)
	if len(scores) > 3 {
		scores = scores[:3]
	}

	inventory := make([]InventoryRow, 0, len(player.Inventory))
	for _, item := range player.Inventory {
		inventory = append(inventory, InventoryRow{
			ItemID:   item.ItemID,
			Name:     item.Name,
			Rarity:   item.Rarity,
			Tags:     append([]string(nil), item.Tags...),
			Equipped: player.EquippedWeaponItemID == item.ItemID,
		})
	}
	quests := make(map[string]QuestStatus, len(e.state.Quests))
	for id, q := range e.state.Quests {
		quests[id] = QuestStatus{Progress: q.Progress, Required: q.RequiredProgress, Complete: q.IsComplete}
	}

	progress := e.state.DialogueProgress
	recent := progress.History
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}

	return Status{
		Turn:                   e.state.TurnIndex,
		Depth:                  player.Depth,
		RoomID:                 player.RoomID,
		Chapter:                e.chapterFor(player.Depth),
		Act:                    e.state.Dungeon.ActForDepth(player.Depth),
		Health:                 player.Health,
		Energy:                 player.Energy,
		Level:                  level,
		Faction:                player.Faction,
		Reputation:             player.Reputation,
		ArchetypeHeading:       player.ArchetypeHeading,
		ArchetypeScores:        scores,
		Traits:                 player.Traits.Clone(),
		Features:               player.Features.Clone(),
		Skills:                 player.UnlockedSkillIDs(),
		Inventory:              inventory,
		EquippedWeaponItemID:   player.EquippedWeaponItemID,
		Quests:                 quests,
		Companion:              e.state.ActiveCompanionID,
		Rumors:                 len(player.Rumors),
		Deeds:                  len(player.Deeds),
		Pressure:               e.pressure(),
		PressureCap:            e.state.Config.EntityPressureCap,
		SemanticCacheSize:      e.deeds.CacheSize(),
		FormulaRegistryVersion: narrative.FormulaRegistryVersion,
		FogMetrics: narrative.ComputeFog(level,
			player.Traits[entities.TraitComprehension], player.Features[entities.FeatureAwareness]),
		DialogueProgress: DialogueStatus{
			Sequence:            progress.Sequence,
			LastOptionID:        progress.LastOptionID,
			LastClusterID:       progress.LastClusterID,
			VisitedOptionCount:  len(progress.VisitedOptionIDs),
			VisitedClusterCount: len(progress.VisitedClusterIDs),
			Recent:              append([]DialogueEntry(nil), recent...),
		},
		Escaped: e.state.Escaped,
	}
}

// Look describes the player's surroundings.
func (e *Engine) Look() string {
	player := e.Player()
	room := e.room(player)

	exits := strings.Join(e.moveDirections(player, room), ", ")
	if exits == "" {
		exits = "none"
	}

	nearby := []string{}
	for _, other := range e.nearby(player) {
		nearby = append(nearby, fmt.Sprintf("%s(lvl %d,%s)", other.Name, e.levelFor(other), other.Faction))
	}
	nearbyText := strings.Join(nearby, ", ")
	if nearbyText == "" {
		nearbyText = "none"
	}

	labels := []string{}
	for _, row := range e.AvailableActions(player) {
		if !row.Available {
			continue
		}
		labels = append(labels, row.Label)
		if len(labels) == 10 {
			break
		}
	}
	actions := strings.Join(labels, ", ")
	if actions == "" {
		actions = "none"
	}

	axes := []string{}
	for _, row := range room.TopVector(3) {
		sign := ""
		if row.Value >= 0 {
			sign = "+"
		}
		axes = append(axes, fmt.Sprintf("%s%s%.2f", row.Trait, sign, row.Value))
	}
	roomVector := strings.Join(axes, ", ")
	if roomVector == "" {
		roomVector = "neutral"
	}

	return strings.Join([]string{
		room.Description,
		"Exits: " + exits,
		"Nearby: " + nearbyText,
		"Archetype: " + player.ArchetypeHeading,
		"Room vector: " + roomVector,
		"Available actions: " + actions,
	}, "\n")
}

// DialogueOptions lists the options the entity can choose right now. A nil
// entity means the player.
func (e *Engine) DialogueOptions(entity *entities.Entity) []narrative.DialogueEvaluation {
	if entity == nil {
		entity = e.Player()
	}
	return e.dialogue.AvailableOptions(entity, e.room(entity))
}

// PagesForCurrentChapter returns the transcript of the player's chapter.
func (e *Engine) PagesForCurrentChapter() ChapterPages {
	chapter := e.chapterFor(e.Player().Depth)
	out := ChapterPages{Chapter: []string{}, Entities: map[string][]string{}}
	pages, ok := e.state.ChapterPages[chapter]
	if !ok {
		return out
	}
	out.Chapter = append(out.Chapter, pages.Chapter...)
	for id, lines := range pages.Entities {
		out.Entities[id] = append([]string{}, lines...)
	}
	return out
}

// RecentDeeds returns the player's latest deeds, oldest first.
func (e *Engine) RecentDeeds(limit int) []narrative.Deed {
	player := e.Player()
	limit = max(1, limit)
	deeds := player.Deeds
	if len(deeds) > limit {
		deeds = deeds[len(deeds)-limit:]
	}
	out := make([]narrative.Deed, 0, len(deeds))
	for _, d := range deeds {
		confidence := d.Confidence
		out = append(out, narrative.Deed{
			DeedID:         d.DeedID,
			ActorID:        player.ID,
			ActorName:      player.Name,
			SubjectID:      d.SubjectEntityID,
			SourceEntityID: d.SourceEntityID,
			BeliefState:    d.BeliefState,
			Confidence:     &confidence,
			DeedType:       d.SourceAction,
			Title:          d.Summary,
			Summary:        d.Summary,
			Depth:          d.Depth,
			RoomID:         d.RoomID,
			Tags:           append([]string(nil), d.Tags...),
			TurnIndex:      d.TurnIndex,
		})
	}
	return out
}

// RecentCutscenes returns the latest cutscene events, oldest first.
func (e *Engine) RecentCutscenes(limit int) []GameEvent {
	limit = max(1, limit)
	out := []GameEvent{}
	for _, ev := range e.state.EventLog {
		if ev.ActionType == EventCutscene {
			out = append(out, ev)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Dispatch runs the player's action and the dungeon's response to it.
func (e *Engine) Dispatch(action Action) TurnResult {
	start := len(e.state.EventLog)
	player := e.Player()

	e.executeAction(player, action, true)
	e.processGlobalEvents(player)
	e.spawnHostiles(player.Depth)
	e.simulateNPCTurns()
	e.enforcePressureCap(player)
	e.syncRngState()

	events := make([]GameEvent, len(e.state.EventLog)-start)
	copy(events, e.state.EventLog[start:])
	return TurnResult{Events: events, Escaped: e.state.Escaped}
}
