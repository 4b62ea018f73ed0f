// Package world builds and navigates the dungeon: a stack of levels, each a
// grid of rooms, linked by stairs between the exit of one level and the
// start of the level above it.
package world

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/rng"
)

// Room features
const (
	FeatureCorridor   = "corridor"
	FeatureStart      = "start"
	FeatureStairsUp   = "stairs_up"
	FeatureStairsDown = "stairs_down"
	FeatureEscapeGate = "escape_gate"
	FeatureTraining   = "training"
	FeatureDialogue   = "dialogue"
	FeatureRest       = "rest"
	FeatureTreasure   = "treasure"
	FeatureRuneForge  = "rune_forge"
	FeatureCombat     = "combat"
)

// Directions
const (
	North = "north"
	South = "south"
	West  = "west"
	East  = "east"
	Up    = "up"
	Down  = "down"
)

// extraFeatures are placed once per level after treasure and rune forges.
var extraFeatures = []string{FeatureTraining, FeatureDialogue, FeatureRest, FeatureCombat}

var weaponTiers = []string{
	entities.RarityCommon,
	entities.RarityRare,
	entities.RarityEpic,
	entities.RarityLegendary,
}

// VectorTemplates supplies the base trait vector for a room feature.
type VectorTemplates interface {
	RoomVector(feature string) entities.Vector
}

// Config shapes the generated dungeon.
type Config struct {
	Title          string
	TotalLevels    int
	Rows           int
	Columns        int
	RoomsPerLevel  int
	ChaptersPerAct int
	TreasureRooms  int
	RuneForgeRooms int
}

// Validate checks the layout is buildable.
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()
	errors.ValidateMin("totalLevels", c.TotalLevels, 1, vb)
	errors.ValidateMin("rows", c.Rows, 1, vb)
	errors.ValidateMin("columns", c.Columns, 1, vb)
	errors.ValidateMin("chaptersPerAct", c.ChaptersPerAct, 1, vb)
	errors.ValidateMin("treasureRooms", c.TreasureRooms, 0, vb)
	errors.ValidateMin("runeForgeRooms", c.RuneForgeRooms, 0, vb)
	if c.Rows*c.Columns != c.RoomsPerLevel {
		vb.Fieldf("roomsPerLevel", "grid %dx%d does not hold %d rooms", c.Rows, c.Columns, c.RoomsPerLevel)
	}
	if c.RoomsPerLevel < 2 {
		vb.Field("roomsPerLevel", "must be at least 2")
	}
	return vb.Build()
}

// Exit links a room to a neighbour, possibly on another depth.
type Exit struct {
	Direction string `json:"direction"`
	Depth     int    `json:"depth"`
	RoomID    string `json:"roomId"`
}

// RoomItem is an item lying in a room.
type RoomItem struct {
	ItemID      string          `json:"itemId"`
	Name        string          `json:"name"`
	Rarity      string          `json:"rarity"`
	Description string          `json:"description"`
	Tags        []string        `json:"tags"`
	VectorDelta entities.Vector `json:"vectorDelta"`
	IsPresent   bool            `json:"isPresent"`
}

// HasTag reports whether the item carries tag.
func (i *RoomItem) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Instance converts the room item into an inventory item.
func (i *RoomItem) Instance() entities.ItemInstance {
	return entities.ItemInstance{
		ItemID:      i.ItemID,
		Name:        i.Name,
		Rarity:      i.Rarity,
		Description: i.Description,
		Tags:        append([]string(nil), i.Tags...),
		TraitDelta:  i.VectorDelta.Clone(),
	}
}

// Room is one cell of a level grid.
type Room struct {
	RoomID        string          `json:"roomId"`
	Depth         int             `json:"depth"`
	ChapterNumber int             `json:"chapterNumber"`
	Row           int             `json:"row"`
	Column        int             `json:"column"`
	Index         int             `json:"index"`
	Feature       string          `json:"feature"`
	Description   string          `json:"description"`
	BaseVector    entities.Vector `json:"baseVector"`
	Items         []*RoomItem     `json:"items"`
	Exits         []Exit          `json:"exits"`
}

// Level is one depth of the dungeon.
type Level struct {
	Depth         int              `json:"depth"`
	ChapterNumber int              `json:"chapterNumber"`
	Rows          int              `json:"rows"`
	Columns       int              `json:"columns"`
	Rooms         map[string]*Room `json:"rooms"`
	StartRoomID   string           `json:"startRoomId"`
	ExitRoomID    string           `json:"exitRoomId"`
}

// Dungeon is the whole world graph.
type Dungeon struct {
	Title          string         `json:"title"`
	TotalLevels    int            `json:"totalLevels"`
	ChaptersPerAct int            `json:"chaptersPerAct"`
	Levels         map[int]*Level `json:"levels"`
	StartDepth     int            `json:"startDepth"`
	StartRoomID    string         `json:"startRoomId"`
	EscapeDepth    int            `json:"escapeDepth"`
	EscapeRoomID   string         `json:"escapeRoomId"`
}

// RoomID formats the id of the room at index on depth.
func RoomID(depth, index int) string {
	return fmt.Sprintf("L%02d_R%03d", depth, index)
}

// Build generates the dungeon from the deepest level up. The same config,
// templates and rng state always produce the same dungeon.
func Build(cfg *Config, templates VectorTemplates, r *rng.Deterministic) (*Dungeon, error) {
	if cfg == nil {
		return nil, errors.InvalidArgument("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	if templates == nil {
		return nil, errors.InvalidArgument("templates are required")
	}
	if r == nil {
		return nil, errors.InvalidArgument("rng is required")
	}

	d := &Dungeon{
		Title:          cfg.Title,
		TotalLevels:    cfg.TotalLevels,
		ChaptersPerAct: cfg.ChaptersPerAct,
		Levels:         make(map[int]*Level, cfg.TotalLevels),
		StartDepth:     cfg.TotalLevels,
		StartRoomID:    RoomID(cfg.TotalLevels, 0),
		EscapeDepth:    1,
		EscapeRoomID:   RoomID(1, cfg.RoomsPerLevel-1),
	}

	for depth := cfg.TotalLevels; depth >= 1; depth-- {
		d.Levels[depth] = buildLevel(cfg, templates, r, depth)
	}

	for depth := cfg.TotalLevels; depth > 1; depth-- {
		level := d.Levels[depth]
		upper := d.Levels[depth-1]
		exitRoom := level.Rooms[level.ExitRoomID]
		upperStart := upper.Rooms[upper.StartRoomID]
		exitRoom.Exits = append(exitRoom.Exits, Exit{Direction: Up, Depth: depth - 1, RoomID: upper.StartRoomID})
		upperStart.Exits = append(upperStart.Exits, Exit{Direction: Down, Depth: depth, RoomID: level.ExitRoomID})
	}
	return d, nil
}

func buildLevel(cfg *Config, templates VectorTemplates, r *rng.Deterministic, depth int) *Level {
	startIdx, exitIdx := 0, cfg.RoomsPerLevel-1
	special := assignSpecialFeatures(cfg, r, startIdx, exitIdx)
	chapter := cfg.TotalLevels - depth + 1

	level := &Level{
		Depth:         depth,
		ChapterNumber: chapter,
		Rows:          cfg.Rows,
		Columns:       cfg.Columns,
		Rooms:         make(map[string]*Room, cfg.RoomsPerLevel),
		StartRoomID:   RoomID(depth, startIdx),
		ExitRoomID:    RoomID(depth, exitIdx),
	}

	for index := 0; index < cfg.RoomsPerLevel; index++ {
		feature := FeatureCorridor
		switch {
		case index == startIdx && depth == cfg.TotalLevels:
			feature = FeatureStart
		case index == startIdx:
			feature = FeatureStairsDown
		case index == exitIdx && depth == 1:
			feature = FeatureEscapeGate
		case index == exitIdx:
			feature = FeatureStairsUp
		default:
			if f, ok := special[index]; ok {
				feature = f
			}
		}

		id := RoomID(depth, index)
		level.Rooms[id] = &Room{
			RoomID:        id,
			Depth:         depth,
			ChapterNumber: chapter,
			Row:           index / cfg.Columns,
			Column:        index % cfg.Columns,
			Index:         index,
			Feature:       feature,
			Description: fmt.Sprintf("Depth %d, room %d/%d. Feature: %s.",
				depth, index+1, cfg.RoomsPerLevel, strings.ReplaceAll(feature, "_", " ")),
			BaseVector: templates.RoomVector(feature),
			Items:      itemsForRoom(feature, depth, index),
			Exits:      []Exit{},
		}
	}

	for index := 0; index < cfg.RoomsPerLevel; index++ {
		room := level.Rooms[RoomID(depth, index)]
		if room.Row > 0 {
			room.Exits = append(room.Exits, Exit{Direction: North, Depth: depth, RoomID: RoomID(depth, index-cfg.Columns)})
		}
		if room.Row < cfg.Rows-1 {
			room.Exits = append(room.Exits, Exit{Direction: South, Depth: depth, RoomID: RoomID(depth, index+cfg.Columns)})
		}
		if room.Column > 0 {
			room.Exits = append(room.Exits, Exit{Direction: West, Depth: depth, RoomID: RoomID(depth, index-1)})
		}
		if room.Column < cfg.Columns-1 {
			room.Exits = append(room.Exits, Exit{Direction: East, Depth: depth, RoomID: RoomID(depth, index+1)})
		}
	}
	return level
}

func assignSpecialFeatures(cfg *Config, r *rng.Deterministic, startIdx, exitIdx int) map[int]string {
	pool := make([]int, 0, cfg.RoomsPerLevel)
	for i := 0; i < cfg.RoomsPerLevel; i++ {
		if i != startIdx && i != exitIdx {
			pool = append(pool, i)
		}
	}
	shuffled := rng.Shuffle(r, pool)

	out := make(map[int]string)
	cursor := 0
	place := func(feature string, count int) {
		for i := 0; i < count && cursor < len(shuffled); i++ {
			out[shuffled[cursor]] = feature
			cursor++
		}
	}
	place(FeatureTreasure, cfg.TreasureRooms)
	place(FeatureRuneForge, cfg.RuneForgeRooms)
	for _, feature := range extraFeatures {
		place(feature, 1)
	}
	return out
}

func itemsForRoom(feature string, depth, index int) []*RoomItem {
	switch feature {
	case FeatureTreasure:
		tierIndex := (depth + index) / 12
		if tierIndex > len(weaponTiers)-1 {
			tierIndex = len(weaponTiers) - 1
		}
		tier := weaponTiers[tierIndex]
		return []*RoomItem{
			{
				ItemID:      fmt.Sprintf("treasure_cache_%d_%d", depth, index),
				Name:        "Treasure Cache",
				Rarity:      entities.RarityRare,
				Description: "A sealed chest filled with useful salvage.",
				Tags:        []string{entities.TagTreasure, entities.TagLoot},
				VectorDelta: entities.Vector{"Projection": 0.4, "Survival": 0.2},
				IsPresent:   true,
			},
			{
				ItemID:      fmt.Sprintf("weapon_%s_%d_%d", tier, depth, index),
				Name:        strings.ToUpper(tier[:1]) + tier[1:] + " Weapon",
				Rarity:      tier,
				Description: fmt.Sprintf("A %s weapon recovered from the dungeon.", tier),
				Tags:        []string{entities.TagWeapon, entities.TagLoot, tier},
				VectorDelta: weaponTierDelta(tier),
				IsPresent:   true,
			},
		}
	case FeatureCombat:
		return []*RoomItem{
			{
				ItemID:      fmt.Sprintf("worn_blade_%d_%d", depth, index),
				Name:        "Worn Blade",
				Rarity:      entities.RarityCommon,
				Description: "Old steel, but still sharp enough to matter.",
				Tags:        []string{entities.TagWeapon},
				VectorDelta: entities.Vector{"Direction": 0.15, "Survival": 0.15},
				IsPresent:   true,
			},
		}
	}
	return []*RoomItem{}
}

func weaponTierDelta(tier string) entities.Vector {
	switch tier {
	case entities.RarityRare:
		return entities.Vector{"Direction": 0.1, "Survival": 0.1}
	case entities.RarityEpic:
		return entities.Vector{"Direction": 0.16, "Survival": 0.14}
	case entities.RarityLegendary:
		return entities.Vector{"Direction": 0.24, "Survival": 0.22, "Projection": 0.08}
	}
	return entities.Vector{"Direction": 0.05, "Survival": 0.05}
}

// Level returns the level at depth, or nil.
func (d *Dungeon) Level(depth int) *Level {
	return d.Levels[depth]
}

// Room returns the room, or nil when depth or id is unknown.
func (d *Dungeon) Room(depth int, roomID string) *Room {
	level := d.Levels[depth]
	if level == nil {
		return nil
	}
	return level.Rooms[roomID]
}

// Step resolves a move. It fails when there is no exit in that direction
// or the destination's feature is in blocked.
func (d *Dungeon) Step(depth int, roomID, direction string, blocked ...string) (Exit, bool) {
	room := d.Room(depth, roomID)
	if room == nil {
		return Exit{}, false
	}
	exit, ok := room.ExitTo(direction)
	if !ok {
		return Exit{}, false
	}
	target := d.Room(exit.Depth, exit.RoomID)
	if target == nil {
		return Exit{}, false
	}
	for _, feature := range blocked {
		if target.Feature == feature {
			return Exit{}, false
		}
	}
	return exit, true
}

// ChapterForDepth numbers chapters from the deepest level.
func (d *Dungeon) ChapterForDepth(depth int) int {
	return d.TotalLevels - depth + 1
}

// ActForDepth groups chapters into acts.
func (d *Dungeon) ActForDepth(depth int) int {
	per := d.ChaptersPerAct
	if per < 1 {
		per = 1
	}
	return (d.ChapterForDepth(depth)-1)/per + 1
}

// ExitTo returns the exit in direction.
func (r *Room) ExitTo(direction string) (Exit, bool) {
	for _, exit := range r.Exits {
		if exit.Direction == direction {
			return exit, true
		}
	}
	return Exit{}, false
}

// ExitDirections lists exit directions in link order.
func (r *Room) ExitDirections() []string {
	out := make([]string, len(r.Exits))
	for i, exit := range r.Exits {
		out[i] = exit.Direction
	}
	return out
}

// EffectiveVector is the base vector plus the deltas of present items.
func (r *Room) EffectiveVector() entities.Vector {
	out := entities.NewTraitVector(0)
	for k, v := range r.BaseVector {
		out[k] = v
	}
	for _, item := range r.Items {
		if !item.IsPresent {
			continue
		}
		for _, trait := range entities.TraitNames {
			out[trait] += item.VectorDelta[trait]
		}
	}
	return out
}

// TraitValue is one named axis value.
type TraitValue struct {
	Trait string  `json:"trait"`
	Value float64 `json:"value"`
}

// TopVector returns the strongest non-zero axes of the effective vector.
func (r *Room) TopVector(limit int) []TraitValue {
	if limit < 1 {
		limit = 1
	}
	vector := r.EffectiveVector()
	rows := make([]TraitValue, 0, len(entities.TraitNames))
	for _, trait := range entities.TraitNames {
		if math.Abs(vector[trait]) > 1e-4 {
			rows = append(rows, TraitValue{Trait: trait, Value: vector[trait]})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return math.Abs(rows[i].Value) > math.Abs(rows[j].Value)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows
}

// HasItemTag reports whether a present item carries tag.
func (r *Room) HasItemTag(tag string) bool {
	for _, item := range r.Items {
		if item.IsPresent && item.HasTag(tag) {
			return true
		}
	}
	return false
}

// TakeFirstPresentItem marks the first present item taken and returns it.
func (r *Room) TakeFirstPresentItem() *RoomItem {
	for _, item := range r.Items {
		if item.IsPresent {
			item.IsPresent = false
			return item
		}
	}
	return nil
}

// TakeFirstItemWithTag marks the first present item with tag taken.
func (r *Room) TakeFirstItemWithTag(tag string) *RoomItem {
	for _, item := range r.Items {
		if item.IsPresent && item.HasTag(tag) {
			item.IsPresent = false
			return item
		}
	}
	return nil
}

// PresentItemCount counts items still lying in the room.
func (r *Room) PresentItemCount() int {
	n := 0
	for _, item := range r.Items {
		if item.IsPresent {
			n++
		}
	}
	return n
}

// WeaponPowerForTier maps rarity tags onto weapon power.
func WeaponPowerForTier(tags []string) int {
	has := func(tag string) bool {
		for _, t := range tags {
			if t == tag {
				return true
			}
		}
		return false
	}
	switch {
	case has(entities.RarityLegendary):
		return 4
	case has(entities.RarityEpic):
		return 3
	case has(entities.RarityRare):
		return 2
	}
	return 1
}
