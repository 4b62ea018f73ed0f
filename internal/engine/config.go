package engine

import (
	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// GameConfig holds the run parameters. It lives inside the game state so a
// snapshot carries the exact parameters it was played with.
type GameConfig struct {
	GameTitle                       string                   `json:"gameTitle"`
	PlayerName                      string                   `json:"playerName"`
	TotalLevels                     int                      `json:"totalLevels"`
	LevelRows                       int                      `json:"levelRows"`
	LevelColumns                    int                      `json:"levelColumns"`
	RoomsPerLevel                   int                      `json:"roomsPerLevel"`
	ChaptersPerAct                  int                      `json:"chaptersPerAct"`
	RandomSeed                      int64                    `json:"randomSeed"`
	CanonicalSeed                   int64                    `json:"canonicalSeed"`
	MinTraitValue                   float64                  `json:"minTraitValue"`
	MaxTraitValue                   float64                  `json:"maxTraitValue"`
	DefaultPlayerHealth             int                      `json:"defaultPlayerHealth"`
	DefaultPlayerEnergy             float64                  `json:"defaultPlayerEnergy"`
	DungeoneersPerLevel             int                      `json:"dungeoneersPerLevel"`
	TreasureRoomsPerLevel           int                      `json:"treasureRoomsPerLevel"`
	RuneForgeRoomsPerLevel          int                      `json:"runeForgeRoomsPerLevel"`
	HostileSpawnPerTurn             int                      `json:"hostileSpawnPerTurn"`
	CompanionsMax                   int                      `json:"companionsMax"`
	BaseXPPerLevel                  int                      `json:"baseXpPerLevel"`
	BossLevelBonus                  int                      `json:"bossLevelBonus"`
	HostileLevelBonus               int                      `json:"hostileLevelBonus"`
	EntityPressureCap               int                      `json:"entityPressureCap"`
	CountItemsAsEntitiesForPressure bool                     `json:"countItemsAsEntitiesForPressure"`
	NPCActionPolicyIDs              map[entities.Kind]string `json:"npcActionPolicyIds"`
}

// DefaultGameConfig returns the standard run for seed, taking the pressure
// contract and canonical seed from catalog.
func DefaultGameConfig(catalog *content.Catalog, seed int64) GameConfig {
	cfg := GameConfig{
		GameTitle:              "Escape the Dungeon",
		PlayerName:             "Kael",
		TotalLevels:            12,
		LevelRows:              5,
		LevelColumns:           10,
		RoomsPerLevel:          50,
		ChaptersPerAct:         4,
		RandomSeed:             seed,
		CanonicalSeed:          7,
		MinTraitValue:          -1,
		MaxTraitValue:          1,
		DefaultPlayerHealth:    100,
		DefaultPlayerEnergy:    1,
		DungeoneersPerLevel:    4,
		TreasureRoomsPerLevel:  20,
		RuneForgeRoomsPerLevel: 5,
		HostileSpawnPerTurn:    1,
		CompanionsMax:          1,
		BaseXPPerLevel:         30,
		BossLevelBonus:         2,
		HostileLevelBonus:      1,
		EntityPressureCap:      120,
		NPCActionPolicyIDs: map[entities.Kind]string{
			entities.KindHostile: "hostile_aggressor",
			entities.KindBoss:    "boss_guard",
		},
	}
	if catalog != nil {
		cfg.CanonicalSeed = catalog.Contracts.CanonicalSeedV1
		cfg.EntityPressureCap = catalog.Contracts.EntityPressure.Cap
		cfg.CountItemsAsEntitiesForPressure = catalog.Contracts.EntityPressure.CountItemsAsEntities
	}
	return cfg
}

// Validate checks the config against itself and, when catalog is set, that
// every referenced policy exists.
func (c *GameConfig) Validate(catalog *content.Catalog) error {
	vb := errors.NewValidationBuilder()
	errors.ValidateRequired("playerName", c.PlayerName, vb)
	errors.ValidateMin("baseXpPerLevel", c.BaseXPPerLevel, 1, vb)
	errors.ValidateMin("defaultPlayerHealth", c.DefaultPlayerHealth, 1, vb)
	errors.ValidateMin("dungeoneersPerLevel", c.DungeoneersPerLevel, 0, vb)
	errors.ValidateMin("hostileSpawnPerTurn", c.HostileSpawnPerTurn, 0, vb)
	errors.ValidateMin("entityPressureCap", c.EntityPressureCap, 1, vb)
	errors.ValidateFloatRange("defaultPlayerEnergy", c.DefaultPlayerEnergy, 0, 1, vb)
	if c.MinTraitValue >= c.MaxTraitValue {
		vb.Fieldf("minTraitValue", "must be below maxTraitValue %.2f", c.MaxTraitValue)
	}
	if catalog != nil {
		for kind, policyID := range c.NPCActionPolicyIDs {
			if _, ok := catalog.Policy(policyID); !ok {
				vb.Fieldf("npcActionPolicyIds."+string(kind), "unknown policy %q", policyID)
			}
		}
	}
	if err := c.worldConfig().Validate(); err != nil {
		vb.Field("world", err.Error())
	}
	return vb.Build()
}

func (c *GameConfig) worldConfig() *world.Config {
	return &world.Config{
		Title:          c.GameTitle,
		TotalLevels:    c.TotalLevels,
		Rows:           c.LevelRows,
		Columns:        c.LevelColumns,
		RoomsPerLevel:  c.RoomsPerLevel,
		ChaptersPerAct: c.ChaptersPerAct,
		TreasureRooms:  c.TreasureRoomsPerLevel,
		RuneForgeRooms: c.RuneForgeRoomsPerLevel,
	}
}
