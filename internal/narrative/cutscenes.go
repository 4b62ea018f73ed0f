package narrative

import (
	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

// CutsceneContext describes the action that may trigger cutscenes.
type CutsceneContext struct {
	Actor            *entities.Entity
	ActionType       string
	FoundItemTags    []string
	UnlockedSkillIDs []string
	ChapterCompleted int
	Escaped          bool
}

// CutsceneHit is a triggered cutscene.
type CutsceneHit struct {
	CutsceneID string `json:"cutsceneId"`
	Title      string `json:"title"`
	Text       string `json:"text"`
}

// CutsceneDirector matches cutscene triggers. It keeps no state; the seen
// list lives in the game state so it survives snapshots.
type CutsceneDirector struct {
	definitions []content.CutsceneDefinition
}

// NewCutsceneDirector keeps definitions in pack order.
func NewCutsceneDirector(definitions []content.CutsceneDefinition) *CutsceneDirector {
	return &CutsceneDirector{definitions: definitions}
}

// Trigger returns the hits for ctx and the updated seen list. Once-only
// cutscenes already in seen are skipped.
func (d *CutsceneDirector) Trigger(ctx *CutsceneContext, seen []string) ([]CutsceneHit, []string) {
	hits := []CutsceneHit{}
	for _, def := range d.definitions {
		if def.Once && containsString(seen, def.CutsceneID) {
			continue
		}
		if !matches(&def, ctx) {
			continue
		}
		if def.Once {
			seen = append(seen, def.CutsceneID)
		}
		hits = append(hits, CutsceneHit{CutsceneID: def.CutsceneID, Title: def.Title, Text: def.Text})
	}
	return hits, seen
}

func matches(def *content.CutsceneDefinition, ctx *CutsceneContext) bool {
	if def.RequiredActionType != "" && def.RequiredActionType != ctx.ActionType {
		return false
	}
	switch def.TriggerKind {
	case content.TriggerItemTag:
		return containsString(ctx.FoundItemTags, def.RequiredItemTag)
	case content.TriggerSkillUnlock:
		return containsString(ctx.UnlockedSkillIDs, def.RequiredSkillID)
	case content.TriggerAttributeMilestone:
		if def.MinAttribute == nil {
			return false
		}
		value, _ := ctx.Actor.Attributes.Get(def.MinAttribute.Key)
		return value >= def.MinAttribute.Value
	case content.TriggerFameMilestone:
		if def.MinFame == nil {
			return false
		}
		return ctx.Actor.Features[entities.FeatureFame] >= *def.MinFame
	case content.TriggerChapterComplete:
		return ctx.ChapterCompleted > 0
	case content.TriggerEscape:
		return ctx.Escaped
	}
	return false
}

func containsString(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
