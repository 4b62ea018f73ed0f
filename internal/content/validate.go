package content

import (
	"fmt"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// PrerequisiteKinds are the rule kinds the evaluator understands.
var PrerequisiteKinds = []string{
	"room_feature_is",
	"min_attribute",
	"min_trait",
	"min_feature",
	"skill_unlocked",
	"target_exists",
	"target_has_item_tag",
	"min_reputation",
	"max_reputation",
	"faction_is",
	"target_faction_is",
	"trait_below",
}

var (
	cutsceneTriggers = []string{
		TriggerItemTag, TriggerSkillUnlock, TriggerAttributeMilestone,
		TriggerFameMilestone, TriggerChapterComplete, TriggerEscape,
	}
	questRuleKinds = []string{RuleAction, RuleChapterCompleted, RuleEscape}
	eventKinds     = []string{EventDeterministic, EventEmergent}
	eventMetrics   = []string{MetricTurnIndex, MetricPlayerFeature}
	progressModes  = []string{ProgressFixed, ProgressTotalLevels}
)

// Validate checks cross references and value ranges across every pack.
func (c *Catalog) Validate() error {
	vb := errors.NewValidationBuilder()

	c.validateContracts(vb)

	actionTypes := make(map[string]bool, len(c.Actions))
	ids := make([]string, 0, len(c.Actions))
	for i, a := range c.Actions {
		errors.ValidateRequired(fmt.Sprintf("actions[%d].actionType", i), a.ActionType, vb)
		actionTypes[a.ActionType] = true
		ids = append(ids, a.ActionType)
	}
	errors.ValidateUnique("actions", ids, vb)

	ids = ids[:0]
	for i, p := range c.Policies {
		field := fmt.Sprintf("policies[%d]", i)
		errors.ValidateRequired(field+".policyId", p.PolicyID, vb)
		if len(p.PriorityOrder) == 0 {
			vb.Field(field+".priorityOrder", "must not be empty")
		}
		for _, t := range p.PriorityOrder {
			if !actionTypes[t] {
				vb.Fieldf(field+".priorityOrder", "unknown action type %q", t)
			}
		}
		ids = append(ids, p.PolicyID)
	}
	errors.ValidateUnique("policies", ids, vb)

	ids = ids[:0]
	for i, t := range c.RoomTemplates {
		field := fmt.Sprintf("templates[%d]", i)
		errors.ValidateRequired(field+".feature", t.Feature, vb)
		validateTraits(field+".baseVector", t.BaseVector, vb)
		ids = append(ids, t.Feature)
	}
	errors.ValidateUnique("templates", ids, vb)

	if len(c.Items.RarityTiers) == 0 {
		vb.RequiredField("items.rarityTiers")
	}
	ids = ids[:0]
	for i, item := range c.Items.Items {
		field := fmt.Sprintf("items[%d]", i)
		errors.ValidateRequired(field+".itemId", item.ItemID, vb)
		validateTraits(field+".vectorDelta", item.VectorDelta, vb)
		ids = append(ids, item.ItemID)
	}
	errors.ValidateUnique("items", ids, vb)

	c.validateSkills(vb)
	c.validateArchetypes(vb)
	c.validateDialogue(vb)
	c.validateCutscenes(vb)
	c.validateQuests(vb, actionTypes)
	c.validateEvents(vb)

	return vb.Build()
}

func (c *Catalog) validateContracts(vb *errors.ValidationBuilder) {
	ct := c.Contracts
	if ct.CanonicalSeedV1 <= 0 {
		vb.Field("contracts.canonicalSeedV1", "must be positive")
	}
	if ct.RoomInfluenceScale < 0 {
		vb.Field("contracts.roomInfluenceScale", "must not be negative")
	}
	if ct.DeedProjection.PerFeatureCap <= 0 {
		vb.Field("contracts.deedProjection.perFeatureCap", "must be positive")
	}
	if ct.DeedProjection.GlobalBudget <= 0 {
		vb.Field("contracts.deedProjection.globalBudget", "must be positive")
	}
	if ct.EntityPressure.Cap <= 0 {
		vb.Field("contracts.entityPressure.cap", "must be positive")
	}
	for name, f := range ct.Actions {
		field := "contracts.actions." + name
		validateTraits(field+".traitDelta", f.TraitDelta, vb)
		validateTraits(field+".noTargetTraitDelta", f.NoTargetTraitDelta, vb)
		validateFeatures(field+".featureDelta", f.FeatureDelta, vb)
		if f.EffortCost < 0 {
			vb.Field(field+".effortCost", "must not be negative")
		}
	}
}

func (c *Catalog) validateSkills(vb *errors.ValidationBuilder) {
	ids := make([]string, 0, len(c.Skills))
	known := make(map[string]bool, len(c.Skills))
	for _, s := range c.Skills {
		known[s.SkillID] = true
	}
	for i, s := range c.Skills {
		field := fmt.Sprintf("skills[%d]", i)
		errors.ValidateRequired(field+".skillId", s.SkillID, vb)
		errors.ValidateRequired(field+".name", s.Name, vb)
		if s.UnlockRadius < 0 {
			vb.Field(field+".unlockRadius", "must not be negative")
		}
		if s.EvolvedFrom != "" && !known[s.EvolvedFrom] {
			vb.Fieldf(field+".evolvedFrom", "unknown skill %q", s.EvolvedFrom)
		}
		validateTraits(field+".vectorProfile", s.VectorProfile, vb)
		validateTraits(field+".traitBonus", s.TraitBonus, vb)
		validateFeatures(field+".featureBonus", s.FeatureBonus, vb)
		validatePrerequisites(field+".unlockRequirements", s.UnlockRequirements, vb)
		validatePrerequisites(field+".useRequirements", s.UseRequirements, vb)
		ids = append(ids, s.SkillID)
	}
	errors.ValidateUnique("skills", ids, vb)
}

func (c *Catalog) validateArchetypes(vb *errors.ValidationBuilder) {
	ids := make([]string, 0, len(c.Archetypes))
	for i, a := range c.Archetypes {
		field := fmt.Sprintf("archetypes[%d]", i)
		errors.ValidateRequired(field+".archetypeId", a.ArchetypeID, vb)
		validateTraits(field+".vectorProfile", a.VectorProfile, vb)
		validateFeatures(field+".featureProfile", a.FeatureProfile, vb)
		ids = append(ids, a.ArchetypeID)
	}
	errors.ValidateUnique("archetypes", ids, vb)
}

func (c *Catalog) validateDialogue(vb *errors.ValidationBuilder) {
	clusterIDs := make([]string, 0, len(c.Dialogue))
	var optionIDs []string
	known := map[string]bool{}
	for _, cluster := range c.Dialogue {
		for _, o := range cluster.Options {
			known[o.OptionID] = true
		}
	}
	for i, cluster := range c.Dialogue {
		field := fmt.Sprintf("clusters[%d]", i)
		errors.ValidateRequired(field+".clusterId", cluster.ClusterID, vb)
		if cluster.Radius < 0 {
			vb.Field(field+".radius", "must not be negative")
		}
		validateTraits(field+".centerVector", cluster.CenterVector, vb)
		for j, o := range cluster.Options {
			ofield := fmt.Sprintf("%s.options[%d]", field, j)
			errors.ValidateRequired(ofield+".optionId", o.OptionID, vb)
			if o.Radius < 0 {
				vb.Field(ofield+".radius", "must not be negative")
			}
			if o.NextOptionID != "" && !known[o.NextOptionID] {
				vb.Fieldf(ofield+".nextOptionId", "unknown option %q", o.NextOptionID)
			}
			validateTraits(ofield+".anchorVector", o.AnchorVector, vb)
			validateTraits(ofield+".effectVector", o.EffectVector, vb)
			optionIDs = append(optionIDs, o.OptionID)
		}
		clusterIDs = append(clusterIDs, cluster.ClusterID)
	}
	errors.ValidateUnique("clusters", clusterIDs, vb)
	errors.ValidateUnique("options", optionIDs, vb)
}

func (c *Catalog) validateCutscenes(vb *errors.ValidationBuilder) {
	ids := make([]string, 0, len(c.Cutscenes))
	for i, cs := range c.Cutscenes {
		field := fmt.Sprintf("cutscenes[%d]", i)
		errors.ValidateRequired(field+".cutsceneId", cs.CutsceneID, vb)
		errors.ValidateEnum(field+".triggerKind", cs.TriggerKind, cutsceneTriggers, vb)
		ids = append(ids, cs.CutsceneID)
	}
	errors.ValidateUnique("cutscenes", ids, vb)
}

func (c *Catalog) validateQuests(vb *errors.ValidationBuilder, actionTypes map[string]bool) {
	ids := make([]string, 0, len(c.Quests))
	for i, q := range c.Quests {
		field := fmt.Sprintf("quests[%d]", i)
		errors.ValidateRequired(field+".questId", q.QuestID, vb)
		errors.ValidateEnum(field+".requiredProgress.mode", q.RequiredProgress.Mode, progressModes, vb)
		if len(q.ProgressRules) == 0 {
			vb.Field(field+".progressRules", "must not be empty")
		}
		for j, r := range q.ProgressRules {
			rfield := fmt.Sprintf("%s.progressRules[%d]", field, j)
			errors.ValidateEnum(rfield+".kind", r.Kind, questRuleKinds, vb)
			if r.Kind == RuleAction && !actionTypes[r.ActionType] {
				vb.Fieldf(rfield+".actionType", "unknown action type %q", r.ActionType)
			}
			if r.Amount < 0 {
				vb.Field(rfield+".amount", "must not be negative")
			}
		}
		ids = append(ids, q.QuestID)
	}
	errors.ValidateUnique("quests", ids, vb)
}

func (c *Catalog) validateEvents(vb *errors.ValidationBuilder) {
	ids := make([]string, 0, len(c.Events))
	for i, e := range c.Events {
		field := fmt.Sprintf("events[%d]", i)
		errors.ValidateRequired(field+".eventId", e.EventID, vb)
		errors.ValidateEnum(field+".kind", e.Kind, eventKinds, vb)
		errors.ValidateEnum(field+".trigger.metric", e.Trigger.Metric, eventMetrics, vb)
		if e.Trigger.Metric == MetricPlayerFeature && !entities.IsFeature(e.Trigger.Key) {
			vb.Fieldf(field+".trigger.key", "unknown feature %q", e.Trigger.Key)
		}
		errors.ValidateFloatRange(field+".probability", e.Probability, 0, 1, vb)
		validateTraits(field+".traitDelta", e.TraitDelta, vb)
		validateFeatures(field+".featureDelta", e.FeatureDelta, vb)
		ids = append(ids, e.EventID)
	}
	errors.ValidateUnique("events", ids, vb)
}

func validatePrerequisites(field string, prereqs []Prerequisite, vb *errors.ValidationBuilder) {
	for i, p := range prereqs {
		errors.ValidateEnum(fmt.Sprintf("%s[%d].kind", field, i), p.Kind, PrerequisiteKinds, vb)
	}
}

func validateTraits(field string, v entities.Vector, vb *errors.ValidationBuilder) {
	for _, k := range v.Keys() {
		if !entities.IsTrait(k) {
			vb.Fieldf(field, "unknown trait %q", k)
		}
	}
}

func validateFeatures(field string, v entities.Vector, vb *errors.ValidationBuilder) {
	for _, k := range v.Keys() {
		if !entities.IsFeature(k) {
			vb.Fieldf(field, "unknown feature %q", k)
		}
	}
}
