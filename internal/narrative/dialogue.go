package narrative

import (
	"sort"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/content"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/world"
)

// Dialogue warnings and block reasons
const (
	WarnDialogueOptionUnknown    = "dialogue_option_unknown"
	WarnDialogueOptionOutOfRange = "dialogue_option_out_of_range"
	WarnDialogueItemMissing      = "dialogue_item_missing"

	ReasonClusterOutOfRange    = "cluster_out_of_range"
	ReasonRoomFeatureMismatch  = "room_feature_mismatch"
	ReasonRequiredItemMissing  = "required_item_missing"
	ReasonForbiddenItemPresent = "forbidden_item_present"
	ReasonRequiredSkillMissing = "required_skill_missing"
	ReasonOptionOutOfRange     = "option_out_of_range"
)

// DialogueEvaluation is one option rated against an actor in a room.
type DialogueEvaluation struct {
	OptionID       string   `json:"optionId"`
	Label          string   `json:"label"`
	ClusterID      string   `json:"clusterId"`
	Available      bool     `json:"available"`
	Distance       float64  `json:"distance"`
	BlockedReasons []string `json:"blockedReasons"`
	Line           string   `json:"line"`
	ResponseText   string   `json:"responseText"`
}

// DialogueChoice is the outcome of choosing an option. TraitDelta is not
// applied to the actor; the caller applies it.
type DialogueChoice struct {
	Message      string
	Warnings     []string
	TraitDelta   entities.Vector
	TakenItem    *world.RoomItem
	OptionID     string
	OptionLabel  string
	OptionLine   string
	ClusterID    string
	NextOptionID string
}

// DialogueDirector gates options by the distance of the actor's context
// vector to cluster and option anchors.
type DialogueDirector struct {
	clusters []content.DialogueCluster
}

// NewDialogueDirector keeps clusters in pack order.
func NewDialogueDirector(clusters []content.DialogueCluster) *DialogueDirector {
	return &DialogueDirector{clusters: clusters}
}

// ContextVector is the actor's traits plus the room's effective vector.
func (d *DialogueDirector) ContextVector(actor *entities.Entity, room *world.Room) entities.Vector {
	return entities.Merge(actor.Traits, room.EffectiveVector())
}

// EvaluateOptions rates every option, nearest first.
func (d *DialogueDirector) EvaluateOptions(actor *entities.Entity, room *world.Room) []DialogueEvaluation {
	context := d.ContextVector(actor, room)
	rows := []DialogueEvaluation{}

	for _, cluster := range d.clusters {
		clusterDistance := entities.Distance(context, cluster.CenterVector, entities.TraitNames)
		for _, option := range cluster.Options {
			distance := entities.Distance(context, option.AnchorVector, entities.TraitNames)
			reasons := []string{}

			if clusterDistance > cluster.Radius {
				reasons = append(reasons, ReasonClusterOutOfRange)
			}
			if option.RequiresRoomFeature != "" && option.RequiresRoomFeature != room.Feature {
				reasons = append(reasons, ReasonRoomFeatureMismatch)
			}
			if option.RequiresItemTagPresent != "" && !room.HasItemTag(option.RequiresItemTagPresent) {
				reasons = append(reasons, ReasonRequiredItemMissing)
			}
			if option.RequiresItemTagAbsent != "" && room.HasItemTag(option.RequiresItemTagAbsent) {
				reasons = append(reasons, ReasonForbiddenItemPresent)
			}
			if option.RequiresSkillID != "" && !actor.SkillUnlocked(option.RequiresSkillID) {
				reasons = append(reasons, ReasonRequiredSkillMissing)
			}
			if distance > option.Radius {
				reasons = append(reasons, ReasonOptionOutOfRange)
			}

			rows = append(rows, DialogueEvaluation{
				OptionID:       option.OptionID,
				Label:          option.Label,
				ClusterID:      cluster.ClusterID,
				Available:      len(reasons) == 0,
				Distance:       distance,
				BlockedReasons: reasons,
				Line:           option.Line,
				ResponseText:   option.ResponseText,
			})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Distance < rows[j].Distance })
	return rows
}

// AvailableOptions returns only the options the actor can choose.
func (d *DialogueDirector) AvailableOptions(actor *entities.Entity, room *world.Room) []DialogueEvaluation {
	out := []DialogueEvaluation{}
	for _, row := range d.EvaluateOptions(actor, room) {
		if row.Available {
			out = append(out, row)
		}
	}
	return out
}

// Choose resolves an option. It takes a tagged item out of the room when
// the option asks for one.
func (d *DialogueDirector) Choose(actor *entities.Entity, room *world.Room, optionID string) DialogueChoice {
	option, cluster := d.FindOption(optionID)
	if option == nil {
		return DialogueChoice{
			Message:    "That dialogue option does not exist.",
			Warnings:   []string{WarnDialogueOptionUnknown},
			TraitDelta: entities.Vector{},
		}
	}

	available := false
	for _, row := range d.EvaluateOptions(actor, room) {
		if row.OptionID == option.OptionID {
			available = row.Available
			break
		}
	}
	if !available {
		return DialogueChoice{
			Message:    "That option is out of range right now.",
			Warnings:   []string{WarnDialogueOptionOutOfRange},
			TraitDelta: entities.Vector{},
		}
	}

	choice := DialogueChoice{
		Message:      option.ResponseText,
		Warnings:     []string{},
		TraitDelta:   option.EffectVector.Clone(),
		OptionID:     option.OptionID,
		OptionLabel:  option.Label,
		OptionLine:   option.Line,
		ClusterID:    cluster.ClusterID,
		NextOptionID: option.NextOptionID,
	}
	if choice.TraitDelta == nil {
		choice.TraitDelta = entities.Vector{}
	}
	if option.TakeItemTag != "" {
		choice.TakenItem = room.TakeFirstItemWithTag(option.TakeItemTag)
		if choice.TakenItem == nil {
			choice.Warnings = append(choice.Warnings, WarnDialogueItemMissing)
		}
	}
	return choice
}

// FindOption looks an option up by id, ignoring case and surrounding space.
func (d *DialogueDirector) FindOption(optionID string) (*content.DialogueOption, *content.DialogueCluster) {
	normalized := strings.ToLower(strings.TrimSpace(optionID))
	for i := range d.clusters {
		cluster := &d.clusters[i]
		for j := range cluster.Options {
			if strings.ToLower(cluster.Options[j].OptionID) == normalized {
				return &cluster.Options[j], cluster
			}
		}
	}
	return nil, nil
}

// NextOptionID returns the chained follow-up for optionID, if any.
func (d *DialogueDirector) NextOptionID(optionID string) string {
	option, _ := d.FindOption(optionID)
	if option == nil {
		return ""
	}
	return option.NextOptionID
}
