package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KirkDiggler/dungeonbreak/internal/embedding"
	"github.com/KirkDiggler/dungeonbreak/internal/entities"
)

const (
	deedMagnitude          = 0.2
	intentTraitMagnitude   = 0.18
	intentFeatureMagnitude = 0.12

	sourceTypeDeed   = "deed"
	sourceTypeIntent = "intent"
)

// TraitAnchors describe each trait axis for projection.
var TraitAnchors = []embedding.Anchor{
	{Name: "Comprehension", Prompt: "understanding patterns and hidden causes"},
	{Name: "Constraint", Prompt: "discipline restraint and strict control"},
	{Name: "Construction", Prompt: "building tools practical structures engineering"},
	{Name: "Direction", Prompt: "leadership and clear purpose"},
	{Name: "Empathy", Prompt: "care compassion attentive listening"},
	{Name: "Equilibrium", Prompt: "balance calm stable judgment"},
	{Name: "Freedom", Prompt: "independence exploration improvisation"},
	{Name: "Levity", Prompt: "humor hopeful lightness"},
	{Name: "Projection", Prompt: "future planning and ambition"},
	{Name: "Survival", Prompt: "resilience safety and endurance"},
}

// FeatureAnchors describe each feature axis for projection.
var FeatureAnchors = []embedding.Anchor{
	{Name: "Fame", Prompt: "attention audience reach crowd engagement"},
	{Name: "Effort", Prompt: "spent stamina sustained work exertion"},
	{Name: "Awareness", Prompt: "perception noticing details situational awareness"},
	{Name: "Guile", Prompt: "deception stealth opportunistic manipulation"},
	{Name: "Momentum", Prompt: "building pace escalating progress rising pressure"},
}

// Deed is "who did what to whom" before it is vectorized.
type Deed struct {
	DeedID         string
	ActorID        string
	ActorName      string
	SubjectID      string
	SourceEntityID string
	DeedType       string
	Title          string
	Summary        string
	Depth          int
	RoomID         string
	Tags           []string
	TurnIndex      int
	BeliefState    entities.BeliefState
	// Confidence defaults to 1 when nil.
	Confidence *float64
}

func (d *Deed) sourceEntity() string {
	if d.SourceEntityID == "" {
		return d.ActorID
	}
	return d.SourceEntityID
}

func (d *Deed) belief() entities.BeliefState {
	if d.BeliefState == "" {
		return entities.BeliefVerified
	}
	return d.BeliefState
}

func (d *Deed) confidence() float64 {
	if d.Confidence == nil {
		return 1
	}
	return *d.Confidence
}

// Vectorizer turns deeds and intent text into bounded trait and feature
// deltas through the embedding store.
type Vectorizer struct {
	store    *embedding.Store
	traits   *embedding.Projector
	features *embedding.Projector
	budget   embedding.Budget
}

// NewVectorizer builds both anchor projectors over provider.
func NewVectorizer(store *embedding.Store, provider embedding.Provider, budget embedding.Budget) *Vectorizer {
	if provider == nil {
		provider = embedding.NewHashProvider(embedding.DefaultDimension)
	}
	if store == nil {
		store = embedding.NewStore(provider)
	}
	return &Vectorizer{
		store:    store,
		traits:   embedding.NewProjector(provider, TraitAnchors),
		features: embedding.NewProjector(provider, FeatureAnchors),
		budget:   budget,
	}
}

// CanonicalText renders the deed as field-ordered lines.
func (v *Vectorizer) CanonicalText(deed *Deed) string {
	tags := append([]string(nil), deed.Tags...)
	sort.Strings(tags)
	return strings.Join([]string{
		"deed_id:" + deed.DeedID,
		"actor:" + deed.ActorID,
		"actor_name:" + deed.ActorName,
		"subject:" + deed.SubjectID,
		"source_entity:" + deed.sourceEntity(),
		"belief_state:" + string(deed.belief()),
		fmt.Sprintf("confidence:%.2f", deed.confidence()),
		"type:" + deed.DeedType,
		"title:" + deed.Title,
		"summary:" + deed.Summary,
		fmt.Sprintf("depth:%d", deed.Depth),
		"room:" + deed.RoomID,
		fmt.Sprintf("turn:%d", deed.TurnIndex),
		"tags:" + strings.Join(tags, "|"),
	}, "\n")
}

// Vectorize embeds the deed once and projects it.
func (v *Vectorizer) Vectorize(deed *Deed) entities.DeedMemory {
	text := v.CanonicalText(deed)
	record := v.store.EmbedCanonical(sourceTypeDeed, deed.DeedID, text)
	traitProjection := v.traits.ProjectVector(record.Vector, deedMagnitude, v.budget)
	featureProjection := v.features.ProjectVector(record.Vector, deedMagnitude, v.budget)

	return entities.DeedMemory{
		DeedID:          deed.DeedID,
		ActorEntityID:   deed.ActorID,
		SubjectEntityID: deed.SubjectID,
		Summary:         deed.Summary,
		CanonicalText:   text,
		SourceAction:    deed.DeedType,
		TurnIndex:       deed.TurnIndex,
		Depth:           deed.Depth,
		RoomID:          deed.RoomID,
		Tags:            append([]string(nil), deed.Tags...),
		BeliefState:     deed.belief(),
		SourceEntityID:  deed.sourceEntity(),
		Confidence:      deed.confidence(),
		TraitDelta:      entities.Vector(traitProjection.Final),
		FeatureDelta:    entities.Vector(featureProjection.Final),
		Vector:          append([]float64(nil), record.Vector...),
	}
}

// ProjectIntent projects free text with the smaller intent magnitudes.
func (v *Vectorizer) ProjectIntent(text string) (traitDelta, featureDelta entities.Vector) {
	record := v.store.EmbedCanonical(sourceTypeIntent, text, text)
	traitDelta = entities.Vector(v.traits.ProjectVector(record.Vector, intentTraitMagnitude, v.budget).Final)
	featureDelta = entities.Vector(v.features.ProjectVector(record.Vector, intentFeatureMagnitude, v.budget).Final)
	return traitDelta, featureDelta
}

// CacheSize is the number of cached embeddings.
func (v *Vectorizer) CacheSize() int {
	return v.store.Size()
}
