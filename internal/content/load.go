package content

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/dungeonbreak/internal/entities"
	"github.com/KirkDiggler/dungeonbreak/internal/errors"
)

// Pack file names inside a content directory.
const (
	FileContracts     = "contracts.yaml"
	FileActions       = "actions.yaml"
	FilePolicies      = "policies.yaml"
	FileRoomTemplates = "room_templates.yaml"
	FileItems         = "items.yaml"
	FileSkills        = "skills.yaml"
	FileArchetypes    = "archetypes.yaml"
	FileDialogue      = "dialogue.yaml"
	FileCutscenes     = "cutscenes.yaml"
	FileQuests        = "quests.yaml"
	FileEvents        = "events.yaml"
)

//go:embed packs/*.yaml
var defaultPacks embed.FS

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded content packs. The catalog is loaded once
// and shared; callers must not mutate it.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(defaultPacks, "packs")
		if err != nil {
			defaultErr = errors.Wrap(err, "failed to open embedded packs")
			return
		}
		defaultCatalog, defaultErr = Load(sub)
	})
	return defaultCatalog, defaultErr
}

// LoadDir loads every pack from a directory on disk.
func LoadDir(dir string) (*Catalog, error) {
	if dir == "" {
		return nil, errors.InvalidArgument("content dir is required")
	}
	return Load(os.DirFS(dir))
}

// Load decodes every pack from fsys with unknown fields rejected, then
// validates the result as a whole.
func Load(fsys fs.FS) (*Catalog, error) {
	var (
		actions   struct{ Actions []ActionSpec `yaml:"actions"` }
		policies  struct{ Policies []Policy `yaml:"policies"` }
		templates struct{ Templates []RoomTemplate `yaml:"templates"` }
		skills    struct{ Skills []SkillDefinition `yaml:"skills"` }
		archs     struct{ Archetypes []ArchetypeDefinition `yaml:"archetypes"` }
		dialogue  struct{ Clusters []DialogueCluster `yaml:"clusters"` }
		cutscenes struct{ Cutscenes []CutsceneDefinition `yaml:"cutscenes"` }
		quests    struct{ Quests []QuestDefinition `yaml:"quests"` }
		events    struct{ Events []EventDefinition `yaml:"events"` }
	)

	catalog := &Catalog{}
	packs := []struct {
		name string
		out  any
	}{
		{FileContracts, &catalog.Contracts},
		{FileActions, &actions},
		{FilePolicies, &policies},
		{FileRoomTemplates, &templates},
		{FileItems, &catalog.Items},
		{FileSkills, &skills},
		{FileArchetypes, &archs},
		{FileDialogue, &dialogue},
		{FileCutscenes, &cutscenes},
		{FileQuests, &quests},
		{FileEvents, &events},
	}
	for _, pack := range packs {
		if err := decodeStrict(fsys, pack.name, pack.out); err != nil {
			return nil, err
		}
	}

	catalog.Actions = actions.Actions
	catalog.Policies = policies.Policies
	catalog.RoomTemplates = templates.Templates
	catalog.Skills = skills.Skills
	catalog.Archetypes = archs.Archetypes
	catalog.Dialogue = dialogue.Clusters
	catalog.Cutscenes = cutscenes.Cutscenes
	catalog.Quests = quests.Quests
	catalog.Events = events.Events

	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	catalog.index()
	return catalog, nil
}

func decodeStrict(fsys fs.FS, name string, out any) error {
	f, err := fsys.Open(name)
	if err != nil {
		return errors.WrapWithCode(err, errors.CodeNotFound, fmt.Sprintf("failed to open content pack %s", name))
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.WrapWithCode(err, errors.CodeInvalidArgument, fmt.Sprintf("failed to decode content pack %s", name))
	}
	return nil
}

func (c *Catalog) index() {
	c.policiesByID = make(map[string]Policy, len(c.Policies))
	for _, p := range c.Policies {
		c.policiesByID[p.PolicyID] = p
	}
	c.templates = make(map[string]entities.Vector, len(c.RoomTemplates))
	for _, t := range c.RoomTemplates {
		c.templates[t.Feature] = t.BaseVector
	}
}

// Formula returns the formula for actionType, or the zero formula.
func (c *Catalog) Formula(actionType string) ActionFormula {
	return c.Contracts.Actions[actionType]
}

// Policy looks up a policy by id.
func (c *Catalog) Policy(policyID string) (Policy, bool) {
	p, ok := c.policiesByID[policyID]
	return p, ok
}

// RoomVector returns a full trait vector for a room feature. Features
// without a template are neutral.
func (c *Catalog) RoomVector(feature string) entities.Vector {
	out := entities.NewTraitVector(0)
	for k, v := range c.templates[feature] {
		out[k] = v
	}
	return out
}

// RuneForgeOffers lists the item ids the rune forge sells, in pack order.
func (c *Catalog) RuneForgeOffers() []string {
	var ids []string
	for _, item := range c.Items.Items {
		for _, tag := range item.Tags {
			if tag == entities.TagArmor || tag == entities.TagRelic || tag == entities.TagFame {
				ids = append(ids, item.ItemID)
				break
			}
		}
	}
	return ids
}

// Item looks up a rune forge item definition.
func (c *Catalog) Item(itemID string) (ItemDefinition, bool) {
	for _, item := range c.Items.Items {
		if item.ItemID == itemID {
			return item, true
		}
	}
	return ItemDefinition{}, false
}

// ActionTypes returns every catalogued action type in pack order.
func (c *Catalog) ActionTypes() []string {
	out := make([]string, len(c.Actions))
	for i, a := range c.Actions {
		out[i] = a.ActionType
	}
	return out
}
