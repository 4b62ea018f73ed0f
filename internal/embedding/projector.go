package embedding

import "math"

// Budget bounds a projection: each anchor delta is clamped to
// PerFeatureCap and the sum of absolute deltas is shrunk uniformly to
// GlobalBudget.
type Budget struct {
	PerFeatureCap float64 `json:"perFeatureCap" yaml:"perFeatureCap"`
	GlobalBudget  float64 `json:"globalBudget" yaml:"globalBudget"`
}

// DefaultBudget is the deed projection budget.
var DefaultBudget = Budget{PerFeatureCap: 0.2, GlobalBudget: 0.35}

// Anchor is a named semantic direction described by a prompt.
type Anchor struct {
	Name   string
	Prompt string
}

// Projection holds every intermediate of a projection so callers and
// tests can inspect how the final deltas were reached.
type Projection struct {
	Raw          map[string]float64
	Capped       map[string]float64
	Final        map[string]float64
	Scale        float64
	Similarities map[string]float64
}

// Projector maps vectors onto a fixed, ordered anchor set.
type Projector struct {
	provider Provider
	names    []string
	vectors  [][]float64
}

// NewProjector encodes every anchor prompt once.
func NewProjector(provider Provider, anchors []Anchor) *Projector {
	p := &Projector{
		provider: provider,
		names:    make([]string, len(anchors)),
		vectors:  make([][]float64, len(anchors)),
	}
	for i, anchor := range anchors {
		p.names[i] = anchor.Name
		p.vectors[i] = provider.Encode(anchor.Prompt)
	}
	return p
}

// Names returns the anchor names in projection order.
func (p *Projector) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// ProjectVector projects vector with the given magnitude under budget.
func (p *Projector) ProjectVector(vector []float64, magnitude float64, budget Budget) Projection {
	query := Unit(vector)
	result := Projection{
		Raw:          make(map[string]float64, len(p.names)),
		Capped:       make(map[string]float64, len(p.names)),
		Final:        make(map[string]float64, len(p.names)),
		Similarities: make(map[string]float64, len(p.names)),
	}

	capped := make([]float64, len(p.names))
	for i, name := range p.names {
		similarity := Cosine(query, p.vectors[i])
		raw := similarity * magnitude
		capped[i] = clamp(raw, -budget.PerFeatureCap, budget.PerFeatureCap)
		result.Similarities[name] = similarity
		result.Raw[name] = raw
		result.Capped[name] = capped[i]
	}

	result.Scale = ShrinkFactor(capped, budget.GlobalBudget)
	for i, name := range p.names {
		result.Final[name] = capped[i] * result.Scale
	}
	return result
}

// ProjectText encodes text and projects it.
func (p *Projector) ProjectText(text string, magnitude float64, budget Budget) Projection {
	return p.ProjectVector(p.provider.Encode(text), magnitude, budget)
}

// ShrinkFactor returns the uniform scale that brings the absolute sum of
// values down to globalBudget, or 1 when already within it.
func ShrinkFactor(values []float64, globalBudget float64) float64 {
	totalAbs := 0.0
	for _, v := range values {
		totalAbs += math.Abs(v)
	}
	if totalAbs > globalBudget && totalAbs > 0 {
		return globalBudget / totalAbs
	}
	return 1
}

// CapDeltas applies the per-feature cap then the uniform global shrink to
// deltas, visiting keys in the given order. Keys missing from order are
// dropped.
func CapDeltas(deltas map[string]float64, order []string, budget Budget) map[string]float64 {
	capped := make([]float64, 0, len(order))
	keys := make([]string, 0, len(order))
	for _, key := range order {
		v, ok := deltas[key]
		if !ok {
			continue
		}
		keys = append(keys, key)
		capped = append(capped, clamp(v, -budget.PerFeatureCap, budget.PerFeatureCap))
	}
	scale := ShrinkFactor(capped, budget.GlobalBudget)
	out := make(map[string]float64, len(keys))
	for i, key := range keys {
		out[key] = capped[i] * scale
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
