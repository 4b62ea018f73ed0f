package entities

import (
	"math"
	"sort"
)

// TraitNames are the bounded personality axes, in canonical order.
var TraitNames = []string{
	"Comprehension",
	"Constraint",
	"Construction",
	"Direction",
	"Empathy",
	"Equilibrium",
	"Freedom",
	"Levity",
	"Projection",
	"Survival",
}

// FeatureNames are the unbounded reputation accumulators, in canonical order.
var FeatureNames = []string{
	"Fame",
	"Effort",
	"Awareness",
	"Guile",
	"Momentum",
}

// Feature names referenced directly by the engine.
const (
	FeatureFame      = "Fame"
	FeatureEffort    = "Effort"
	FeatureAwareness = "Awareness"
	FeatureGuile     = "Guile"
	FeatureMomentum  = "Momentum"
)

// Trait names referenced directly by the engine.
const (
	TraitComprehension = "Comprehension"
	TraitSurvival      = "Survival"
)

// deltaEpsilon is the magnitude under which a delta is treated as zero.
const deltaEpsilon = 1e-9

// IsTrait reports whether name is a known trait axis.
func IsTrait(name string) bool {
	return contains(TraitNames, name)
}

// IsFeature reports whether name is a known feature axis.
func IsFeature(name string) bool {
	return contains(FeatureNames, name)
}

func contains(values []string, name string) bool {
	for _, v := range values {
		if v == name {
			return true
		}
	}
	return false
}

// Vector is a sparse named vector. Missing keys read as zero.
type Vector map[string]float64

// NewTraitVector returns a vector with every trait set to value.
func NewTraitVector(value float64) Vector {
	v := make(Vector, len(TraitNames))
	for _, name := range TraitNames {
		v[name] = value
	}
	return v
}

// NewFeatureVector returns the starting feature accumulators.
func NewFeatureVector() Vector {
	return Vector{
		FeatureFame:      0,
		FeatureEffort:    100,
		FeatureAwareness: 0,
		FeatureGuile:     0,
		FeatureMomentum:  0,
	}
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, value := range v {
		out[k] = value
	}
	return out
}

// Keys returns the keys in sorted order.
func (v Vector) Keys() []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Compact drops entries whose magnitude is effectively zero.
func (v Vector) Compact() Vector {
	out := make(Vector, len(v))
	for k, value := range v {
		if math.Abs(value) > deltaEpsilon {
			out[k] = value
		}
	}
	return out
}

// Scale returns v multiplied by factor.
func (v Vector) Scale(factor float64) Vector {
	out := make(Vector, len(v))
	for k, value := range v {
		out[k] = value * factor
	}
	return out
}

// Merge returns the key-wise sum of the given vectors.
func Merge(vectors ...Vector) Vector {
	out := Vector{}
	for _, v := range vectors {
		for k, value := range v {
			out[k] += value
		}
	}
	return out
}

// Diff returns after minus before over the union of keys, compacted.
func Diff(before, after Vector) Vector {
	out := Vector{}
	for k, value := range after {
		out[k] = value - before[k]
	}
	for k, value := range before {
		if _, ok := after[k]; !ok {
			out[k] = -value
		}
	}
	return out.Compact()
}

// Distance is the Euclidean distance between a and b over keys.
func Distance(a, b Vector, keys []string) float64 {
	total := 0.0
	for _, k := range keys {
		d := a[k] - b[k]
		total += d * d
	}
	return math.Sqrt(total)
}

// Clamp bounds value to [low, high].
func Clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}

// Round rounds value to the given number of decimal places.
func Round(value float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(value*p) / p
}

func sortStrings(values []string) {
	sort.Strings(values)
}
