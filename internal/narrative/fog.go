package narrative

// FormulaRegistryVersion tags the formula set reported in status.
const FormulaRegistryVersion = "v1.0.0"

// FogMetrics is the player's sight radius and what contributed to it.
type FogMetrics struct {
	Radius              int `json:"radius"`
	LevelFactor         int `json:"levelFactor"`
	ComprehensionFactor int `json:"comprehensionFactor"`
	AwarenessFactor     int `json:"awarenessFactor"`
}

// ComputeFog derives the radius in [1, 4].
func ComputeFog(level int, comprehension, awareness float64) FogMetrics {
	m := FogMetrics{}
	if level >= 10 {
		m.LevelFactor = 1
	}
	if comprehension >= 1 {
		m.ComprehensionFactor = 1
	}
	if awareness >= 1 {
		m.AwarenessFactor = 1
	}
	m.Radius = 1 + m.LevelFactor + m.ComprehensionFactor + m.AwarenessFactor
	if m.Radius > 4 {
		m.Radius = 4
	}
	return m
}
