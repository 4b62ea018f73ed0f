// Package embedding turns free-form text into fixed-dimension vectors and
// projects those vectors onto named semantic anchors.
//
// The encoder is a pure function of normalized text. No model is called
// and no randomness outside the text itself is involved, so two runs with
// the same input always produce the same vector. The algorithm is pinned
// by ModelName and ModelVersion; any change to it must bump the version.
package embedding

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

const (
	// DefaultDimension is the vector length used by the engine.
	DefaultDimension = 96

	modelName    = "hash-token-embedding"
	modelVersion = "1"

	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193

	zeroNormEpsilon = 1e-12
)

var tokenPattern = regexp.MustCompile(`[A-Za-z0-9_']+`)

// Provider encodes text into vectors of a fixed dimension.
type Provider interface {
	Encode(text string) []float64
	Dimension() int
	ModelName() string
	ModelVersion() string
}

// HashProvider derives a pseudo-random vector per token from the token's
// FNV-1a hash, sums the token vectors and L2-normalizes the result.
type HashProvider struct {
	dimension int
}

// NewHashProvider creates a provider. Non-positive dimensions fall back
// to DefaultDimension.
func NewHashProvider(dimension int) *HashProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &HashProvider{dimension: dimension}
}

var _ Provider = (*HashProvider)(nil)

// Dimension returns the vector length.
func (p *HashProvider) Dimension() int { return p.dimension }

// ModelName returns the pinned model name.
func (p *HashProvider) ModelName() string { return modelName }

// ModelVersion returns the pinned model version.
func (p *HashProvider) ModelVersion() string { return modelVersion }

// Encode returns the unit vector for text. Text without tokens encodes to
// the zero vector.
func (p *HashProvider) Encode(text string) []float64 {
	tokens := tokenPattern.FindAllString(Normalize(text), -1)
	aggregate := make([]float64, p.dimension)
	if len(tokens) == 0 {
		return aggregate
	}
	for _, token := range tokens {
		for i, v := range tokenVector(token, p.dimension) {
			aggregate[i] += v
		}
	}
	return Unit(aggregate)
}

func tokenVector(token string, dimension int) []float64 {
	seed, err := strconv.ParseUint(Hash(token), 16, 32)
	rolling := uint32(seed)
	if err != nil || rolling == 0 {
		rolling = 1
	}
	values := make([]float64, dimension)
	for i := range values {
		rolling ^= rolling << 13
		rolling ^= rolling >> 17
		rolling ^= rolling << 5
		values[i] = float64(rolling)/float64(math.MaxUint32)*2 - 1
	}
	return values
}

// Normalize trims, lowercases and collapses runs of whitespace to a single
// space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Hash is 32-bit FNV-1a over the UTF-16 code units of value, rendered as
// eight lowercase hex digits.
func Hash(value string) string {
	h := fnvOffset32
	for _, unit := range utf16.Encode([]rune(value)) {
		h ^= uint32(unit)
		h *= fnvPrime32
	}
	return strconv.FormatUint(uint64(h)|1<<32, 16)[1:]
}

// Unit scales values to length one. Near-zero vectors become all zeros.
func Unit(values []float64) []float64 {
	total := 0.0
	for _, v := range values {
		total += v * v
	}
	out := make([]float64, len(values))
	norm := math.Sqrt(total)
	if norm < zeroNormEpsilon {
		return out
	}
	for i, v := range values {
		out[i] = v / norm
	}
	return out
}

// Cosine returns the cosine similarity over the shared prefix of a and b,
// or 0 when either side has no magnitude.
func Cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	var dot, aSq, bSq float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		aSq += a[i] * a[i]
		bSq += b[i] * b[i]
	}
	if aSq < zeroNormEpsilon || bSq < zeroNormEpsilon {
		return 0
	}
	return dot / (math.Sqrt(aSq) * math.Sqrt(bSq))
}
