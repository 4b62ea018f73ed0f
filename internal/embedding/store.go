package embedding

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultStoreCapacity bounds the records a store keeps. Deed ids are
// unique per turn, so without a bound the cache grows with the run.
const DefaultStoreCapacity = 4096

// Record is a cached embedding of canonical text.
type Record struct {
	SourceType    string    `json:"sourceType"`
	SourceID      string    `json:"sourceId"`
	CanonicalText string    `json:"canonicalText"`
	TextHash      string    `json:"textHash"`
	ModelName     string    `json:"modelName"`
	ModelVersion  string    `json:"modelVersion"`
	Dimension     int       `json:"dimension"`
	Vector        []float64 `json:"vector"`
}

// Store caches records by source, text hash and model so identical
// canonical text is encoded once. The least recently used record is
// evicted once the store is full.
type Store struct {
	provider Provider
	records  *lru.Cache[string, *Record]
}

// NewStore creates a store over provider with DefaultStoreCapacity.
func NewStore(provider Provider) *Store {
	return NewStoreWithCapacity(provider, DefaultStoreCapacity)
}

// NewStoreWithCapacity creates a store holding at most capacity records.
func NewStoreWithCapacity(provider Provider, capacity int) *Store {
	if provider == nil {
		provider = NewHashProvider(DefaultDimension)
	}
	// lru.New only fails for a non-positive size
	records, _ := lru.New[string, *Record](max(1, capacity))
	return &Store{
		provider: provider,
		records:  records,
	}
}

// EmbedCanonical returns the cached record for the text or encodes and
// caches a new one.
func (s *Store) EmbedCanonical(sourceType, sourceID, canonicalText string) *Record {
	normalized := Normalize(canonicalText)
	textHash := Hash(normalized)
	key := fmt.Sprintf("%s:%s:%s:%s:%s", sourceType, sourceID, textHash,
		s.provider.ModelName(), s.provider.ModelVersion())
	if cached, ok := s.records.Get(key); ok {
		return cached
	}

	record := &Record{
		SourceType:    sourceType,
		SourceID:      sourceID,
		CanonicalText: normalized,
		TextHash:      textHash,
		ModelName:     s.provider.ModelName(),
		ModelVersion:  s.provider.ModelVersion(),
		Dimension:     s.provider.Dimension(),
		Vector:        s.provider.Encode(normalized),
	}
	s.records.Add(key, record)
	return record
}

// Size returns the number of cached records.
func (s *Store) Size() int {
	return s.records.Len()
}
