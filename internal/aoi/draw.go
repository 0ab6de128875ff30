package aoi

import (
	"sync"

	"github.com/paulmach/orb/geojson"
)

// DrawSource is the mutable feature layer the user draws on. It is the only
// stateful surface this package touches.
type DrawSource interface {
	AddFeature(f *geojson.Feature)
	RemoveFeature(f *geojson.Feature)
	Clear()
	Features() []*geojson.Feature
}

// MemorySource is an in-memory DrawSource, safe for concurrent use.
type MemorySource struct {
	mu       sync.RWMutex
	features []*geojson.Feature
}

// NewMemorySource creates an empty draw layer.
func NewMemorySource() *MemorySource {
	return &MemorySource{}
}

func (s *MemorySource) AddFeature(f *geojson.Feature) {
	if f == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = append(s.features, f)
}

func (s *MemorySource) RemoveFeature(f *geojson.Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.features {
		if existing == f {
			s.features = append(s.features[:i], s.features[i+1:]...)
			return
		}
	}
}

func (s *MemorySource) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.features = nil
}

// Features returns a snapshot of the layer.
func (s *MemorySource) Features() []*geojson.Feature {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*geojson.Feature, len(s.features))
	copy(out, s.features)
	return out
}

// FeatureCollection returns the layer contents as a collection.
func (s *MemorySource) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range s.Features() {
		fc.Append(f)
	}
	return fc
}

// ClearDraw empties the draw layer.
func ClearDraw(src DrawSource) {
	if src == nil {
		return
	}
	src.Clear()
}

// AddFeatureCollection adds every feature of fc to the draw layer.
func AddFeatureCollection(src DrawSource, fc *geojson.FeatureCollection) {
	if src == nil || fc == nil {
		return
	}
	for _, f := range fc.Features {
		src.AddFeature(f)
	}
}
