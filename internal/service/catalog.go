package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// ErrProviderNotFound is returned for an unknown provider slug.
var ErrProviderNotFound = errors.New("provider not found")

// CatalogService serves the provider, format, projection and topic lists.
type CatalogService struct {
	dataDir string
	mu      sync.RWMutex
	catalog Catalog
}

// NewCatalogService loads <dataDir>/catalog.yaml, falling back to the
// built-in catalog when the file is missing or unreadable. A missing file is
// written out with the defaults so it can be edited. An empty dataDir keeps
// the catalog in memory.
func NewCatalogService(dataDir string) *CatalogService {
	s := &CatalogService{dataDir: dataDir, catalog: DefaultCatalog()}
	if dataDir == "" {
		return s
	}
	if !s.loadFromDisk() {
		return s
	}
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("file", s.configFile()).Msg("writing default catalog")
	}
	return s
}

func (s *CatalogService) configFile() string {
	return filepath.Join(s.dataDir, "catalog.yaml")
}

// loadFromDisk reports whether the catalog file is missing.
func (s *CatalogService) loadFromDisk() (missing bool) {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("file", s.configFile()).Msg("reading catalog, using defaults")
			return false
		}
		return true
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		log.Warn().Err(err).Str("file", s.configFile()).Msg("parsing catalog, using defaults")
		return false
	}

	// Sections left out of the file keep their defaults.
	def := DefaultCatalog()
	if len(c.Providers) == 0 {
		c.Providers = def.Providers
	}
	if len(c.Formats) == 0 {
		c.Formats = def.Formats
	}
	if len(c.Projections) == 0 {
		c.Projections = def.Projections
	}
	if c.Topics == nil {
		c.Topics = def.Topics
	}
	s.catalog = c
	log.Info().Int("providers", len(c.Providers)).Str("file", s.configFile()).Msg("catalog loaded")
	return false
}

// Save writes the current catalog to catalog.yaml.
func (s *CatalogService) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s.catalog)
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

// Providers returns the provider list.
func (s *CatalogService) Providers() []Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog.Providers)
}

// Formats returns the format list.
func (s *CatalogService) Formats() []Format {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog.Formats)
}

// Projections returns the projection list.
func (s *CatalogService) Projections() []Projection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog.Projections)
}

// Topics returns the topic list.
func (s *CatalogService) Topics() []Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.catalog.Topics)
}

// Provider looks a provider up by slug.
func (s *CatalogService) Provider(slug string) (Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.catalog.Providers {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Provider{}, fmt.Errorf("%q: %w", slug, ErrProviderNotFound)
}

// Seconds of fixed overhead per export plus seconds per estimated megabyte.
const (
	estimateBaseSeconds  = 30
	estimateSecondsPerMB = 2
)

// Estimate projects output size and duration of one provider for an AOI of
// areaSqM square meters.
func (s *CatalogService) Estimate(slug string, areaSqM float64) (Estimate, error) {
	p, err := s.Provider(slug)
	if err != nil {
		return Estimate{}, err
	}
	if areaSqM < 0 {
		areaSqM = 0
	}

	sqKm := areaSqM / 1e6
	mb := sqKm * p.BytesPerSqKm / 1e6
	return Estimate{
		Slug:     slug,
		Size:     mb,
		Time:     estimateBaseSeconds + mb*estimateSecondsPerMB,
		TooBig:   p.MaxArea > 0 && sqKm > p.MaxArea,
		AreaSqKm: sqKm,
	}, nil
}

// DefaultCatalog is served when no catalog.yaml exists.
func DefaultCatalog() Catalog {
	return Catalog{
		Providers: []Provider{
			{Slug: "osm", Name: "OpenStreetMap Data (Themes)", ServiceType: "osm", Level1: 10, MaxArea: 10000, License: "ODbL 1.0", BytesPerSqKm: 250_000},
			{Slug: "osm-generic", Name: "OpenStreetMap Tiles", ServiceType: "wmts", Level1: 10, MaxArea: 10000, BytesPerSqKm: 1_500_000},
			{Slug: "nasa-sedac-population", Name: "Population Count", ServiceType: "wms", Level1: 8, MaxArea: 100000, BytesPerSqKm: 40_000},
			{Slug: "usgs-elevation", Name: "Elevation", ServiceType: "arcgis-raster", Level1: 12, MaxArea: 5000, BytesPerSqKm: 3_000_000},
		},
		Formats: []Format{
			{Slug: "gpkg", Name: "GeoPackage", Description: "OGC GeoPackage (SQLite)"},
			{Slug: "shp", Name: "Shapefile", Description: "ESRI Shapefile"},
			{Slug: "kml", Name: "KML", Description: "Keyhole Markup Language"},
			{Slug: "gtiff", Name: "GeoTIFF", Description: "Raster GeoTIFF"},
		},
		Projections: []Projection{
			{SRID: 4326, Name: "EPSG:4326", Description: "WGS 84 longitude/latitude"},
			{SRID: 3857, Name: "EPSG:3857", Description: "Web Mercator"},
		},
		Topics: []Topic{
			{Slug: "basemap", Name: "Basemap", Providers: []string{"osm", "osm-generic"}},
			{Slug: "population", Name: "Population", Providers: []string{"nasa-sedac-population"}},
			{Slug: "terrain", Name: "Terrain", Providers: []string{"usgs-elevation"}},
		},
	}
}
