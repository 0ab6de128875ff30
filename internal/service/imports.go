package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/importer"
)

var (
	ErrInvalidFilename = errors.New("invalid filename")
	ErrImportNotFound  = errors.New("import not found")
)

// MaxImportSize bounds an uploaded AOI file.
const MaxImportSize = 10 << 20

var formatNames = map[importer.Format]string{
	importer.FormatGeoJSON: "GeoJSON",
	importer.FormatWKT:     "WKT",
	importer.FormatKML:     "KML",
	importer.FormatKMZ:     "KMZ",
}

// ImportService manages uploaded AOI files.
type ImportService struct {
	importsDir string
	bus        *EventBus
}

// NewImportService creates a new import service. bus may be nil.
func NewImportService(dataDir string, bus *EventBus) *ImportService {
	return &ImportService{
		importsDir: filepath.Join(dataDir, "imports"),
		bus:        bus,
	}
}

// ImportsDir returns the path to the imports directory.
func (s *ImportService) ImportsDir() string {
	return s.importsDir
}

// List returns all stored import files sorted by name.
func (s *ImportService) List() ([]ImportFile, error) {
	entries, err := os.ReadDir(s.importsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []ImportFile{}, nil
		}
		return nil, err
	}

	files := []ImportFile{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		format, err := importer.FormatOf(entry.Name())
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, ImportFile{
			Name:     entry.Name(),
			Size:     formatSize(info.Size()),
			FileType: formatNames[format],
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Save parses data and, when it holds at least one feature, stores it
// under name. The parsed features are returned.
func (s *ImportService) Save(name string, data []byte) (*geojson.FeatureCollection, error) {
	if err := validateFilename(name); err != nil {
		return nil, err
	}
	if len(data) > MaxImportSize {
		return nil, fmt.Errorf("%s is larger than %s", name, formatSize(MaxImportSize))
	}
	fc, err := importer.Parse(name, data)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.importsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create imports directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.importsDir, name), data, 0644); err != nil {
		return nil, err
	}
	s.publish("created", name)
	return fc, nil
}

// Load parses a stored import file.
func (s *ImportService) Load(name string) (*geojson.FeatureCollection, error) {
	if err := validateFilename(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.importsDir, name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", name, ErrImportNotFound)
	}
	if err != nil {
		return nil, err
	}
	return importer.Parse(name, data)
}

// Delete removes a stored import file.
func (s *ImportService) Delete(name string) error {
	if err := validateFilename(name); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(s.importsDir, name))
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", name, ErrImportNotFound)
	}
	if err != nil {
		return err
	}
	s.publish("deleted", name)
	return nil
}

func (s *ImportService) publish(action, name string) {
	if s.bus != nil {
		s.bus.Publish(Event{Resource: ResourceImports, Action: action, ID: name})
	}
}

// validateFilename rejects path traversal and unsupported extensions.
func validateFilename(name string) error {
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, "\\") || strings.Contains(name, "..") {
		return ErrInvalidFilename
	}
	_, err := importer.FormatOf(name)
	return err
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
