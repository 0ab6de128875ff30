package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/importer"
)

// readAOI reads a GeoJSON, WKT, KML or KMZ file, or GeoJSON from stdin
// when path is "-" or empty.
func readAOI(path string, stdin io.Reader) (*geojson.FeatureCollection, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, err
		}
		return aoi.ParseFeatureCollection(data)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return importer.Parse(path, data)
}

func inputArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func bufferCmd() *cobra.Command {
	var distance float64
	var polygons bool
	cmd := &cobra.Command{
		Use:   "buffer [file]",
		Short: "Buffer an AOI by a distance in meters",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := readAOI(inputArg(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			out, err := aoi.BufferGeoJSON(fc, distance, polygons)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().Float64VarP(&distance, "distance", "d", 0, "Buffer distance in meters")
	cmd.Flags().BoolVar(&polygons, "polygons", false, "Buffer polygonal features too")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Check that every feature of an AOI is OGC valid",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := readAOI(inputArg(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			if err := aoi.ValidateGeoJSON(fc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	}
}

// Summary describes an AOI.
type Summary struct {
	Features    int               `yaml:"features"`
	GeomType    aoi.GeometryClass `yaml:"geomType"`
	Box         bool              `yaml:"box"`
	Valid       bool              `yaml:"valid"`
	AllHaveArea bool              `yaml:"allHaveArea"`
	AreaSqKm    float64           `yaml:"areaSqKm"`
	BBox        []float64         `yaml:"bbox,flow"`
}

func summarize(fc *geojson.FeatureCollection) Summary {
	s := Summary{
		Features:    len(fc.Features),
		GeomType:    aoi.GetDominantGeometry(fc),
		Valid:       aoi.IsGeoJSONValid(fc),
		AllHaveArea: aoi.AllHaveArea(fc),
		AreaSqKm:    aoi.Area(fc) / 1e6,
	}
	if len(fc.Features) > 0 {
		s.Box = aoi.IsBox(fc.Features[0])
		b := aoi.FeatureCollectionBound(fc)
		s.BBox = []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}
	return s
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect [file]",
		Short: "Print the geometry type, area, bounds and validity of an AOI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := readAOI(inputArg(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(summarize(fc))
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

// parsePoint reads "x,y".
func parsePoint(s string) (orb.Point, error) {
	x, y, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("%q: want x,y", s)
	}
	px, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%q: %w", s, err)
	}
	py, err := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("%q: %w", s, err)
	}
	return orb.Point{px, py}, nil
}

func unwrapCmd() *cobra.Command {
	var code string
	cmd := &cobra.Command{
		Use:   "unwrap x,y [x,y...]",
		Short: "Move coordinates from a wrapped world copy into the projection extent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := aoi.ProjectionByCode(code)
			if err != nil {
				return err
			}
			pts := make([]orb.Point, len(args))
			for i, a := range args {
				if pts[i], err = parsePoint(a); err != nil {
					return err
				}
			}
			for _, p := range aoi.UnwrapCoordinates(pts, proj) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s,%s\n",
					strconv.FormatFloat(p[0], 'f', -1, 64), strconv.FormatFloat(p[1], 'f', -1, 64))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "projection", "EPSG:3857", "Projection of the coordinates")
	return cmd
}
