package editor

import (
	"encoding/json"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/store"
)

// Signals provides typed access to Datastar signal values.
// Datastar sends all signals as a flat JSON object in the request body.
type Signals map[string]any

// ParseSignals parses Datastar signals from a raw request body.
func ParseSignals(body []byte) (Signals, error) {
	var signals Signals
	if len(body) == 0 {
		return Signals{}, nil
	}
	if err := json.Unmarshal(body, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// String returns a string signal value, or empty string if not found.
func (s Signals) String(key string) string {
	if v, ok := s[key]; ok {
		if str, ok := v.(string); ok {
			return str
		}
	}
	return ""
}

// Float returns a float64 signal value, or 0 if not found.
func (s Signals) Float(key string) float64 {
	if v, ok := s[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return 0
}

// Has returns true if the signal exists (even if empty/zero).
func (s Signals) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// SignalsInput is the input of handlers that receive Datastar signals.
type SignalsInput struct {
	Session string `query:"session" default:"default" doc:"Draft session"`
	RawBody []byte
}

// Parse parses signals or returns a 400.
func (i *SignalsInput) Parse() (Signals, error) {
	signals, err := ParseSignals(i.RawBody)
	if err != nil {
		return nil, huma.Error400BadRequest("Invalid request data: " + err.Error())
	}
	return signals, nil
}

// draftSignals is the part of a draft the editor binds to.
func draftSignals(s store.State) map[string]any {
	info := s.AoiInfo
	return map[string]any{
		"hasAoi":        info.HasAoi(),
		"buffer":        info.Buffer,
		"geomType":      info.GeomType,
		"selectionType": info.SelectionType,
		"areaSqKm":      areaSqKm(info),
		"submitting":    s.SubmitJob.Fetching,
		"jobUid":        s.SubmitJob.JobUID,
		"errors":        nonNil(s.SubmitJob.Error),
	}
}

// summary is the data of the aoi-summary fragment.
func summary(info store.AoiInfo) map[string]any {
	return map[string]any{
		"HasAoi":        info.HasAoi(),
		"Title":         info.Title,
		"Description":   info.Description,
		"SelectionType": info.SelectionType,
		"GeomType":      info.GeomType,
		"AreaSqKm":      areaSqKm(info),
		"Buffer":        info.Buffer,
	}
}

func areaSqKm(info store.AoiInfo) float64 {
	if !info.HasAoi() {
		return 0
	}
	return aoi.Area(info.GeoJSON) / 1e6
}

func nonNil(errs []store.ErrorDetail) []store.ErrorDetail {
	if errs == nil {
		return []store.ErrorDetail{}
	}
	return errs
}
