package store

import (
	"maps"
	"math"
	"slices"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/service"
)

// ClampBuffer bounds a buffer distance to [0, aoi.MaxBuffer].
func ClampBuffer(d float64) float64 {
	if math.IsNaN(d) {
		return 0
	}
	return math.Max(0, math.Min(d, aoi.MaxBuffer))
}

// Reduce applies a to s and returns the new state. s is not modified.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case UpdateAoiInfo:
		info := a.Info
		info.Buffer = ClampBuffer(info.Buffer)
		if !info.SelectionType.Valid() {
			info.SelectionType = SelectionNone
		}
		s.AoiInfo = info

	case ClearAoiInfo:
		s.AoiInfo = AoiInfo{}

	case SetBuffer:
		if a.Original != s.AoiInfo.OriginalGeoJSON {
			// stale
			return s
		}
		s.AoiInfo.Buffer = ClampBuffer(a.Buffer)
		if a.GeoJSON != nil {
			s.AoiInfo.GeoJSON = a.GeoJSON
			s.AoiInfo.GeomType = aoi.GetDominantGeometry(a.GeoJSON)
		}

	case UpdateExportInfo:
		s.ExportInfo = applyPatch(s.ExportInfo, a.Patch)

	case ClearExportInfo:
		s.ExportInfo = emptyExportInfo()

	case SubmitJobStarted:
		s.SubmitJob = SubmitJob{Fetching: true}

	case SubmitJobSucceeded:
		s.SubmitJob = SubmitJob{Fetched: true, JobUID: a.JobUID}

	case SubmitJobFailed:
		s.SubmitJob = SubmitJob{Error: slices.Clone(a.Errors)}

	case ClearJobInfo:
		s.SubmitJob = SubmitJob{}

	case FetchStarted:
		s = reduceFetch(s, a.Kind, func(status fetchStatus) fetchStatus {
			return fetchStatus{fetching: true, items: status.items}
		})

	case FetchSucceeded:
		s = receiveItems(s, a.Kind, a.Items)

	case FetchFailed:
		s = reduceFetch(s, a.Kind, func(fetchStatus) fetchStatus {
			return fetchStatus{err: slices.Clone(a.Errors)}
		})

	case Unauthorized:
		s.Session = Session{Redirect: a.Redirect}

	case Reset:
		// Catalog lists and the session survive a reset, the draft does not.
		fresh := Initial()
		fresh.Providers, fresh.Formats = s.Providers, s.Formats
		fresh.Projections, fresh.Topics = s.Projections, s.Topics
		fresh.Session = s.Session
		s = fresh
	}
	return s
}

func applyPatch(e ExportInfo, p ExportInfoPatch) ExportInfo {
	if p.ExportName != nil {
		e.ExportName = *p.ExportName
	}
	if p.DatapackDescription != nil {
		e.DatapackDescription = *p.DatapackDescription
	}
	if p.ProjectName != nil {
		e.ProjectName = *p.ProjectName
	}
	if p.Providers != nil {
		e.Providers = slices.Clone(p.Providers)
	}
	if p.Formats != nil {
		e.Formats = slices.Clone(p.Formats)
	}
	if p.Projections != nil {
		e.Projections = slices.Clone(p.Projections)
	}
	if p.ExportOptions != nil {
		opts := maps.Clone(e.ExportOptions)
		if opts == nil {
			opts = map[string]map[string]any{}
		}
		for slug, o := range p.ExportOptions {
			opts[slug] = maps.Clone(o)
		}
		e.ExportOptions = opts
	}
	if p.ProviderEstimates != nil {
		est := maps.Clone(e.ProviderEstimates)
		if est == nil {
			est = map[string]service.Estimate{}
		}
		maps.Copy(est, p.ProviderEstimates)
		e.ProviderEstimates = est
	}
	return e
}

// fetchStatus is the kind-independent part of a Fetch.
type fetchStatus struct {
	fetching, fetched bool
	err               []ErrorDetail
	items             any
}

func reduceFetch(s State, kind CatalogKind, fn func(fetchStatus) fetchStatus) State {
	switch kind {
	case KindProviders:
		s.Providers = updateFetch(s.Providers, fn)
	case KindFormats:
		s.Formats = updateFetch(s.Formats, fn)
	case KindProjections:
		s.Projections = updateFetch(s.Projections, fn)
	case KindTopics:
		s.Topics = updateFetch(s.Topics, fn)
	}
	return s
}

func updateFetch[T any](f Fetch[T], fn func(fetchStatus) fetchStatus) Fetch[T] {
	next := fn(fetchStatus{fetching: f.Fetching, fetched: f.Fetched, err: f.Error, items: f.Items})
	items, _ := next.items.([]T)
	return Fetch[T]{Fetching: next.fetching, Fetched: next.fetched, Error: next.err, Items: items}
}

// receiveItems stores a fetched list. Items of the wrong type leave the
// state unchanged.
func receiveItems(s State, kind CatalogKind, items any) State {
	switch kind {
	case KindProviders:
		if v, ok := items.([]service.Provider); ok {
			s.Providers = Fetch[service.Provider]{Fetched: true, Items: slices.Clone(v)}
		}
	case KindFormats:
		if v, ok := items.([]service.Format); ok {
			s.Formats = Fetch[service.Format]{Fetched: true, Items: slices.Clone(v)}
		}
	case KindProjections:
		if v, ok := items.([]service.Projection); ok {
			s.Projections = Fetch[service.Projection]{Fetched: true, Items: slices.Clone(v)}
		}
	case KindTopics:
		if v, ok := items.([]service.Topic); ok {
			s.Topics = Fetch[service.Topic]{Fetched: true, Items: slices.Clone(v)}
		}
	}
	return s
}
