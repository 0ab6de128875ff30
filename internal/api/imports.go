package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/eventkit-aoi/internal/aoi"
	"github.com/joeblew999/eventkit-aoi/internal/importer"
	"github.com/joeblew999/eventkit-aoi/internal/service"
	"github.com/joeblew999/eventkit-aoi/internal/store"
)

// RegisterImports registers the AOI file upload routes.
func (h *APIHandler) RegisterImports(api huma.API) {
	tags := huma.OperationTags("imports")
	huma.Post(api, "/api/v1/aoi/import", h.UploadImport, tags)
	huma.Get(api, "/api/v1/imports", h.ListImports, tags)
	huma.Delete(api, "/api/v1/imports/{name}", h.DeleteImport, tags)
	huma.Post(api, "/api/v1/imports/{name}/select", h.SelectImport, tags)
}

type UploadInput struct {
	RawBody huma.MultipartFormFiles[struct {
		File huma.FormFile `form:"file" contentType:"application/geo+json,application/json,application/vnd.google-earth.kml+xml,application/vnd.google-earth.kmz,text/plain,application/octet-stream" required:"true"`
	}]
}

type NameInput struct {
	Name string `path:"name" doc:"Import filename" example:"district.geojson"`
}

type SelectImportInput struct {
	SessionInput
	NameInput
}

func (h *APIHandler) imports() (*service.ImportService, error) {
	if h.svc == nil || h.svc.Imports == nil {
		return nil, huma.Error503ServiceUnavailable("imports not available")
	}
	return h.svc.Imports, nil
}

func importError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidFilename), errors.Is(err, importer.ErrUnsupportedFormat):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, service.ErrImportNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, importer.ErrTooLarge):
		return huma.NewError(http.StatusRequestEntityTooLarge, err.Error())
	}
	return &store.APIError{
		Status: http.StatusUnprocessableEntity,
		Errors: []store.ErrorDetail{{Title: "Import failed", Detail: err.Error()}},
	}
}

// UploadImport parses and stores an AOI file. The parsed features are
// returned so the caller can preview them before selecting.
func (h *APIHandler) UploadImport(ctx context.Context, input *UploadInput) (*FeatureCollectionOutput, error) {
	imports, err := h.imports()
	if err != nil {
		return nil, err
	}
	f := input.RawBody.Data().File
	if !f.IsSet {
		return nil, huma.Error400BadRequest("file is required")
	}
	defer f.Close()
	if f.Size > service.MaxImportSize {
		return nil, huma.NewError(http.StatusRequestEntityTooLarge, "file too large")
	}

	data, err := io.ReadAll(io.LimitReader(f, service.MaxImportSize+1))
	if err != nil {
		return nil, huma.Error400BadRequest("reading upload", err)
	}
	fc, err := imports.Save(f.Filename, data)
	if err != nil {
		return nil, importError(err)
	}
	return &FeatureCollectionOutput{Body: fc}, nil
}

func (h *APIHandler) ListImports(ctx context.Context, input *struct{}) (*struct{ Body []service.ImportFile }, error) {
	imports, err := h.imports()
	if err != nil {
		return nil, err
	}
	files, err := imports.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list imports", err)
	}
	return &struct{ Body []service.ImportFile }{Body: files}, nil
}

func (h *APIHandler) DeleteImport(ctx context.Context, input *NameInput) (*struct{ Body MessageBody }, error) {
	imports, err := h.imports()
	if err != nil {
		return nil, err
	}
	if err := imports.Delete(input.Name); err != nil {
		return nil, importError(err)
	}
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Import deleted"}}, nil
}

// SelectImport makes a stored import the session's AOI.
func (h *APIHandler) SelectImport(ctx context.Context, input *SelectImportInput) (*DraftOutput, error) {
	st, err := h.session(input.SessionID)
	if err != nil {
		return nil, err
	}
	imports, err := h.imports()
	if err != nil {
		return nil, err
	}
	fc, err := imports.Load(input.Name)
	if err != nil {
		return nil, importError(err)
	}
	if err := aoi.ValidateGeoJSON(fc); err != nil {
		return nil, rejectAoi(err)
	}
	state, err := st.SelectAoi(store.NewAoiInfo(fc, store.SelectionImport, importTitle(fc, input.Name), "Import"))
	if err != nil {
		return nil, rejectAoi(err)
	}
	return &DraftOutput{Body: state}, nil
}

// importTitle prefers the first feature's name over the filename.
func importTitle(fc *geojson.FeatureCollection, filename string) string {
	if len(fc.Features) > 0 {
		if name, ok := fc.Features[0].Properties["name"].(string); ok && name != "" {
			return name
		}
	}
	return filename
}
