package api

import (
	"fmt"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/draft>; rel="draft"`,
		`</api/providers>; rel="providers"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/jobs>; rel="jobs"`,
	},
	"/api/v1/draft": {
		`</api/v1/draft/aoi>; rel="aoi"`,
		`</api/v1/draft/export>; rel="export"`,
		`</api/jobs>; rel="submit"`,
	},
	"/api/providers": {
		`</api/formats>; rel="formats"`,
		`</api/projections>; rel="projections"`,
		`</api/topics>; rel="topics"`,
	},
	"/api/jobs": {
		`</api/v1/draft>; rel="draft"`,
	},
	"/api/jobs/{uid}": {
		`</api/jobs>; rel="collection"`,
	},
	"/api/v1/imports": {
		`</api/v1/aoi/import>; rel="upload"`,
	},
	"/api/v1/imports/{name}": {
		`</api/v1/imports>; rel="collection"`,
	},
}

// LinkTransformer returns a Huma Transformer that injects RFC 8288 Link headers.
func LinkTransformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range links[op.Path] {
			ctx.AppendHeader("Link", link)
		}

		// Templated paths get a self link
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		return v, nil
	}
}
