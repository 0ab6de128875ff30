// Package editor contains Datastar SSE handlers for the AOI editor UI.
package editor

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/rs/zerolog/log"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/eventkit-aoi/internal/store"
)

// SSEContext wraps the Datastar SSE generator with helper methods.
type SSEContext struct {
	SSE *datastar.ServerSentEventGenerator
}

// NewSSEContext creates an SSE context from a Huma context.
func NewSSEContext(humaCtx huma.Context) *SSEContext {
	r, w := humago.Unwrap(humaCtx)
	return &SSEContext{
		SSE: datastar.NewSSE(w, r),
	}
}

// PatchElements sends HTML to replace content at a selector.
func (c *SSEContext) PatchElements(html, selector string) {
	if err := c.SSE.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeInner()); err != nil {
		log.Debug().Err(err).Str("selector", selector).Msg("patch elements failed")
	}
}

// SendErrors sends error details as the errors signal.
func (c *SSEContext) SendErrors(errs []store.ErrorDetail) {
	c.SendSignals(map[string]any{"errors": errs})
}

// SendSignals sends arbitrary signals to the client.
func (c *SSEContext) SendSignals(signals map[string]any) {
	if err := c.SSE.MarshalAndPatchSignals(signals); err != nil {
		log.Debug().Err(err).Msg("patch signals failed")
	}
}

// Dispatch fires a DOM event named name on the client.
func (c *SSEContext) Dispatch(name string, detail any) {
	if err := c.SSE.DispatchCustomEvent(name, detail); err != nil {
		log.Debug().Err(err).Str("event", name).Msg("dispatch failed")
	}
}
