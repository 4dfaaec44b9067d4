// Package ocr runs the recognition flow for stored documents: rasterize,
// detect the language, recognize page by page, spell-correct and join.
package ocr

import (
	"context"
	"image"
)

// Options control a single recognition call. Zero values defer to the
// engine's own defaults.
type Options struct {
	Language string
	PSM      int
	DPI      int
}

// Engine runs text recognition on one bitmap.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, opt Options) (string, error)
}

// Renderer is the document side of the pipeline: page counting and
// page-at-a-time rasterization.
type Renderer interface {
	PageCount(path string) (int, error)
	RenderPage(ctx context.Context, path string, page, dpi int) (image.Image, error)
}

// EngineStatus is the outcome of the startup probe. It gates uploads and is
// reported by the health endpoint.
type EngineStatus struct {
	Available bool   `json:"available"`
	Detail    string `json:"detail"`
}
