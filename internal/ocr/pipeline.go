package ocr

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Marjory00/ImageToPDF-App/internal/models"
	"github.com/Marjory00/ImageToPDF-App/internal/raster"
)

// Rendering resolutions, in DPI.
const (
	sampleDPI      = 75
	recognitionDPI = 300

	// PreviewDPI is the resolution for first-page previews of multi-page documents.
	PreviewDPI = 150
)

// BannerLine is the horizontal rule around page headers in multi-page output.
const BannerLine = "======================================================"

// PageDelimiter returns the separator inserted before page n (1-based) of total.
func PageDelimiter(n, total int) string {
	return fmt.Sprintf("\n%s\n--- PAGE %d of %d ---\n%s\n\n", BannerLine, n, total, BannerLine)
}

// User-facing failure messages. Every task failure resolves to one of these.
const (
	msgEngineUnavailable   = "OCR Engine is not running or Tesseract is not installed correctly."
	msgLanguagePackMissing = "Tesseract language pack '%s' is missing."
	msgUnreadableDocument  = "Could not open file. Ensure it is a valid image/PDF file."
	msgEngineTimeout       = "An OCR processing error occurred: Tesseract process timeout."
	msgProcessingError     = "An OCR processing error occurred: %v"
	msgUnexpectedError     = "An unexpected error occurred during OCR: %v"
)

// Pipeline executes the recognition flow for one stored document.
type Pipeline struct {
	renderer Renderer
	engine   Engine
	speller  *Speller
	status   EngineStatus
}

// NewPipeline wires the pipeline stages together. status is the cached
// startup probe; an unavailable engine short-circuits every run.
func NewPipeline(renderer Renderer, engine Engine, speller *Speller, status EngineStatus) *Pipeline {
	return &Pipeline{
		renderer: renderer,
		engine:   engine,
		speller:  speller,
		status:   status,
	}
}

// Process recognizes the whole document and returns either the joined,
// corrected text or a classified failure. It never returns an error: every
// failure is folded into the result message.
func (p *Pipeline) Process(ctx context.Context, path, language string, psm int) models.OCRResult {
	if !p.status.Available {
		return errorResult(msgEngineUnavailable)
	}

	pages, err := p.renderer.PageCount(path)
	if err != nil {
		return p.failure(err, language)
	}
	if pages == 0 {
		return p.failure(raster.ErrEmptyDocument, language)
	}

	lang := language
	if lang == "" {
		lang = DefaultLanguage
	}
	if lang == LanguageDetect {
		lang = p.detectLanguage(ctx, path)
	}

	var sb strings.Builder
	for i := 0; i < pages; i++ {
		img, err := p.renderer.RenderPage(ctx, path, i, recognitionDPI)
		if err != nil {
			return p.failure(err, lang)
		}
		text, err := p.engine.Recognize(ctx, img, Options{Language: lang, PSM: psm, DPI: recognitionDPI})
		if err != nil {
			return p.failure(err, lang)
		}
		if i > 0 {
			sb.WriteString(PageDelimiter(i+1, pages))
		}
		sb.WriteString(p.speller.Correct(text))
	}

	return models.OCRResult{Status: models.ResultSuccess, Text: strings.TrimSpace(sb.String())}
}

// detectLanguage recognizes a 75 dpi sample of the first page with default
// settings and guesses the language from it. Detection problems degrade to
// DefaultLanguage, never to a failed task.
func (p *Pipeline) detectLanguage(ctx context.Context, path string) string {
	img, err := p.renderer.RenderPage(ctx, path, 0, sampleDPI)
	if err != nil {
		log.Printf("[OCR] WARNING: detection render failed, using %s: %v", DefaultLanguage, err)
		return DefaultLanguage
	}

	sample, err := p.engine.Recognize(ctx, img, Options{Language: DefaultLanguage, DPI: sampleDPI})
	if err != nil {
		log.Printf("[OCR] WARNING: detection sample failed, using %s: %v", DefaultLanguage, err)
		return DefaultLanguage
	}

	det := DetectLanguage(sample)
	if det.Defaulted {
		log.Printf("[OCR] language detection inconclusive, using %s", DefaultLanguage)
	} else {
		log.Printf("[OCR] detected language %s", det.Language)
	}
	return det.Language
}

// failure maps an internal error onto its user-facing result.
func (p *Pipeline) failure(err error, lang string) models.OCRResult {
	var packErr *LanguagePackError
	switch {
	case errors.Is(err, ErrEngineUnavailable):
		return errorResult(msgEngineUnavailable)
	case errors.As(err, &packErr):
		return errorResult(fmt.Sprintf(msgLanguagePackMissing, packErr.Language))
	case errors.Is(err, ErrEngineTimeout):
		return errorResult(msgEngineTimeout)
	case errors.Is(err, ErrEngineFailed):
		return errorResult(fmt.Sprintf(msgProcessingError, err))
	case errors.Is(err, raster.ErrUnreadable), errors.Is(err, raster.ErrEmptyDocument):
		return errorResult(msgUnreadableDocument)
	default:
		return errorResult(fmt.Sprintf(msgUnexpectedError, err))
	}
}

func errorResult(message string) models.OCRResult {
	return models.OCRResult{Status: models.ResultError, Message: message}
}
