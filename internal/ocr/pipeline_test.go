package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"testing"

	"github.com/Marjory00/ImageToPDF-App/internal/models"
	"github.com/Marjory00/ImageToPDF-App/internal/raster"
)

type fakeRenderer struct {
	pages     int
	countErr  error
	renderErr error
}

func (f *fakeRenderer) PageCount(path string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.pages, nil
}

func (f *fakeRenderer) RenderPage(ctx context.Context, path string, page, dpi int) (image.Image, error) {
	if f.renderErr != nil {
		return nil, f.renderErr
	}
	return image.NewRGBA(image.Rect(0, 0, 1, 1)), nil
}

// fakeEngine answers sample calls (sampleDPI) and page calls (recognitionDPI)
// separately and records every invocation.
type fakeEngine struct {
	mu         sync.Mutex
	sampleText string
	sampleErr  error
	pageTexts  []string
	pageErr    error
	calls      []Options
	pageIndex  int
}

func (f *fakeEngine) Recognize(ctx context.Context, img image.Image, opt Options) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, opt)

	if opt.DPI == sampleDPI {
		return f.sampleText, f.sampleErr
	}
	if f.pageErr != nil {
		return "", f.pageErr
	}
	if f.pageIndex < len(f.pageTexts) {
		text := f.pageTexts[f.pageIndex]
		f.pageIndex++
		return text, nil
	}
	return "", nil
}

func newTestPipeline(r Renderer, e Engine) *Pipeline {
	return NewPipeline(r, e, NewSpeller(), EngineStatus{Available: true, Detail: "test"})
}

func TestProcessSinglePage(t *testing.T) {
	engine := &fakeEngine{pageTexts: []string{"hello scanned world\n"}}
	p := newTestPipeline(&fakeRenderer{pages: 1}, engine)

	result := p.Process(context.Background(), "doc.png", "eng", 3)
	if result.Status != models.ResultSuccess {
		t.Fatalf("status = %q (%s), want success", result.Status, result.Message)
	}
	if result.Text != "hello scanned world" {
		t.Fatalf("text = %q", result.Text)
	}
	if len(engine.calls) != 1 {
		t.Fatalf("engine called %d times, want 1", len(engine.calls))
	}
	if opt := engine.calls[0]; opt.Language != "eng" || opt.PSM != 3 || opt.DPI != recognitionDPI {
		t.Fatalf("unexpected recognize options %+v", opt)
	}
}

func TestProcessMultiPageDelimiters(t *testing.T) {
	engine := &fakeEngine{pageTexts: []string{"page one", "page two", "page three"}}
	p := newTestPipeline(&fakeRenderer{pages: 3}, engine)

	result := p.Process(context.Background(), "doc.pdf", "eng", 3)
	if result.Status != models.ResultSuccess {
		t.Fatalf("status = %q (%s), want success", result.Status, result.Message)
	}

	want := "page one" + PageDelimiter(2, 3) + "page two" + PageDelimiter(3, 3) + "page three"
	if result.Text != want {
		t.Fatalf("text = %q, want %q", result.Text, want)
	}
	if n := strings.Count(result.Text, "--- PAGE"); n != 2 {
		t.Fatalf("found %d page headers, want 2", n)
	}
	if n := strings.Count(result.Text, BannerLine); n != 4 {
		t.Fatalf("found %d banner lines, want 4", n)
	}
}

func TestPageDelimiterFormat(t *testing.T) {
	if len(BannerLine) != 54 {
		t.Fatalf("banner line length = %d, want 54", len(BannerLine))
	}
	want := "\n" + BannerLine + "\n--- PAGE 2 of 3 ---\n" + BannerLine + "\n\n"
	if got := PageDelimiter(2, 3); got != want {
		t.Fatalf("PageDelimiter(2, 3) = %q, want %q", got, want)
	}
}

func TestProcessEngineUnavailableAtStartup(t *testing.T) {
	p := NewPipeline(&fakeRenderer{pages: 1}, &fakeEngine{}, NewSpeller(), EngineStatus{Available: false})

	result := p.Process(context.Background(), "doc.png", "eng", 3)
	if result.Status != models.ResultError {
		t.Fatalf("status = %q, want error", result.Status)
	}
	if result.Message != msgEngineUnavailable {
		t.Fatalf("message = %q", result.Message)
	}
}

func TestProcessFailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		renderer *fakeRenderer
		engine   *fakeEngine
		lang     string
		want     string
	}{
		{
			name:     "unreadable document",
			renderer: &fakeRenderer{countErr: fmt.Errorf("%w: bad header", raster.ErrUnreadable)},
			engine:   &fakeEngine{},
			lang:     "eng",
			want:     msgUnreadableDocument,
		},
		{
			name:     "zero pages",
			renderer: &fakeRenderer{pages: 0},
			engine:   &fakeEngine{},
			lang:     "eng",
			want:     msgUnreadableDocument,
		},
		{
			name:     "empty document",
			renderer: &fakeRenderer{countErr: raster.ErrEmptyDocument},
			engine:   &fakeEngine{},
			lang:     "eng",
			want:     msgUnreadableDocument,
		},
		{
			name:     "missing language pack",
			renderer: &fakeRenderer{pages: 1},
			engine:   &fakeEngine{pageErr: &LanguagePackError{Language: "deu"}},
			lang:     "deu",
			want:     fmt.Sprintf(msgLanguagePackMissing, "deu"),
		},
		{
			name:     "engine timeout",
			renderer: &fakeRenderer{pages: 1},
			engine:   &fakeEngine{pageErr: ErrEngineTimeout},
			lang:     "eng",
			want:     msgEngineTimeout,
		},
		{
			name:     "engine vanished mid-run",
			renderer: &fakeRenderer{pages: 1},
			engine:   &fakeEngine{pageErr: fmt.Errorf("%w: exec: not found", ErrEngineUnavailable)},
			lang:     "eng",
			want:     msgEngineUnavailable,
		},
		{
			name:     "render failure",
			renderer: &fakeRenderer{pages: 1, renderErr: errors.New("pdftoppm exploded")},
			engine:   &fakeEngine{},
			lang:     "eng",
			want:     fmt.Sprintf(msgUnexpectedError, errors.New("pdftoppm exploded")),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPipeline(tt.renderer, tt.engine)
			result := p.Process(context.Background(), "doc.pdf", tt.lang, 3)
			if result.Status != models.ResultError {
				t.Fatalf("status = %q, want error", result.Status)
			}
			if result.Message != tt.want {
				t.Fatalf("message = %q, want %q", result.Message, tt.want)
			}
		})
	}
}

func TestProcessEngineFailedMessage(t *testing.T) {
	engine := &fakeEngine{pageErr: fmt.Errorf("%w: boom", ErrEngineFailed)}
	p := newTestPipeline(&fakeRenderer{pages: 1}, engine)

	result := p.Process(context.Background(), "doc.png", "eng", 3)
	if result.Status != models.ResultError {
		t.Fatalf("status = %q, want error", result.Status)
	}
	if !strings.HasPrefix(result.Message, "An OCR processing error occurred:") {
		t.Fatalf("message = %q", result.Message)
	}
	if !strings.Contains(result.Message, "boom") {
		t.Fatalf("message %q lost the engine detail", result.Message)
	}
}

func TestProcessDetectFallsBackWhenSampleFails(t *testing.T) {
	engine := &fakeEngine{
		sampleErr: errors.New("sample recognition broke"),
		pageTexts: []string{"body text"},
	}
	p := newTestPipeline(&fakeRenderer{pages: 1}, engine)

	result := p.Process(context.Background(), "doc.png", LanguageDetect, 3)
	if result.Status != models.ResultSuccess {
		t.Fatalf("status = %q (%s), want success", result.Status, result.Message)
	}

	last := engine.calls[len(engine.calls)-1]
	if last.Language != DefaultLanguage {
		t.Fatalf("recognition language = %q, want fallback %q", last.Language, DefaultLanguage)
	}
}

func TestProcessDetectUsesSample(t *testing.T) {
	sample := "The quick brown fox jumps over the lazy dog. " +
		"This is a longer passage of ordinary English prose so the " +
		"language detector has enough trigrams to work with."
	engine := &fakeEngine{sampleText: sample, pageTexts: []string{"body text"}}
	p := newTestPipeline(&fakeRenderer{pages: 1}, engine)

	result := p.Process(context.Background(), "doc.png", LanguageDetect, 3)
	if result.Status != models.ResultSuccess {
		t.Fatalf("status = %q (%s), want success", result.Status, result.Message)
	}

	if len(engine.calls) != 2 {
		t.Fatalf("engine called %d times, want sample + recognition", len(engine.calls))
	}
	if first := engine.calls[0]; first.DPI != sampleDPI {
		t.Fatalf("first call DPI = %d, want sample resolution %d", first.DPI, sampleDPI)
	}
	if last := engine.calls[1]; last.Language != "eng" || last.DPI != recognitionDPI {
		t.Fatalf("recognition call = %+v, want eng at %d dpi", last, recognitionDPI)
	}
}
