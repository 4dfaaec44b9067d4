package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const defaultRecognizeTimeout = 60 * time.Second

// Tesseract runs the tesseract executable once per page, streaming the
// bitmap over stdin and reading the recognized text from stdout.
type Tesseract struct {
	cmd     string
	timeout time.Duration
}

// NewTesseract creates an engine around the given tesseract binary. Each
// recognition call is bounded by timeout.
func NewTesseract(cmd string, timeout time.Duration) *Tesseract {
	if timeout <= 0 {
		timeout = defaultRecognizeTimeout
	}
	return &Tesseract{cmd: cmd, timeout: timeout}
}

// Recognize extracts text from a single bitmap.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, opt Options) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var input bytes.Buffer
	if err := png.Encode(&input, img); err != nil {
		return "", fmt.Errorf("failed to encode page for recognition: %w", err)
	}

	cmd := exec.CommandContext(runCtx, t.cmd, recognizeArgs(opt)...)
	cmd.Stdin = &input

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", classifyRunError(runCtx, err, stderr.String(), opt.Language)
	}
	return stdout.String(), nil
}

// recognizeArgs builds the tesseract command line for one call.
func recognizeArgs(opt Options) []string {
	lang := opt.Language
	if lang == "" {
		lang = DefaultLanguage
	}
	args := []string{"stdin", "stdout", "-l", lang}
	if opt.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opt.PSM))
	}
	if opt.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(opt.DPI))
	}
	return args
}

// classifyRunError maps a failed tesseract invocation onto the failure taxonomy.
func classifyRunError(ctx context.Context, err error, stderr, lang string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrEngineTimeout
	}
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	if isMissingLanguage(stderr) {
		if lang == "" {
			lang = DefaultLanguage
		}
		return &LanguagePackError{Language: lang}
	}
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = err.Error()
	}
	return fmt.Errorf("%w: %s", ErrEngineFailed, detail)
}

// isMissingLanguage matches the stderr tesseract emits when traineddata for
// the requested language cannot be loaded.
func isMissingLanguage(stderr string) bool {
	return strings.Contains(stderr, "Failed loading language") ||
		strings.Contains(stderr, "Error opening data file")
}

// Probe checks once, at startup, whether the engine can run at all. The
// result is cached by the caller; per-task failures are classified separately.
func Probe(ctx context.Context, cmd string) EngineStatus {
	if _, err := exec.LookPath(cmd); err != nil {
		return EngineStatus{Available: false, Detail: err.Error()}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	out, err := exec.CommandContext(probeCtx, cmd, "--version").CombinedOutput()
	if err != nil {
		return EngineStatus{Available: false, Detail: fmt.Sprintf("%s --version failed: %v", cmd, err)}
	}

	detail := strings.TrimSpace(string(out))
	if i := strings.IndexByte(detail, '\n'); i >= 0 {
		detail = strings.TrimSpace(detail[:i])
	}
	return EngineStatus{Available: true, Detail: detail}
}
