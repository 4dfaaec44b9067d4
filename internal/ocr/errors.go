package ocr

import (
	"errors"
	"fmt"
)

// Recognition failures collapse onto a small set of classes so every task
// ends with a stable, user-facing message.
var (
	// ErrEngineUnavailable means the engine binary is missing or cannot start.
	ErrEngineUnavailable = errors.New("ocr engine unavailable")

	// ErrEngineTimeout means one recognition call exceeded its wall-clock budget.
	ErrEngineTimeout = errors.New("ocr engine timed out")

	// ErrEngineFailed means the engine ran and exited with an error.
	ErrEngineFailed = errors.New("ocr engine failed")
)

// LanguagePackError reports a missing traineddata pack for the requested language.
type LanguagePackError struct {
	Language string
}

func (e *LanguagePackError) Error() string {
	return fmt.Sprintf("language pack %q is not installed", e.Language)
}
