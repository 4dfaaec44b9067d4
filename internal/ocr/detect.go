package ocr

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// DefaultLanguage is the recognition language used when none is requested
// and when detection comes back empty or unreliable.
const DefaultLanguage = "eng"

// LanguageDetect is the request value asking the pipeline to detect the
// document language from a low-resolution sample of the first page.
const LanguageDetect = "detect"

// Detection is the outcome of the language-detection stage.
type Detection struct {
	Language  string
	Defaulted bool
}

// tesseractCodes bridges detector output to traineddata names where the two
// vocabularies diverge. Everything else passes through as ISO 639-3.
var tesseractCodes = map[string]string{
	"cmn": "chi_sim",
	"pes": "fas",
	"nob": "nor",
}

// DetectLanguage guesses the dominant language of recognized sample text.
// It never fails: empty or unreliable samples fall back to DefaultLanguage.
func DetectLanguage(sample string) Detection {
	sample = strings.TrimSpace(sample)
	if sample == "" {
		return Detection{Language: DefaultLanguage, Defaulted: true}
	}

	info := whatlanggo.Detect(sample)
	if !info.IsReliable() {
		return Detection{Language: DefaultLanguage, Defaulted: true}
	}

	code := whatlanggo.LangToString(info.Lang)
	if code == "" {
		return Detection{Language: DefaultLanguage, Defaulted: true}
	}
	if mapped, ok := tesseractCodes[code]; ok {
		code = mapped
	}
	return Detection{Language: code}
}
