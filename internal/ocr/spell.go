package ocr

import "github.com/client9/misspell"

// Speller applies dictionary corrections to recognized text. Replacements
// happen token by token inside the original string, so whitespace and line
// structure survive untouched.
type Speller struct {
	replacer *misspell.Replacer
}

// NewSpeller builds a speller from the default correction dictionary.
func NewSpeller() *Speller {
	return &Speller{replacer: misspell.New()}
}

// Correct rewrites known misspellings in place.
func (s *Speller) Correct(text string) string {
	if text == "" {
		return ""
	}
	corrected, _ := s.replacer.Replace(text)
	return corrected
}
