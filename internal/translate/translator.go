// Package translate turns the canonical suggestion list into the selected
// display language, one item at a time.
package translate

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/language"
)

// ErrTranslation marks a per-item translation failure. It is always
// recovered by falling back to the source text.
var ErrTranslation = errors.New("translation failed")

// Translator translates a single string.
type Translator interface {
	// Translate translates text from sourceLang to targetLang.
	// Language codes are BCP 47 tags such as "en", "hi" or "pt-BR".
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Normalize canonicalizes a language code. Codes that do not parse are
// lowercased and returned as-is so that comparisons stay stable.
func Normalize(code string) string {
	code = strings.TrimSpace(code)
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	return tag.String()
}

// Valid reports whether code is a well-formed language tag.
func Valid(code string) bool {
	if strings.TrimSpace(code) == "" {
		return false
	}
	_, err := language.Parse(code)
	return err == nil
}

// SameLanguage reports whether two codes name the same language, e.g.
// "EN" and "en".
func SameLanguage(a, b string) bool {
	return Normalize(a) == Normalize(b)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text, sourceLang, targetLang string) (string, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	return f(ctx, text, sourceLang, targetLang)
}
