// Package langdetect identifies the language of transcribed text.
// It backs the "auto" language mode: when the speech engine does not
// report a language, the transcript itself is inspected.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	// The lingua-go fork resolved via the go.mod replace directive ships
	// its n-gram models as opt-in subpackages; each candidate language
	// below must be imported for its model to register.
	_ "github.com/pemistahl/lingua-go/language-models/ar"
	_ "github.com/pemistahl/lingua-go/language-models/de"
	_ "github.com/pemistahl/lingua-go/language-models/en"
	_ "github.com/pemistahl/lingua-go/language-models/es"
	_ "github.com/pemistahl/lingua-go/language-models/fr"
	_ "github.com/pemistahl/lingua-go/language-models/hi"
	_ "github.com/pemistahl/lingua-go/language-models/id"
	_ "github.com/pemistahl/lingua-go/language-models/it"
	_ "github.com/pemistahl/lingua-go/language-models/ja"
	_ "github.com/pemistahl/lingua-go/language-models/ko"
	_ "github.com/pemistahl/lingua-go/language-models/nl"
	_ "github.com/pemistahl/lingua-go/language-models/pl"
	_ "github.com/pemistahl/lingua-go/language-models/pt"
	_ "github.com/pemistahl/lingua-go/language-models/ru"
	_ "github.com/pemistahl/lingua-go/language-models/th"
	_ "github.com/pemistahl/lingua-go/language-models/tr"
	_ "github.com/pemistahl/lingua-go/language-models/uk"
	_ "github.com/pemistahl/lingua-go/language-models/vi"
	_ "github.com/pemistahl/lingua-go/language-models/zh"
)

// Restricting the candidate set keeps the detector's model footprint
// small and avoids misclassifying short utterances into rare languages.
var candidates = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Russian,
	lingua.Ukrainian,
	lingua.Polish,
	lingua.Turkish,
	lingua.Arabic,
	lingua.Hindi,
	lingua.Chinese,
	lingua.Japanese,
	lingua.Korean,
	lingua.Vietnamese,
	lingua.Thai,
	lingua.Indonesian,
}

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

func getDetector() lingua.LanguageDetector {
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			WithPreloadedLanguageModels().
			Build()
	})
	return detector
}

// Detect returns the ISO 639-1 code and English display name for the
// dominant language of text. It returns ("auto", "Unknown") when the
// text is empty or no candidate language reaches confidence.
func Detect(text string) (code, name string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "auto", "Unknown"
	}
	lang, ok := getDetector().DetectLanguageOf(text)
	if !ok {
		return "auto", "Unknown"
	}
	code = strings.ToLower(lang.IsoCode639_1().String())
	return code, DisplayName(code)
}

// DisplayName returns the English name for an ISO 639-1 code, or the
// code itself when it cannot be parsed.
func DisplayName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return display.English.Languages().Name(tag)
}
