package ocr

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Auto selects every supported model except the one matching the target.
const Auto = "auto"

// Supported lists the bundled Tesseract models in ensemble priority order.
// Ties between candidates are broken by this order.
var Supported = []string{"eng", "rus", "jpn", "kor", "chi_sim", "tha"}

// LanguageSet is the ordered, non-empty set of models run by the ensemble.
type LanguageSet []string

func (s LanguageSet) String() string { return strings.Join(s, "+") }

// aliases maps CLI spellings onto model ids.
var aliases = map[string]string{
	"thai": "tha",
}

// ResolveLanguageSet turns the --ocr-lang value and the translation target
// into the set of models to run.
func ResolveLanguageSet(ocrLang, target string) (LanguageSet, error) {
	id := strings.ToLower(strings.TrimSpace(ocrLang))
	if id == "" || id == Auto {
		return AutoSet(target), nil
	}
	if alias, ok := aliases[id]; ok {
		id = alias
	}
	for _, s := range Supported {
		if s == id {
			return LanguageSet{id}, nil
		}
	}
	return nil, fmt.Errorf("unsupported OCR language %q (want auto or one of %s)", ocrLang, strings.Join(Supported, ", "))
}

// AutoSet returns Supported minus the model mapped from target. The result is
// never empty: if the subtraction removes everything, the full set is used.
func AutoSet(target string) LanguageSet {
	exclude := ModelForTarget(target)
	set := make(LanguageSet, 0, len(Supported))
	for _, s := range Supported {
		if s != exclude {
			set = append(set, s)
		}
	}
	if len(set) == 0 {
		return append(LanguageSet(nil), Supported...)
	}
	return set
}

// ModelForTarget maps a translation target code (BCP 47, e.g. "th", "zh-CN")
// to the OCR model for the same language, or "" when none is bundled.
func ModelForTarget(target string) string {
	tag, err := language.Parse(strings.TrimSpace(target))
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	switch base.String() {
	case "th":
		return "tha"
	case "en":
		return "eng"
	case "ru":
		return "rus"
	case "ko":
		return "kor"
	case "ja":
		return "jpn"
	case "zh":
		if script, _ := tag.Script(); script.String() == "Hans" {
			return "chi_sim"
		}
	}
	return ""
}

// ValidateTarget reports whether target is a well-formed language tag.
func ValidateTarget(target string) error {
	if _, err := language.Parse(strings.TrimSpace(target)); err != nil {
		return fmt.Errorf("invalid target language %q: %w", target, err)
	}
	return nil
}
