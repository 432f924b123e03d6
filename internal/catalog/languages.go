package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// BatchTarget asks the backend to queue one job per catalog language.
const BatchTarget = "ALL22"

// ErrUnknownLanguage is returned for targets outside the catalog.
var ErrUnknownLanguage = errors.New("unknown language")

// Language is one selectable translation target.
type Language struct {
	Name string
	Code string
	Tag  language.Tag
}

// Native returns the language's name in its own script, or "" when unknown.
func (l Language) Native() string {
	return display.Self.Name(l.Tag)
}

type entry struct {
	name string
	code string
}

var entries = []entry{
	{"Arabic", "ar"},
	{"Bengali", "bn"},
	{"Chinese (Simplified)", "zh"},
	{"Dutch", "nl"},
	{"English", "en"},
	{"French", "fr"},
	{"German", "de"},
	{"Gujarati", "gu"},
	{"Hindi", "hi"},
	{"Italian", "it"},
	{"Japanese", "ja"},
	{"Kannada", "kn"},
	{"Korean", "ko"},
	{"Malayalam", "ml"},
	{"Marathi", "mr"},
	{"Portuguese", "pt"},
	{"Punjabi", "pa"},
	{"Russian", "ru"},
	{"Spanish", "es"},
	{"Tamil", "ta"},
	{"Telugu", "te"},
	{"Turkish", "tr"},
	{"Urdu", "ur"},
}

var (
	languages []Language
	byCode    map[string]int
	byName    map[string]int
)

func init() {
	languages = make([]Language, 0, len(entries))
	byCode = make(map[string]int, len(entries))
	byName = make(map[string]int, len(entries)*2)
	for i, e := range entries {
		base, err := language.ParseBase(e.code)
		if err != nil {
			panic(fmt.Sprintf("catalog: invalid language code %q: %v", e.code, err))
		}
		tag, err := language.Compose(base)
		if err != nil {
			panic(fmt.Sprintf("catalog: compose %q: %v", e.code, err))
		}
		languages = append(languages, Language{Name: e.name, Code: e.code, Tag: tag})
		byCode[e.code] = i
		byName[foldKey(e.name)] = i
		if english := display.English.Languages().Name(tag); english != "" {
			if _, taken := byName[foldKey(english)]; !taken {
				byName[foldKey(english)] = i
			}
		}
	}
}

func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Languages returns the catalog in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// BatchCodes returns the codes a BatchTarget submission expands to.
func BatchCodes() []string {
	codes := make([]string, 0, len(languages))
	for _, l := range languages {
		codes = append(codes, l.Code)
	}
	return codes
}

// Lookup finds a language by code or English name, case-insensitively.
func Lookup(input string) (Language, bool) {
	key := foldKey(input)
	if key == "" {
		return Language{}, false
	}
	if i, ok := byCode[key]; ok {
		return languages[i], true
	}
	if i, ok := byName[key]; ok {
		return languages[i], true
	}
	// Accept regional or script variants such as "pt-BR" or "zh-Hans".
	if tag, err := language.Parse(key); err == nil {
		base, _ := tag.Base()
		if i, ok := byCode[base.String()]; ok {
			return languages[i], true
		}
	}
	return Language{}, false
}

// ResolveTarget maps operator input onto the code sent to the backend. The
// batch pseudo-target is returned as BatchTarget.
func ResolveTarget(input string) (string, error) {
	if strings.EqualFold(strings.TrimSpace(input), BatchTarget) {
		return BatchTarget, nil
	}
	if lang, ok := Lookup(input); ok {
		return lang.Code, nil
	}
	return "", fmt.Errorf("%w: %q (run `lingo languages` for the list)", ErrUnknownLanguage, strings.TrimSpace(input))
}

// ResolveSource maps a source language; empty input and "auto" request
// detection.
func ResolveSource(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" || strings.EqualFold(trimmed, "auto") {
		return "auto", nil
	}
	if lang, ok := Lookup(trimmed); ok {
		return lang.Code, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLanguage, trimmed)
}

// DisplayName returns the catalog name for code, falling back to the CLDR
// English name and finally the code itself.
func DisplayName(code string) string {
	if lang, ok := Lookup(code); ok {
		return lang.Name
	}
	if tag, err := language.Parse(strings.TrimSpace(code)); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	return strings.TrimSpace(code)
}
