package languageutil

import (
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Casers are stateful, so each call gets its own.
func TitleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func LowerCase(s string) string {
	return cases.Lower(language.English).String(s)
}

var Adjs []string = []string{
	"easy",
	"crisp",
	"soft",
	"bold",
	"quiet",
	"sunny",
	"urban",
	"breezy",
	"cozy",
	"sharp",
	"relaxed",
	"golden",
	"classic",
	"modern",
	"weekend",
	"polished",
	"laid-back",
	"vintage",
	"minimal",
	"fresh",
}

var Nouns []string = []string{
	"layers",
	"edit",
	"uniform",
	"stroll",
	"errand",
	"brunch",
	"commute",
	"getaway",
	"staples",
	"neutrals",
	"classics",
	"moment",
	"mood",
	"ease",
	"fit",
}

func RandomAdjective() string {
	pick := rand.Intn(len(Adjs))
	return Adjs[pick]
}

func RandomNounlike() string {
	pick := rand.Intn(len(Nouns))
	return Nouns[pick]
}

// RandomOutfitName is used when the model could not name an outfit.
func RandomOutfitName() string {
	return TitleCase(RandomAdjective() + " " + RandomNounlike())
}

// NormalizeOutfitName strips quotes, labels and trailing punctuation a model
// tends to add around a name and title-cases the rest. Returns "" when nothing is left.
func NormalizeOutfitName(raw string) string {
	name := strings.TrimSpace(raw)
	if i := strings.IndexByte(name, '\n'); i >= 0 {
		name = strings.TrimSpace(name[:i])
	}
	if idx := strings.Index(LowerCase(name), "name:"); idx == 0 {
		name = strings.TrimSpace(name[len("name:"):])
	}
	name = strings.Trim(name, "\"'`*“”‘’ ")
	name = strings.TrimRight(name, ".!;, ")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return ""
	}
	return TitleCase(name)
}
