package translations

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/programme-lv/scorer/scoring"
)

var supported = []language.Tag{
	language.English,
	language.Latvian,
}

var matcher = language.NewMatcher(supported)

var cat = newCatalog()

func newCatalog() *catalog.Builder {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(tag language.Tag, key, msg string) {
		// keys are constant, SetString only fails on invalid messages
		if err := b.SetString(tag, key, msg); err != nil {
			panic(err)
		}
	}

	set(language.English, scoring.LabelCorrect, "Correct")
	set(language.English, scoring.LabelNotCorrect, "Not correct")
	set(language.English, scoring.LabelPartiallyCorrect, "Partially correct")
	set(language.English, "Subtask", "Subtask")
	set(language.English, "Score", "Score")
	set(language.English, "Public score", "Public score")

	set(language.Latvian, scoring.LabelCorrect, "Pareizi")
	set(language.Latvian, scoring.LabelNotCorrect, "Nepareizi")
	set(language.Latvian, scoring.LabelPartiallyCorrect, "Daļēji pareizi")
	set(language.Latvian, "Subtask", "Apakšuzdevums")
	set(language.Latvian, "Score", "Punkti")
	set(language.Latvian, "Public score", "Publiskie punkti")
	return b
}

// Match picks the best supported language for an Accept-Language style
// preference list such as "lv, en;q=0.8".
func Match(pref string) language.Tag {
	tags, _, _ := language.ParseAcceptLanguage(pref)
	tag, _, _ := matcher.Match(tags...)
	base, _ := tag.Base()
	return language.Make(base.String())
}

// Printer translates outcome labels and report captions.
type Printer struct {
	p *message.Printer
}

func NewPrinter(tag language.Tag) Printer {
	return Printer{p: message.NewPrinter(tag, message.Catalog(cat))}
}

// T returns the translation of key, or key itself when unknown.
func (p Printer) T(key string) string {
	return p.p.Sprintf(key)
}
