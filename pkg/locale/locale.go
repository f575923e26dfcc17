package locale

import (
	"time"

	"golang.org/x/text/language"
)

// DefaultTag is used when a user has no usable locale preference.
const DefaultTag = "en-GB"

type layout struct {
	tag    language.Tag
	layout string
}

// layouts approximate a medium date with a short time for each supported locale.
var layouts = []layout{
	{tag: language.BritishEnglish, layout: "2 Jan 2006, 15:04"},
	{tag: language.AmericanEnglish, layout: "Jan 2, 2006, 3:04 PM"},
	{tag: language.German, layout: "02.01.2006, 15:04"},
	{tag: language.French, layout: "02/01/2006 15:04"},
	{tag: language.Spanish, layout: "2/1/2006, 15:04"},
	{tag: language.Dutch, layout: "2-1-2006 15:04"},
	{tag: language.Polish, layout: "2.01.2006, 15:04"},
}

// Formatter renders lesson times according to a user's locale.
type Formatter struct {
	matcher language.Matcher
	loc     *time.Location
}

// NewFormatter builds a formatter rendering times in loc.
func NewFormatter(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	tags := make([]language.Tag, len(layouts))
	for i, l := range layouts {
		tags[i] = l.tag
	}
	return &Formatter{matcher: language.NewMatcher(tags), loc: loc}
}

// Normalize returns the canonical supported tag for raw, or DefaultTag.
func (f *Formatter) Normalize(raw string) string {
	return layouts[f.index(raw)].tag.String()
}

// FormatDateTime renders t using the layout best matching raw.
func (f *Formatter) FormatDateTime(t time.Time, raw string) string {
	return t.In(f.loc).Format(layouts[f.index(raw)].layout)
}

func (f *Formatter) index(raw string) int {
	if raw == "" {
		return 0
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return 0
	}
	_, idx, confidence := f.matcher.Match(tag)
	if confidence == language.No {
		return 0
	}
	return idx
}
