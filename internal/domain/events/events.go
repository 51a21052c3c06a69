// Package events derives display metadata from event titles.
package events

import (
	"net/url"
	"regexp"
	"strings"
)

// Source is the league an event belongs to.
type Source string

// Known sources.
const (
	SourceEvW  Source = "evw"
	SourceKOTT Source = "kott"
)

var (
	digitsRe = regexp.MustCompile(`\d+`)
	romanRe  = regexp.MustCompile(`(?i)\b[IVXLCDM]+\b`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// SourceFromTitle guesses the league from a title. Unrecognized titles are EvW.
func SourceFromTitle(title string) Source {
	t := strings.ToLower(title)
	switch {
	case strings.Contains(t, "east vs west"), strings.Contains(t, "evw"):
		return SourceEvW
	case strings.Contains(t, "king of the table"), strings.Contains(t, "kott"):
		return SourceKOTT
	default:
		return SourceEvW
	}
}

// Label shortens a title to "EvW 18" or "KOTT 5", using the first arabic
// number or, failing that, the first roman numeral. Other titles pass through.
func Label(title string) string {
	t := strings.ToLower(title)
	num := digitsRe.FindString(title)
	if num == "" {
		num = romanRe.FindString(title)
	}
	switch {
	case strings.Contains(t, "east vs west"):
		return strings.TrimSpace("EvW " + num)
	case strings.Contains(t, "king of the table"):
		return strings.TrimSpace("KOTT " + num)
	default:
		return title
	}
}

// Slug turns a title into a path-safe identifier.
func Slug(title string) string {
	return url.PathEscape(spaceRe.ReplaceAllString(title, "_"))
}

// FromSlug reverses Slug.
func FromSlug(slug string) string {
	s, err := url.PathUnescape(slug)
	if err != nil {
		s = slug
	}
	return strings.ReplaceAll(s, "_", " ")
}

// Info is the derived metadata of one event title.
type Info struct {
	Title  string `json:"title"`
	Label  string `json:"label"`
	Source Source `json:"source"`
	Slug   string `json:"slug"`
}

// Describe bundles every derived field for title.
func Describe(title string) Info {
	return Info{Title: title, Label: Label(title), Source: SourceFromTitle(title), Slug: Slug(title)}
}
