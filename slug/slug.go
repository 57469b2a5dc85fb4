// Package slug canonicalizes category and month identifiers into URL-safe,
// comparable keys and turns them back into display labels.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Matches a trailing .htm / .html page suffix.
	pageSuffixRe = regexp.MustCompile(`\.html?$`)
	// Matches runs of anything that is not an ASCII letter or digit (underscores included).
	separatorRe = regexp.MustCompile(`[^a-z0-9]+`)
	monthKeyRe  = regexp.MustCompile(`^\d{4}-\d{2}$`)
	nonMonthRe  = regexp.MustCompile(`[^0-9-]`)
)

// Slugify converts free text into a canonical category slug.
//
//	"News & Politics"  -> "news-and-politics"
//	"/travel.html"     -> "travel"
//	"Food_Drink"       -> "food-drink"
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, "/")
	s = pageSuffixRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "&", "and")
	s = separatorRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Titleize renders a slug as a display title: "news-politics" -> "News Politics".
func Titleize(s string) string {
	if s == "" {
		return ""
	}
	caser := cases.Title(language.Und, cases.NoLower)
	parts := strings.Split(s, "-")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, " ")
}

// SanitizeMonthKey returns a "YYYY-MM" key, or "" when value does not reduce to
// one with a month between 01 and 12. Callers treat "" as "no month".
func SanitizeMonthKey(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}
	v = nonMonthRe.ReplaceAllString(v, "")
	if len(v) > 7 {
		v = v[:7]
	}
	if !monthKeyRe.MatchString(v) {
		return ""
	}
	if m, _ := strconv.Atoi(v[5:]); m < 1 || m > 12 {
		return ""
	}
	return v
}

// FormatMonthLabel renders a month key as "February 2024"; invalid keys yield "".
func FormatMonthLabel(key string) string {
	k := SanitizeMonthKey(key)
	if k == "" {
		return ""
	}
	year, _ := strconv.Atoi(k[:4])
	month, _ := strconv.Atoi(k[5:])
	return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// TitleLookup resolves a normalized slug to its display title.
type TitleLookup interface {
	Title(slug string) (string, bool)
}

// ResolveLabel picks the display label for slug. An exact taxonomy title wins;
// a lowercase raw label that only restates the slug becomes the titleized
// slug; any other raw label passes through unchanged.
func ResolveLabel(titles TitleLookup, slug, raw string) string {
	if titles != nil && slug != "" {
		if t, ok := titles.Title(slug); ok && t != "" {
			return t
		}
	}
	raw = strings.TrimSpace(raw)
	if raw == "" || (raw == strings.ToLower(raw) && Slugify(raw) == slug) {
		return Titleize(slug)
	}
	return raw
}
