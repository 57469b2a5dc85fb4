package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type titles map[string]string

func (t titles) Title(s string) (string, bool) {
	v, ok := t[s]
	return v, ok
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"Travel", "travel"},
		{"News & Politics", "news-and-politics"},
		{"  Food_Drink  ", "food-drink"},
		{"/news/politics.html", "news-politics"},
		{"lifestyle.htm", "lifestyle"},
		{"--Culture -- Arts--", "culture-arts"},
		{"Café Society", "caf-society"},
		{"2024 Elections!", "2024-elections"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestSlugifyTitleizeRoundTrip(t *testing.T) {
	inputs := []string{
		"news", "News & Politics", "food_drink", "a--b", "Sci-Fi/Fantasy",
		"  spaced   words ", "UPPER case", "x1-y2-z3", "trailing-", "page.html", "&&&",
	}
	for _, in := range inputs {
		s := Slugify(in)
		assert.Equal(t, s, Slugify(Titleize(s)), "input %q", in)
	}
}

func TestTitleize(t *testing.T) {
	assert.Equal(t, "News Politics", Titleize("news-politics"))
	assert.Equal(t, "Travel", Titleize("travel"))
	assert.Equal(t, "", Titleize(""))
}

func TestSanitizeMonthKey(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"2024-02", "2024-02"},
		{" 2024-02 ", "2024-02"},
		{"2024-02-15", "2024-02"},
		{"2024-13-bad", ""},
		{"", ""},
		{"24-02", ""},
		{"2024/02", ""},
		{"month 2024-03", "2024-03"},
		{"2024-00", ""},
		{"2024-12", "2024-12"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizeMonthKey(tt.input), "input %q", tt.input)
	}
}

func TestFormatMonthLabel(t *testing.T) {
	assert.Equal(t, "February 2024", FormatMonthLabel("2024-02"))
	assert.Equal(t, "December 1999", FormatMonthLabel("1999-12-31"))
	assert.Equal(t, "", FormatMonthLabel("nope"))
}

func TestResolveLabel(t *testing.T) {
	lookup := titles{"news-politics": "Politics"}

	assert.Equal(t, "Politics", ResolveLabel(lookup, "news-politics", "whatever"))
	assert.Equal(t, "Travel", ResolveLabel(lookup, "travel", "travel"))
	assert.Equal(t, "Travel", ResolveLabel(lookup, "travel", ""))
	assert.Equal(t, "Wanderlust Weekly", ResolveLabel(lookup, "travel", "Wanderlust Weekly"))
	assert.Equal(t, "Food & Drink", ResolveLabel(nil, "food-and-drink", "Food & Drink"))
	assert.Equal(t, "Food And Drink", ResolveLabel(nil, "food-and-drink", "food & drink"))
	assert.Equal(t, "News — Politics", ResolveLabel(nil, "news-politics", "News — Politics"))
}
