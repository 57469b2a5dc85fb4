package fetch

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	externalRe = regexp.MustCompile(`(?i)^(?:[a-z][a-z0-9+.-]*:)?//`)
	specialRe  = regexp.MustCompile(`(?i)^(?:mailto:|tel:|sms:|javascript:|data:)`)
)

// BasePath prefixes root-relative paths for sites deployed under a sub-path.
// The zero value is a root deployment.
type BasePath struct {
	prefix string
}

// NewBasePath normalizes raw into a prefix with a leading slash and no
// trailing slash. "", "/" and whitespace mean the site root.
func NewBasePath(raw string) BasePath {
	v := strings.TrimSpace(raw)
	if v == "" || v == "/" {
		return BasePath{}
	}
	if !strings.HasPrefix(v, "/") {
		v = "/" + v
	}
	return BasePath{prefix: strings.TrimRight(v, "/")}
}

// String returns the normalized prefix ("" for the root).
func (b BasePath) String() string {
	return b.prefix
}

// Resolve maps path onto the deployment. External URLs, special schemes,
// fragments and bare query strings are returned unchanged.
func (b BasePath) Resolve(path string) string {
	p := strings.TrimSpace(path)
	switch {
	case p == "":
		if b.prefix == "" {
			return "/"
		}
		return b.prefix
	case p == "#", p[0] == '?':
		return p
	case externalRe.MatchString(p), specialRe.MatchString(p):
		return p
	}
	p = "/" + strings.TrimLeft(p, "/")
	if b.prefix == "" {
		return p
	}
	if p == "/" {
		return b.prefix + "/"
	}
	return b.prefix + p
}

// ResolveAll resolves every value, dropping empties and duplicates while
// keeping first-seen order.
func (b BasePath) ResolveAll(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		r := b.Resolve(v)
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Candidates returns the prefixed form of each path followed by its plain
// root-relative form, so a file is found whether or not the data directory
// lives under the sub-path.
func (b BasePath) Candidates(paths ...string) []string {
	var all []string
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			all = append(all, b.Resolve(p))
		}
	}
	for _, p := range paths {
		if strings.TrimSpace(p) != "" {
			all = append(all, BasePath{}.Resolve(p))
		}
	}
	return uniq(all)
}

// ArticleURL links to the static article page for slug.
func (b BasePath) ArticleURL(slug string) string {
	if slug == "" {
		return "#"
	}
	return b.Resolve("/article.html?slug=" + url.QueryEscape(slug))
}

// CategoryURL links to the category feed page for slug.
func (b BasePath) CategoryURL(slug string) string {
	if slug == "" {
		return "#"
	}
	return b.Resolve("/category/?cat=" + url.QueryEscape(slug))
}

func uniq(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
