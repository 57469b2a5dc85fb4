// Package archive serves the month-by-month archive: the archive index, a
// per-month post cache and the view state behind the archive page.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/eringen/magzfeed/fetch"
	"github.com/eringen/magzfeed/slug"
)

// IndexSources lists the archive index locations.
var IndexSources = []string{"/data/archive/index.json"}

// Month is one archived month.
type Month struct {
	Key   string `json:"key"`
	Count int    `json:"count,omitempty"`
}

// Label returns the month's display label.
func (m Month) Label() string {
	if l := slug.FormatMonthLabel(m.Key); l != "" {
		return l
	}
	return m.Key
}

// Index is the decoded archive index.
type Index struct {
	Months       []Month
	TotalEntries int
	GeneratedAt  string
}

// Has reports whether key is one of the indexed months.
func (i *Index) Has(key string) bool {
	if i == nil {
		return false
	}
	for _, m := range i.Months {
		if m.Key == key {
			return true
		}
	}
	return false
}


type rawIndex struct {
	Months       []json.RawMessage `json:"months"`
	TotalEntries json.RawMessage   `json:"total_entries"`
	GeneratedAt  string            `json:"generated_at"`
}

type rawMonth struct {
	Key          any `json:"key"`
	Month        any `json:"month"`
	ID           any `json:"id"`
	Value        any `json:"value"`
	Count        any `json:"count"`
	TotalEntries any `json:"total_entries"`
	Total        any `json:"total"`
	Length       any `json:"length"`
}

// ParseIndex decodes the archive index. Months may be plain "YYYY-MM"
// strings or objects keyed by key, month, id or value. Invalid and duplicate
// months are dropped; the result is ordered newest first.
func ParseIndex(raw json.RawMessage) (*Index, error) {
	var doc rawIndex
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("archive: decode index: %w", err)
	}
	idx := &Index{
		TotalEntries: toInt(doc.TotalEntries),
		GeneratedAt:  doc.GeneratedAt,
	}
	seen := make(map[string]struct{}, len(doc.Months))
	for _, el := range doc.Months {
		var m Month
		var s string
		if err := json.Unmarshal(el, &s); err == nil {
			m.Key = slug.SanitizeMonthKey(s)
		} else {
			var rm rawMonth
			if err := json.Unmarshal(el, &rm); err != nil {
				continue
			}
			m.Key = slug.SanitizeMonthKey(firstString(rm.Key, rm.Month, rm.ID, rm.Value))
			if rm.Count != nil {
				m.Count = anyInt(rm.Count)
			} else {
				m.Count = anyInt(firstNonNil(rm.TotalEntries, rm.Total, rm.Length))
			}
		}
		if m.Key == "" {
			continue
		}
		if _, dup := seen[m.Key]; dup {
			continue
		}
		seen[m.Key] = struct{}{}
		idx.Months = append(idx.Months, m)
	}
	sort.SliceStable(idx.Months, func(a, b int) bool {
		return idx.Months[a].Key > idx.Months[b].Key
	})
	return idx, nil
}

// LoadIndex fetches and decodes the archive index.
func LoadIndex(ctx context.Context, f fetch.Fetcher, base fetch.BasePath) (*Index, error) {
	raw, err := f.FetchSequential(ctx, base.Candidates(IndexSources...))
	if err != nil {
		return nil, err
	}
	return ParseIndex(raw)
}

// MonthSources returns the candidates for one archived month, or nil for an
// invalid key.
func MonthSources(base fetch.BasePath, key string) []string {
	m := slug.SanitizeMonthKey(key)
	if m == "" {
		return nil
	}
	return base.Candidates("/data/archive/" + m + ".json")
}

func toInt(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return anyInt(v)
}

func anyInt(v any) int {
	switch n := v.(type) {
	case float64:
		if n > 0 {
			return int(n)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil && i > 0 {
			return i
		}
	}
	return 0
}

func firstString(values ...any) string {
	for _, v := range values {
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return strconv.Itoa(int(s))
		}
	}
	return ""
}

func firstNonNil(values ...any) any {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
