package dedupe

import (
	"net/url"
	"strings"
	"unicode"
)

// trackingParams are dropped from the query during URL normalization.
// Entries ending with "_" match as prefixes.
var trackingParams = []string{"utm_", "ref", "source"}

// NormalizeURL canonicalizes a URL for comparison: tracking query parameters
// and the fragment are dropped and the result is lowercased. Values that do not
// parse as an absolute URL are returned trimmed and lowercased.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return strings.ToLower(raw)
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		if q, err := url.ParseQuery(u.RawQuery); err == nil {
			for key := range q {
				if isTrackingParam(key) {
					q.Del(key)
				}
			}
			u.RawQuery = q.Encode()
		} else {
			u.RawQuery = stripTrackingRaw(u.RawQuery)
		}
	}

	return strings.ToLower(u.String())
}

// stripTrackingRaw drops tracking pairs from a query ParseQuery rejects, e.g.
// one using ";" separators. Other pairs and their separators are kept verbatim.
func stripTrackingRaw(raw string) string {
	var b strings.Builder
	sep := ""
	for raw != "" {
		end := strings.IndexAny(raw, "&;")
		pair, next := raw, ""
		if end >= 0 {
			pair, next = raw[:end], raw[end:end+1]
			raw = raw[end+1:]
		} else {
			raw = ""
		}

		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if pair != "" && !isTrackingParam(key) {
			if b.Len() > 0 {
				b.WriteString(sep)
			}
			b.WriteString(pair)
		}
		sep = next
	}
	return b.String()
}

func isTrackingParam(key string) bool {
	key = strings.ToLower(key)
	for _, p := range trackingParams {
		if strings.HasSuffix(p, "_") {
			if strings.HasPrefix(key, p) {
				return true
			}
			continue
		}
		if key == p {
			return true
		}
	}
	return false
}

// NormalizeTitle lowercases a title and collapses every run of whitespace and
// punctuation into a single space. Letters (CJK included) and digits are kept.
func NormalizeTitle(title string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, title)
	return strings.Join(strings.Fields(mapped), " ")
}
