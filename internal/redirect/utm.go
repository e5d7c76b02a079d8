package redirect

import (
	"Taglink-Backend/internal/domain"
	"net/url"
	"strings"
)

// BuildTarget appends the non-empty UTM tags to destination in the fixed order source,
// medium, campaign, term, content. Existing query parameters and any fragment are kept.
func BuildTarget(destination string, utm domain.UTM) string {
	params := []struct{ key, value string }{
		{"utm_source", utm.Source},
		{"utm_medium", utm.Medium},
		{"utm_campaign", utm.Campaign},
		{"utm_term", utm.Term},
		{"utm_content", utm.Content},
	}

	var b strings.Builder
	for _, p := range params {
		if p.value == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(escape(p.value))
	}
	if b.Len() == 0 {
		return destination
	}

	base, fragment, hasFragment := strings.Cut(destination, "#")

	sep := "?"
	if i := strings.IndexByte(base, '?'); i >= 0 {
		sep = "&"
		if i == len(base)-1 || strings.HasSuffix(base, "&") {
			sep = ""
		}
	}

	target := base + sep + b.String()
	if hasFragment {
		target += "#" + fragment
	}
	return target
}

func escape(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
