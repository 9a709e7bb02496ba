package countries

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	flagPolicyOnce sync.Once
	flagPolicy     *bluemonday.Policy
)

// WithFlags fills the Flag field of every entry. Entries that already carry a
// flag keep it after sanitising.
func WithFlags(list []Country, urlTemplate string) []Country {
	out := make([]Country, 0, len(list))
	for _, c := range list {
		c.Flag = sanitizeFlag(c.Flag)
		if c.Flag == "" && urlTemplate != "" {
			c.Flag = fmt.Sprintf(urlTemplate, strings.ToLower(c.Code))
		}
		out = append(out, c)
	}
	return out
}

// sanitizeFlag accepts inline SVG markup or an http(s) URL; anything else is
// dropped.
func sanitizeFlag(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "<") {
		return strings.TrimSpace(flagSanitizer().Sanitize(trimmed))
	}
	u, err := url.Parse(trimmed)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ""
	}
	return u.String()
}

func flagSanitizer() *bluemonday.Policy {
	flagPolicyOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements("svg", "g", "path", "rect", "circle", "polygon", "title", "defs", "clipPath", "use")

		policy.AllowAttrs(
			"xmlns", "viewBox", "width", "height", "fill", "aria-hidden", "role", "class",
		).OnElements("svg")
		for _, el := range []string{"path", "rect", "circle", "polygon"} {
			policy.AllowAttrs(
				"d", "x", "y", "cx", "cy", "r", "width", "height", "points",
				"fill", "stroke", "stroke-width", "transform",
			).OnElements(el)
		}
		policy.AllowAttrs("fill", "transform").OnElements("g")
		policy.AllowAttrs("id").OnElements("clipPath", "defs")
		policy.AllowAttrs("href", "clip-path").OnElements("use")

		flagPolicy = policy
	})
	return flagPolicy
}
