// Package urltemplate derives an endpoint's pathTemplate from a raw URL:
// numeric and UUID-shaped path segments become ":id", query strings are
// dropped (§4.7, GLOSSARY "Endpoint key"). Shared by the issue detector's
// request-storm rule and the API-discovery engine so both agree on what
// counts as "the same endpoint".
package urltemplate

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// Normalize returns raw's path with numeric and UUID-shaped segments
// replaced by ":id" and the query string dropped.
func Normalize(raw string) string {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		path = u.Path
	} else if idx := strings.IndexByte(raw, '?'); idx >= 0 {
		path = raw[:idx]
	}

	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if seg == "" {
			continue
		}
		if _, err := strconv.ParseInt(seg, 10, 64); err == nil {
			segments[i] = ":id"
			continue
		}
		if uuidPattern.MatchString(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}
