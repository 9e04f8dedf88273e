package engine

import (
	"sort"
	"strings"
)

// RequestKey derives the identity of a request from its essential inputs.
// Two requests with the same service, endpoint, and params are the same
// logical request for caching and deduplication, regardless of caller.
// Params are serialized in sorted key order so the result is deterministic.
func RequestKey(service, endpoint string, params map[string]string) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(service))
	b.WriteByte('|')
	b.WriteString(strings.TrimSpace(endpoint))

	if len(params) == 0 {
		return b.String()
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}

	return b.String()
}
