package httpx

import (
	"net/http"
	"strconv"
	"strings"
)

// queryInt reads key as an int. Missing or malformed values yield def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return def
	}
	return n
}

// parseBoolQuery treats 1, true and yes as true, ignoring case.
func parseBoolQuery(r *http.Request, key string) bool {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key)))
	return v == "1" || v == "true" || v == "yes"
}

// ParseLimitOffset reads limit and offset, clamping limit to [1, maxLimit]
// and offset to >= 0.
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (limit, offset int) {
	maxLimit = max(maxLimit, 1)
	limit = min(max(queryInt(r, "limit", defLimit), 1), maxLimit)
	offset = max(queryInt(r, "offset", 0), 0)
	return limit, offset
}
