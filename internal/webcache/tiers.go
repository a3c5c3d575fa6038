package webcache

import (
	"net/http"
	"strings"
	"time"
)

// Cache tiers. Each tier is a store collection whose name carries the cache
// version; bumping the version is the only migration mechanism — Activate
// drops every tier collection with a stale name.
const (
	tierStaticPrefix       = "static-"
	tierRuntimePrefix      = "runtime-"
	tierOfflinePagesPrefix = "offline-pages-"
)

var tierPrefixes = []string{tierStaticPrefix, tierRuntimePrefix, tierOfflinePagesPrefix}

// CachedResponse is a stored HTTP response. Presence alone wins on lookup;
// no freshness or ETag comparison is ever made.
type CachedResponse struct {
	URL      string      `json:"url"`
	Method   string      `json:"method"`
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	StoredAt time.Time   `json:"stored_at"`
}

type tierNames struct {
	static       string
	runtime      string
	offlinePages string
}

func namesForVersion(version string) tierNames {
	return tierNames{
		static:       tierStaticPrefix + version,
		runtime:      tierRuntimePrefix + version,
		offlinePages: tierOfflinePagesPrefix + version,
	}
}

func (n tierNames) all() []string {
	return []string{n.static, n.runtime, n.offlinePages}
}

func (n tierNames) contains(name string) bool {
	return name == n.static || name == n.runtime || name == n.offlinePages
}

func isTierCollection(name string) bool {
	for _, prefix := range tierPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func cacheKey(method, url string) string {
	return method + " " + url
}
