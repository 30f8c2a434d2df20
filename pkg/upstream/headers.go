package upstream

import (
	"net/http"
	"strings"
)

// Hop-by-hop headers are meaningful only for the connection they
// arrived on (RFC 7230, section 6.1). The proxy regenerates its own
// framing, so they never reach the cache or the client.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// removeHopByHop deletes the standard hop-by-hop headers plus any
// header nominated by the Connection header itself.
func removeHopByHop(h http.Header) {
	for _, v := range h.Values("Connection") {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopByHopHeaders {
		h.Del(name)
	}
}
