package classify

import "net/http"

// validSecFetchDest and validSecFetchMode are the RFC-valid value sets for
// the respective Sec-Fetch-* headers.
var validSecFetchDest = map[string]bool{
	"document": true, "iframe": true, "object": true, "embed": true,
	"audio": true, "video": true, "image": true, "font": true,
	"script": true, "style": true, "track": true, "worker": true,
	"sharedworker": true, "manifest": true, "report": true, "empty": true,
}

var validSecFetchMode = map[string]bool{
	"navigate": true, "same-origin": true, "no-cors": true, "cors": true, "websocket": true,
}

// secFetchFastPath reports whether the request carries valid, internally
// consistent Sec-Fetch-Dest/Mode headers, in which case it's trusted as
// browser-authentic without running the scored path. The second return
// value is whether the headers were present at all (so the caller can fall
// back to scoring when they're simply absent rather than invalid).
func secFetchFastPath(r *http.Request) (pass bool, present bool) {
	dest := r.Header.Get("Sec-Fetch-Dest")
	mode := r.Header.Get("Sec-Fetch-Mode")
	if dest == "" && mode == "" {
		return false, false
	}
	if dest == "" || mode == "" {
		return false, true
	}
	if !validSecFetchDest[dest] || !validSecFetchMode[mode] {
		return false, true
	}

	if mode == "navigate" && dest != "document" && dest != "iframe" {
		return false, true
	}
	if r.Header.Get("Sec-Fetch-User") == "?1" && mode != "navigate" {
		return false, true
	}
	return true, true
}
