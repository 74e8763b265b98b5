package connection

import (
	"fmt"
	"net/http"
)

// ApplyKeepAlive sets Connection/Keep-Alive response headers on w, and
// an Alt-Svc hint when HTTP/2 is in play so clients can upgrade future
// connections.
func ApplyKeepAlive(w http.ResponseWriter, cfg Config, negotiatedHTTP2 bool) {
	w.Header().Set("Connection", "keep-alive")
	timeoutSeconds := int(cfg.KeepAliveTTL.Seconds())
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	w.Header().Set("Keep-Alive", fmt.Sprintf("timeout=%d", timeoutSeconds))

	if negotiatedHTTP2 {
		w.Header().Set("Alt-Svc", `h2=":443"; ma=86400`)
	}
}
