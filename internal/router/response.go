package router

import (
	"encoding/json"
	"net/http"
)

// FinalizeFunc receives the buffered body/status/headers when a Response is
// finalized, letting the transport write to the wire itself (spec.md
// §4.10 "Finalization invokes a supplied callback").
type FinalizeFunc func(body []byte, status int, headers http.Header)

// Response buffers write/end until finalized, matching spec.md §4.10's
// Response adapter contract.
type Response struct {
	w          http.ResponseWriter
	header     http.Header
	statusCode int
	body       []byte
	finalized  bool
}

// NewResponse builds a Response writing eventually to w.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w, header: make(http.Header), statusCode: http.StatusOK}
}

func (r *Response) SetHeader(name, value string) *Response {
	r.header.Set(name, value)
	return r
}

func (r *Response) GetHeader(name string) string {
	return r.header.Get(name)
}

func (r *Response) RemoveHeader(name string) *Response {
	r.header.Del(name)
	return r
}

// Status sets the HTTP status code to use on finalize.
func (r *Response) Status(code int) *Response {
	r.statusCode = code
	return r
}

// Send appends raw body content (string or []byte).
func (r *Response) Send(body interface{}) *Response {
	switch v := body.(type) {
	case []byte:
		r.body = append(r.body, v...)
	case string:
		r.body = append(r.body, []byte(v)...)
	default:
		r.body = append(r.body, []byte(http.StatusText(r.statusCode))...)
	}
	return r
}

// JSON marshals v and sets Content-Type: application/json.
func (r *Response) JSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.SetHeader("Content-Type", "application/json")
	r.body = b
	return nil
}

// Redirect sets the Location header and status (default 302).
func (r *Response) Redirect(url string, code int) *Response {
	if code == 0 {
		code = http.StatusFound
	}
	r.SetHeader("Location", url)
	r.statusCode = code
	return r
}

// Cookie appends a Set-Cookie header.
func (r *Response) Cookie(c *http.Cookie) *Response {
	r.header.Add("Set-Cookie", c.String())
	return r
}

// ClearCookie expires a cookie immediately.
func (r *Response) ClearCookie(name, path string) *Response {
	return r.Cookie(&http.Cookie{Name: name, Value: "", Path: path, MaxAge: -1})
}

// Finalize writes the buffered response to the wire. If onFinalize is
// non-nil it is invoked with (body, status, headers) instead of writing
// directly — used by callers (e.g. the proxy, XEMS middleware) that need
// to observe or rewrite the response before it hits the transport.
// Finalize is idempotent: a second call is a no-op.
func (r *Response) Finalize(onFinalize FinalizeFunc) {
	if r.finalized {
		return
	}
	r.finalized = true

	if onFinalize != nil {
		onFinalize(r.body, r.statusCode, r.header)
		return
	}

	dst := r.w.Header()
	for k, v := range r.header {
		dst[k] = v
	}
	r.w.WriteHeader(r.statusCode)
	if len(r.body) > 0 {
		r.w.Write(r.body)
	}
}
