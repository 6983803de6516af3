package httpx

import (
	"encoding/json"
	"net/http"
)

// Response is the buffered response the routing layer produces. Handlers
// build one (or fail with an error) and the dispatcher writes it out; nothing
// else touches the ResponseWriter.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func newResponse(status int, contentType string, body []byte) *Response {
	h := http.Header{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &Response{Status: status, Header: h, Body: body}
}

// HTML wraps the given markup in a 200 response.
func HTML(body string) *Response {
	return newResponse(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

// JSON serializes v into a 200 response. A value that cannot be represented
// as JSON is a programming error and surfaces as a rendering fault.
func JSON(v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, Rendering(err)
	}
	return newResponse(http.StatusOK, "application/json; charset=utf-8", body), nil
}

// Empty is a bodyless 204, for writes that have nothing to report back.
func Empty() *Response {
	return newResponse(http.StatusNoContent, "", nil)
}

// NotModified answers conditional requests.
func NotModified() *Response {
	return newResponse(http.StatusNotModified, "", nil)
}

// WithStatus overrides the status code.
func (r *Response) WithStatus(status int) *Response {
	r.Status = status
	return r
}

// WithHeader sets a header on the response.
func (r *Response) WithHeader(key, value string) *Response {
	r.Header.Set(key, value)
	return r
}

// Write flushes the response to the wire. A write error here means the client
// already went away; there is nothing left to send them.
func (r *Response) Write(w http.ResponseWriter) {
	for key, values := range r.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	w.WriteHeader(r.Status)
	if len(r.Body) > 0 {
		w.Write(r.Body)
	}
}
