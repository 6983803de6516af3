package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// JSONContentType is the only content type DecodeJSON accepts.
const JSONContentType = "application/json; charset=utf-8"

// Header returns the named header decoded as text. The second return reports
// whether the header was present at all; a present value containing bytes
// outside the visible range surfaces as UnreadableHeader.
func Header(r *http.Request, name string) (string, bool, error) {
	values, ok := r.Header[http.CanonicalHeaderKey(name)]
	if !ok || len(values) == 0 {
		return "", false, nil
	}
	value := values[0]
	for i := 0; i < len(value); i++ {
		b := value[i]
		if b == '\t' {
			continue
		}
		if b < 0x20 || b == 0x7f {
			return "", true, UnreadableHeader(name, fmt.Errorf("invalid byte 0x%02x at position %d", b, i))
		}
	}
	return value, true, nil
}

// ContentLength requires the Content-Length header to be present, a
// non-negative integer, and at most max. Call it before reading any body.
func ContentLength(r *http.Request, max int) (int, error) {
	value, ok, err := Header(r, "Content-Length")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ContentLengthMissing()
	}
	declared, err := strconv.ParseUint(value, 10, 63)
	if err != nil {
		return 0, ContentLengthNotInt(err)
	}
	if int(declared) > max {
		return 0, ContentLengthTooLarge(int(declared), max)
	}
	return int(declared), nil
}

// Body buffers the request body fully, holding it to the declared
// Content-Length. More bytes than declared and fewer bytes than declared both
// surface as mismatches carrying observed vs declared sizes. Structured
// decoding runs faster against one contiguous buffer than against a chunked
// stream, which is why the body is not consumed incrementally.
func Body(r *http.Request, max int) ([]byte, error) {
	declared, err := ContentLength(r, max)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, declared)
	n, err := io.ReadFull(r.Body, buf)
	switch {
	case err == io.ErrUnexpectedEOF, err == io.EOF && declared > 0:
		return nil, ContentLengthMismatch(n, declared)
	case err != nil && err != io.EOF:
		return nil, ConnectionFault(err)
	}

	// Probe for bytes past the declared length.
	var probe [1]byte
	if m, _ := r.Body.Read(probe[:]); m > 0 {
		return nil, ContentLengthMismatch(declared+m, declared)
	}
	return buf, nil
}

// DecodeJSON reads the body and decodes it into v. The content type must
// match JSONContentType exactly before any bytes are read.
func DecodeJSON(r *http.Request, max int, v any) error {
	contentType, _, err := Header(r, "Content-Type")
	if err != nil {
		return err
	}
	if contentType != JSONContentType {
		return InvalidContentType(JSONContentType, contentType)
	}
	body, err := Body(r, max)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return InvalidJSON(err)
	}
	return nil
}

// Query decodes the URL query string.
func Query(r *http.Request) (url.Values, error) {
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return nil, InvalidURLEncoding(err)
	}
	return values, nil
}

// QueryParam extracts a required query parameter from decoded values.
func QueryParam(values url.Values, name string) (string, error) {
	if !values.Has(name) {
		return "", InvalidURLEncoding(fmt.Errorf("missing query parameter %q", name))
	}
	return values.Get(name), nil
}

// Cookies parses the Cookie header into a name→value map. A missing header
// yields an empty map, not an error. Repeating a name with the same value is
// tolerated; distinct values for one name are rejected.
func Cookies(r *http.Request) (map[string]string, error) {
	raw, ok, err := Header(r, "Cookie")
	if err != nil {
		return nil, err
	}
	cookies := make(map[string]string)
	if !ok {
		return cookies, nil
	}
	for _, pair := range strings.Split(raw, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, UnparseableCookie(pair)
		}
		if previous, dup := cookies[name]; dup && previous != value {
			return nil, DuplicateCookies(name, value, previous)
		}
		cookies[name] = value
	}
	return cookies, nil
}

// Index parses a numeric path segment, for routes addressing a collection
// element by position.
func Index(segment string) (int, error) {
	n, err := strconv.ParseUint(segment, 10, 63)
	if err != nil {
		return 0, InvalidIndexPath(err)
	}
	return int(n), nil
}
