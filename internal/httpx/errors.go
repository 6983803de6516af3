package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Variant names double as the JSON key of the serialized error.
const (
	KindInternalError = "InternalError"

	KindPathNotFound   = "PathNotFound"
	KindMethodNotFound = "MethodNotFound"
	KindUnauthorized   = "Unauthorized"
	KindForbidden      = "Forbidden"

	KindPathDataBeforeRoot   = "PathDataBeforeRoot"
	KindUnreadableHeader     = "UnreadableHeader"
	KindUnparseableCookie    = "UnparseableCookie"
	KindDuplicateCookies     = "DuplicateCookies"
	KindInvalidContentLength = "InvalidContentLength"
	KindInvalidContentType   = "InvalidContentType"
	KindInvalidJSON          = "InvalidJson"
	KindInvalidURLEncoding   = "InvalidUrlEncoding"
	KindInvalidIndexPath     = "InvalidIndexPath"

	KindUnknownOIDCProcess = "UnknownOIDCProcess"
	KindOIDCGaveNoToken    = "OIDCGaveNoToken"
	KindOIDCGaveNoEmail    = "OIDCGaveNoEmail"
	KindUserNotFound       = "UserNotFound"
)

// ClientError is a caller-caused failure, safe to send back verbatim. It
// serializes externally tagged: the variant name is the sole JSON key and the
// payload (or null) its value.
type ClientError struct {
	Kind string
	Data any
}

func (e *ClientError) Error() string {
	if e.Data == nil {
		return e.Kind
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Data)
}

func (e *ClientError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{e.Kind: e.Data})
}

func (e *ClientError) status() int {
	switch e.Kind {
	case KindInternalError:
		return http.StatusInternalServerError
	case KindPathNotFound:
		return http.StatusNotFound
	case KindMethodNotFound:
		return http.StatusMethodNotAllowed
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// Response converts the error into its client-facing form. It cannot fail:
// no constructor produces a payload json.Marshal would reject. Should a
// payload slip through anyway, the whole error degrades to the generic
// internal form, status included.
func (e *ClientError) Response() *Response {
	body, err := json.Marshal(e)
	if err != nil {
		return newResponse(http.StatusInternalServerError, "application/json; charset=utf-8",
			[]byte(`{"`+KindInternalError+`":null}`))
	}
	return newResponse(e.status(), "application/json; charset=utf-8", body)
}

// InternalError wraps a collaborator fault: connection trouble, a database
// error, a failed token exchange, claims that do not verify, a template that
// will not render. Its detail is logged, never sent to the client.
type InternalError struct {
	Source string
	Err    error
}

func (e *InternalError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// ToResponse is the single conversion from a handler outcome to a response.
// It is total: client errors serialize themselves, internal errors are logged
// and collapse to the generic 500 body, and an unclassified error is treated
// as internal.
func ToResponse(err error, logger *slog.Logger) *Response {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Response()
	}
	var internalErr *InternalError
	if errors.As(err, &internalErr) {
		logger.Error("internal error", "source", internalErr.Source, "error", internalErr.Err)
	} else {
		logger.Error("unclassified error", "error", err)
	}
	return (&ClientError{Kind: KindInternalError}).Response()
}

// Routing errors.

func PathNotFound(path string) error {
	return &ClientError{Kind: KindPathNotFound, Data: path}
}

func MethodNotFound(method string) error {
	return &ClientError{Kind: KindMethodNotFound, Data: method}
}

func Unauthorized() error {
	return &ClientError{Kind: KindUnauthorized}
}

func Forbidden() error {
	return &ClientError{Kind: KindForbidden}
}

// Parsing errors.

func PathDataBeforeRoot(prefix string) error {
	return &ClientError{Kind: KindPathDataBeforeRoot, Data: prefix}
}

func UnreadableHeader(name string, err error) error {
	return &ClientError{
		Kind: KindUnreadableHeader,
		Data: fmt.Sprintf("error reading header %s: %v", name, err),
	}
}

func UnparseableCookie(raw string) error {
	return &ClientError{Kind: KindUnparseableCookie, Data: raw}
}

// DuplicateCookieData is the DuplicateCookies payload.
type DuplicateCookieData struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	OldValue string `json:"old_value"`
}

func DuplicateCookies(name, value, oldValue string) error {
	return &ClientError{
		Kind: KindDuplicateCookies,
		Data: DuplicateCookieData{Name: name, Value: value, OldValue: oldValue},
	}
}

func ContentLengthMissing() error {
	return &ClientError{Kind: KindInvalidContentLength, Data: "no content length given"}
}

func ContentLengthNotInt(err error) error {
	return &ClientError{
		Kind: KindInvalidContentLength,
		Data: fmt.Sprintf("invalid unsigned integer: %v", err),
	}
}

func ContentLengthTooLarge(declared, max int) error {
	return &ClientError{
		Kind: KindInvalidContentLength,
		Data: fmt.Sprintf("too large: maximum allowed is %d, received %d", max, declared),
	}
}

func ContentLengthMismatch(received, declared int) error {
	qualifier := ""
	if received > declared {
		qualifier = " at least"
	}
	return &ClientError{
		Kind: KindInvalidContentLength,
		Data: fmt.Sprintf("mismatch: header declared %d, received%s %d", declared, qualifier, received),
	}
}

func InvalidContentType(expected, received string) error {
	return &ClientError{
		Kind: KindInvalidContentType,
		Data: fmt.Sprintf("expected %q, received %q", expected, received),
	}
}

func InvalidJSON(err error) error {
	return &ClientError{Kind: KindInvalidJSON, Data: err.Error()}
}

func InvalidURLEncoding(err error) error {
	return &ClientError{Kind: KindInvalidURLEncoding, Data: err.Error()}
}

func InvalidIndexPath(err error) error {
	return &ClientError{Kind: KindInvalidIndexPath, Data: err.Error()}
}

// Login-flow errors.

func UnknownOIDCProcess() error {
	return &ClientError{Kind: KindUnknownOIDCProcess}
}

func OIDCGaveNoToken() error {
	return &ClientError{Kind: KindOIDCGaveNoToken}
}

func OIDCGaveNoEmail() error {
	return &ClientError{Kind: KindOIDCGaveNoEmail}
}

func UserNotFound(email string) error {
	return &ClientError{Kind: KindUserNotFound, Data: email}
}

// Internal fault wrappers, one per collaborator. Each external failure is
// mapped at the point it occurs; raw foreign errors never cross a package
// boundary.

func ConnectionFault(err error) error {
	return &InternalError{Source: "connection", Err: err}
}

func InvalidHeader(err error) error {
	return &InternalError{Source: "header construction", Err: err}
}

func Db(err error) error {
	return &InternalError{Source: "database", Err: err}
}

func OIDCExchange(err error) error {
	return &InternalError{Source: "oidc token exchange", Err: err}
}

func TamperedOIDCLogin(err error) error {
	return &InternalError{Source: "tampered oidc login", Err: err}
}

func Rendering(err error) error {
	return &InternalError{Source: "template rendering", Err: err}
}
