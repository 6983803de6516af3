package server

import (
	"net/http"
	"strings"

	"github.com/marcogenualdo/authgate/internal/httpx"
	"github.com/marcogenualdo/authgate/internal/store"
	"github.com/marcogenualdo/authgate/internal/templates"
)

// route walks the request path one segment at a time. The path always begins
// with '/', so the first split element must be empty; anything else means
// the URI carries data before the root (http://host:8080junk/path).
func (s *Server) route(r *http.Request) (*httpx.Response, error) {
	head, rest := shift(strings.Split(r.URL.Path, "/"))
	if head != "" {
		return nil, httpx.PathDataBeforeRoot(head)
	}

	head, rest = shift(rest)
	switch head {
	case "", "index.html":
		if err := verifyLeaf(rest, r, http.MethodGet); err != nil {
			return nil, err
		}
		return s.handleLanding()
	case "post-login":
		if err := verifyLeaf(rest, r, http.MethodGet); err != nil {
			return nil, err
		}
		return s.flow.Finish(r.Context(), r)
	case "health":
		if err := verifyLeaf(rest, r, http.MethodGet); err != nil {
			return nil, err
		}
		return s.handleHealth(r)
	case "secure":
		return s.routeSecure(r, rest)
	default:
		return nil, httpx.PathNotFound(r.URL.Path)
	}
}

// routeSecure is the authenticated subtree: it resolves the session before
// routing within itself, and a missing session hands the request over to the
// login flow instead of failing.
func (s *Server) routeSecure(r *http.Request, rest []string) (*httpx.Response, error) {
	session, err := s.sessions.Resolve(r.Context(), r)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return s.flow.Start(r.Context())
	}

	head, rest := shift(rest)
	switch head {
	case "":
		if err := verifyLeaf(rest, r, http.MethodGet); err != nil {
			return nil, err
		}
		return s.handleSecureIndex(session)
	default:
		return nil, httpx.PathNotFound(r.URL.Path)
	}
}

// shift pops the next path segment; an exhausted path reads as the empty
// segment, which every level treats as its default resource.
func shift(segments []string) (string, []string) {
	if len(segments) == 0 {
		return "", nil
	}
	return segments[0], segments[1:]
}

// verifyLeaf is the mandatory two-part check before any leaf handler body
// runs: the path must be exhausted first, then the method must match.
func verifyLeaf(rest []string, r *http.Request, method string) error {
	if len(rest) != 0 {
		return httpx.PathNotFound(r.URL.Path)
	}
	if r.Method != method {
		return httpx.MethodNotFound(r.Method)
	}
	return nil
}

func (s *Server) handleLanding() (*httpx.Response, error) {
	page, err := templates.Landing()
	if err != nil {
		return nil, httpx.Rendering(err)
	}
	return httpx.HTML(page), nil
}

func (s *Server) handleSecureIndex(session *store.Session) (*httpx.Response, error) {
	page, err := templates.Secure(session.Email)
	if err != nil {
		return nil, httpx.Rendering(err)
	}
	return httpx.HTML(page), nil
}
