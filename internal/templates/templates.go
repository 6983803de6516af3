// Package templates renders the handful of HTML pages the server serves.
package templates

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed *.html
var pagesFS embed.FS

var pages = template.Must(template.ParseFS(pagesFS, "*.html"))

func render(name string, data any) (string, error) {
	var buf strings.Builder
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Landing renders the public landing page.
func Landing() (string, error) {
	return render("landing.html", nil)
}

// LoginRedirect renders the page that navigates the user agent to the
// provider's authorization URL. It is served with Cache-Control: no-store
// because the URL embeds a single-use state token.
func LoginRedirect(authURL string) (string, error) {
	return render("login_redirect.html", struct{ URL string }{URL: authURL})
}

// PostLogin renders the page that sends the user agent back one step after
// the session cookie has been set, returning it to whatever protected
// resource triggered the login.
func PostLogin() (string, error) {
	return render("post_login.html", nil)
}

// Secure renders the protected index for a signed-in user.
func Secure(email string) (string, error) {
	return render("secure.html", struct{ Email string }{Email: email})
}
