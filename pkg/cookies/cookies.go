package cookies

import (
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CSRFCookieName is the session cookie carrying the anti-forgery token.
const CSRFCookieName = "MMCSRF"

// Source yields the cookies visible to the client as a single
// `name=value; name2=value2` string.
type Source interface {
	CookieString() (string, error)
}

// ExtractCSRFToken returns the MMCSRF cookie value, or an empty string when
// the cookie is absent, the source fails, or there is no source at all.
func ExtractCSRFToken(src Source) string {
	if src == nil {
		return ""
	}
	raw, err := src.CookieString()
	if err != nil {
		return ""
	}
	prefix := CSRFCookieName + "="
	for _, part := range strings.Split(raw, ";") {
		cookie := strings.TrimSpace(part)
		if strings.HasPrefix(cookie, prefix) {
			return strings.TrimPrefix(cookie, prefix)
		}
	}
	return ""
}

// TokenSource hands the current CSRF token to state-changing requests.
type TokenSource interface {
	CSRFToken() string
}

// CSRF adapts a Source into a TokenSource. The cookie is read on every call.
type CSRF struct {
	Source Source
}

func (c CSRF) CSRFToken() string { return ExtractCSRFToken(c.Source) }

// Header is a fixed cookie string, as a browser would expose it.
type Header string

func (h Header) CookieString() (string, error) { return string(h), nil }

// File reads the cookie string from a file on each call so an external
// login flow can refresh it.
type File string

func (f File) CookieString() (string, error) {
	if strings.TrimSpace(string(f)) == "" {
		return "", nil
	}
	raw, err := os.ReadFile(string(f))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// Jar exposes the cookies a net/http jar would send to URL.
type Jar struct {
	Jar http.CookieJar
	URL *url.URL
}

// NewJar returns an empty jar scoped to rawURL. Hand j.Jar to the HTTP client
// so cookies set by the server become visible through j.
func NewJar(rawURL string) (Jar, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Jar{}, fmt.Errorf("parse cookie url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Jar{}, fmt.Errorf("cookie url %q must be absolute", rawURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return Jar{}, fmt.Errorf("create cookie jar: %w", err)
	}
	return Jar{Jar: jar, URL: u}, nil
}

func (j Jar) CookieString() (string, error) {
	if j.Jar == nil || j.URL == nil {
		return "", nil
	}
	list := j.Jar.Cookies(j.URL)
	parts := make([]string, 0, len(list))
	for _, c := range list {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; "), nil
}

// NewSource picks a source from configuration: a cookie file wins over an
// inline header; with neither the source is empty. Callers with neither set
// usually want NewJar instead.
func NewSource(header, file string) Source {
	if strings.TrimSpace(file) != "" {
		return File(strings.TrimSpace(file))
	}
	return Header(header)
}
