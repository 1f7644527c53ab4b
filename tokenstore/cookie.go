package tokenstore

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
)

// CookieOptions controls the attributes of mirrored cookies.
type CookieOptions struct {
	Keys     Keys
	Secure   bool
	SameSite http.SameSite
	Path     string
	Domain   string
}

// CookieMirror copies the token pair into cookies scoped to one origin. The
// jar can be handed to an http.Client so outgoing requests to that origin
// carry the session, and WriteCookies emits the same cookies on a response.
type CookieMirror struct {
	opts   CookieOptions
	origin *url.URL
	jar    *cookiejar.Jar

	mu sync.Mutex
}

// NewCookieMirror builds a mirror for origin (scheme and host).
func NewCookieMirror(origin string, opts CookieOptions) (*CookieMirror, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("cookie mirror origin must include scheme and host")
	}
	if opts.Secure && u.Scheme != "https" {
		return nil, errors.New("secure cookies require an https origin")
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteStrictMode
	}
	opts.Keys = opts.Keys.normalized()

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &CookieMirror{opts: opts, origin: u, jar: jar}, nil
}

// Mirror replaces the mirrored cookies with tokens. Empty fields expire the
// matching cookie.
func (m *CookieMirror) Mirror(tokens Tokens) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jar.SetCookies(m.origin, m.cookies(tokens))
}

// Clear expires both cookies.
func (m *CookieMirror) Clear() {
	m.Mirror(Tokens{})
}

// Jar exposes the underlying jar.
func (m *CookieMirror) Jar() http.CookieJar {
	return m.jar
}

// Tokens reads the pair back from the jar.
func (m *CookieMirror) Tokens() Tokens {
	if m == nil {
		return Tokens{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out Tokens
	for _, c := range m.jar.Cookies(m.origin) {
		switch c.Name {
		case m.opts.Keys.Access:
			out.AccessToken = c.Value
		case m.opts.Keys.Refresh:
			out.RefreshToken = c.Value
		}
	}
	return out
}

// WriteCookies sets both cookies on a response.
func (m *CookieMirror) WriteCookies(w http.ResponseWriter, tokens Tokens) {
	if m == nil {
		return
	}
	for _, c := range m.cookies(tokens) {
		http.SetCookie(w, c)
	}
}

func (m *CookieMirror) cookies(tokens Tokens) []*http.Cookie {
	return []*http.Cookie{
		m.cookie(m.opts.Keys.Access, tokens.AccessToken),
		m.cookie(m.opts.Keys.Refresh, tokens.RefreshToken),
	}
}

func (m *CookieMirror) cookie(name, value string) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     m.opts.Path,
		Domain:   m.opts.Domain,
		Secure:   m.opts.Secure,
		HttpOnly: true,
		SameSite: m.opts.SameSite,
	}
	if value == "" {
		c.MaxAge = -1
	}
	return c
}

// TokensFromRequest reads the pair from request cookies.
func TokensFromRequest(r *http.Request, keys Keys) Tokens {
	keys = keys.normalized()
	var out Tokens
	if c, err := r.Cookie(keys.Access); err == nil {
		out.AccessToken = c.Value
	}
	if c, err := r.Cookie(keys.Refresh); err == nil {
		out.RefreshToken = c.Value
	}
	return out
}
