package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

const cookiesFile = "cookies.json"

// savedCookie is one cookie as the server set it. URL is only the origin it
// is replayed against on load; Path is always the resolved cookie path.
type savedCookie struct {
	URL      string    `json:"url"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Domain   string    `json:"domain,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// key identifies the cookie the way cookiejar does: effective domain, path
// and name. The URL that set it plays no part.
func (c savedCookie) key(u *url.URL) string {
	domain := strings.ToLower(strings.TrimPrefix(c.Domain, "."))
	if domain == "" {
		domain = strings.ToLower(u.Hostname())
	}
	return domain + ";" + cookiePath(u, c.Path) + ";" + c.Name
}

func (c savedCookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

func (c savedCookie) httpCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Domain:   c.Domain,
		Expires:  c.Expires,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
	}
}

// Jar is an http.CookieJar that writes every cookie it receives to
// cookies.json so the session survives between CLI invocations.
type Jar struct {
	path string

	mu    sync.Mutex
	inner *cookiejar.Jar
	saved map[string]savedCookie
}

var _ http.CookieJar = (*Jar)(nil)

// NewJar loads the jar persisted in dir. Expired cookies are dropped.
func NewJar(dir string) (*Jar, error) {
	inner, err := newCookieJar()
	if err != nil {
		return nil, err
	}

	j := &Jar{
		path:  filepath.Join(dir, cookiesFile),
		inner: inner,
		saved: make(map[string]savedCookie),
	}
	if err := j.load(); err != nil {
		return nil, err
	}

	return j, nil
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.inner.Cookies(u)
}

// SetCookies implements http.CookieJar. Persisting is best effort; a failed
// write only costs the session on the next run.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.inner.SetCookies(u, cookies)

	now := time.Now()
	origin := originOf(u)
	for _, c := range cookies {
		sc := savedCookie{
			URL:      origin,
			Name:     c.Name,
			Value:    c.Value,
			Path:     cookiePath(u, c.Path),
			Domain:   c.Domain,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge < 0:
			sc.Expires = now
		case c.MaxAge > 0:
			sc.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		}

		if sc.expired(now) {
			delete(j.saved, sc.key(u))
			continue
		}
		j.saved[sc.key(u)] = sc
	}

	if err := j.persist(); err != nil {
		log.Warn().Err(err).Msg("failed to persist cookies")
	}
}

// Clear drops every cookie, in memory and on disk.
func (j *Jar) Clear() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	inner, err := newCookieJar()
	if err != nil {
		return err
	}
	j.inner = inner
	j.saved = make(map[string]savedCookie)

	if err := os.Remove(j.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove cookies: %w", err)
	}

	log.Debug().Msg("cookie jar cleared")

	return nil
}

func (j *Jar) load() error {
	data, err := os.ReadFile(j.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	var cookies []savedCookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		// a broken jar only means signing in again
		log.Warn().Err(err).Str("path", j.path).Msg("ignoring unreadable cookie jar")
		return nil
	}

	now := time.Now()
	for _, c := range cookies {
		if c.expired(now) {
			continue
		}
		u, err := url.Parse(c.URL)
		if err != nil {
			continue
		}
		c.Path = cookiePath(u, c.Path)
		j.inner.SetCookies(u, []*http.Cookie{c.httpCookie()})
		j.saved[c.key(u)] = c
	}

	log.Debug().Int("count", len(j.saved)).Msg("cookie jar loaded")

	return nil
}

// persist must be called with mu held.
func (j *Jar) persist() error {
	cookies := make([]savedCookie, 0, len(j.saved))
	for _, c := range j.saved {
		cookies = append(cookies, c)
	}
	return writeJSON(j.path, cookies)
}

func newCookieJar() (*cookiejar.Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return jar, nil
}

// originOf keeps scheme, host and path so a restored cookie is scoped the
// way the server originally set it.
func originOf(u *url.URL) string {
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: u.Path}).String()
}

// cookiePath returns the cookie's Path attribute, or the default path of the
// request URL when it is missing (RFC 6265 section 5.1.4).
func cookiePath(u *url.URL, path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	dir := u.Path
	if dir == "" || dir[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(dir, "/")
	if i == 0 {
		return "/"
	}
	return dir[:i]
}
