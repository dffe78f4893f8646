package contahub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Endpoints are the ContaHub resources used by the authenticator and fetcher.
type Endpoints struct {
	Home  string
	Login string
	Query string
	Probe string
}

var DefaultEndpoints = Endpoints{
	Home:  "https://sp.contahub.com/",
	Login: "https://sp.contahub.com/rest/contahub.cmds.UsuarioCmd/login/17421701611337?emp=0",
	Query: "https://apiv2.contahub.com/query",
	Probe: "http://httpbin.org/ip",
}

// Credentials are the ContaHub account login details.
type Credentials struct {
	Email    string
	Password string
}

// String masks the password.
func (c Credentials) String() string {
	return fmt.Sprintf("%v:%v", c.Email, Mask(c.Password))
}

// Mask keeps only the first 3 characters of a password.
func Mask(password string) string {
	runes := []rune(password)
	if len(runes) > 3 {
		runes = runes[:3]
	}

	return string(runes) + "***"
}

type login struct {
	Email    string `json:"usr_email"`
	Password string `json:"usr_senha"`
	Emp      int    `json:"emp"`
}

const maxBodySize = 64 * 1024 * 1024

// Session is an HTTP client bound to a single ContaHub account. Cookies and the session
// header set are sent with every request. A Session is only usable once a login strategy
// has authenticated it.
type Session struct {
	client        *http.Client
	headers       http.Header
	endpoints     Endpoints
	strategy      string
	proxy         *url.URL
	authenticated bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func newSession(endpoints Endpoints, proxy *url.URL, headers http.Header) (*Session, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		transport.Proxy = http.ProxyURL(proxy)
	}

	h := http.Header{}
	for k, v := range headers {
		h[k] = append([]string(nil), v...)
	}

	return &Session{
		client: &http.Client{
			Jar:       jar,
			Transport: transport,
		},
		headers:   h,
		endpoints: endpoints,
		proxy:     proxy,
	}, nil
}

// Strategy returns the name of the login strategy that authenticated the session.
func (s *Session) Strategy() string {
	return s.strategy
}

// Proxy returns the proxy the session is routed through, or "" for a direct connection.
func (s *Session) Proxy() string {
	if s.proxy == nil {
		return ""
	}

	return s.proxy.Host
}

func (s *Session) Authenticated() bool {
	return s != nil && s.authenticated
}

// Close releases idle connections held by the session.
func (s *Session) Close() {
	if s != nil && s.client != nil {
		s.client.CloseIdleConnections()
	}
}

func (s *Session) get(ctx context.Context, uri string, timeout time.Duration) (*response, error) {
	return s.do(ctx, http.MethodGet, uri, nil, nil, timeout)
}

func (s *Session) post(ctx context.Context, uri string, payload any, headers http.Header, timeout time.Duration) (*response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	for k, v := range headers {
		h[k] = v
	}

	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", "application/json")
	}

	return s.do(ctx, http.MethodPost, uri, bytes.NewReader(b), h, timeout)
}

// do executes a request with the session headers, bounded by the timeout. The response body
// is read in full before the request context is released.
func (s *Session) do(ctx context.Context, method, uri string, body io.Reader, headers http.Header, timeout time.Duration) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	rq, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}

	for k, v := range s.headers {
		rq.Header[k] = v
	}

	for k, v := range headers {
		rq.Header[k] = v
	}

	rs, err := s.client.Do(rq)
	if err != nil {
		return nil, classify(err)
	}

	defer rs.Body.Close()

	b, err := io.ReadAll(io.LimitReader(rs.Body, maxBodySize))
	if err != nil {
		return nil, classify(err)
	}

	return &response{
		status: rs.StatusCode,
		header: rs.Header,
		body:   b,
	}, nil
}
