package contahub

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ordinario/contahub-app-sheets/log"
)

// Strategy is a single way of logging in to ContaHub.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, credentials Credentials) (*Session, error)
}

// Config configures the login strategies.
type Config struct {
	Endpoints    Endpoints
	Warmup       time.Duration
	ProxyEnabled bool
	Proxies      []string
	ProbeTimeout time.Duration
}

// Authenticator tries each strategy in order and returns the first authenticated session.
type Authenticator struct {
	Endpoints  Endpoints
	Strategies []Strategy
}

// NewAuthenticator returns an authenticator with the browser, direct and (if enabled) proxy
// strategies, in that order.
func NewAuthenticator(config Config) *Authenticator {
	strategies := []Strategy{
		&Browser{Endpoints: config.Endpoints, Warmup: config.Warmup},
		&Direct{Endpoints: config.Endpoints},
	}

	if config.ProxyEnabled && len(config.Proxies) > 0 {
		strategies = append(strategies, &Proxied{
			Endpoints:    config.Endpoints,
			Proxies:      config.Proxies,
			ProbeTimeout: config.ProbeTimeout,
		})
	}

	return &Authenticator{
		Endpoints:  config.Endpoints,
		Strategies: strategies,
	}
}

// Authenticate returns the session from the first strategy that succeeds. If every
// strategy fails the returned error is an *AuthFailure holding each strategy's error.
func (a *Authenticator) Authenticate(ctx context.Context, credentials Credentials) (*Session, error) {
	failure := AuthFailure{}

	for _, strategy := range a.Strategies {
		if err := ctx.Err(); err != nil {
			failure.Attempts = append(failure.Attempts, &StrategyError{Strategy: strategy.Name(), Err: classify(err)})
			break
		}

		log.Infof("%-8v attempting login as %v", strategy.Name(), credentials.Email)

		session, err := strategy.Attempt(ctx, credentials)
		if err != nil {
			log.Warnf("%-8v login failed (%v)", strategy.Name(), err)
			failure.Attempts = append(failure.Attempts, &StrategyError{Strategy: strategy.Name(), Err: err})
			continue
		}

		session.strategy = strategy.Name()
		session.authenticated = true

		log.Infof("%-8v logged in as %v", strategy.Name(), credentials.Email)

		return session, nil
	}

	return nil, &failure
}

// Diagnosis is the result of running a single strategy.
type Diagnosis struct {
	Strategy string `json:"strategy"`
	Success  bool   `json:"success"`
	Proxy    string `json:"proxy,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Connectivity is the result of an unauthenticated GET of the ContaHub home page.
type Connectivity struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Diagnose runs every strategy, without stopping at the first success, and checks basic
// connectivity to the ContaHub home page.
func (a *Authenticator) Diagnose(ctx context.Context, credentials Credentials) ([]Diagnosis, Connectivity) {
	list := []Diagnosis{}

	for _, strategy := range a.Strategies {
		d := Diagnosis{Strategy: strategy.Name()}

		if session, err := strategy.Attempt(ctx, credentials); err != nil {
			d.Error = err.Error()
		} else {
			d.Success = true
			d.Proxy = session.Proxy()
			session.Close()
		}

		list = append(list, d)
	}

	connectivity := Connectivity{}
	if session, err := newSession(a.Endpoints, nil, nil); err != nil {
		connectivity.Error = err.Error()
	} else if rs, err := session.get(ctx, a.Endpoints.Home, 10*time.Second); err != nil {
		connectivity.Error = err.Error()
	} else {
		connectivity.Success = rs.status == http.StatusOK
		connectivity.StatusCode = rs.status
	}

	return list, connectivity
}

// Browser logs in the way a browser does: it first loads the home page to pick up the
// session cookies, pauses and then posts the credentials with a full browser header set.
type Browser struct {
	Endpoints Endpoints
	Warmup    time.Duration
}

func (b *Browser) Name() string {
	return "browser"
}

func (b *Browser) Attempt(ctx context.Context, credentials Credentials) (*Session, error) {
	session, err := newSession(b.Endpoints, nil, browserHeaders(true))
	if err != nil {
		return nil, err
	}

	if rs, err := session.get(ctx, b.Endpoints.Home, 30*time.Second); err != nil {
		log.Warnf("%-8v warm-up request failed, continuing (%v)", b.Name(), err)
	} else {
		log.Debugf("%-8v warm-up request returned HTTP %d", b.Name(), rs.status)
	}

	if b.Warmup > 0 {
		select {
		case <-ctx.Done():
			return nil, classify(ctx.Err())
		case <-time.After(b.Warmup):
		}
	}

	headers := loginHeaders(b.Endpoints.Home)
	headers.Set("X-Requested-With", "XMLHttpRequest")

	if err := signIn(ctx, session, credentials, headers, 60*time.Second); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

// Direct posts the credentials straight to the login resource with minimal headers.
type Direct struct {
	Endpoints Endpoints
}

func (d *Direct) Name() string {
	return "direct"
}

func (d *Direct) Attempt(ctx context.Context, credentials Credentials) (*Session, error) {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")

	session, err := newSession(d.Endpoints, nil, headers)
	if err != nil {
		return nil, err
	}

	if err := signIn(ctx, session, credentials, nil, 30*time.Second); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

// Proxied logs in through the first proxy that passes the probe, falling back to a direct
// connection if none do.
type Proxied struct {
	Endpoints    Endpoints
	Proxies      []string
	ProbeTimeout time.Duration
}

func (p *Proxied) Name() string {
	return "proxy"
}

func (p *Proxied) Attempt(ctx context.Context, credentials Credentials) (*Session, error) {
	timeout := p.ProbeTimeout
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	proxy := SelectProxy(ctx, p.Proxies, p.Endpoints.Probe, timeout)
	if proxy == nil {
		log.Warnf("%-8v no usable proxy, using direct connection", p.Name())
	}

	session, err := newSession(p.Endpoints, proxy, browserHeaders(false))
	if err != nil {
		return nil, err
	}

	if err := signIn(ctx, session, credentials, loginHeaders(p.Endpoints.Home), 30*time.Second); err != nil {
		session.Close()
		return nil, err
	}

	return session, nil
}

// signIn posts the credentials to the login resource. Only HTTP 200 with an explicit
// "success": true in the reply counts as a successful login.
func signIn(ctx context.Context, session *Session, credentials Credentials, headers http.Header, timeout time.Duration) error {
	payload := login{
		Email:    credentials.Email,
		Password: credentials.Password,
		Emp:      0,
	}

	rs, err := session.post(ctx, session.endpoints.Login, payload, headers, timeout)
	if err != nil {
		return err
	}

	log.Debugf("login    HTTP %d  %v", rs.status, truncate(string(rs.body), MaxErrorBodySize))

	switch rs.status {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusForbidden:
		return ErrAccessDenied
	default:
		return fmt.Errorf("%w %d", ErrUnexpectedStatus, rs.status)
	}

	reply := struct {
		Success *bool  `json:"success"`
		Message string `json:"message"`
	}{}

	if err := json.Unmarshal(rs.body, &reply); err != nil {
		return fmt.Errorf("%w (%v)", ErrMalformedResponse, err)
	}

	if reply.Success == nil || !*reply.Success {
		if reply.Message != "" {
			return fmt.Errorf("%w (%v)", ErrCredentialsRejected, reply.Message)
		}
		return ErrCredentialsRejected
	}

	return nil
}

func browserHeaders(full bool) http.Header {
	h := http.Header{}

	h.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	if full {
		h.Set("Sec-Fetch-Dest", "empty")
		h.Set("Sec-Fetch-Mode", "cors")
		h.Set("Sec-Fetch-Site", "same-site")
		h.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
		h.Set("Sec-Ch-Ua-Mobile", "?0")
		h.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	}

	return h
}

func loginHeaders(home string) http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")

	if u, err := url.Parse(home); err == nil && u.Host != "" {
		h.Set("Origin", u.Scheme+"://"+u.Host)
		h.Set("Referer", home)
	}

	return h
}
