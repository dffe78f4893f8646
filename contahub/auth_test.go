package contahub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credentials = Credentials{
	Email:    "gerente@example.com",
	Password: "geladeira",
}

type backend struct {
	*httptest.Server
	home    atomic.Int32
	logins  atomic.Int32
	queries atomic.Int32
	login   http.HandlerFunc
	query   http.HandlerFunc
}

func newBackend(t *testing.T) *backend {
	b := backend{
		login: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true}`))
		},
		query: func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":true,"data":[]}`))
		},
	}

	b.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			b.home.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "warm", Path: "/"})
			w.Write([]byte("<html></html>"))

		case "/login":
			b.logins.Add(1)
			b.login(w, r)

		case "/query":
			b.queries.Add(1)
			b.query(w, r)

		default:
			http.NotFound(w, r)
		}
	}))

	t.Cleanup(b.Close)

	return &b
}

func (b *backend) endpoints() Endpoints {
	return Endpoints{
		Home:  b.URL + "/",
		Login: b.URL + "/login?emp=0",
		Query: b.URL + "/query",
		Probe: "http://probe.invalid/ip",
	}
}

// fakeProxy answers every request itself, which is enough to stand in for a forward proxy
// in front of the backend.
func fakeProxy(t *testing.T, hits *atomic.Int32, login http.HandlerFunc) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)

		if r.URL.Path == "/login" && login != nil {
			login(w, r)
		} else {
			w.Write([]byte(`{"origin":"200.137.134.131"}`))
		}
	}))

	t.Cleanup(srv.Close)

	return srv
}

func deadProxy() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	return url
}

func TestAuthenticateWithBrowserStrategy(t *testing.T) {
	b := newBackend(t)
	b.login = func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		cookie, err := r.Cookie("JSESSIONID")
		if err != nil || cookie.Value != "warm" {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		if payload["usr_email"] != credentials.Email || payload["usr_senha"] != credentials.Password || payload["emp"] != 0.0 {
			w.Write([]byte(`{"success":false,"message":"invalid login"}`))
			return
		}

		if r.Header.Get("X-Requested-With") != "XMLHttpRequest" || r.Header.Get("Origin") != b.URL {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Write([]byte(`{"success":true,"usr":{"id":1}}`))
	}

	auth := NewAuthenticator(Config{Endpoints: b.endpoints()})

	session, err := auth.Authenticate(context.Background(), credentials)
	require.NoError(t, err)
	defer session.Close()

	assert.True(t, session.Authenticated())
	assert.Equal(t, "browser", session.Strategy())
	assert.Equal(t, "", session.Proxy())
	assert.Equal(t, int32(1), b.home.Load())
	assert.Equal(t, int32(1), b.logins.Load())
}

func TestAuthenticateFallsBackToDirectStrategy(t *testing.T) {
	var hits atomic.Int32

	proxy := fakeProxy(t, &hits, nil)

	b := newBackend(t)
	b.login = func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("User-Agent"), "Mozilla") {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		w.Write([]byte(`{"success":true}`))
	}

	auth := NewAuthenticator(Config{
		Endpoints:    b.endpoints(),
		ProxyEnabled: true,
		Proxies:      []string{proxy.URL},
	})

	require.Len(t, auth.Strategies, 3)

	session, err := auth.Authenticate(context.Background(), credentials)
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, "direct", session.Strategy())
	assert.Equal(t, int32(2), b.logins.Load())
	assert.Equal(t, int32(0), hits.Load(), "proxy strategy should not have been attempted")
}

func TestAuthenticateExhausted(t *testing.T) {
	var hits atomic.Int32

	forbidden := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}

	proxy := fakeProxy(t, &hits, forbidden)

	b := newBackend(t)
	b.login = forbidden

	auth := NewAuthenticator(Config{
		Endpoints:    b.endpoints(),
		ProxyEnabled: true,
		Proxies:      []string{proxy.URL},
	})

	session, err := auth.Authenticate(context.Background(), credentials)

	require.Nil(t, session)
	require.Error(t, err)
	assert.Equal(t, "authentication exhausted", err.Error())

	var failure *AuthFailure
	require.True(t, errors.As(err, &failure))
	require.Len(t, failure.Attempts, 3)

	assert.Equal(t, "browser", failure.Attempts[0].Strategy)
	assert.Equal(t, "direct", failure.Attempts[1].Strategy)
	assert.Equal(t, "proxy", failure.Attempts[2].Strategy)

	for _, attempt := range failure.Attempts {
		assert.ErrorIs(t, attempt, ErrAccessDenied)
	}

	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Equal(t, int32(2), b.logins.Load())
	assert.Equal(t, int32(2), hits.Load(), "expected probe and login through proxy")
	assert.Equal(t, int32(0), b.queries.Load())
}

func TestAuthenticateWithoutProxyStrategy(t *testing.T) {
	auth := NewAuthenticator(Config{Endpoints: DefaultEndpoints, ProxyEnabled: true})

	require.Len(t, auth.Strategies, 2)
	assert.Equal(t, "browser", auth.Strategies[0].Name())
	assert.Equal(t, "direct", auth.Strategies[1].Name())
}

func TestSignInFailures(t *testing.T) {
	tests := []struct {
		status int
		body   string
		err    error
	}{
		{http.StatusTooManyRequests, ``, ErrRateLimited},
		{http.StatusForbidden, ``, ErrAccessDenied},
		{http.StatusInternalServerError, `oops`, ErrUnexpectedStatus},
		{http.StatusOK, `<html>login</html>`, ErrMalformedResponse},
		{http.StatusOK, `{"success":false,"message":"senha incorreta"}`, ErrCredentialsRejected},
		{http.StatusOK, `{"message":"?"}`, ErrCredentialsRejected},
	}

	for _, test := range tests {
		b := newBackend(t)
		b.login = func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(test.status)
			w.Write([]byte(test.body))
		}

		strategy := Direct{Endpoints: b.endpoints()}

		session, err := strategy.Attempt(context.Background(), credentials)

		assert.Nil(t, session)
		assert.ErrorIs(t, err, test.err, "HTTP %d %v", test.status, test.body)
	}
}

func TestSignInTimeout(t *testing.T) {
	b := newBackend(t)
	b.login = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	strategy := Direct{Endpoints: b.endpoints()}

	_, err := strategy.Attempt(ctx, credentials)

	assert.ErrorIs(t, err, ErrTimeout)
}

func TestSignInConnectionError(t *testing.T) {
	url := deadProxy()

	strategy := Direct{Endpoints: Endpoints{Home: url + "/", Login: url + "/login"}}

	_, err := strategy.Attempt(context.Background(), credentials)

	assert.ErrorIs(t, err, ErrConnection)
}

func TestProxiedStrategyUsesFirstLiveProxy(t *testing.T) {
	var hits atomic.Int32

	proxy := fakeProxy(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true}`))
	})

	b := newBackend(t)
	b.login = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}

	strategy := Proxied{
		Endpoints:    b.endpoints(),
		Proxies:      []string{deadProxy(), proxy.URL},
		ProbeTimeout: time.Second,
	}

	session, err := strategy.Attempt(context.Background(), credentials)
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, strings.TrimPrefix(proxy.URL, "http://"), session.Proxy())
	assert.Equal(t, int32(0), b.logins.Load())
	assert.Equal(t, int32(2), hits.Load())
}

func TestProxiedStrategyFallsBackToDirect(t *testing.T) {
	b := newBackend(t)

	strategy := Proxied{
		Endpoints:    b.endpoints(),
		Proxies:      []string{deadProxy()},
		ProbeTimeout: time.Second,
	}

	session, err := strategy.Attempt(context.Background(), credentials)
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, "", session.Proxy())
	assert.Equal(t, int32(1), b.logins.Load())
}

func TestDiagnose(t *testing.T) {
	b := newBackend(t)
	b.login = func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.Header.Get("User-Agent"), "Mozilla") {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		w.Write([]byte(`{"success":true}`))
	}

	auth := NewAuthenticator(Config{Endpoints: b.endpoints()})

	list, connectivity := auth.Diagnose(context.Background(), credentials)

	require.Len(t, list, 2)
	assert.Equal(t, Diagnosis{Strategy: "browser", Error: "rate limited"}, list[0])
	assert.Equal(t, Diagnosis{Strategy: "direct", Success: true}, list[1])
	assert.Equal(t, Connectivity{Success: true, StatusCode: 200}, connectivity)
}

func TestCredentialsString(t *testing.T) {
	assert.Equal(t, "gerente@example.com:gel***", credentials.String())
}

func TestMask(t *testing.T) {
	tests := map[string]string{
		"":          "***",
		"ab":        "ab***",
		"geladeira": "gel***",
		"ção123":    "ção***",
	}

	for password, expected := range tests {
		if v := Mask(password); v != expected {
			t.Errorf("incorrect mask for %q\n   expected: %v\n   got:      %v", password, expected, v)
		}
	}
}
