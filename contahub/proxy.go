package contahub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ordinario/contahub-app-sheets/log"
)

const DefaultProbeTimeout = 5 * time.Second

// DefaultProxies are public HTTP proxies with Brazilian exit addresses.
var DefaultProxies = []string{
	"200.137.134.131:3128",
	"191.252.194.99:8080",
	"179.184.224.91:3128",
	"177.38.76.153:8080",
}

// ParseProxy parses a proxy candidate. host:port candidates are treated as HTTP proxies.
func ParseProxy(candidate string) (*url.URL, error) {
	s := strings.TrimSpace(candidate)
	if s == "" {
		return nil, fmt.Errorf("empty proxy address")
	}

	if !strings.Contains(s, "://") {
		s = "http://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy '%v' (%w)", candidate, err)
	} else if u.Host == "" {
		return nil, fmt.Errorf("invalid proxy '%v'", candidate)
	}

	return u, nil
}

// Probe returns nil if an IP echo request routed through the proxy returns HTTP 200 within
// the timeout.
func Probe(ctx context.Context, proxy *url.URL, probe string, timeout time.Duration) error {
	transport := &http.Transport{
		Proxy:             http.ProxyURL(proxy),
		DisableKeepAlives: true,
	}

	client := http.Client{
		Transport: transport,
		Timeout:   timeout,
	}

	rq, err := http.NewRequestWithContext(ctx, http.MethodGet, probe, nil)
	if err != nil {
		return err
	}

	rs, err := client.Do(rq)
	if err != nil {
		return classify(err)
	}

	defer rs.Body.Close()

	io.Copy(io.Discard, io.LimitReader(rs.Body, 4096))

	if rs.StatusCode != http.StatusOK {
		return fmt.Errorf("%w %d", ErrUnexpectedStatus, rs.StatusCode)
	}

	return nil
}

// SelectProxy returns the first candidate that passes the probe, or nil if none do.
func SelectProxy(ctx context.Context, candidates []string, probe string, timeout time.Duration) *url.URL {
	for _, candidate := range candidates {
		proxy, err := ParseProxy(candidate)
		if err != nil {
			log.Warnf("%-8v %v", "proxy", err)
			continue
		}

		if err := Probe(ctx, proxy, probe, timeout); err != nil {
			log.Warnf("%-8v %v unusable (%v)", "proxy", proxy.Host, err)
			continue
		}

		log.Infof("%-8v using %v", "proxy", proxy.Host)
		return proxy
	}

	return nil
}
