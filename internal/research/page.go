package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
)

const (
	maxPageBytes = 2 << 20
	maxRedirects = 5
	userAgent    = "getreach/1.0 (+https://getreach.app)"
)

// ErrBlockedURL is returned for product URLs the reader refuses to fetch:
// non-http schemes and hosts that resolve to loopback, private, link-local
// or unspecified addresses.
var ErrBlockedURL = errors.New("research: url not allowed")

// ReadabilityReader fetches pages over HTTP and runs them through readability.
type ReadabilityReader struct {
	Timeout time.Duration
	// AllowPrivateHosts turns off the address check. Local development only.
	AllowPrivateHosts bool
}

func (r ReadabilityReader) Read(ctx context.Context, rawURL string) (Page, error) {
	u, err := r.checkURL(rawURL)
	if err != nil {
		return Page{}, err
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	res, err := r.client().Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Page{}, fmt.Errorf("read %s: status %d", rawURL, res.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(res.Body, maxPageBytes), res.Request.URL)
	if err != nil {
		return Page{}, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return Page{Title: article.Title, Text: article.TextContent}, nil
}

// checkURL rejects what can be rejected without a lookup. Hostnames are
// checked again at dial time, after resolution.
func (r ReadabilityReader) checkURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}
	if err := checkScheme(u); err != nil {
		return nil, err
	}
	if r.AllowPrivateHosts {
		return u, nil
	}
	host := strings.ToLower(strings.TrimSuffix(u.Hostname(), "."))
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return nil, fmt.Errorf("%w: %s", ErrBlockedURL, host)
	}
	if ip := net.ParseIP(host); ip != nil && blockedIP(ip) {
		return nil, fmt.Errorf("%w: %s", ErrBlockedURL, ip)
	}
	return u, nil
}

func checkScheme(u *url.URL) error {
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", ErrBlockedURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: no host", ErrBlockedURL)
	}
	return nil
}

func (r ReadabilityReader) client() *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second}
	dial := dialer.DialContext
	if !r.AllowPrivateHosts {
		dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				if blockedIP(ip.IP) {
					return nil, fmt.Errorf("%w: %s resolves to %s", ErrBlockedURL, host, ip.IP)
				}
			}
			if len(ips) == 0 {
				return nil, fmt.Errorf("no addresses for %s", host)
			}
			// Dial the address that was checked, not a fresh lookup.
			return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
		}
	}

	return &http.Client{
		Transport: &http.Transport{
			DialContext:           dial,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 20 * time.Second,
			DisableKeepAlives:     true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			_, err := r.checkURL(req.URL.String())
			return err
		},
	}
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}
