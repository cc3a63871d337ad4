package research

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!doctype html>
<html><head><title>Acme Widgets</title></head>
<body><article>
<h1>Acme Widgets</h1>
<p>Acme Widgets helps small bakeries plan their weekly flour orders without spreadsheets.
It forecasts demand from past sales and local events, then drafts supplier orders for review.</p>
<p>Owners use it every Monday morning. Most of them found us through baking forums and
local business groups where they were asking how other shops handle ordering.</p>
</article></body></html>`

func TestReadabilityReader_RefusesInternalTargets(t *testing.T) {
	r := ReadabilityReader{Timeout: time.Second}
	for _, u := range []string{
		"http://127.0.0.1",
		"http://127.0.0.1:8080/admin",
		"http://[::1]/",
		"http://localhost:3000",
		"http://api.localhost/",
		"http://10.0.0.1/",
		"http://192.168.1.20/",
		"http://169.254.169.254/latest/meta-data/",
		"http://0.0.0.0/",
		"http://[::ffff:127.0.0.1]/",
		"ftp://example.com/file",
		"file:///etc/passwd",
		"http:///nohost",
	} {
		t.Run(u, func(t *testing.T) {
			_, err := r.Read(context.Background(), u)
			assert.ErrorIs(t, err, ErrBlockedURL)
		})
	}
}

func TestReadabilityReader_Reads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	page, err := ReadabilityReader{Timeout: 5 * time.Second, AllowPrivateHosts: true}.Read(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Acme Widgets", page.Title)
	assert.Contains(t, page.Text, "flour orders")
}

func TestReadabilityReader_ChecksResolvedAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request reached the server")
	}))
	defer srv.Close()

	_, err := ReadabilityReader{Timeout: time.Second}.client().Get(srv.URL)
	assert.ErrorIs(t, err, ErrBlockedURL)
}

func TestReadabilityReader_RedirectToInternal(t *testing.T) {
	client := ReadabilityReader{}.client()
	req := httptest.NewRequest(http.MethodGet, "http://169.254.169.254/latest/meta-data/", nil)
	assert.ErrorIs(t, client.CheckRedirect(req, nil), ErrBlockedURL)

	req = httptest.NewRequest(http.MethodGet, "https://example.com/pricing", nil)
	assert.NoError(t, client.CheckRedirect(req, nil))
}

func TestReadabilityReader_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ReadabilityReader{AllowPrivateHosts: true}.Read(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), err.Error())
}

func TestReadabilityReader_Non2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := ReadabilityReader{AllowPrivateHosts: true}.Read(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 410")
}
