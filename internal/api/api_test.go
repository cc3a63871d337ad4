package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/billing"
	"github.com/BerylCAtieno/getreach/internal/checkout"
	"github.com/BerylCAtieno/getreach/internal/metrics"
	"github.com/BerylCAtieno/getreach/internal/models"
	"github.com/BerylCAtieno/getreach/internal/relay"
	"github.com/BerylCAtieno/getreach/internal/store"
	"github.com/BerylCAtieno/getreach/internal/tips"
)

const reportJSON = `{"persona":{"title":"Indie founder"},"platforms":[{"name":"Reddit","communities":["r/SaaS","r/startups"],"importance":"where founders ask","conversionIntent":"High"}],"advanced":{"keywordClusters":["churn"]}}`

// scriptedGenerator returns text, or streams it in fragments.
type scriptedGenerator struct {
	text  string
	frags []string
	err   error
}

func (g *scriptedGenerator) Generate(context.Context, models.AnalysisInput) (string, error) {
	return g.text, g.err
}

func (g *scriptedGenerator) GenerateStream(_ context.Context, _ models.AnalysisInput, onChunk func(string) error) error {
	for _, f := range g.frags {
		if err := onChunk(f); err != nil {
			return err
		}
	}
	return g.err
}

type fixture struct {
	router  *gin.Engine
	reports *store.Memory
	hub     *store.MemoryHub
	tips    *tips.MemoryStore
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, gen relay.Generator, opts ...func(*Deps)) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &fixture{
		reports: store.NewMemory(),
		hub:     store.NewMemoryHub(),
		tips:    tips.NewMemoryStore(),
		metrics: metrics.New(),
	}
	d := Deps{
		Relay:   relay.New(gen, time.Second, zap.NewNop()),
		Reports: f.reports,
		Hub:     f.hub,
		Tips:    f.tips,
		Metrics: f.metrics,
	}
	for _, o := range opts {
		o(&d)
	}
	f.router = NewRouter(d)
	return f
}

func (f *fixture) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Error
}

// ── Routing ──────────────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAnalyze_WrongMethod(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodGet, "/api/analyze", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "method not allowed", errorBody(t, rec))
}

func TestAnalyze_BadInput(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{text: reportJSON})

	for _, body := range []string{``, `{}`, `{"url":"   "}`, `{"url":"","stream":true}`} {
		rec := f.do(http.MethodPost, "/api/analyze", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "url is required", errorBody(t, rec), body)
	}

	rec := f.do(http.MethodPost, "/api/analyze", `{"url":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ── Non-streaming ────────────────────────────────────────────────────────────

func TestAnalyze_ReturnsReport(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{text: reportJSON})

	rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := models.ParseReport(rec.Body.String())
	require.NoError(t, err)
	want, _ := models.ParseReport(reportJSON)
	assert.Equal(t, want, got)
	assert.Empty(t, rec.Header().Get("X-Report-ID"), "anonymous runs are not stored")
}

func TestAnalyze_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		gen    relay.Generator
		status int
		msg    string
	}{
		{"not configured", nil, http.StatusInternalServerError, "GEMINI_API_KEY"},
		{"empty", &scriptedGenerator{}, http.StatusBadGateway, "no content"},
		{"malformed", &scriptedGenerator{text: `{"persona":`}, http.StatusBadGateway, "malformed"},
		{"quota", &scriptedGenerator{err: errors.New("googleapi: Error 429: quota exceeded")}, http.StatusBadGateway, "daily generation limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.gen)
			rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, errorBody(t, rec), tt.msg)
		})
	}
}

func TestAnalyze_FreeTierGate(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{text: reportJSON})

	first := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io"}`, userHeader, "u1")
	require.Equal(t, http.StatusOK, first.Code)
	id := first.Header().Get("X-Report-ID")
	require.NotEmpty(t, id)

	second := f.do(http.MethodPost, "/api/analyze", `{"url":"https://y.io"}`, userHeader, "u1")
	assert.Equal(t, http.StatusPaymentRequired, second.Code)
	assert.Equal(t, billing.ErrFreeReportUsed.Error(), errorBody(t, second))

	// someone else's report does not count as loaded
	other := f.do(http.MethodPost, "/api/analyze", `{"url":"https://y.io","reportId":"`+id+`"}`, userHeader, "u2")
	require.Equal(t, http.StatusOK, other.Code)
	assert.NotEqual(t, id, other.Header().Get("X-Report-ID"))

	require.NoError(t, f.reports.SetSubscribed(context.Background(), "u1", true))
	third := f.do(http.MethodPost, "/api/analyze", `{"url":"https://y.io"}`, userHeader, "u1")
	assert.Equal(t, http.StatusOK, third.Code)
}

func TestAnalyze_RerunReplacesLoadedReport(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{text: reportJSON})
	ctx := context.Background()

	orig := &models.ReachReport{}
	orig.Normalize()
	id, err := f.reports.Save(ctx, "u1", orig)
	require.NoError(t, err)

	var published []*models.ReachReport
	sub, err := f.hub.Subscribe(ctx, id, func(r *models.ReachReport) { published = append(published, r) })
	require.NoError(t, err)
	defer sub.Close()

	rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io","reportId":"`+id+`"}`, userHeader, "u1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, id, rec.Header().Get("X-Report-ID"))

	n, _ := f.reports.CountReportsFor(ctx, "u1")
	assert.Equal(t, 1, n)
	stored, _ := f.reports.Get(ctx, id)
	assert.Equal(t, "Indie founder", stored.Report.Persona.Title)
	require.Len(t, published, 1)
	assert.Equal(t, "Indie founder", published[0].Persona.Title)
}

// ── Streaming ────────────────────────────────────────────────────────────────

func readStream(t *testing.T, body string) []relay.StreamEvent {
	t.Helper()
	var events []relay.StreamEvent
	require.NoError(t, relay.ReadEvents(strings.NewReader(body), func(ev relay.StreamEvent) error {
		events = append(events, ev)
		return nil
	}))
	return events
}

func TestAnalyzeStream_RelaysChunksThenDone(t *testing.T) {
	frags := []string{reportJSON[:20], reportJSON[20:60], reportJSON[60:]}
	f := newFixture(t, &scriptedGenerator{frags: frags})

	rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io","stream":true}`, userHeader, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "data: "))

	events := readStream(t, rec.Body.String())
	require.Len(t, events, 4)
	for i, frag := range frags {
		assert.Equal(t, relay.ChunkEvent(frag), events[i])
	}
	done := events[3]
	assert.Equal(t, relay.EventDone, done.Type)
	assert.Equal(t, "Indie founder", done.Report.Persona.Title)

	latest, err := f.reports.GetLatest(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, latest.ID, done.ReportID)
}

func TestAnalyzeStream_ErrorIsTerminalEvent(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{frags: []string{`{"persona":`}, err: errors.New("stream reset by upstream")})

	rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io","stream":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	events := readStream(t, rec.Body.String())
	require.Len(t, events, 2)
	assert.Equal(t, relay.EventError, events[1].Type)
	assert.Contains(t, events[1].Message, "stream reset by upstream")
}

func TestAnalyzeStream_NotConfigured(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io","stream":true}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorBody(t, rec), "GEMINI_API_KEY")
}

// ── Reports ──────────────────────────────────────────────────────────────────

func TestScoreEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/score", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"score":0,"tier":"Scattered"}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/score", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReportLookups(t *testing.T) {
	f := newFixture(t, nil)
	report, _ := models.ParseReport(reportJSON)
	id, err := f.reports.Save(context.Background(), "u1", report)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/reports/latest", "", userHeader, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	var view struct {
		ID    string `json:"id"`
		Score struct {
			Score int    `json:"score"`
			Tier  string `json:"tier"`
		} `json:"score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, id, view.ID)
	assert.Equal(t, "Scattered", view.Score.Tier)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/reports/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/reports/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/reports/latest", "", userHeader, "u9").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/api/reports/latest", "").Code)
}

func TestLiveReport(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	report, _ := models.ParseReport(reportJSON)
	id, err := f.reports.Save(ctx, "u1", report)
	require.NoError(t, err)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/api/reports/"+id+"/live", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	r := bufio.NewReader(resp.Body)
	next := func() map[string]any {
		t.Helper()
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		_, _ = r.ReadString('\n') // blank separator
		var v map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &v))
		return v
	}

	first := next()
	assert.Equal(t, id, first["id"])

	updated, _ := models.ParseReport(`{"persona":{"title":"Agency owner"}}`)
	require.NoError(t, f.hub.Publish(ctx, id, updated))

	second := next()
	assert.Equal(t, "Agency owner", second["report"].(map[string]any)["persona"].(map[string]any)["title"])

	cancel()
	require.Eventually(t, func() bool { return f.hub.Subscribers(id) == 0 }, 2*time.Second, 10*time.Millisecond,
		"subscription released when the viewer leaves")
}

func TestOfferLatest(t *testing.T) {
	ch := make(chan *models.ReachReport, 1)
	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		offerLatest(ch, &models.ReachReport{Persona: models.Persona{Title: title}})
	}
	require.Len(t, ch, 1)
	assert.Equal(t, "third", (<-ch).Persona.Title)

	offerLatest(ch, &models.ReachReport{Persona: models.Persona{Title: "fourth"}})
	assert.Equal(t, "fourth", (<-ch).Persona.Title)
}

func TestLiveReport_SlowViewerGetsNewest(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	report, _ := models.ParseReport(reportJSON)
	id, err := f.reports.Save(ctx, "u1", report)
	require.NoError(t, err)

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(reqCtx, http.MethodGet, srv.URL+"/api/reports/"+id+"/live", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return f.hub.Subscribers(id) == 1 }, 2*time.Second, 10*time.Millisecond)
	for i := 1; i <= 20; i++ {
		r, _ := models.ParseReport(fmt.Sprintf(`{"persona":{"title":"rev %d"}}`, i))
		require.NoError(t, f.hub.Publish(ctx, id, r))
	}

	// Frames arrive in order; whichever were coalesced, the stream ends on
	// the last published revision.
	lines := bufio.NewScanner(resp.Body)
	var last string
	for lines.Scan() {
		line, ok := strings.CutPrefix(lines.Text(), "data: ")
		if !ok {
			continue
		}
		var v struct {
			Report struct {
				Persona struct {
					Title string `json:"title"`
				} `json:"persona"`
			} `json:"report"`
		}
		require.NoError(t, json.Unmarshal([]byte(line), &v))
		last = v.Report.Persona.Title
		if last == "rev 20" {
			break
		}
	}
	assert.Equal(t, "rev 20", last)
}

// ── Checkout & webhook ───────────────────────────────────────────────────────

func TestCheckout(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["product_cart"].([]any)[0].(map[string]any)["product_id"] == "bad" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":"INVALID_PRODUCT"}`))
			return
		}
		_, _ = w.Write([]byte(`{"session_id":"cks_1","checkout_url":"https://pay.example/cks_1"}`))
	}))
	defer upstream.Close()

	f := newFixture(t, nil, func(d *Deps) {
		d.Checkout = checkout.NewClient("pk", upstream.URL, "")
	})

	rec := f.do(http.MethodPost, "/api/checkout", `{"productId":"pdt_pro","customerEmail":"a@b.co"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"checkoutUrl":"https://pay.example/cks_1"`)

	rec = f.do(http.MethodGet, "/api/checkout?productId=pdt_pro", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/checkout", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/checkout", `{"productId":"bad"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"code":"INVALID_PRODUCT"}`, rec.Body.String())
}

func TestCheckout_SuccessWithoutURL(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"session_id":"s1"}`))
	}))
	defer upstream.Close()

	f := newFixture(t, nil, func(d *Deps) {
		d.Checkout = checkout.NewClient("pk", upstream.URL, "")
	})
	rec := f.do(http.MethodPost, "/api/checkout", `{"productId":"pdt_pro"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, errorBody(t, rec), "checkout_url")
}

func TestCheckout_Unconfigured(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/checkout", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, checkout.ErrMissingProduct.Error(), errorBody(t, rec))

	rec = f.do(http.MethodGet, "/api/checkout", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodPost, "/api/checkout", `{"productId":"p"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorBody(t, rec), "PAYMENTS_API_KEY")
}

func TestCheckout_MissingCredential(t *testing.T) {
	f := newFixture(t, nil, func(d *Deps) { d.Checkout = checkout.NewClient("", "", "") })
	rec := f.do(http.MethodPost, "/api/checkout", `{"productId":"p"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, errorBody(t, rec), "PAYMENTS_API_KEY")
}

func TestPaymentsWebhook(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	f := newFixture(t, nil, func(d *Deps) {
		d.WebhookSecret = "plain-secret"
		d.Now = func() time.Time { return now }
	})
	ts := strconv.FormatInt(now.Unix(), 10)

	send := func(body, sig string) *httptest.ResponseRecorder {
		return f.do(http.MethodPost, "/api/webhooks/payments", body,
			"webhook-id", "msg_1", "webhook-timestamp", ts, "webhook-signature", sig)
	}
	sign := func(body string) string {
		sig, err := billing.Sign("plain-secret", "msg_1", now, []byte(body))
		require.NoError(t, err)
		return sig
	}

	active := `{"type":"subscription.active","data":{"metadata":{"user_id":"u1"}}}`
	rec := send(active, sign(active))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok, _ := f.reports.IsSubscribed(context.Background(), "u1")
	assert.True(t, ok)

	cancelled := `{"type":"subscription.cancelled","data":{"metadata":{"user_id":"u1"}}}`
	require.Equal(t, http.StatusOK, send(cancelled, sign(cancelled)).Code)
	ok, _ = f.reports.IsSubscribed(context.Background(), "u1")
	assert.False(t, ok)

	assert.Equal(t, http.StatusUnauthorized, send(active, sign(cancelled)).Code)
}

// ── Tips ─────────────────────────────────────────────────────────────────────

func TestTips(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(http.MethodPost, "/api/tips", `{"platform":"Reddit","text":"answer before you pitch"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var tip tips.Tip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tip))

	rec = f.do(http.MethodPost, "/api/tips/"+tip.ID+"/upvote", "", userHeader, "u1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"`+tip.ID+`","votes":1}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/api/tips/"+tip.ID+"/upvote", "", userHeader, "u1")
	assert.JSONEq(t, `{"id":"`+tip.ID+`","votes":1}`, rec.Body.String())

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/tips/"+tip.ID+"/upvote", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/tips/missing/upvote", "", userHeader, "u1").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/tips", `{"platform":"Reddit"}`).Code)

	rec = f.do(http.MethodGet, "/api/tips/leaderboard?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var board struct {
		Tips []tips.Tip `json:"tips"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &board))
	require.Len(t, board.Tips, 1)
	assert.Equal(t, 1, board.Tips[0].Votes)
}

// ── Rate limiting & metrics ──────────────────────────────────────────────────

func TestRateLimiter(t *testing.T) {
	l := NewRateLimiter(60, 2, nil)
	clock := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }

	ok, _ := l.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)
	ok, wait := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))

	ok, _ = l.Allow("5.6.7.8")
	assert.True(t, ok, "buckets are per client")

	clock = clock.Add(time.Second)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok, "one token refills per second at 60 rpm")

	clock = clock.Add(limiterIdleTTL + time.Minute)
	assert.Equal(t, 2, l.Prune())
}

func TestRateLimiter_Middleware(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{text: reportJSON}, func(d *Deps) {
		d.Limiter = NewRateLimiter(1, 1, nil)
	})
	assert.Equal(t, http.StatusOK, f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io"}`).Code)

	rec := f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, &scriptedGenerator{text: reportJSON})
	f.do(http.MethodPost, "/api/analyze", `{"url":"https://x.io"}`)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `reach_analyze_requests_total{mode="json",outcome="done"} 1`)
	assert.Contains(t, rec.Body.String(), `route="/api/analyze"`)
}
