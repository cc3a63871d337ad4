package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/billing"
	"github.com/BerylCAtieno/getreach/internal/logging"
	"github.com/BerylCAtieno/getreach/internal/models"
	"github.com/BerylCAtieno/getreach/internal/relay"
)

type analyzeRequest struct {
	models.AnalysisInput
	Stream bool `json:"stream"`
	// ReportID names the report already loaded in the caller's session; a
	// run with it replaces that report instead of adding one.
	ReportID string `json:"reportId,omitempty"`
}

func (h *handlers) analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)
	if err := h.gate(ctx, uid, req.ReportID); err != nil {
		if errors.Is(err, billing.ErrFreeReportUsed) {
			h.Metrics.AnalyzeRequests.WithLabelValues(mode(req.Stream), "blocked").Inc()
			RespondError(c, http.StatusPaymentRequired, err.Error())
			return
		}
		logging.For(ctx, h.Logger).Error("usage lookup failed", zap.String("user_id", uid), zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "could not check usage")
		return
	}

	if req.Stream {
		h.analyzeStream(c, req, uid)
		return
	}

	start := time.Now()
	report, err := h.Relay.Analyze(ctx, req.AnalysisInput)
	h.Metrics.UpstreamDuration.WithLabelValues("json").Observe(time.Since(start).Seconds())
	if err != nil {
		h.Metrics.AnalyzeRequests.WithLabelValues("json", "error").Inc()
		RespondError(c, relay.HTTPStatus(err), err.Error())
		return
	}
	h.Metrics.AnalyzeRequests.WithLabelValues("json", "done").Inc()

	if id := h.persist(ctx, uid, req.ReportID, report); id != "" {
		c.Header("X-Report-ID", id)
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) analyzeStream(c *gin.Context, req analyzeRequest, uid string) {
	if err := h.Relay.Ready(); err != nil {
		h.Metrics.AnalyzeRequests.WithLabelValues("stream", "error").Inc()
		RespondError(c, relay.HTTPStatus(err), err.Error())
		return
	}

	ctx := c.Request.Context()
	sse := startSSE(c)
	emit := func(ev relay.StreamEvent) error {
		switch ev.Type {
		case relay.EventChunk:
			h.Metrics.StreamChunks.Inc()
		case relay.EventDone:
			ev.ReportID = h.persist(ctx, uid, req.ReportID, ev.Report)
		}
		return sse.event(ev)
	}

	start := time.Now()
	terminal, err := h.Relay.Stream(ctx, req.AnalysisInput, emit)
	h.Metrics.UpstreamDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())

	outcome := string(terminal.Type)
	if err != nil {
		outcome = "client_gone"
		logging.For(ctx, h.Logger).Info("stream ended early", zap.Error(err))
	}
	h.Metrics.AnalyzeRequests.WithLabelValues("stream", outcome).Inc()
}

// gate applies the free-tier rule to identified users. Anonymous requests
// are not gated.
func (h *handlers) gate(ctx context.Context, uid, reportID string) error {
	if uid == "" {
		return nil
	}
	used, err := h.Reports.CountReportsFor(ctx, uid)
	if err != nil {
		return err
	}
	subscribed, err := h.Reports.IsSubscribed(ctx, uid)
	if err != nil {
		return err
	}
	return billing.Allow(billing.Usage{
		ReportsUsed:  used,
		ReportLoaded: h.owns(ctx, uid, reportID),
		Subscribed:   subscribed,
	})
}

func (h *handlers) owns(ctx context.Context, uid, reportID string) bool {
	if reportID == "" {
		return false
	}
	rec, err := h.Reports.Get(ctx, reportID)
	return err == nil && rec.UserID == uid
}

// persist stores the report for an identified user and returns its id, or ""
// when nothing was stored. A re-run of an owned report replaces it and
// notifies live viewers. Storage failures are logged, not returned: the user
// still gets the report.
func (h *handlers) persist(ctx context.Context, uid, reportID string, report *models.ReachReport) string {
	if uid == "" || report == nil {
		return ""
	}
	ctx = context.WithoutCancel(ctx)
	log := logging.For(ctx, h.Logger).With(zap.String("user_id", uid))

	if h.owns(ctx, uid, reportID) {
		if err := h.Reports.Replace(ctx, reportID, report); err != nil {
			log.Error("replace report failed", zap.String("report_id", reportID), zap.Error(err))
			return ""
		}
		if err := h.Hub.Publish(ctx, reportID, report); err != nil {
			log.Warn("publish report update failed", zap.String("report_id", reportID), zap.Error(err))
		}
		return reportID
	}

	id, err := h.Reports.Save(ctx, uid, report)
	if err != nil {
		log.Error("save report failed", zap.Error(err))
		return ""
	}
	return id
}

func mode(stream bool) string {
	if stream {
		return "stream"
	}
	return "json"
}
