package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/logging"
	"github.com/BerylCAtieno/getreach/internal/models"
	"github.com/BerylCAtieno/getreach/internal/score"
	"github.com/BerylCAtieno/getreach/internal/store"
)

const livePingInterval = 25 * time.Second

// reportView is a stored report with its score computed at read time.
type reportView struct {
	ID        string               `json:"id"`
	Report    *models.ReachReport  `json:"report"`
	Score     score.PrecisionScore `json:"score"`
	CreatedAt time.Time            `json:"createdAt"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func viewOf(rec *store.Record) reportView {
	return reportView{
		ID:        rec.ID,
		Report:    rec.Report,
		Score:     score.Compute(rec.Report),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (h *handlers) scoreReport(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "could not read body")
		return
	}
	report, err := models.ParseReport(string(body))
	if err != nil {
		RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, score.Compute(report))
}

func (h *handlers) latestReport(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		RespondError(c, http.StatusBadRequest, "X-User-ID header is required")
		return
	}
	rec, err := h.Reports.GetLatest(c.Request.Context(), uid)
	if h.storeError(c, err) {
		return
	}
	c.JSON(http.StatusOK, viewOf(rec))
}

func (h *handlers) getReport(c *gin.Context) {
	rec, err := h.Reports.Get(c.Request.Context(), c.Param("id"))
	if h.storeError(c, err) {
		return
	}
	c.JSON(http.StatusOK, viewOf(rec))
}

// liveReport streams the report document and every replacement of it until
// the client leaves.
func (h *handlers) liveReport(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	rec, err := h.Reports.Get(ctx, id)
	if h.storeError(c, err) {
		return
	}

	// Each update carries the whole document, so a slow viewer only needs
	// the newest one.
	updates := make(chan *models.ReachReport, 1)
	sub, err := h.Hub.Subscribe(ctx, id, func(r *models.ReachReport) {
		offerLatest(updates, r)
	})
	if err != nil {
		logging.For(ctx, h.Logger).Error("subscribe failed", zap.String("report_id", id), zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "could not subscribe to report")
		return
	}
	defer sub.Close()

	sse := startSSE(c)
	if err := sse.data(viewOf(rec)); err != nil {
		return
	}

	ping := time.NewTicker(livePingInterval)
	defer ping.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case r := <-updates:
			rec.Report = r
			rec.UpdatedAt = time.Now().UTC()
			if err := sse.data(viewOf(rec)); err != nil {
				return
			}
		case <-ping.C:
			if err := sse.ping(); err != nil {
				return
			}
		}
	}
}

// offerLatest puts r in the one-slot channel ch, replacing whatever unread
// value is there. A single sender per channel is assumed.
func offerLatest(ch chan *models.ReachReport, r *models.ReachReport) {
	for {
		select {
		case ch <- r:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

// storeError writes the response for a failed lookup and reports whether
// there was one.
func (h *handlers) storeError(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, store.ErrNotFound):
		RespondError(c, http.StatusNotFound, "report not found")
	default:
		logging.For(c.Request.Context(), h.Logger).Error("report lookup failed", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "could not load report")
	}
	return true
}
