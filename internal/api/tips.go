package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/logging"
	"github.com/BerylCAtieno/getreach/internal/tips"
)

func (h *handlers) leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	board, err := h.Tips.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		h.tipsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tips": board})
}

type addTipRequest struct {
	Platform string `json:"platform"`
	Text     string `json:"text"`
	Author   string `json:"author"`
}

func (h *handlers) addTip(c *gin.Context) {
	var req addTipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	tip, err := h.Tips.Add(c.Request.Context(), tips.Tip{Platform: req.Platform, Text: req.Text, Author: req.Author})
	if err != nil {
		h.tipsError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tip)
}

func (h *handlers) upvoteTip(c *gin.Context) {
	voter := userID(c)
	if voter == "" {
		RespondError(c, http.StatusBadRequest, "X-User-ID header is required to vote")
		return
	}
	votes, err := h.Tips.Upvote(c.Request.Context(), c.Param("id"), voter)
	if err != nil {
		h.tipsError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "votes": votes})
}

func (h *handlers) tipsError(c *gin.Context, err error) {
	var ve *tips.ValidationError
	switch {
	case errors.As(err, &ve):
		RespondError(c, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, tips.ErrNotFound):
		RespondError(c, http.StatusNotFound, err.Error())
	default:
		logging.For(c.Request.Context(), h.Logger).Error("tips store failed", zap.Error(err))
		RespondError(c, http.StatusInternalServerError, "could not process tip")
	}
}
