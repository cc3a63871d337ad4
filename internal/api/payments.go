package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BerylCAtieno/getreach/internal/billing"
	"github.com/BerylCAtieno/getreach/internal/checkout"
	"github.com/BerylCAtieno/getreach/internal/logging"
)

type checkoutRequest struct {
	ProductID     string `json:"productId" form:"productId"`
	CustomerEmail string `json:"customerEmail" form:"customerEmail"`
}

func (h *handlers) createCheckout(c *gin.Context) {
	var req checkoutRequest
	var err error
	if c.Request.Method == http.MethodGet {
		err = c.ShouldBindQuery(&req)
	} else {
		err = c.ShouldBindJSON(&req)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.ProductID == "" {
		req.ProductID = h.DefaultProductID
	}
	if strings.TrimSpace(req.ProductID) == "" {
		RespondError(c, http.StatusBadRequest, checkout.ErrMissingProduct.Error())
		return
	}
	if h.Checkout == nil {
		RespondError(c, http.StatusInternalServerError, checkout.ErrMissingCredential.Error())
		return
	}

	creq := checkout.Request{ProductID: req.ProductID, CustomerEmail: req.CustomerEmail}
	if uid := userID(c); uid != "" {
		creq.Metadata = map[string]string{"user_id": uid}
	}

	session, err := h.Checkout.CreateSession(c.Request.Context(), creq)
	var upstream *checkout.UpstreamError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"checkoutUrl": session.CheckoutURL, "sessionId": session.SessionID})
	case errors.Is(err, checkout.ErrMissingProduct):
		RespondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrMissingCredential):
		RespondError(c, http.StatusInternalServerError, err.Error())
	case errors.As(err, &upstream):
		logging.For(c.Request.Context(), h.Logger).Warn("checkout rejected upstream", zap.Int("status", upstream.Status))
		contentType := "text/plain; charset=utf-8"
		if json.Valid([]byte(upstream.Body)) {
			contentType = "application/json"
		}
		c.Data(upstream.Status, contentType, []byte(upstream.Body))
	default:
		logging.For(c.Request.Context(), h.Logger).Error("checkout failed", zap.Error(err))
		RespondError(c, http.StatusBadGateway, err.Error())
	}
}

func (h *handlers) paymentsWebhook(c *gin.Context) {
	log := logging.For(c.Request.Context(), h.Logger)

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "could not read body")
		return
	}
	if err := billing.VerifyWebhook(h.WebhookSecret, c.Request.Header, body, h.Now()); err != nil {
		if errors.Is(err, billing.ErrMissingSecret) {
			log.Error("payments webhook received but no secret is configured")
			RespondError(c, http.StatusInternalServerError, "webhook secret not configured: set PAYMENTS_WEBHOOK_SECRET")
			return
		}
		log.Warn("rejected payments webhook", zap.Error(err))
		RespondError(c, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	ev, err := billing.ParseEvent(body)
	if err != nil {
		RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	subscribed, changed := billing.SubscriptionChange(ev)
	if changed {
		if ev.UserID == "" {
			log.Warn("subscription event without user id", zap.String("type", ev.Type), zap.String("email", ev.Email))
		} else if err := h.Reports.SetSubscribed(c.Request.Context(), ev.UserID, subscribed); err != nil {
			log.Error("update subscription failed", zap.String("user_id", ev.UserID), zap.Error(err))
			RespondError(c, http.StatusInternalServerError, "could not update subscription")
			return
		} else {
			log.Info("subscription updated", zap.String("user_id", ev.UserID), zap.Bool("subscribed", subscribed), zap.String("type", ev.Type))
		}
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
