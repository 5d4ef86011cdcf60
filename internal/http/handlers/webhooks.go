package handlers

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/payments"
)

type WebhookHandler struct {
	Logger    *slog.Logger
	Providers map[string]payments.Provider
	Registry  *payments.Registry
}

func NewWebhookHandler(logger *slog.Logger, reg *payments.Registry, providers ...payments.Provider) *WebhookHandler {
	m := make(map[string]payments.Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &WebhookHandler{Logger: logger, Providers: m, Registry: reg}
}

// POST /webhooks/:provider
// Body is raw JSON; signature header validated by the provider adapter.
func (h *WebhookHandler) Handle(c *gin.Context) {
	p, ok := h.Providers[c.Param("provider")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "unknown provider"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	ev, err := p.VerifyAndParseWebhook(c.Request.Header, body)
	if err != nil {
		h.Logger.Warn("webhook rejected", "provider", p.Name(), "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature or payload"})
		return
	}

	if err := h.Registry.Dispatch(c.Request.Context(), p.Name(), ev, body); err != nil {
		// 500 so the provider retries
		h.Logger.Error("webhook dispatch failed", "provider", p.Name(), "event_id", ev.EventID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
