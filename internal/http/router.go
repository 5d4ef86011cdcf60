package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/config"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/handlers"
	adminh "github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/handlers/admin"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/http/middleware"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/mailer"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/email"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/orders"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/payments"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/refunds"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/modules/reviews"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/notify"
	"github.com/tayawaaean/mayhemcreations-shawn-denis-sub001/internal/storage"
)

// NewRouter wires the whole service. Construction order matters only in
// that the webhook coordinator registers itself on the dispatch registry
// before the router starts taking traffic.
func NewRouter(logger *slog.Logger, db *gorm.DB, cfg config.Config) (*gin.Engine, error) {
	hub := notify.NewHub(logger)

	store, err := storage.FromEnv(context.Background())
	if err != nil {
		return nil, err
	}
	logger.Info("storage ready", "driver", store.Driver)

	var mailSvc mailer.Service
	if cfg.SMTP.Host != "" {
		mailSvc = mailer.NewSMTPMailer(cfg.SMTP)
	} else {
		mailSvc = &mailer.Mock{}
	}
	emails := email.NewService(mailSvc, cfg.EmailFrom, cfg.EmailFromName)

	cardpay := payments.NewCardpayProvider(cfg.Cardpay.BaseURL, cfg.Cardpay.APIKey, cfg.Cardpay.WebhookSecret)
	paypal := payments.NewPayPalProvider(cfg.PayPal.BaseURL, cfg.PayPal.ClientID, cfg.PayPal.ClientSecret, cfg.PayPal.WebhookSecret)

	reviewSvc := reviews.NewService(db, hub, logger)
	reviewRepo := reviews.NewRepo(db)
	orderRepo := orders.NewRepo(db)
	orderAdminSvc := orders.NewAdminService(db, hub, logger)
	refundSvc := refunds.NewService(db, hub, emails, logger, cardpay, paypal)
	refundRepo := refunds.NewRepo(db)
	checkoutSvc := payments.NewCheckoutService(db, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, logger, cardpay, paypal)

	registry := payments.NewRegistry(logger)
	coordinator := payments.NewCoordinator(db, reviewSvc, hub, emails, logger)
	coordinator.RegisterHandlers(registry)

	reviewsH := handlers.NewReviewsHandler(reviewSvc, reviewRepo)
	checkoutH := handlers.NewCheckoutHandler(checkoutSvc)
	ordersH := handlers.NewOrdersHandler(orderRepo)
	refundsH := handlers.NewRefundsHandler(refundSvc, refundRepo, orderRepo)
	webhooksH := handlers.NewWebhookHandler(logger, registry, cardpay, paypal)

	adminReviewsH := adminh.NewReviewsHandler(reviewSvc, reviewRepo, store.Storage)
	adminOrdersH := adminh.NewOrdersHandler(orderAdminSvc, orderRepo)
	adminRefundsH := adminh.NewRefundsHandler(refundSvc, refundRepo)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger))
	r.Use(middleware.Identity())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	// notification fan-out; subscribers pass ?subjects=review:1,order:abc
	r.GET("/ws", gin.WrapH(hub))

	// webhooks: signature-verified, no identity
	r.POST("/webhooks/:provider", webhooksH.Handle)

	api := r.Group("/api", middleware.RequireAuth())
	{
		api.POST("/reviews", reviewsH.Submit)
		api.GET("/reviews", reviewsH.ListMine)
		api.GET("/reviews/:id", reviewsH.Get)
		api.POST("/reviews/:id/confirmations", reviewsH.Confirm)
		api.POST("/reviews/:id/checkout", checkoutH.Start)
		api.POST("/reviews/:id/capture", checkoutH.Capture)

		api.GET("/orders", ordersH.ListMine)
		api.GET("/orders/:id", ordersH.Get)
		api.POST("/orders/:id/refunds", refundsH.Create)
		api.GET("/orders/:id/refunds", refundsH.ListForOrder)
	}

	admin := r.Group("/api/admin", middleware.RequireAdmin())
	{
		admin.GET("/reviews", adminReviewsH.List)
		admin.GET("/reviews/:id", adminReviewsH.Get)
		admin.POST("/reviews/:id/replies", adminReviewsH.UploadReplies)
		admin.POST("/reviews/:id/reject", adminReviewsH.Reject)
		admin.POST("/reviews/:id/reopen", adminReviewsH.Reopen)

		admin.GET("/orders", adminOrdersH.List)
		admin.GET("/orders/:id", adminOrdersH.Detail)
		admin.POST("/orders/:id/ship", adminOrdersH.Ship)
		admin.POST("/orders/:id/deliver", adminOrdersH.Deliver)

		admin.GET("/refunds", adminRefundsH.List)
		admin.POST("/refunds/:id/review", adminRefundsH.Review)
		admin.POST("/refunds/:id/approve", adminRefundsH.Approve)
		admin.POST("/refunds/:id/retry", adminRefundsH.Retry)
		admin.POST("/refunds/:id/reject", adminRefundsH.Reject)
		admin.POST("/refunds/:id/cancel", adminRefundsH.Cancel)
		admin.POST("/refunds/:id/capture-reference", adminRefundsH.SetCaptureReference)
	}

	return r, nil
}
