// Package httpapi exposes the provisioning operations over HTTP for internal
// callers that do not speak the message broker, plus health and metrics.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	perr "github.com/finlane/payment-service/contract/errors"
	"github.com/finlane/payment-service/contract/rpc"
	"github.com/finlane/payment-service/payment"
)

// Config carries the server's collaborators and policies.
type Config struct {
	AddBankCard    *payment.AddBankCard
	AddBankAccount *payment.AddBankAccount

	// JWTSecret enables bearer-token auth on the payment routes when set.
	JWTSecret string
	// AllowedClients is the client-IP allowlist; empty disables filtering.
	AllowedClients []string
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer

	Log *slog.Logger
}

// Server is the HTTP front of the payment service.
type Server struct {
	router *gin.Engine
	log    *slog.Logger
}

// New assembles the router with its middleware chain and routes.
func New(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(Recovery(log))
	router.Use(ClientFilter(cfg.AllowedClients, log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api/v1/payment")
	if cfg.JWTSecret != "" {
		api.Use(JWTAuth(cfg.JWTSecret))
	}

	s := &Server{router: router, log: log}

	api.POST("/bank_card", s.handleAddBankCard(cfg.AddBankCard))
	api.POST("/bank_account", s.handleAddBankAccount(cfg.AddBankAccount))

	return s
}

// Handler returns the router for mounting into an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleAddBankCard(uc *payment.AddBankCard) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in payment.AddBankCardInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Malformed request body: " + err.Error(),
			})
			return
		}

		card, err := uc.Execute(c.Request.Context(), in)
		if err != nil {
			s.fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, rpc.NormalizeBody(card.Payload()))
	}
}

func (s *Server) handleAddBankAccount(uc *payment.AddBankAccount) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in payment.AddBankAccountInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Malformed request body: " + err.Error(),
			})
			return
		}

		account, err := uc.Execute(c.Request.Context(), in)
		if err != nil {
			s.fail(c, err)
			return
		}

		c.JSON(http.StatusCreated, rpc.NormalizeBody(account.Payload()))
	}
}

// fail maps a use-case error onto the HTTP envelope. Statuses come from the
// shared error taxonomy; anything unclassified answers 500.
func (s *Server) fail(c *gin.Context, err error) {
	status := perr.Status(err)
	if status >= 500 {
		s.log.Error("request failed", "path", c.Request.URL.Path, "error", err)
	} else {
		s.log.Warn("request rejected", "path", c.Request.URL.Path, "code", perr.CodeOf(err), "error", err)
	}

	c.JSON(status, gin.H{
		"success": false,
		"message": err.Error(),
	})
}
