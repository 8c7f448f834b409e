// Package server is the webhook intake layer. It authenticates the shared
// secret and validates the payload shape, then hands the signal to the entry
// controller; all trading decisions live in the engine.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kite-futures-bot/internal/engine"
	"kite-futures-bot/internal/logger"
	"kite-futures-bot/internal/types"
)

// EntryController is the slice of the engine the intake needs.
type EntryController interface {
	TryEnter(ctx context.Context, direction types.Side, refPrice float64) (string, error)
}

type Server struct {
	entry  EntryController
	secret string
	router *gin.Engine
}

type webhookPayload struct {
	Secret    string  `json:"secret"`
	Direction string  `json:"direction"`
	Price     float64 `json:"price"`
}

func New(entry EntryController, secret string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		entry:  entry,
		secret: secret,
		router: gin.New(),
	}
	s.router.Use(gin.Recovery())

	s.router.GET("/healthz", s.health)
	s.router.POST("/webhook", s.webhook)

	return s
}

// Run serves until the listener fails. Call from its own goroutine.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) webhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "malformed payload"})
		return
	}

	if payload.Secret != s.secret {
		logger.Warn(c.Request.Context(), "Unauthorized webhook attempt", "remote", c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"status": "unauthorized"})
		return
	}

	direction := strings.ToUpper(payload.Direction)

	// Connectivity probe, no side effects.
	if direction == "TEST" {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "test successful"})
		return
	}

	orderID, err := s.entry.TryEnter(c.Request.Context(), types.Side(direction), payload.Price)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "success", "order_id": orderID})
	case errors.Is(err, engine.ErrInvalidSignal):
		c.JSON(http.StatusBadRequest, gin.H{"status": "ignored", "reason": "invalid direction or price"})
	case errors.Is(err, engine.ErrAlreadyActive):
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "already in a trade"})
	case errors.Is(err, engine.ErrNoConfirmation):
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "no confirmation"})
	case errors.Is(err, engine.ErrDataUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"status": "error", "reason": "market data unavailable"})
	default:
		logger.ErrorWithErr(c.Request.Context(), "Webhook entry failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "entry failed"})
	}
}
