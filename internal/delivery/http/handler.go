package http

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/8r4qrb7kh2-lgtm/cle-allergy-aware-sub000/internal/domain"
)

// Verifier runs one ingredient verification
type Verifier interface {
	Verify(ctx context.Context, query domain.ProductQuery, sink domain.EventSink) (*domain.VerificationResult, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	verifier Verifier
}

// NewHandler creates a new HTTP handler
func NewHandler(verifier Verifier) *Handler {
	return &Handler{verifier: verifier}
}

// VerifyResponse is the body of a completed verification request
type VerifyResponse struct {
	Result *domain.VerificationResult `json:"result"`
	Events []domain.ProgressEvent     `json:"events"`
}

// eventLog collects progress events for the response body
type eventLog struct {
	mu     sync.Mutex
	events []domain.ProgressEvent
}

func (l *eventLog) Emit(event domain.ProgressEvent) {
	// the terminal result is already the response's top-level field
	if event.Type == domain.EventResult {
		event.Result = nil
	}
	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []domain.ProgressEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ProgressEvent(nil), l.events...)
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "allergyaware-backend",
		"version": "1.0.0",
	})
}

// VerifyIngredients runs a verification for the posted product and returns
// the result with the ordered event log. A result that requires manual entry
// is still a 200: it is an answer, not a failure.
func (h *Handler) VerifyIngredients(c *gin.Context) {
	if h.verifier == nil {
		c.JSON(http.StatusNotImplemented, gin.H{
			"error": "Ingredient verification is not configured",
		})
		return
	}

	var query domain.ProductQuery
	if err := c.ShouldBindJSON(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body: " + err.Error(),
		})
		return
	}

	events := &eventLog{}
	result, err := h.verifier.Verify(c.Request.Context(), query, events)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Printf("[HTTP] Verification failed for %q: %v", query.DisplayName(), err)
		}
		c.JSON(status, gin.H{
			"error":  err.Error(),
			"events": events.snapshot(),
		})
		return
	}

	c.JSON(http.StatusOK, VerifyResponse{Result: result, Events: events.snapshot()})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrVerificationCancelled):
		return http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrReasoningFailure), errors.Is(err, domain.ErrSearchFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
