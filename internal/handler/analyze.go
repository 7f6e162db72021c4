package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"nukefarm/internal/pipeline"
)

// AnalysisRunner triggers one on-demand analysis pass.
type AnalysisRunner interface {
	AnalyzeRandom(ctx context.Context) pipeline.AnalysisResult
}

// TokenVerifier checks a human-verification token.
type TokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// AnalyzeHandler serves the public analysis trigger. The locked variant
// requires a Turnstile token and enforces the per-IP limit; with Open=true
// the endpoint also accepts GET and skips both checks.
type AnalyzeHandler struct {
	Runner   AnalysisRunner
	Verifier TokenVerifier
	Limiter  *RateLimiter
	Open     bool
	Logger   *zap.Logger
}

func (h *AnalyzeHandler) Register(r *gin.Engine) {
	r.POST("/api/analyze-random", h.analyze)
	if h.Open {
		r.GET("/api/analyze-random", h.analyze)
	}
}

type analyzeRequest struct {
	TurnstileToken string `json:"turnstileToken"`
}

func (h *AnalyzeHandler) analyze(c *gin.Context) {
	if !h.Open {
		if h.Limiter != nil && !h.Limiter.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Rate limit exceeded. Try again later.",
			})
			return
		}
		var req analyzeRequest
		_ = c.ShouldBindJSON(&req)
		token := strings.TrimSpace(req.TurnstileToken)
		if token == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Verification token is required.",
			})
			return
		}
		ok, err := h.Verifier.Verify(c.Request.Context(), token, c.ClientIP())
		if err != nil {
			h.Logger.Warn("turnstile verification failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Verification service unavailable.",
			})
			return
		}
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"message": "Verification failed.",
			})
			return
		}
	}

	result := h.Runner.AnalyzeRandom(c.Request.Context())
	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, result)
}
