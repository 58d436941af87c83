package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"draw-engine-backend/internal/models"
	"draw-engine-backend/internal/services"
)

type DrawHandler struct {
	store    services.LedgerStore
	oracle   *services.Oracle
	resolver *services.Resolver
}

func NewDrawHandler(store services.LedgerStore, oracle *services.Oracle, resolver *services.Resolver) *DrawHandler {
	return &DrawHandler{
		store:    store,
		oracle:   oracle,
		resolver: resolver,
	}
}

func (h *DrawHandler) CreateDraw(c *gin.Context) {
	var req models.CreateDrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if _, ok := models.RulesFor(req.DrawType); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown draw type"})
		return
	}

	jackpot, err := decimal.NewFromString(req.JackpotAmount)
	if err != nil || jackpot.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid jackpot amount"})
		return
	}

	scheduledAt := req.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}

	draw := &models.Draw{
		ID:            models.GenerateDrawID(req.DrawType),
		DrawType:      req.DrawType,
		Status:        models.DrawStatusScheduled,
		JackpotAmount: models.FormatAmount(jackpot),
		ScheduledAt:   scheduledAt,
		CreatedAt:     time.Now(),
	}

	if err := h.store.SaveDraw(c.Request.Context(), draw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save draw"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"draw": draw})
}

func (h *DrawHandler) GetDraw(c *gin.Context) {
	draw, err := h.store.GetDraw(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draw not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"draw": draw})
}

func (h *DrawHandler) RequestRandomness(c *gin.Context) {
	drawID := c.Param("id")

	draw, err := h.store.GetDraw(c.Request.Context(), drawID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draw not found"})
		return
	}

	receipt, err := h.oracle.RequestRandomNumbers(c.Request.Context(), draw.ID, draw.DrawType)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, services.ErrOracleUnavailable) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"error":   "Failed to request randomness",
			"details": err.Error(),
		})
		return
	}

	draw.Status = models.DrawStatusRandomness
	if err := h.store.SaveDraw(c.Request.Context(), draw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update draw"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"receipt": receipt})
}

func (h *DrawHandler) VerifyRandomness(c *gin.Context) {
	verification, err := h.oracle.VerifyProof(c.Request.Context(), c.Param("requestId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"verification": verification})
}

func (h *DrawHandler) ComputeNumbers(c *gin.Context) {
	numbers, err := h.oracle.ComputeWinningNumbers(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrNotFound) || errors.Is(err, services.ErrAuditEntryNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to compute winning numbers",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"winning_numbers": numbers})
}

func (h *DrawHandler) ResolveDraw(c *gin.Context) {
	summary, err := h.resolver.ResolveDrawByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrBatchIntegrityMismatch) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "Batch integrity mismatch, payouts halted",
				"details": err.Error(),
			})
			return
		}
		if summary == nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Failed to resolve draw",
				"details": err.Error(),
			})
			return
		}
		// Partial failures: summary still aggregated, failed tickets listed.
		c.JSON(http.StatusOK, gin.H{
			"summary":  summary,
			"failures": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
