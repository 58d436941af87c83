package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"draw-engine-backend/internal/models"
	"draw-engine-backend/internal/services"
)

type TicketHandler struct {
	store  services.LedgerStore
	ledger *services.IntegrityLedger
}

func NewTicketHandler(store services.LedgerStore, ledger *services.IntegrityLedger) *TicketHandler {
	return &TicketHandler{
		store:  store,
		ledger: ledger,
	}
}

func (h *TicketHandler) PurchaseTicket(c *gin.Context) {
	var req models.PurchaseTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	draw, err := h.store.GetDraw(c.Request.Context(), req.DrawID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Draw not found"})
		return
	}
	if draw.Status == models.DrawStatusResolved || draw.Status == models.DrawStatusNumbersDrawn {
		c.JSON(http.StatusConflict, gin.H{"error": "Draw is closed for ticket sales"})
		return
	}

	rules, ok := draw.Rules()
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Draw has no rules"})
		return
	}

	ticket := &models.Ticket{
		ID:              models.GenerateTicketID(),
		UserID:          req.UserID,
		DrawID:          req.DrawID,
		SelectedNumbers: req.SelectedNumbers,
		Cost:            req.Cost,
		AgentID:         req.AgentID,
		PurchasedAt:     time.Now(),
	}
	if err := ticket.Validate(rules); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid ticket",
			"details": err.Error(),
		})
		return
	}

	if err := h.store.SaveTicket(c.Request.Context(), ticket); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save ticket"})
		return
	}

	record, err := h.ledger.RecordTicketHash(c.Request.Context(), ticket)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to record ticket hash",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ticket":      ticket,
		"hash_record": record,
	})
}

func (h *TicketHandler) GetTicket(c *gin.Context) {
	ticket, err := h.store.GetTicket(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Ticket not found"})
		return
	}

	record, _ := h.store.GetHashRecord(c.Request.Context(), ticket.ID)

	c.JSON(http.StatusOK, gin.H{
		"ticket":      ticket,
		"hash_record": record,
	})
}

func (h *TicketHandler) GetTicketProof(c *gin.Context) {
	proof, err := h.ledger.TicketProof(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, services.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{
			"error":   "Failed to build inclusion proof",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"proof": proof})
}

func (h *TicketHandler) SealBatch(c *gin.Context) {
	batch, err := h.ledger.SealBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to seal batch",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

func (h *TicketHandler) VerifyBatch(c *gin.Context) {
	batch, err := h.ledger.VerifyBatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrBatchIntegrityMismatch) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "Batch root mismatch",
				"batch": batch.ID,
			})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"batch_id": batch.ID,
		"root":     batch.Root,
		"valid":    true,
	})
}
