package api

import (
	"errors"
	"net/http"

	reqdto "orderflow/internal/handler/dto/request"
	resdto "orderflow/internal/handler/dto/response"
	"orderflow/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	intake     usecase.OrderIntakeUseCase
	processing usecase.OrderProcessingUseCase
}

func NewOrderHandler(intake usecase.OrderIntakeUseCase, processing usecase.OrderProcessingUseCase) *OrderHandler {
	return &OrderHandler{
		intake:     intake,
		processing: processing,
	}
}

// @Summary Order intake
// @Description Accept a paid order from the payments system, deduplicated by transaction and post identity
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateOrderRequest true "Order payload"
// @Success 200 {object} resdto.IntakeResponse "Duplicate acknowledged"
// @Success 201 {object} resdto.IntakeResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	var req reqdto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	rm, err := h.intake.CreateOrder(c.Request.Context(), req.ToCommand())
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTransactionIDMissing), errors.Is(err, usecase.ErrOrderInvalid):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid order payload",
			})
		case errors.Is(err, usecase.ErrMaintenanceMode):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service under maintenance",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	status := http.StatusCreated
	if rm.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromIntakeRM(rm))
}

// @Summary Order sync
// @Description Upsert an order by transaction id for reconciliation feeds
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.CreateOrderRequest true "Order payload"
// @Success 200 {object} resdto.SyncResponse
// @Failure 400 {object} map[string]string
// @Router /api/orders/sync [post]
func (h *OrderHandler) Sync(c *gin.Context) {
	var req reqdto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	rm, err := h.intake.SyncOrder(c.Request.Context(), req.ToCommand())
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrTransactionIDMissing), errors.Is(err, usecase.ErrOrderInvalid):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid order payload",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	status := http.StatusOK
	if rm.Created {
		status = http.StatusCreated
	}
	c.JSON(status, resdto.FromSyncRM(rm))
}

// @Summary Process one order
// @Description Submit a pending order to its provider immediately
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.ProcessOrderRequest true "Order to process"
// @Success 200 {object} resdto.ProcessResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/orders/process [post]
func (h *OrderHandler) Process(c *gin.Context) {
	var req reqdto.ProcessOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	rm, err := h.processing.ProcessOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
		case errors.Is(err, usecase.ErrOrderNotPending):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Order is no longer pending",
			})
		case errors.Is(err, usecase.ErrNoActiveProvider):
			c.JSON(http.StatusConflict, gin.H{
				"error": "No active provider available",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, resdto.FromProcessRM(rm))
}

// @Summary Get order
// @Description Fetch one order with its audit log
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param id path string true "Order ID"
// @Success 200 {object} resdto.OrderResponse
// @Failure 404 {object} map[string]string
// @Router /api/orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order id",
		})
		return
	}

	o, logs, err := h.intake.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, usecase.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, resdto.FromOrder(o, logs))
}
