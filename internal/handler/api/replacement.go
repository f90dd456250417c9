package api

import (
	"errors"
	"net/http"

	"orderflow/internal/domain/replacement"
	reqdto "orderflow/internal/handler/dto/request"
	resdto "orderflow/internal/handler/dto/response"
	"orderflow/internal/handler/httperr"
	"orderflow/internal/handler/middleware"
	"orderflow/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReplacementHandler struct {
	replacements usecase.ReplacementUseCase
}

func NewReplacementHandler(replacements usecase.ReplacementUseCase) *ReplacementHandler {
	return &ReplacementHandler{replacements: replacements}
}

// @Summary Request a replacement
// @Description Open a reposição for a completed order, identified by order id or transaction id
// @Tags replacements
// @Accept json
// @Produce json
// @Param request body reqdto.CreateReplacementRequest true "Replacement request"
// @Success 201 {object} resdto.ReplacementResponse
// @Success 200 {object} resdto.ReplacementResponse "Existing active request"
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/replacements [post]
func (h *ReplacementHandler) Create(c *gin.Context) {
	var req reqdto.CreateReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	rm, err := h.replacements.Create(c.Request.Context(), req.ToCommand())
	if err != nil {
		h.writeEligibilityError(c, err)
		return
	}

	status := http.StatusCreated
	if rm.Existing {
		status = http.StatusOK
	}
	c.JSON(status, resdto.FromReplacementRM(rm))
}

// @Summary Process replacement now
// @Description Dispatch the oldest pending reposição for an order immediately, ahead of the scheduled drain
// @Tags replacements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.ProcessReplacementRequest true "Order reference"
// @Success 200 {object} resdto.ReplacementResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/replacements/process [post]
func (h *ReplacementHandler) Process(c *gin.Context) {
	var req reqdto.ProcessReplacementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}
	actor, _ := middleware.GetActor(c)

	rm, err := h.replacements.ProcessOldestPending(c.Request.Context(), req.ToCommand(), actor)
	if err != nil {
		if errors.Is(err, replacement.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": replacement.ErrOrderNotFound.Error(),
			})
			return
		}
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromReplacementRM(rm))
}

// @Summary Get replacement
// @Tags replacements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Replacement ID"
// @Success 200 {object} resdto.ReplacementResponse
// @Failure 404 {object} map[string]string
// @Router /api/replacements/{id} [get]
func (h *ReplacementHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	rm, err := h.replacements.Get(c.Request.Context(), id)
	if err != nil {
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromReplacementRM(rm))
}

// @Summary Approve replacement
// @Description Approve a pending reposição and dispatch the refill to the provider
// @Tags replacements
// @Produce json
// @Security BearerAuth
// @Param id path string true "Replacement ID"
// @Success 200 {object} resdto.ReplacementResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/replacements/{id}/approve [post]
func (h *ReplacementHandler) Approve(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.GetActor(c)

	rm, err := h.replacements.Approve(c.Request.Context(), id, actor)
	if err != nil {
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromReplacementRM(rm))
}

// @Summary Reject replacement
// @Tags replacements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Replacement ID"
// @Param request body reqdto.RejectReplacementRequest false "Resolution note"
// @Success 200 {object} resdto.ReplacementResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/replacements/{id}/reject [post]
func (h *ReplacementHandler) Reject(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}
	actor, _ := middleware.GetActor(c)

	var req reqdto.RejectReplacementRequest
	_ = c.ShouldBindJSON(&req)

	rm, err := h.replacements.Reject(c.Request.Context(), id, actor, req.Resposta)
	if err != nil {
		h.writeActionError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromReplacementRM(rm))
}

// @Summary Replacement stats
// @Tags replacements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.ReplacementStatsResponse
// @Router /api/replacements/stats [get]
func (h *ReplacementHandler) Stats(c *gin.Context) {
	rm, err := h.replacements.Stats(c.Request.Context())
	if err != nil {
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromReplacementStatsRM(rm))
}

func (h *ReplacementHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid replacement id",
		})
		return uuid.Nil, false
	}
	return id, true
}

// writeEligibilityError maps each eligibility rule to its own message so
// customers learn which rule blocked them.
func (h *ReplacementHandler) writeEligibilityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, replacement.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": replacement.ErrOrderNotFound.Error(),
		})
	case errors.Is(err, replacement.ErrOrderNotCompleted),
		errors.Is(err, replacement.ErrRequestTooEarly),
		errors.Is(err, replacement.ErrRequestWindowClosed),
		errors.Is(err, replacement.ErrAlreadyActive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": err.Error(),
		})
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}

func (h *ReplacementHandler) writeActionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrReplacementNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Replacement not found",
		})
	case errors.Is(err, usecase.ErrReplacementNotPending):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Replacement is no longer pending",
		})
	default:
		httperr.AbortWithError(c, http.StatusInternalServerError, err, "Internal server error", nil)
	}
}
