package api

import (
	"errors"
	"net/http"

	reqdto "orderflow/internal/handler/dto/request"
	resdto "orderflow/internal/handler/dto/response"
	"orderflow/internal/usecase"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	scheduler usecase.SchedulerAdminUseCase
	settings  usecase.SettingsUseCase
	providers usecase.ProviderAdminUseCase
}

func NewAdminHandler(
	scheduler usecase.SchedulerAdminUseCase,
	settings usecase.SettingsUseCase,
	providers usecase.ProviderAdminUseCase,
) *AdminHandler {
	return &AdminHandler{
		scheduler: scheduler,
		settings:  settings,
		providers: providers,
	}
}

// @Summary Scheduler control
// @Description Inspect queue depths, kick a sweep outside its ticker, or purge queued jobs
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.SchedulerActionRequest true "Action: status, run_now or clean"
// @Success 200 {object} resdto.QueueStatusResponse
// @Failure 400 {object} map[string]string
// @Router /api/admin/scheduler [post]
func (h *AdminHandler) SchedulerAction(c *gin.Context) {
	var req reqdto.SchedulerActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	switch req.Action {
	case "status":
		rm, err := h.scheduler.Status(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
			return
		}
		c.JSON(http.StatusOK, resdto.FromQueueStatusRM(rm))

	case "run_now":
		rm, err := h.scheduler.RunNow(c.Request.Context(), req.Queue)
		if err != nil {
			h.writeQueueError(c, err)
			return
		}
		c.JSON(http.StatusOK, resdto.FromQueueActionRM(rm))

	case "clean":
		rm, err := h.scheduler.Clean(c.Request.Context(), req.Queue)
		if err != nil {
			h.writeQueueError(c, err)
			return
		}
		c.JSON(http.StatusOK, resdto.FromQueueActionRM(rm))
	}
}

// @Summary Get settings
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} resdto.SettingsResponse
// @Router /api/admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	current, err := h.settings.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, resdto.FromSettings(current))
}

// @Summary Update settings
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.UpdateSettingsRequest true "Settings"
// @Success 200 {object} resdto.SettingsResponse
// @Failure 400 {object} map[string]string
// @Router /api/admin/settings [put]
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req reqdto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	updated, err := h.settings.Update(c.Request.Context(), req.ToSettings())
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidSettings) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid settings payload",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}
	c.JSON(http.StatusOK, resdto.FromSettings(updated))
}

// @Summary Upsert provider
// @Description Register or update a fulfillment provider; the slug must have a dispatch client
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.UpsertProviderRequest true "Provider"
// @Success 200 {object} resdto.ProviderResponse
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/admin/providers [put]
func (h *AdminHandler) UpsertProvider(c *gin.Context) {
	var req reqdto.UpsertProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return
	}

	p, err := h.providers.Upsert(c.Request.Context(), req.ToCommand())
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrProviderInvalid):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid provider payload",
			})
		case errors.Is(err, usecase.ErrProviderSlugUnsupported):
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": "No dispatch client registered for slug",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}
	c.JSON(http.StatusOK, resdto.FromProvider(p))
}

// @Summary List active providers
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.ProviderResponse
// @Router /api/admin/providers [get]
func (h *AdminHandler) ListProviders(c *gin.Context) {
	providers, err := h.providers.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
		return
	}

	resp := make([]resdto.ProviderResponse, 0, len(providers))
	for _, p := range providers {
		resp = append(resp, resdto.FromProvider(p))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AdminHandler) writeQueueError(c *gin.Context, err error) {
	if errors.Is(err, usecase.ErrUnknownQueue) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unknown queue",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}
