package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"orderflow/internal/domain/user"
	"orderflow/internal/handler/api"
	"orderflow/internal/handler/middleware"
	"orderflow/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	logger *middleware.Logger,
	orderHandler *api.OrderHandler,
	replacementHandler *api.ReplacementHandler,
	adminHandler *api.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	setupMiddleware(engine, cfg, logger)
	setupRoutes(engine, orderHandler, replacementHandler, adminHandler, authMiddleware)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, logger *middleware.Logger) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(logger))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	orderHandler *api.OrderHandler,
	replacementHandler *api.ReplacementHandler,
	adminHandler *api.AdminHandler,
	authMiddleware *middleware.AuthMiddleware,
) {
	engine.GET("/health", healthCheck)

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		orders := apiGroup.Group("/orders")
		orders.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRoleAtLeast(user.RoleService))
		{
			addRoutes(orders, []route{
				{Method: http.MethodPost, Path: "", Handler: orderHandler.Create},
				{Method: http.MethodPost, Path: "/sync", Handler: orderHandler.Sync},
				{Method: http.MethodPost, Path: "/process", Handler: orderHandler.Process},
				{Method: http.MethodGet, Path: "/:id", Handler: orderHandler.Get},
			})
		}

		replacements := apiGroup.Group("/replacements")
		{
			// Creation is customer-facing and unauthenticated; everything
			// else on the resource is privileged.
			addRoutes(replacements, []route{
				{Method: http.MethodPost, Path: "", Handler: replacementHandler.Create},
			})

			privileged := replacements.Group("")
			privileged.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRoleAtLeast(user.RoleAdmin))
			addRoutes(privileged, []route{
				{Method: http.MethodGet, Path: "/stats", Handler: replacementHandler.Stats},
				{Method: http.MethodPost, Path: "/process", Handler: replacementHandler.Process},
				{Method: http.MethodGet, Path: "/:id", Handler: replacementHandler.Get},
				{Method: http.MethodPost, Path: "/:id/approve", Handler: replacementHandler.Approve},
				{Method: http.MethodPost, Path: "/:id/reject", Handler: replacementHandler.Reject},
			})
		}

		admin := apiGroup.Group("/admin")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRoleAtLeast(user.RoleAdmin))
		{
			addRoutes(admin, []route{
				{Method: http.MethodPost, Path: "/scheduler", Handler: adminHandler.SchedulerAction},
				{Method: http.MethodGet, Path: "/settings", Handler: adminHandler.GetSettings},
				{Method: http.MethodPut, Path: "/settings", Handler: adminHandler.UpdateSettings},
				{Method: http.MethodGet, Path: "/providers", Handler: adminHandler.ListProviders},
				{Method: http.MethodPut, Path: "/providers", Handler: adminHandler.UpsertProvider},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
