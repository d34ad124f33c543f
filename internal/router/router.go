package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ashwinyue/next-coder/internal/handler"
	"github.com/ashwinyue/next-coder/internal/logger"
	"github.com/ashwinyue/next-coder/internal/middleware"
)

// SetupRouter 设置路由
func SetupRouter(h *handler.Handlers, tokens middleware.TokenValidator, log *logger.Logger) *gin.Engine {
	r := gin.New()

	// 中间件
	r.Use(middleware.RecoveryMiddleware(log))
	r.Use(middleware.LoggingMiddleware(log))
	r.Use(middleware.CORSMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 静态访问
	r.GET("/static/:deployKey/*filepath", h.Static.Deployed)
	r.GET("/preview/:dir/*filepath", h.Static.Preview)

	requireAuth := middleware.RequireAuth(tokens)
	requireAdmin := middleware.RequireAdmin()

	api := r.Group("/api")
	{
		// User 用户
		users := api.Group("/user")
		{
			users.POST("/register", h.User.Register)
			users.POST("/login", h.User.Login)
			users.GET("/get/login", requireAuth, h.User.GetLoginUser)
			users.POST("/logout", requireAuth, h.User.Logout)
			users.POST("/update/my", requireAuth, h.User.UpdateMy)
			users.POST("/list/page/vo", requireAuth, requireAdmin, h.User.ListByAdmin)
		}

		// App 应用
		apps := api.Group("/app")
		{
			public := apps.Group("", middleware.OptionalAuth(tokens))
			{
				public.GET("/get/vo", h.App.Get)
				public.POST("/list/page/vo/featured", h.App.ListFeatured)
			}

			own := apps.Group("", requireAuth)
			{
				own.POST("/add", h.App.Add)
				own.POST("/update", h.App.Update)
				own.POST("/delete", h.App.Delete)
				own.POST("/my/list/page/vo", h.App.ListMine)
				own.GET("/chat/gen/code", h.App.ChatToGenCode)
				own.POST("/deploy", h.App.Deploy)
			}

			admin := apps.Group("", requireAuth, requireAdmin)
			{
				admin.POST("/delete/admin", h.App.DeleteByAdmin)
				admin.POST("/update/admin", h.App.UpdateByAdmin)
				admin.POST("/list/page/vo/admin", h.App.ListByAdmin)
				admin.GET("/get/admin", h.App.Get)
			}
		}

		// ChatHistory 对话历史
		history := api.Group("/chatHistory", requireAuth)
		{
			history.GET("/app/:appId", h.ChatHistory.ListAppChatHistory)
			history.POST("/admin/list/page/vo", requireAdmin, h.ChatHistory.ListAllByAdmin)
		}

		// CodeGen 不绑定应用的生成
		api.POST("/codegen/generate", requireAuth, h.CodeGen.Generate)
	}

	return r
}
