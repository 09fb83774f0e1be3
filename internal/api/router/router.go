package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"advisor-hub/backend/config"
	"advisor-hub/backend/internal/api/handler"
	"advisor-hub/backend/internal/api/middleware"
	"advisor-hub/backend/pkg/jwt"
	"advisor-hub/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(8 << 20)) // Excel 导入需要比普通 JSON 更宽的上限

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 认证模块（无需认证，登录注册加速率限制防爆破）
		auth := v1.Group("/auth")
		auth.Use(middleware.RateLimit(rdb, 20, time.Minute))
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.RefreshToken)
		}

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, rdb))
		{
			// 认证模块（需要认证）
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.GetCurrentUser)
			authorized.PUT("/auth/password", h.Auth.ChangePassword)

			// 用户模块（管理员）
			users := authorized.Group("/users")
			{
				users.GET("", middleware.RoleAuth("admin"), h.User.ListUsers)
				users.GET("/:id", middleware.RoleAuth("admin"), h.User.GetUser)
				users.PUT("/:id/role", middleware.RoleAuth("admin"), h.User.AssignRole)
				users.POST("/import", middleware.RoleAuth("admin"), h.User.ImportUsers)
			}

			// 项目模块
			projects := authorized.Group("/projects")
			{
				projects.GET("", h.Project.ListProjects)
				projects.GET("/mine", h.Project.ListMyProjects)
				projects.GET("/search-users", h.Project.SearchUsers)
				projects.GET("/:id", h.Project.GetProject)
				projects.POST("", h.Project.CreateProject)
				projects.PATCH("/:id", h.Project.UpdateProject) // 创建者或管理员（Service 层鉴权）
				projects.DELETE("/:id", middleware.RoleAuth("admin"), h.Project.ArchiveProject)
				projects.PATCH("/:id/members/add", h.Project.AddMembers)
				projects.PATCH("/:id/members/remove", h.Project.RemoveMembers)
			}

			// 小组模块（旧版实体）
			groups := authorized.Group("/groups")
			{
				groups.GET("", h.Group.ListGroups)
				groups.GET("/mine", h.Group.ListMyGroups)
				groups.GET("/search-users", h.Group.SearchUsers)
				groups.GET("/:id", h.Group.GetGroup)
				groups.POST("", h.Group.CreateGroup)
				groups.PATCH("/:id", h.Group.UpdateGroup)
				groups.DELETE("/:id", h.Group.DeleteGroup) // 创建者或管理员（Service 层鉴权）
				groups.PATCH("/:id/members/add", h.Group.AddMembers)
				groups.PATCH("/:id/members/remove", h.Group.RemoveMembers)
			}

			// 预约模块
			appointments := authorized.Group("/appointments")
			{
				appointments.GET("", h.Appointment.ListMyAppointments)
				appointments.GET("/:id", h.Appointment.GetAppointment)
				appointments.POST("", h.Appointment.CreateAppointment)
				appointments.PATCH("/:id", h.Appointment.UpdateAppointment)
				appointments.DELETE("/:id", h.Appointment.DeleteAppointment)
			}
		}
	}

	return r
}
