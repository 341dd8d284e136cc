package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yorunoba/nightdesk-backend/config"
	"github.com/yorunoba/nightdesk-backend/internal/app/controller"
	"github.com/yorunoba/nightdesk-backend/internal/middleware"
)

// Controllers groups every HTTP handler the router mounts.
type Controllers struct {
	Auth       *controller.AuthController
	Store      *controller.StoreController
	Profile    *controller.ProfileController
	Menu       *controller.MenuController
	BottleKeep *controller.BottleKeepController
	Comment    *controller.CommentController
	Shift      *controller.ShiftController
	Attendance *controller.AttendanceController
	Table      *controller.TableController
	SNS        *controller.SNSController
	AI         *controller.AIController
	Dashboard  *controller.DashboardController
	Upload     *controller.UploadController
	Event      *controller.EventController
}

type Router struct {
	controllers    Controllers
	authMiddleware *middleware.AuthMiddleware
	config         *config.Config
}

func NewRouter(controllers Controllers, authMiddleware *middleware.AuthMiddleware, cfg *config.Config) *Router {
	return &Router{
		controllers:    controllers,
		authMiddleware: authMiddleware,
		config:         cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "NightDesk API is running",
		})
	})

	ctl := r.controllers
	authenticate := r.authMiddleware.Authenticate()
	manager := r.authMiddleware.RequireManager()
	admin := r.authMiddleware.RequireAdmin()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", ctl.Auth.RegisterStore)
			auth.POST("/login", ctl.Auth.Login)
			auth.POST("/refresh", ctl.Auth.Refresh)
			auth.POST("/logout", authenticate, ctl.Auth.Logout)
			auth.GET("/me", authenticate, ctl.Auth.Me)
		}

		// everything below needs a store profile
		api := v1.Group("", authenticate)

		api.GET("/store", ctl.Store.GetStore)
		api.PUT("/store", admin, ctl.Store.UpdateStore)
		api.GET("/dashboard", ctl.Dashboard.Summary)
		api.POST("/upload/presigned-url", ctl.Upload.GeneratePresignedURL)

		api.GET("/ws", ctl.Event.Connect)
		api.GET("/ws/sessions", manager, ctl.Event.Sessions)

		profiles := api.Group("/profiles")
		{
			profiles.GET("", ctl.Profile.ListProfiles)
			profiles.GET("/:id", ctl.Profile.GetProfile)
			profiles.POST("", admin, ctl.Profile.CreateProfile)
			profiles.PUT("/:id", admin, ctl.Profile.UpdateProfile)
			profiles.POST("/:id/deactivate", admin, ctl.Profile.DeactivateProfile)
			profiles.DELETE("/:id", admin, ctl.Profile.DeleteProfile)
		}

		categories := api.Group("/menu-categories")
		{
			categories.GET("", ctl.Menu.ListCategories)
			categories.POST("", manager, ctl.Menu.CreateCategory)
			categories.PUT("/order", manager, ctl.Menu.ReorderCategories)
			categories.PUT("/:id", manager, ctl.Menu.UpdateCategory)
			categories.DELETE("/:id", manager, ctl.Menu.DeleteCategory)
		}

		menus := api.Group("/menus")
		{
			menus.GET("", ctl.Menu.ListMenus)
			menus.GET("/:id", ctl.Menu.GetMenu)
			menus.POST("", manager, ctl.Menu.CreateMenu)
			menus.POST("/bulk", manager, ctl.Menu.BulkCreate)
			menus.POST("/import", manager, ctl.Menu.ImportXLSX)
			menus.PUT("/:id", manager, ctl.Menu.UpdateMenu)
			menus.PATCH("/:id/hidden", manager, ctl.Menu.SetHidden)
			menus.DELETE("/:id", manager, ctl.Menu.DeleteMenu)
		}

		bottles := api.Group("/bottle-keeps")
		{
			bottles.GET("", ctl.BottleKeep.List)
			bottles.GET("/export", manager, ctl.BottleKeep.Export)
			bottles.GET("/:id", ctl.BottleKeep.Get)
			bottles.POST("", ctl.BottleKeep.Create)
			bottles.PUT("/:id", manager, ctl.BottleKeep.Update)
			bottles.PATCH("/:id/remaining", ctl.BottleKeep.UpdateRemaining)
			bottles.DELETE("/:id", manager, ctl.BottleKeep.Delete)
			bottles.POST("/:id/holders", ctl.BottleKeep.AddHolder)
			bottles.DELETE("/:id/holders/:profile_id", manager, ctl.BottleKeep.RemoveHolder)
		}

		comments := api.Group("/comments")
		{
			comments.GET("", ctl.Comment.List)
			comments.POST("", ctl.Comment.Create)
			comments.PUT("/:id", ctl.Comment.Update)
			comments.DELETE("/:id", ctl.Comment.Delete)
		}

		shiftRequests := api.Group("/shift-requests")
		{
			shiftRequests.GET("", ctl.Shift.ListRequests)
			shiftRequests.GET("/:id", ctl.Shift.GetRequest)
			shiftRequests.POST("", manager, ctl.Shift.CreateRequest)
			shiftRequests.PUT("/:id", manager, ctl.Shift.UpdateRequest)
			shiftRequests.DELETE("/:id", manager, ctl.Shift.DeleteRequest)
			shiftRequests.GET("/:id/submissions", manager, ctl.Shift.ListSubmissions)
			shiftRequests.POST("/:id/bulk-approve", manager, ctl.Shift.BulkApprove)
			shiftRequests.GET("/:id/my-submission", ctl.Shift.GetMySubmission)
			shiftRequests.PUT("/:id/my-submission", ctl.Shift.Submit)
		}

		submissions := api.Group("/shift-submissions", manager)
		{
			submissions.POST("/:id/approve", ctl.Shift.Approve)
			submissions.POST("/:id/reject", ctl.Shift.Reject)
		}

		api.GET("/shifts/schedule", ctl.Shift.ListSchedule)

		attendance := api.Group("/attendance")
		{
			attendance.POST("/clock-in", ctl.Attendance.ClockIn)
			attendance.POST("/clock-out", ctl.Attendance.ClockOut)
			attendance.GET("", ctl.Attendance.List)
			attendance.GET("/export", manager, ctl.Attendance.Export)
			attendance.PUT("/:id", manager, ctl.Attendance.Update)
		}

		sns := api.Group("/sns", manager)
		{
			sns.GET("/accounts", ctl.SNS.ListAccounts)
			sns.POST("/accounts", ctl.SNS.CreateAccount)
			sns.PATCH("/accounts/:id/connection", ctl.SNS.SetConnected)
			sns.DELETE("/accounts/:id", ctl.SNS.DeleteAccount)

			sns.GET("/posts", ctl.SNS.ListPosts)
			sns.POST("/posts", ctl.SNS.CreatePost)
			sns.PUT("/posts/:id", ctl.SNS.UpdatePost)
			sns.POST("/posts/:id/cancel", ctl.SNS.CancelPost)
			sns.DELETE("/posts/:id", ctl.SNS.DeletePost)

			sns.GET("/schedules", ctl.SNS.ListSchedules)
			sns.POST("/schedules", ctl.SNS.CreateSchedule)
			sns.PATCH("/schedules/:id/active", ctl.SNS.SetScheduleActive)
			sns.DELETE("/schedules/:id", ctl.SNS.DeleteSchedule)
		}

		ai := api.Group("/ai", manager)
		{
			ai.POST("/menu-extraction", ctl.AI.ExtractMenus)
			ai.POST("/price-research", ctl.AI.ResearchPrice)
			ai.POST("/copy", ctl.AI.GenerateCopy)
			ai.POST("/image", ctl.AI.GenerateImage)
		}

		tables := api.Group("/admin/tables", admin)
		{
			tables.GET("", ctl.Table.ListTables)
			tables.GET("/:table", ctl.Table.Browse)
			tables.GET("/:table/export", ctl.Table.Export)
			tables.GET("/:table/rows/:id", ctl.Table.GetRow)
			tables.PUT("/:table/rows/:id", ctl.Table.UpdateRow)
			tables.DELETE("/:table/rows/:id", ctl.Table.DeleteRow)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
