package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter() *gin.Engine {
	router := gin.Default()

	EnsureSchedulerInitialized()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"} // Configure appropriately in production
	config.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(config))

	router.GET("/health", HealthCheck)

	api := router.Group("/api")
	{
		// One-time migrations
		api.POST("/migrate", StartMigration)
		api.POST("/plan", PlanMigration)
		api.GET("/status/:taskID", GetStatus)
		api.GET("/tasks", ListTasks)
		api.DELETE("/tasks/:taskID", DeleteTask)
		api.POST("/tasks/cleanup", CleanupTasks)

		// Scheduled migrations
		api.POST("/schedules", CreateSchedule)
		api.GET("/schedules", ListSchedules)
		api.GET("/schedules/stats", GetSchedulerStats)
		api.GET("/schedules/:id", GetSchedule)
		api.PUT("/schedules/:id", UpdateSchedule)
		api.DELETE("/schedules/:id", DeleteSchedule)
		api.POST("/schedules/:id/enable", EnableSchedule)
		api.POST("/schedules/:id/disable", DisableSchedule)
		api.POST("/schedules/:id/run", RunScheduleNow)
	}

	return router
}
