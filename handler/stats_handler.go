package handler

import (
	"context"
	"time"

	"github.com/amirbiron/prompt-enhancer/usecase"
	"github.com/amirbiron/prompt-enhancer/utils"

	"github.com/gin-gonic/gin"
)

func GetStatsHandler(c *gin.Context, promptsService *usecase.PromptsService) {
	stats, err := promptsService.GetStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, stats)
}

// HealthHandler reports process and store health for the deployment's
// liveness checks.
func HealthHandler(c *gin.Context) {
	status := "ok"
	mongoStatus := "ok"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if utils.MongoClient == nil {
		mongoStatus = "not initialized"
		status = "degraded"
	} else if err := utils.MongoClient.Ping(ctx, nil); err != nil {
		mongoStatus = "unreachable"
		status = "degraded"
	}

	utils.Success(c, gin.H{
		"status":      status,
		"mongo":       mongoStatus,
		"cpu_percent": utils.GetCPUUsage(),
	})
}
