package router

import (
	"github.com/FarahBaraket-03/FundChain/internal/fund"
	"github.com/FarahBaraket-03/FundChain/internal/handler"
	"github.com/FarahBaraket-03/FundChain/internal/store"
	"github.com/FarahBaraket-03/FundChain/internal/sync"
	"github.com/gin-gonic/gin"
)

func Setup(st *store.Store, syncer *sync.Synchronizer, checker *fund.Checker) *gin.Engine {
	r := gin.Default()

	// 中间件
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "fundchain",
		})
	})

	// API版本组
	v1 := r.Group("/api/v1")
	{
		campaignHandler := handler.NewCampaignHandler(st, syncer, checker)
		campaigns := v1.Group("/campaigns")
		{
			campaigns.POST("/sync", campaignHandler.SyncCampaign)
			campaigns.GET("/:id", campaignHandler.GetCampaign)
			campaigns.POST("/:id/cancel", campaignHandler.CancelCampaign)
			campaigns.GET("/:id/eligibility", campaignHandler.GetEligibility)
		}

		entryHandler := handler.NewEntryHandler(st)
		v1.POST("/donations", entryHandler.SyncDonation)
		v1.POST("/withdrawals", entryHandler.SyncWithdrawal)
	}

	return r
}

// CORS中间件
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Wallet-Address")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
