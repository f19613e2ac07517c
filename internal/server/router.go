package server

import (
	handler "auction-ledger/services/auction/handler"

	"github.com/gin-gonic/gin"
)

// SetupRouter configures all Gin routes for the application
func SetupRouter(ledger handler.LedgerAPI, identity string, logics handler.LogicFactory) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	auctionHandler := handler.NewAuctionHandler(ledger, identity, logics)

	auctions := router.Group("/auctions")
	{
		auctions.POST("", auctionHandler.CreateAuctionHandler)
		auctions.GET("/:auction_id", auctionHandler.GetAuctionHandler)
		auctions.POST("/:auction_id/bids", auctionHandler.PlaceBidHandler)
		auctions.GET("/:auction_id/bids", auctionHandler.GetBidsHandler)
		auctions.POST("/:auction_id/settle", auctionHandler.SettleHandler)
		auctions.POST("/:auction_id/cancel", auctionHandler.CancelHandler)
		auctions.GET("/:auction_id/escrow", auctionHandler.GetEscrowHandler)
		auctions.POST("/:auction_id/escrow/withdraw", auctionHandler.WithdrawEscrowHandler)
	}

	admin := router.Group("/admin")
	{
		admin.POST("/upgrade", auctionHandler.UpgradeHandler)
		admin.GET("/version", auctionHandler.VersionHandler)
		admin.GET("/layout", auctionHandler.LayoutHandler)
	}

	return router
}
