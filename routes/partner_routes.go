package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/controllers"
	"github.com/leadnest/crm_backend/middleware"
	"github.com/leadnest/crm_backend/services"
)

// RegisterPartnerRoutes sets up the channel-partner facing routes
func RegisterPartnerRoutes(e *echo.Echo, db *mongo.Database, conversions *services.ConversionService, wallets *services.WalletService, withdrawals *services.WithdrawalService) {
	leadController := controllers.NewLeadController(db, conversions)
	walletController := controllers.NewWalletController(db, wallets)
	withdrawalController := controllers.NewWithdrawalController(db, withdrawals)

	partner := e.Group("/api/partner")
	partner.Use(middleware.JWTMiddleware())
	partner.Use(middleware.RequireUserType("channel_partner"))

	// Lead management
	partner.POST("/leads", leadController.CreateLead)
	partner.GET("/leads", leadController.GetLeads)
	partner.GET("/leads/:id", leadController.GetLead)
	partner.PUT("/leads/:id/status", leadController.UpdateLeadStatus)
	partner.POST("/leads/:id/share", leadController.ShareLead)
	partner.POST("/leads/:id/convert", leadController.ConvertLead)

	// Wallet
	partner.GET("/wallet", walletController.GetWallet)
	partner.GET("/wallet/transactions", walletController.GetTransactions)

	// Withdrawals
	partner.POST("/withdrawals", withdrawalController.CreateWithdrawal)
	partner.GET("/withdrawals", withdrawalController.GetWithdrawals)
	partner.DELETE("/withdrawals/:id", withdrawalController.CancelWithdrawal)
}
