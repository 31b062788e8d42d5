package routes

import (
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/controllers"
	"github.com/leadnest/crm_backend/middleware"
	"github.com/leadnest/crm_backend/services"
)

// RegisterAdminRoutes sets up all admin-related routes
func RegisterAdminRoutes(e *echo.Echo, db *mongo.Database, conversions *services.ConversionService, wallets *services.WalletService, withdrawals *services.WithdrawalService, settings *services.SettingsService) {
	authController := controllers.NewAuthController(db)
	leadController := controllers.NewLeadController(db, conversions)
	walletController := controllers.NewWalletController(db, wallets)
	withdrawalController := controllers.NewWithdrawalController(db, withdrawals)
	settingsController := controllers.NewCommissionSettingsController(db, settings)

	admin := e.Group("/api/admin")
	admin.Use(middleware.JWTMiddleware())
	admin.Use(middleware.RequireUserType("admin", "super_admin"))

	// Partner account management
	admin.POST("/partners", authController.CreatePartner)

	// Withdrawal workflow
	admin.GET("/withdrawals", withdrawalController.ListAllWithdrawals)
	admin.PUT("/withdrawals/:id/approve", withdrawalController.ApproveWithdrawal)
	admin.PUT("/withdrawals/:id/reject", withdrawalController.RejectWithdrawal)
	admin.PUT("/withdrawals/:id/process", withdrawalController.ProcessWithdrawal)

	// Commission settings (append-and-deactivate log)
	admin.GET("/commission-settings", settingsController.GetSettings)
	admin.PUT("/commission-settings", settingsController.UpdateSettings)
	admin.GET("/commission-settings/history", settingsController.GetSettingsHistory)

	// Ledger audit and cross-channel conversion trigger
	admin.GET("/wallets/:partnerId/audit", walletController.AuditWallet)
	admin.POST("/conversions/external", leadController.HandleExternalConversion)
}
