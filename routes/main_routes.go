package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/services"
)

// SetupRoutes configures all API routes. Services are constructed once
// here and shared across route groups: the wallet service in particular
// must be a single instance so its per-wallet locks actually serialize.
func SetupRoutes(e *echo.Echo, db *mongo.Database, cache *redis.Client) {
	wallets := services.NewWalletService(db)
	settings := services.NewSettingsService(db, cache)
	conversions := services.NewConversionService(db, settings, wallets)
	withdrawals := services.NewWithdrawalService(db, wallets)

	RegisterAuthRoutes(e, db)
	RegisterPartnerRoutes(e, db, conversions, wallets, withdrawals)
	RegisterAdminRoutes(e, db, conversions, wallets, withdrawals, settings)
}
