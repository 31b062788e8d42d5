package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/models"
	"github.com/leadnest/crm_backend/services"
)

type CommissionSettingsController struct {
	DB       *mongo.Database
	Settings *services.SettingsService
}

func NewCommissionSettingsController(db *mongo.Database, settings *services.SettingsService) *CommissionSettingsController {
	return &CommissionSettingsController{DB: db, Settings: settings}
}

// GetSettings returns the active commission percentages, the built-in
// defaults if no admin has set rates yet
func (cc *CommissionSettingsController) GetSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := cc.Settings.GetActive(ctx)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission settings retrieved successfully",
		Data:    settings,
	})
}

// UpdateSettings replaces the active settings record. Old records are
// deactivated and kept for audit, never edited.
func (cc *CommissionSettingsController) UpdateSettings(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	adminID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid admin ID in token",
		})
	}

	var req models.UpdateCommissionSettingsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Commission percentages must be between 0 and 100",
		})
	}

	settings, err := cc.Settings.Update(ctx, req.OwnConversionCommission, req.SharedConversionCommission, adminID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission settings updated successfully",
		Data:    settings,
	})
}

// GetSettingsHistory returns the full append-and-deactivate log
func (cc *CommissionSettingsController) GetSettingsHistory(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	history, err := cc.Settings.History(ctx)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Commission settings history retrieved successfully",
		Data:    history,
	})
}
