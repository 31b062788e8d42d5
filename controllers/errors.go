package controllers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/models"
	"github.com/leadnest/crm_backend/services"
)

// serviceErrorResponse maps ledger core errors onto HTTP statuses. The
// services surface every ledger-mutating failure unmodified; the API
// layer decides the wire shape here.
func serviceErrorResponse(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInsufficientBalance):
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrDuplicateCommission):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrConcurrencyConflict):
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "The record was modified concurrently, please retry",
		})
	case errors.Is(err, mongo.ErrNoDocuments):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Record not found",
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}
