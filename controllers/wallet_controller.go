package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/models"
	"github.com/leadnest/crm_backend/services"
)

type WalletController struct {
	DB      *mongo.Database
	Wallets *services.WalletService
}

func NewWalletController(db *mongo.Database, wallets *services.WalletService) *WalletController {
	return &WalletController{DB: db, Wallets: wallets}
}

// GetWallet returns the authenticated partner's wallet summary
func (wc *WalletController) GetWallet(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	summary, err := wc.Wallets.Summary(ctx, partnerID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Wallet retrieved successfully",
		Data:    summary,
	})
}

// GetTransactions returns a page of the partner's wallet transaction
// history, filterable by type, transactionType and date range
func (wc *WalletController) GetTransactions(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	filter := models.TransactionFilter{
		Direction:       models.TransactionDirection(c.QueryParam("type")),
		TransactionType: models.TransactionType(c.QueryParam("transactionType")),
	}
	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid 'from' date, expected YYYY-MM-DD",
			})
		}
		filter.From = &t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: "Invalid 'to' date, expected YYYY-MM-DD",
			})
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	page, limit := parsePagination(c)
	txns, total, err := wc.Wallets.ListTransactions(ctx, partnerID, filter, page, limit)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Transactions retrieved successfully",
		Data: map[string]interface{}{
			"transactions": txns,
			"total":        total,
			"page":         page,
			"limit":        limit,
		},
	})
}

// AuditWallet replays a partner's transaction log against the stored
// wallet projection. Admin-only; used to spot ledger drift.
func (wc *WalletController) AuditWallet(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	partnerID, err := primitive.ObjectIDFromHex(c.Param("partnerId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid partner ID format",
		})
	}

	report, err := wc.Wallets.Replay(ctx, partnerID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	message := "Wallet ledger is consistent"
	if !report.Consistent {
		message = "Wallet ledger is INCONSISTENT - see problem detail"
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    report,
	})
}
