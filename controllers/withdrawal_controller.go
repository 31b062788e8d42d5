package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/leadnest/crm_backend/models"
	"github.com/leadnest/crm_backend/services"
)

type WithdrawalController struct {
	DB          *mongo.Database
	Withdrawals *services.WithdrawalService
}

func NewWithdrawalController(db *mongo.Database, withdrawals *services.WithdrawalService) *WithdrawalController {
	return &WithdrawalController{DB: db, Withdrawals: withdrawals}
}

// CreateWithdrawal submits a partner's payout request. No money moves
// until an admin settles the request.
func (wc *WithdrawalController) CreateWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	var req models.CreateWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A positive amount and complete bank details are required",
		})
	}

	request, err := wc.Withdrawals.Request(ctx, partnerID, req.Amount, req.BankDetails)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Withdrawal request submitted and awaiting admin approval",
		Data:    request,
	})
}

// GetWithdrawals returns the partner's withdrawal history, optionally by status
func (wc *WithdrawalController) GetWithdrawals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	page, limit := parsePagination(c)
	status := models.WithdrawalStatus(c.QueryParam("status"))

	requests, total, err := wc.Withdrawals.List(ctx, partnerID, status, page, limit)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal requests retrieved successfully",
		Data: map[string]interface{}{
			"withdrawals": requests,
			"total":       total,
			"page":        page,
			"limit":       limit,
		},
	})
}

// CancelWithdrawal lets the partner cancel a still-pending request
func (wc *WithdrawalController) CancelWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	partnerID, err := partnerIDFromToken(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid user ID in token",
		})
	}

	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid withdrawal ID format",
		})
	}

	request, err := wc.Withdrawals.Cancel(ctx, requestID, partnerID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request cancelled",
		Data:    request,
	})
}

// ListAllWithdrawals is the admin view over every partner's requests
func (wc *WithdrawalController) ListAllWithdrawals(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	page, limit := parsePagination(c)
	status := models.WithdrawalStatus(c.QueryParam("status"))

	requests, total, err := wc.Withdrawals.List(ctx, primitive.NilObjectID, status, page, limit)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal requests retrieved successfully",
		Data: map[string]interface{}{
			"withdrawals": requests,
			"total":       total,
			"page":        page,
			"limit":       limit,
		},
	})
}

// ApproveWithdrawal moves a pending request to approved. Money still does
// not move; settlement is a separate admin action.
func (wc *WithdrawalController) ApproveWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	requestID, adminID, err := wc.requestAndAdminIDs(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	request, err := wc.Withdrawals.Approve(ctx, requestID, adminID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request approved",
		Data:    request,
	})
}

// RejectWithdrawal terminally refuses a pending request
func (wc *WithdrawalController) RejectWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	requestID, adminID, err := wc.requestAndAdminIDs(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	var req models.RejectWithdrawalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "A rejection reason is required",
		})
	}

	request, err := wc.Withdrawals.Reject(ctx, requestID, adminID, req.Reason)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal request rejected",
		Data:    request,
	})
}

// ProcessWithdrawal settles an approved request: the wallet is debited
// and the request carries the resulting transaction. A failed debit
// reverts the request to pending and surfaces the reason here.
func (wc *WithdrawalController) ProcessWithdrawal(c echo.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	requestID, adminID, err := wc.requestAndAdminIDs(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	request, err := wc.Withdrawals.MarkProcessed(ctx, requestID, adminID)
	if err != nil {
		return serviceErrorResponse(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Withdrawal settled and wallet debited",
		Data:    request,
	})
}

func (wc *WithdrawalController) requestAndAdminIDs(c echo.Context) (primitive.ObjectID, primitive.ObjectID, error) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, errors.New("Invalid withdrawal ID format")
	}
	adminID, err := partnerIDFromToken(c)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, errors.New("Invalid admin ID in token")
	}
	return requestID, adminID, nil
}
